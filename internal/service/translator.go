package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"debate_hub/internal/apperr"
	"debate_hub/internal/models"
)

// Translator 將文字從來源語言翻成目標語言，由外部服務實作
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// HTTPTranslator 透過 HTTP JSON 介面呼叫外部翻譯服務
type HTTPTranslator struct {
	url    string
	client *http.Client
}

func NewHTTPTranslator(url string, timeout time.Duration) *HTTPTranslator {
	return &HTTPTranslator{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type translateRequest struct {
	Text   string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Text:   text,
		Source: source,
		Target: target,
		Format: "text",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "翻譯服務無法連線", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.New(apperr.Upstream, fmt.Sprintf("翻譯服務回應 %d", resp.StatusCode))
	}

	var result translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperr.Wrap(apperr.Upstream, "翻譯服務回應格式錯誤", err)
	}
	return result.TranslatedText, nil
}

// TranslationFanout 為已提交並發布的訊息補上各接收者語言的翻譯。
// 它不持有任何辯論狀態，只充實訊息物件。
type TranslationFanout struct {
	translator Translator
	timeout    time.Duration
}

func NewTranslationFanout(translator Translator, timeout time.Duration) *TranslationFanout {
	return &TranslationFanout{
		translator: translator,
		timeout:    timeout,
	}
}

// Apply 為訊息補上翻譯：目標是目前在場參與者的語言集合，排除發送者自己的語言。
// 個別語言的翻譯失敗只記錄不中斷，訊息帶著成功的部分照常發布。
func (f *TranslationFanout) Apply(debate *models.Debate, msg *models.Message) {
	targets := f.targetLanguages(debate, msg.Language)
	for _, lang := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		translated, err := f.translator.Translate(ctx, msg.Text, msg.Language, lang)
		cancel()
		if err != nil {
			log.Printf("translation unavailable for language %s: %v", lang, err)
			continue
		}
		if msg.TranslatedTexts == nil {
			msg.TranslatedTexts = make(map[string]string)
		}
		msg.TranslatedTexts[lang] = translated
	}
}

// targetLanguages 收集在場參與者的語言，去重、排除發送者語言後排序
func (f *TranslationFanout) targetLanguages(debate *models.Debate, sender string) []string {
	seen := make(map[string]bool)
	for _, p := range debate.Participants {
		if !p.IsActive || p.Language == "" || p.Language == sender {
			continue
		}
		seen[p.Language] = true
	}

	targets := make([]string, 0, len(seen))
	for lang := range seen {
		targets = append(targets, lang)
	}
	sort.Strings(targets)
	return targets
}
