package service

import (
	"log"
	"strings"
	"sync"
	"time"

	"debate_hub/internal/apperr"
	"debate_hub/internal/models"
	"debate_hub/internal/repository"
)

// DebateService 處理辯論的建立、成員進出、訊息發送與生命週期操作。
// 所有變更都走 repository 的 Commit，前置條件在提交當下重新驗證，
// 廣播一律在提交成功之後進行。
// 每場辯論有一把順序鎖，提交與排入廣播在鎖內完成，
// 訂閱端收到事件的順序因此跟提交順序一致。
type DebateService struct {
	debateRepo  repository.DebateRepository
	userRepo    repository.UserRepository
	broadcaster Broadcaster
	fanout      *TranslationFanout
	clock       Clock

	ordMu    sync.Mutex
	ordLocks map[uint]*sync.Mutex
}

func NewDebateService(
	debateRepo repository.DebateRepository,
	userRepo repository.UserRepository,
	broadcaster Broadcaster,
	fanout *TranslationFanout,
	clock Clock,
) *DebateService {
	return &DebateService{
		debateRepo:  debateRepo,
		userRepo:    userRepo,
		broadcaster: broadcaster,
		fanout:      fanout,
		clock:       clock,
		ordLocks:    make(map[uint]*sync.Mutex),
	}
}

// orderLock 回傳指定辯論的順序鎖
func (s *DebateService) orderLock(debateID uint) *sync.Mutex {
	s.ordMu.Lock()
	defer s.ordMu.Unlock()

	mu, ok := s.ordLocks[debateID]
	if !ok {
		mu = &sync.Mutex{}
		s.ordLocks[debateID] = mu
	}
	return mu
}

// CreateDebateInput 定義建立辯論所需的欄位
type CreateDebateInput struct {
	Title       string
	Description string
	Languages   []string
	Topics      []string
	Capacity    int
	StartTime   *time.Time
	TimeLimit   int // 以分鐘為單位，0 表示不限時
	Settings    *models.Settings
}

// CreateDebate 建立一場辯論。
// 開始時間在未來的辯論以 scheduled 起始，否則直接是 active；
// 主持人一律以第一筆參與紀錄入場。
func (s *DebateService) CreateDebate(hostID uint, input CreateDebateInput) (*models.Debate, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperr.New(apperr.Validation, "標題不可為空")
	}
	if input.Capacity < 1 {
		return nil, apperr.New(apperr.Validation, "人數上限必須是正整數")
	}
	if input.TimeLimit < 0 {
		return nil, apperr.New(apperr.Validation, "時間限制不可為負數")
	}

	host, err := s.userRepo.FindByID(hostID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	start := now
	if input.StartTime != nil {
		start = *input.StartTime
	}

	status := models.StatusActive
	if start.After(now) {
		status = models.StatusScheduled
	}

	settings := models.Settings{AutoTranslate: true}
	if input.Settings != nil {
		settings = *input.Settings
	}

	debate := &models.Debate{
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		StartTime:   start,
		TimeLimit:   input.TimeLimit,
		HostID:      hostID,
		Capacity:    input.Capacity,
		Languages:   input.Languages,
		Topics:      input.Topics,
		Settings:    settings,
		Participants: []models.Participant{{
			UserID:   hostID,
			Language: host.PreferredLanguage,
			JoinedAt: now,
			IsActive: true,
		}},
	}

	if err := s.debateRepo.Create(debate); err != nil {
		return nil, err
	}
	return debate, nil
}

// GetDebate 取得辯論的完整狀態
func (s *DebateService) GetDebate(debateID uint) (*models.Debate, error) {
	return s.debateRepo.FindByID(debateID)
}

// ListDebates 列出所有辯論，新的在前
func (s *DebateService) ListDebates() ([]models.Debate, error) {
	return s.debateRepo.FindAll()
}

// GetMessages 取得辯論的訊息列表，依寫入順序排列
func (s *DebateService) GetMessages(debateID uint) ([]models.Message, error) {
	debate, err := s.debateRepo.FindByID(debateID)
	if err != nil {
		return nil, err
	}
	return debate.Messages, nil
}

// RemainingSeconds 回傳限時辯論剩餘的秒數
func (s *DebateService) RemainingSeconds(debateID uint) (int, error) {
	debate, err := s.debateRepo.FindByID(debateID)
	if err != nil {
		return 0, err
	}
	return debate.RemainingSeconds(s.clock.Now()), nil
}

// JoinDebate 讓用戶加入辯論。
// 重新加入會新增一筆參與紀錄，保留完整的進出歷史。
func (s *DebateService) JoinDebate(debateID, userID uint) (*models.Debate, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	mu := s.orderLock(debateID)
	mu.Lock()
	defer mu.Unlock()

	var promoted bool
	debate, err := s.debateRepo.Commit(debateID, func(d *models.Debate) error {
		now := s.clock.Now()
		promoted = s.refresh(d, now)

		if d.Status == models.StatusEnded {
			return apperr.New(apperr.Conflict, "辯論已結束")
		}
		if d.Status != models.StatusActive {
			return apperr.New(apperr.Conflict, "辯論尚未開始")
		}
		if d.ActiveParticipant(userID) != nil {
			return apperr.New(apperr.Conflict, "已經加入此辯論")
		}
		if len(d.ActiveParticipants()) >= d.Capacity {
			return apperr.New(apperr.Conflict, "辯論人數已滿")
		}

		d.Participants = append(d.Participants, models.Participant{
			UserID:   userID,
			Language: user.PreferredLanguage,
			JoinedAt: now,
			IsActive: true,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if promoted {
		s.broadcaster.BroadcastEvent(debate.ID, models.StatusUpdatedEvent(debate.ID, debate.Status, debate.EndTime))
	}
	s.broadcaster.BroadcastEvent(debate.ID, models.ParticipantJoinedEvent(debate.ID, debate.ActiveParticipant(userID)))
	return debate, nil
}

// LeaveDebate 讓用戶離開辯論。
// 主持人不能離開，必須改用 EndDebate 結束整場辯論。
func (s *DebateService) LeaveDebate(debateID, userID uint) (*models.Debate, error) {
	mu := s.orderLock(debateID)
	mu.Lock()
	defer mu.Unlock()

	var left *models.Participant
	debate, err := s.debateRepo.Commit(debateID, func(d *models.Debate) error {
		now := s.clock.Now()
		s.refresh(d, now)

		// 結束的辯論先回衝突，而不是因為所有人都已離場回 NotFound
		if d.Status == models.StatusEnded {
			return apperr.New(apperr.Conflict, "辯論已結束")
		}

		p := d.ActiveParticipant(userID)
		if p == nil {
			return apperr.New(apperr.NotFound, "不是此辯論的參與者")
		}
		if d.IsHost(userID) {
			return apperr.New(apperr.Conflict, "主持人不能離開，請改用結束辯論")
		}

		p.IsActive = false
		t := now
		p.LeftAt = &t
		left = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastEvent(debate.ID, models.ParticipantLeftEvent(debate.ID, left))
	return debate, nil
}

// EndDebate 由主持人結束辯論：所有參與者離場、蓋上結束時間。
// 與背景清理競態時由提交內的狀態檢查保證只套用一次。
func (s *DebateService) EndDebate(debateID, requesterID uint) (*models.Debate, error) {
	mu := s.orderLock(debateID)
	mu.Lock()
	defer mu.Unlock()

	debate, err := s.debateRepo.Commit(debateID, func(d *models.Debate) error {
		if !d.IsHost(requesterID) {
			return apperr.New(apperr.Forbidden, "只有主持人可以結束辯論")
		}
		// 以儲存的狀態判斷重複結束；逾時未掃到的辯論由這次明確結束收尾
		if d.Status == models.StatusEnded {
			return apperr.New(apperr.Conflict, "辯論已經結束")
		}

		d.End(s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastEvent(debate.ID, models.StatusUpdatedEvent(debate.ID, debate.Status, debate.EndTime))
	return debate, nil
}

// ChangeStatus 由主持人手動推進辯論狀態。
// 狀態只能往前：scheduled → active → ended，往回或原地都會被拒絕。
func (s *DebateService) ChangeStatus(debateID, requesterID uint, status models.DebateStatus) (*models.Debate, error) {
	switch status {
	case models.StatusScheduled, models.StatusActive, models.StatusEnded:
	default:
		return nil, apperr.New(apperr.Validation, "無效的辯論狀態")
	}

	mu := s.orderLock(debateID)
	mu.Lock()
	defer mu.Unlock()

	debate, err := s.debateRepo.Commit(debateID, func(d *models.Debate) error {
		now := s.clock.Now()

		if !d.IsHost(requesterID) {
			return apperr.New(apperr.Forbidden, "只有主持人可以變更狀態")
		}

		switch {
		case d.Status == models.StatusScheduled && status == models.StatusActive:
			d.Status = models.StatusActive
			// 提前開始的辯論把開始時間拉到現在，時間限制從此刻起算
			if d.StartTime.After(now) {
				d.StartTime = now
			}
		case d.Status != models.StatusEnded && status == models.StatusEnded:
			d.End(now)
		default:
			return apperr.New(apperr.Conflict, "狀態只能往前推進")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastEvent(debate.ID, models.StatusUpdatedEvent(debate.ID, debate.Status, debate.EndTime))
	return debate, nil
}

// ChangeSettings 由主持人更新房間設定
func (s *DebateService) ChangeSettings(debateID, requesterID uint, settings models.Settings) (*models.Debate, error) {
	mu := s.orderLock(debateID)
	mu.Lock()
	defer mu.Unlock()

	debate, err := s.debateRepo.Commit(debateID, func(d *models.Debate) error {
		now := s.clock.Now()
		s.refresh(d, now)

		if !d.IsHost(requesterID) {
			return apperr.New(apperr.Forbidden, "只有主持人可以變更設定")
		}
		if d.Status == models.StatusEnded {
			return apperr.New(apperr.Conflict, "辯論已經結束")
		}

		d.Settings = settings
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastEvent(debate.ID, models.SettingsUpdatedEvent(debate.ID, debate.Settings))
	return debate, nil
}

// SendMessage 發送一條訊息：提交到訊息日誌後立刻廣播，
// 翻譯在鎖外慢慢補，完成後以補齊事件追送。
// 廣播不等翻譯，訊息事件的順序才不會被慢的翻譯服務打亂。
func (s *DebateService) SendMessage(debateID, userID uint, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.Validation, "訊息內容不可為空")
	}

	mu := s.orderLock(debateID)
	mu.Lock()

	var promoted bool
	debate, err := s.debateRepo.Commit(debateID, func(d *models.Debate) error {
		now := s.clock.Now()
		promoted = s.refresh(d, now)

		if !d.CanAcceptMessages(now) {
			return apperr.New(apperr.Conflict, "辯論目前不接受訊息")
		}
		p := d.ActiveParticipant(userID)
		if p == nil {
			return apperr.New(apperr.Forbidden, "不是此辯論的參與者")
		}

		d.Messages = append(d.Messages, models.Message{
			UserID:    userID,
			Text:      text,
			Language:  p.Language,
			Timestamp: now,
		})
		return nil
	})
	if err != nil {
		mu.Unlock()
		return nil, err
	}

	msg := &debate.Messages[len(debate.Messages)-1]

	if promoted {
		s.broadcaster.BroadcastEvent(debate.ID, models.StatusUpdatedEvent(debate.ID, debate.Status, debate.EndTime))
	}
	// 事件帶訊息的快照，之後補翻譯不會動到已排入的酬載
	base := *msg
	s.broadcaster.BroadcastEvent(debate.ID, models.NewMessageEvent(debate.ID, &base))
	mu.Unlock()

	// 翻譯在發布之後進行：個別語言失敗只留下缺口，不影響已送出的訊息
	if debate.Settings.AutoTranslate && s.fanout != nil {
		s.fanout.Apply(debate, msg)
		if len(msg.TranslatedTexts) > 0 {
			if err := s.debateRepo.UpdateMessageTranslations(msg.ID, msg.TranslatedTexts); err != nil {
				log.Printf("persist translations for message %d: %v", msg.ID, err)
			}
			mu.Lock()
			s.broadcaster.BroadcastEvent(debate.ID, models.MessageTranslatedEvent(debate.ID, msg))
			mu.Unlock()
		}
	}
	return msg, nil
}

// refresh 依目前時間推進辯論狀態：到點的 scheduled 轉為 active，
// 逾時的辯論直接結束。回傳狀態是否有變動。
func (s *DebateService) refresh(d *models.Debate, now time.Time) bool {
	changed := false
	if d.Status == models.StatusScheduled && d.HasStarted(now) {
		d.Status = models.StatusActive
		changed = true
	}
	if d.Status == models.StatusActive && d.HasEnded(now) {
		d.End(now)
		changed = true
	}
	return changed
}
