package models

import (
	"time"

	"gorm.io/gorm"
)

// Debate 表示一場多語辯論房間
type Debate struct {
	gorm.Model
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      DebateStatus `gorm:"type:varchar(16);index" json:"status"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     *time.Time   `json:"end_time,omitempty"` // 結束時間，只在轉為 ended 時設定一次
	TimeLimit   int          `json:"time_limit"`         // 以分鐘為單位，0 表示不限時
	HostID      uint         `json:"host_id"`
	Capacity    int          `json:"capacity"`
	Languages   []string     `gorm:"serializer:json" json:"languages"`
	Topics      []string     `gorm:"serializer:json" json:"topics"`
	Settings    Settings     `gorm:"serializer:json" json:"settings"`
	// Version 樂觀鎖版本號，每次成功提交遞增一次
	Version      int           `json:"-"`
	Participants []Participant `gorm:"foreignKey:DebateID" json:"participants"`
	Messages     []Message     `gorm:"foreignKey:DebateID" json:"messages"`
}

// DebateStatus 定義辯論狀態的類型
type DebateStatus string

const (
	StatusScheduled DebateStatus = "scheduled"
	StatusActive    DebateStatus = "active"
	StatusEnded     DebateStatus = "ended"
)

// Settings 是主持人可調整的房間設定
type Settings struct {
	AllowAnonymous  bool `json:"allow_anonymous"`
	RequireApproval bool `json:"require_approval"`
	AutoTranslate   bool `json:"auto_translate"`
}

// Participant 表示辯論的一筆參與紀錄。
// 同一用戶重新加入會新增一筆紀錄，舊紀錄保留完整的加入與離開歷史。
type Participant struct {
	gorm.Model
	DebateID uint       `gorm:"index" json:"debate_id"`
	UserID   uint       `json:"user_id"`
	Language string     `gorm:"type:varchar(16)" json:"language"` // 加入當下用戶的慣用語言
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
	IsActive bool       `json:"is_active"`
}

// Message 表示辯論中的一條訊息。
// (發送者, 內容, 時間戳) 一旦寫入就不再變動；翻譯結果可以事後補上。
type Message struct {
	gorm.Model
	DebateID        uint              `gorm:"index" json:"debate_id"`
	UserID          uint              `json:"user_id"`
	Text            string            `gorm:"type:text" json:"text"`
	Language        string            `gorm:"type:varchar(16)" json:"language"` // 發送者的語言
	TranslatedTexts map[string]string `gorm:"serializer:json" json:"translated_texts,omitempty"`
	Timestamp       time.Time         `json:"timestamp"` // 由伺服器指定
}

// HasStarted 回報辯論的開始時間是否已到
func (d *Debate) HasStarted(now time.Time) bool {
	return !d.StartTime.After(now)
}

// HasEnded 回報辯論是否應視為已結束：
// 狀態已是 ended、已過明確的結束時間、或已超出時間限制
func (d *Debate) HasEnded(now time.Time) bool {
	if d.Status == StatusEnded {
		return true
	}
	if d.EndTime != nil && !d.EndTime.After(now) {
		return true
	}
	if d.TimeLimit > 0 && d.HasStarted(now) {
		deadline := d.StartTime.Add(time.Duration(d.TimeLimit) * time.Minute)
		return !deadline.After(now)
	}
	return false
}

// CanAcceptMessages 回報辯論目前是否接受新訊息
func (d *Debate) CanAcceptMessages(now time.Time) bool {
	if d.Status == StatusEnded {
		return false
	}
	if d.Status == StatusScheduled {
		return d.HasStarted(now)
	}
	return true
}

// RemainingSeconds 回傳限時辯論剩餘的秒數；
// 非進行中或不限時的辯論回傳 -1
func (d *Debate) RemainingSeconds(now time.Time) int {
	if d.Status != StatusActive || d.TimeLimit <= 0 {
		return -1
	}
	deadline := d.StartTime.Add(time.Duration(d.TimeLimit) * time.Minute)
	remaining := int(deadline.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ActiveParticipants 回傳目前在場的參與紀錄
func (d *Debate) ActiveParticipants() []Participant {
	var active []Participant
	for _, p := range d.Participants {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active
}

// ActiveParticipant 尋找指定用戶目前在場的參與紀錄
func (d *Debate) ActiveParticipant(userID uint) *Participant {
	for i := range d.Participants {
		if d.Participants[i].UserID == userID && d.Participants[i].IsActive {
			return &d.Participants[i]
		}
	}
	return nil
}

// IsHost 回報指定用戶是否為主持人
func (d *Debate) IsHost(userID uint) bool {
	return d.HostID == userID
}

// End 結束辯論：設定狀態與結束時間，並讓所有參與者離場。
// 呼叫端必須先確認狀態不是 ended。
func (d *Debate) End(now time.Time) {
	d.Status = StatusEnded
	if d.EndTime == nil {
		t := now
		d.EndTime = &t
	}
	for i := range d.Participants {
		if d.Participants[i].IsActive {
			d.Participants[i].IsActive = false
			t := now
			d.Participants[i].LeftAt = &t
		}
	}
}
