package models

import "time"

// EventType 標記推播事件的種類
type EventType string

const (
	EventNewMessage        EventType = "new-message"
	EventMessageTranslated EventType = "message-translated"
	EventParticipantJoined EventType = "participant-joined"
	EventParticipantLeft   EventType = "participant-left"
	EventStatusUpdated     EventType = "status-updated"
	EventSettingsUpdated   EventType = "settings-updated"
)

// Event 是推播給訂閱端的帶標記事件。
// 每種事件只填入對應的欄位，訂閱端依 Type 分派處理。
type Event struct {
	Type        EventType    `json:"type"`
	DebateID    uint         `json:"debate_id"`
	Message     *Message     `json:"message,omitempty"`
	Participant *Participant `json:"participant,omitempty"`
	Status      DebateStatus `json:"status,omitempty"`
	EndTime     *time.Time   `json:"end_time,omitempty"`
	Settings    *Settings    `json:"settings,omitempty"`
}

// NewMessageEvent 建立新訊息事件
func NewMessageEvent(debateID uint, msg *Message) *Event {
	return &Event{Type: EventNewMessage, DebateID: debateID, Message: msg}
}

// MessageTranslatedEvent 建立翻譯補齊事件，帶著已含翻譯的同一則訊息
func MessageTranslatedEvent(debateID uint, msg *Message) *Event {
	return &Event{Type: EventMessageTranslated, DebateID: debateID, Message: msg}
}

// ParticipantJoinedEvent 建立參與者加入事件
func ParticipantJoinedEvent(debateID uint, p *Participant) *Event {
	return &Event{Type: EventParticipantJoined, DebateID: debateID, Participant: p}
}

// ParticipantLeftEvent 建立參與者離開事件
func ParticipantLeftEvent(debateID uint, p *Participant) *Event {
	return &Event{Type: EventParticipantLeft, DebateID: debateID, Participant: p}
}

// StatusUpdatedEvent 建立狀態變更事件
func StatusUpdatedEvent(debateID uint, status DebateStatus, endTime *time.Time) *Event {
	return &Event{Type: EventStatusUpdated, DebateID: debateID, Status: status, EndTime: endTime}
}

// SettingsUpdatedEvent 建立設定變更事件
func SettingsUpdatedEvent(debateID uint, settings Settings) *Event {
	return &Event{Type: EventSettingsUpdated, DebateID: debateID, Settings: &settings}
}
