package model

import "time"

// AskEvent 是每次 /ask 请求产生的审计事件，通过 Kafka 投递。
// ClientHash 为加盐哈希后的客户端标识，不记录原始 IP。
type AskEvent struct {
	RequestID  string    `json:"request_id"`
	Origin     string    `json:"origin"`
	ClientHash string    `json:"client_hash"`
	UserAgent  string    `json:"user_agent"`
	Question   string    `json:"question"`
	SessionID  string    `json:"session_id,omitempty"`
	Route      string    `json:"route"`
	Status     int       `json:"status"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// AskLog 对应 ask_logs 表。
type AskLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID  string    `gorm:"type:varchar(64);uniqueIndex" json:"requestId"`
	Origin     string    `gorm:"type:varchar(255)" json:"origin"`
	ClientHash string    `gorm:"type:char(64);index" json:"clientHash"`
	UserAgent  string    `gorm:"type:varchar(512)" json:"userAgent"`
	Question   string    `gorm:"type:text" json:"question"`
	SessionID  string    `gorm:"type:varchar(128);index" json:"sessionId"`
	Route      string    `gorm:"type:varchar(32)" json:"route"`
	Status     int       `json:"status"`
	LatencyMs  int64     `json:"latencyMs"`
	AskedAt    time.Time `gorm:"index" json:"askedAt"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (AskLog) TableName() string {
	return "ask_logs"
}

// NewAskLog 将事件转换为数据库记录。
func NewAskLog(evt AskEvent) *AskLog {
	return &AskLog{
		RequestID:  evt.RequestID,
		Origin:     evt.Origin,
		ClientHash: evt.ClientHash,
		UserAgent:  evt.UserAgent,
		Question:   evt.Question,
		SessionID:  evt.SessionID,
		Route:      evt.Route,
		Status:     evt.Status,
		LatencyMs:  evt.LatencyMs,
		AskedAt:    evt.Timestamp,
	}
}
