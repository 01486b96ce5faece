package mirror

import (
	"time"

	"gorm.io/datatypes"
)

// ConversationRow mirrors one conversation in the remote store
type ConversationRow struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	UserID    string         `gorm:"index" json:"user_id"`
	Title     string         `json:"title"`
	Timestamp time.Time      `json:"timestamp"`
	Appliance datatypes.JSON `json:"appliance"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Messages  []MessageRow   `gorm:"foreignKey:ConversationID" json:"messages"`
}

func (ConversationRow) TableName() string { return "conversations" }

// MessageRow mirrors one message in the remote store
type MessageRow struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	ConversationID string         `gorm:"index" json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Timestamp      time.Time      `json:"timestamp"`
	Error          string         `json:"error"`
	QRData         string         `gorm:"column:qr_data" json:"qr_data"`
	Images         datatypes.JSON `json:"images"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (MessageRow) TableName() string { return "messages" }
