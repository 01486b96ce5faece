// Package mirror replicates locally committed conversations and
// messages to a remote relational store. Replication is best-effort
// and insert-only: the local store is authoritative and remote rows
// are never updated or deleted.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/sparkyhq/sparky/internal/model"
	"github.com/sparkyhq/sparky/internal/retry"
)

// Mirror writes to the remote replica on behalf of one authenticated user
type Mirror struct {
	db     *gorm.DB
	userID string
	policy retry.Policy
}

// New opens the remote store and runs auto-migrations. The userID is
// the authenticated session owner; every mirrored conversation is
// keyed to it.
func New(dialector gorm.Dialector, userID string) (*Mirror, error) {
	if userID == "" {
		return nil, errors.New("mirror requires an authenticated user id")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open remote store: %w", err)
	}

	if err := db.AutoMigrate(&ConversationRow{}, &MessageRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	log.Printf("[Mirror] Remote store connected for user %s", userID)
	return &Mirror{db: db, userID: userID, policy: retry.Default()}, nil
}

// SaveConversation inserts a conversation row. Existing rows are left
// untouched (insert-only upsert).
func (m *Mirror) SaveConversation(ctx context.Context, conv model.Conversation) error {
	row := ConversationRow{
		ID:        conv.ID,
		UserID:    m.userID,
		Title:     conv.Title,
		Timestamp: conv.Timestamp,
	}
	if conv.Appliance != nil {
		data, err := json.Marshal(conv.Appliance)
		if err != nil {
			return fmt.Errorf("encode appliance: %w", err)
		}
		row.Appliance = data
	}

	return m.policy.Do(ctx, func() error {
		return m.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error
	}, retryable)
}

// SaveMessage inserts a message row under its conversation
func (m *Mirror) SaveMessage(ctx context.Context, conversationID string, msg model.Message) error {
	row := MessageRow{
		ID:             msg.ID,
		ConversationID: conversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		Timestamp:      msg.Timestamp,
		Error:          msg.Error,
		QRData:         msg.QRData,
	}
	if len(msg.Images) > 0 {
		data, err := json.Marshal(msg.Images)
		if err != nil {
			return fmt.Errorf("encode images: %w", err)
		}
		row.Images = data
	}

	return m.policy.Do(ctx, func() error {
		return m.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error
	}, retryable)
}

// LoadConversations fetches the user's conversations with their nested
// messages, newest conversation first. Message order within each
// conversation follows the original append order.
func (m *Mirror) LoadConversations(ctx context.Context) ([]model.Conversation, error) {
	var rows []ConversationRow
	err := m.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		Where("user_id = ?", m.userID).
		Order("timestamp DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	conversations := make([]model.Conversation, len(rows))
	for i, row := range rows {
		conv := model.Conversation{
			ID:        row.ID,
			Title:     row.Title,
			Timestamp: row.Timestamp,
			Messages:  make([]model.Message, len(row.Messages)),
		}
		if len(row.Appliance) > 0 {
			var appliance model.Appliance
			if err := json.Unmarshal(row.Appliance, &appliance); err == nil {
				conv.Appliance = &appliance
			}
		}
		for j, mr := range row.Messages {
			msg := model.Message{
				ID:        mr.ID,
				Role:      mr.Role,
				Content:   mr.Content,
				Timestamp: mr.Timestamp,
				Error:     mr.Error,
				QRData:    mr.QRData,
			}
			if len(mr.Images) > 0 {
				json.Unmarshal(mr.Images, &msg.Images)
			}
			conv.Messages[j] = msg
		}
		conversations[i] = conv
	}
	return conversations, nil
}

// retryable classifies mirror errors. Context cancellation and record
// shape problems are terminal; everything else is assumed transient
// (connection resets, timeouts).
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidData) || errors.Is(err, gorm.ErrInvalidValue) {
		return false
	}
	return true
}
