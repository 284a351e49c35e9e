package repositories

import (
	"context"
	"fmt"
	"time"

	"socialhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMMessageRepository is a GORM implementation of MessageRepository.
type GORMMessageRepository struct {
	db *gorm.DB
}

// NewGORMMessageRepository creates a new instance of GORMMessageRepository.
func NewGORMMessageRepository(db *gorm.DB) *GORMMessageRepository {
	return &GORMMessageRepository{
		db: db,
	}
}

// messageRow is the flat shape of a message joined with one counterpart.
type messageRow struct {
	ID                  uint
	SenderID            uint
	ReceiverID          uint
	Message             string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CounterpartID       uint
	CounterpartUsername string
}

// Create persists a message. Associations are never upserted.
func (r *GORMMessageRepository) Create(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindByReceiver lists messages received by receiverID with sender identities.
func (r *GORMMessageRepository) FindByReceiver(ctx context.Context, receiverID uint) ([]models.MessageView, error) {
	rows, err := r.find(ctx, "receiver_id", "sender_id", receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages for receiver %d: %w", receiverID, err)
	}
	views := make([]models.MessageView, 0, len(rows))
	for _, row := range rows {
		v := row.view()
		v.Sender = &models.UserIdentity{ID: row.CounterpartID, Username: row.CounterpartUsername}
		views = append(views, v)
	}
	return views, nil
}

// FindBySender lists messages sent by senderID with receiver identities.
func (r *GORMMessageRepository) FindBySender(ctx context.Context, senderID uint) ([]models.MessageView, error) {
	rows, err := r.find(ctx, "sender_id", "receiver_id", senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages for sender %d: %w", senderID, err)
	}
	views := make([]models.MessageView, 0, len(rows))
	for _, row := range rows {
		v := row.view()
		v.Receiver = &models.UserIdentity{ID: row.CounterpartID, Username: row.CounterpartUsername}
		views = append(views, v)
	}
	return views, nil
}

// find selects messages where scopeCol = id, joining users on joinCol.
// Both column names are fixed by the callers above.
func (r *GORMMessageRepository) find(ctx context.Context, scopeCol, joinCol string, id uint) ([]messageRow, error) {
	var rows []messageRow
	err := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.id, messages.sender_id, messages.receiver_id, messages.message, " +
			"messages.created_at, messages.updated_at, " +
			"users.id AS counterpart_id, users.username AS counterpart_username").
		Joins("JOIN users ON users.id = messages." + joinCol).
		Where("messages."+scopeCol+" = ?", id).
		Order("messages.id").
		Scan(&rows).Error
	return rows, err
}

func (row messageRow) view() models.MessageView {
	return models.MessageView{
		ID:         row.ID,
		SenderID:   row.SenderID,
		ReceiverID: row.ReceiverID,
		Message:    row.Message,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
