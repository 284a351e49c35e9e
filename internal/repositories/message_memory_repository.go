package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"socialhub/internal/models"
)

// MemoryMessageRepository is an in-memory implementation of MessageRepository.
// Identities are resolved through the user repository it was built with,
// mirroring the inner join of the SQL implementation.
type MemoryMessageRepository struct {
	users    *MemoryUserRepository
	messages []models.Message
	mu       sync.RWMutex
}

// NewMemoryMessageRepository creates a new instance of MemoryMessageRepository.
func NewMemoryMessageRepository(users *MemoryUserRepository) *MemoryMessageRepository {
	return &MemoryMessageRepository{
		users: users,
	}
}

// Create appends a message and assigns its ID.
func (r *MemoryMessageRepository) Create(_ context.Context, message *models.Message) error {
	if _, ok := r.users.identity(message.SenderID); !ok {
		return fmt.Errorf("failed to create message: sender %d does not exist", message.SenderID)
	}
	if _, ok := r.users.identity(message.ReceiverID); !ok {
		return fmt.Errorf("failed to create message: receiver %d does not exist", message.ReceiverID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	message.ID = uint(len(r.messages) + 1)
	message.CreatedAt = now
	message.UpdatedAt = now
	r.messages = append(r.messages, *message)
	return nil
}

// FindByReceiver lists messages received by receiverID with sender identities.
func (r *MemoryMessageRepository) FindByReceiver(_ context.Context, receiverID uint) ([]models.MessageView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]models.MessageView, 0)
	for _, m := range r.messages {
		if m.ReceiverID != receiverID {
			continue
		}
		sender, ok := r.users.identity(m.SenderID)
		if !ok {
			continue
		}
		v := viewOf(m)
		v.Sender = &sender
		views = append(views, v)
	}
	return views, nil
}

// FindBySender lists messages sent by senderID with receiver identities.
func (r *MemoryMessageRepository) FindBySender(_ context.Context, senderID uint) ([]models.MessageView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]models.MessageView, 0)
	for _, m := range r.messages {
		if m.SenderID != senderID {
			continue
		}
		receiver, ok := r.users.identity(m.ReceiverID)
		if !ok {
			continue
		}
		v := viewOf(m)
		v.Receiver = &receiver
		views = append(views, v)
	}
	return views, nil
}

func viewOf(m models.Message) models.MessageView {
	return models.MessageView{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Message:    m.Body,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
