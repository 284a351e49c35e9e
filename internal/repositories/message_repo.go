package repositories

import (
	"context"

	"socialhub/internal/models"
)

// MessageRepository defines the interface for message data access. Listings
// are ordered by message ID and carry the counterpart's public identity.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByReceiver(ctx context.Context, receiverID uint) ([]models.MessageView, error)
	FindBySender(ctx context.Context, senderID uint) ([]models.MessageView, error)
}
