package services

import (
	"context"
	"errors"
	"fmt"

	"socialhub/internal/metrics"
	"socialhub/internal/models"
	"socialhub/internal/repositories"

	"github.com/rs/zerolog"
)

// EventPublisher delivers domain events to other processes.
type EventPublisher interface {
	PublishMessageSent(ctx context.Context, event models.MessageSentEvent) error
}

// MessageService sends and lists direct messages. Every operation is scoped
// by the caller's authenticated user ID, never by client-supplied IDs.
type MessageService struct {
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	publisher   EventPublisher // optional
	log         zerolog.Logger
}

// NewMessageService creates a new MessageService. publisher may be nil.
func NewMessageService(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, publisher EventPublisher, log zerolog.Logger) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		log:         log,
	}
}

// SendMessage stores a message from senderID to receiverID. An unknown
// receiver yields ErrReceiverNotFound and nothing is stored.
func (s *MessageService) SendMessage(ctx context.Context, senderID, receiverID uint, senderName, body string) (*models.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("failed to look up receiver %d: %w", receiverID, err)
	}

	message := &models.Message{SenderID: senderID, ReceiverID: receiverID, Body: body}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	metrics.MessagesSent.Inc()

	if s.publisher == nil {
		return message, nil
	}
	event := models.MessageSentEvent{
		MessageID:  message.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Sender:     senderName,
	}
	if err := s.publisher.PublishMessageSent(ctx, event); err != nil {
		s.log.Warn().Err(err).Uint("message_id", message.ID).Msg("failed to publish message sent event")
	}
	return message, nil
}

// ReceivedMessages lists messages addressed to userID with sender identities.
func (s *MessageService) ReceivedMessages(ctx context.Context, userID uint) ([]models.MessageView, error) {
	return s.messageRepo.FindByReceiver(ctx, userID)
}

// SentMessages lists messages sent by userID with receiver identities.
func (s *MessageService) SentMessages(ctx context.Context, userID uint) ([]models.MessageView, error) {
	return s.messageRepo.FindBySender(ctx, userID)
}
