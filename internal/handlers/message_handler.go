package handlers

import (
	"socialhub/internal/middleware"
	"socialhub/internal/services"

	"github.com/gofiber/fiber/v2"
)

// MessageHandler handles HTTP requests for direct messages. Every route
// requires the auth gate and acts only on the caller's own mailbox.
type MessageHandler struct {
	service *services.MessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{
		service: service,
	}
}

// RegisterRoutes registers the message routes behind gate.
func (h *MessageHandler) RegisterRoutes(router fiber.Router, gate fiber.Handler) {
	messageRoutes := router.Group("/auth")
	messageRoutes.Post("/sendmessage", gate, h.HandleSendMessage)
	messageRoutes.Get("/receivedmessages", gate, h.HandleReceivedMessages)
	messageRoutes.Get("/sentmessages", gate, h.HandleSentMessages)
}

// SendMessageRequest is the body of a send. The sender is always the caller.
// An id that names no user, zero or negative included, is reported as an
// unknown receiver. The message may be empty but not absent.
type SendMessageRequest struct {
	ReceiverID int64   `json:"receiverId"`
	Message    *string `json:"message" validate:"required"`
}

// HandleSendMessage stores a message from the caller to the receiver.
func (h *MessageHandler) HandleSendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	if req.ReceiverID <= 0 {
		return services.ErrReceiverNotFound
	}

	claims := middleware.ClaimsFrom(c)
	if _, err := h.service.SendMessage(c.UserContext(), claims.ID, uint(req.ReceiverID), claims.Username, *req.Message); err != nil {
		return fail("Failed to send message", err)
	}

	return c.JSON(fiber.Map{"success": "Message sent successfully"})
}

// HandleReceivedMessages lists messages addressed to the caller.
func (h *MessageHandler) HandleReceivedMessages(c *fiber.Ctx) error {
	messages, err := h.service.ReceivedMessages(c.UserContext(), middleware.ClaimsFrom(c).ID)
	if err != nil {
		return fail("Failed to fetch received messages", err)
	}
	return c.JSON(messages)
}

// HandleSentMessages lists messages sent by the caller.
func (h *MessageHandler) HandleSentMessages(c *fiber.Ctx) error {
	messages, err := h.service.SentMessages(c.UserContext(), middleware.ClaimsFrom(c).ID)
	if err != nil {
		return fail("Failed to fetch sent messages", err)
	}
	return c.JSON(messages)
}
