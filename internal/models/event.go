package models

// MessageSentEvent is published after a message has been stored.
type MessageSentEvent struct {
	MessageID  uint   `json:"messageId"`
	SenderID   uint   `json:"senderId"`
	ReceiverID uint   `json:"receiverId"`
	Sender     string `json:"sender"`
}
