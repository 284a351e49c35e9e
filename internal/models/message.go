package models

import "time"

// Message is a direct message between two users. Messages are never updated.
type Message struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SenderID   uint      `json:"senderId" gorm:"index;not null"`
	ReceiverID uint      `json:"receiverId" gorm:"index;not null"`
	Body       string    `json:"message" gorm:"column:message;type:text;not null"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	Sender   User `json:"-" gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE"`
	Receiver User `json:"-" gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE"`
}

// MessageView is a message annotated with the identity of its counterpart.
// Received listings carry Sender, sent listings carry Receiver.
type MessageView struct {
	ID         uint          `json:"id"`
	SenderID   uint          `json:"senderId"`
	ReceiverID uint          `json:"receiverId"`
	Message    string        `json:"message"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	Sender     *UserIdentity `json:"sender,omitempty"`
	Receiver   *UserIdentity `json:"receiver,omitempty"`
}
