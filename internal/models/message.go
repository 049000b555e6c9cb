package models

import "time"

// Message is a private note from one user to another.
type Message struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SenderID   uint       `gorm:"not null;index" json:"sender_id"`
	Sender     User       `gorm:"foreignKey:SenderID" json:"sender"`
	ReceiverID uint       `gorm:"not null;index" json:"receiver_id"`
	Receiver   User       `gorm:"foreignKey:ReceiverID" json:"receiver"`
	Title      string     `gorm:"size:200;not null" json:"title"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	ReadAt     *time.Time `json:"read_at"`
}

// IsRead reports whether the receiver has opened the message.
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

// IsParticipant reports whether userID sent or received the message.
func (m *Message) IsParticipant(userID uint) bool {
	return userID != 0 && (m.SenderID == userID || m.ReceiverID == userID)
}
