package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type ChatModel struct {
	ID                    string `gorm:"primaryKey"`
	UserID                string `gorm:"not null;index"`
	Title                 string `gorm:"not null"`
	AdditionalDescription string `gorm:"type:text"`
	ResumeLocator         string `gorm:"not null"`
	PageLocator           string
	CreatedAt             time.Time `gorm:"not null"`
}

type MessageModel struct {
	ID        string    `gorm:"primaryKey"`
	ChatID    string    `gorm:"not null;index:idx_message_chat_seq,priority:1"`
	Sender    string    `gorm:"not null"`
	Text      string    `gorm:"type:text;not null"`
	Seq       int64     `gorm:"not null;index:idx_message_chat_seq,priority:2"`
	CreatedAt time.Time `gorm:"not null"`
}
