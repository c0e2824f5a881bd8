package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

var (
	ErrUserFieldsRequired    = errors.New("user email and password hash required")
	ErrChatFieldsRequired    = errors.New("chat user, title and resume locator required")
	ErrMessageFieldsRequired = errors.New("message chat id required")
	ErrInvalidSender         = errors.New("invalid message sender")
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUser builds a user record; id and timestamps are left to the store.
func NewUser(name, email, passwordHash string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || passwordHash == "" {
		return User{}, ErrUserFieldsRequired
	}
	return User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
	}, nil
}

// Chat is one portfolio conversation. ResumeLocator is fixed at creation;
// PageLocator stays empty until the first publish.
type Chat struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"userId"`
	Title                 string    `json:"title"`
	AdditionalDescription string    `json:"additionalDescription"`
	ResumeLocator         string    `json:"resumeUrl"`
	PageLocator           string    `json:"pageUrl"`
	CreatedAt             time.Time `json:"createdAt"`
}

func NewChat(userID, title, description, resumeLocator string) (Chat, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(title) == "" || strings.TrimSpace(resumeLocator) == "" {
		return Chat{}, ErrChatFieldsRequired
	}
	return Chat{
		UserID:                userID,
		Title:                 strings.TrimSpace(title),
		AdditionalDescription: description,
		ResumeLocator:         resumeLocator,
	}, nil
}

// Message is an append-only chat entry. Seq is the per-chat sequence number
// assigned at write time and is the primary ordering key.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"time"`
}

func NewMessage(chatID string, sender Sender, text string) (Message, error) {
	if strings.TrimSpace(chatID) == "" {
		return Message{}, ErrMessageFieldsRequired
	}
	if !sender.Valid() {
		return Message{}, ErrInvalidSender
	}
	return Message{ChatID: chatID, Sender: sender, Text: text}, nil
}

func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// ChatSummary is the list-chats projection of a chat.
type ChatSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PageLocator string `json:"page_url"`
	LastMessage string `json:"lastMessage"`
	LastUpdated string `json:"lastUpdated"`
}

// SortMessages orders messages chronologically in place.
func SortMessages(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Seq != messages[j].Seq {
			return messages[i].Seq < messages[j].Seq
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}

// FormatTime renders message timestamps the way the API returns them.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
