package store

import (
	"context"
	"errors"

	"portfolioai/pkg/domain"
)

// ErrEmailTaken is returned by CreateUser when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// ErrChatNotFound is returned by UpdatePageLocator for an unknown chat.
var ErrChatNotFound = errors.New("chat not found")

// Store defines persistence operations for users, chats, and messages.
// Lookups return (value, found, err); a missing record is not an error.
type Store interface {
	// users
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	HasUserEmail(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)

	// chats
	CreateChat(ctx context.Context, c domain.Chat) (domain.Chat, error)
	ListChatsByUser(ctx context.Context, userID string) ([]domain.Chat, error)
	GetChat(ctx context.Context, id string) (domain.Chat, bool, error)
	UpdatePageLocator(ctx context.Context, chatID, locator string) error

	// messages
	AppendMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	ListMessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error)
	MaxMessageSeq(ctx context.Context, chatID string) (int64, error)
}

// SessionStore issues and validates bearer tokens bound to a subject.
type SessionStore interface {
	NewSession(subject string) (string, error)
	GetSubjectByToken(token string) (string, bool, error)
}
