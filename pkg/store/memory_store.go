package store

import (
	"context"
	"sync"

	"portfolioai/pkg/domain"
)

// MemoryStore is a process-local Store for development and tests. Data is
// lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	emails   map[string]string
	chats    map[string]domain.Chat
	chatIDs  []string
	messages map[string][]domain.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		chats:    make(map[string]domain.Chat),
		messages: make(map[string][]domain.Message),
	}
}

func (m *MemoryStore) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	u = stampUser(u)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emails[u.Email]; ok {
		return domain.User{}, ErrEmailTaken
	}
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return u, nil
}

func (m *MemoryStore) HasUserEmail(ctx context.Context, email string) (bool, error) {
	_, ok, err := m.GetUserByEmail(ctx, email)
	return ok, err
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[normalizeEmail(email)]
	if !ok {
		return domain.User{}, false, nil
	}
	return m.users[id], true, nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) CreateChat(ctx context.Context, c domain.Chat) (domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return domain.Chat{}, err
	}
	c = stampChat(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[c.ID] = c
	m.chatIDs = append(m.chatIDs, c.ID)
	return c, nil
}

// ListChatsByUser returns chats in insertion order.
func (m *MemoryStore) ListChatsByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []domain.Chat{}
	for _, id := range m.chatIDs {
		if c := m.chats[id]; c.UserID == userID {
			res = append(res, c)
		}
	}
	return res, nil
}

func (m *MemoryStore) GetChat(ctx context.Context, id string) (domain.Chat, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Chat{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chats[id]
	return c, ok, nil
}

func (m *MemoryStore) UpdatePageLocator(ctx context.Context, chatID, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok {
		return ErrChatNotFound
	}
	c.PageLocator = locator
	m.chats[chatID] = c
	return nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	msg = stampMessage(msg)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], msg)
	return msg, nil
}

// ListMessagesByChat returns a copy of the chat's messages in insertion
// order; callers sort.
func (m *MemoryStore) ListMessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	msgs := append([]domain.Message(nil), m.messages[chatID]...)
	m.mu.RUnlock()
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

func (m *MemoryStore) MaxMessageSeq(ctx context.Context, chatID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var highest int64
	for _, msg := range m.messages[chatID] {
		if msg.Seq > highest {
			highest = msg.Seq
		}
	}
	return highest, nil
}
