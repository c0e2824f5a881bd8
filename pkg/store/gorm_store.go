package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"portfolioai/pkg/domain"
)

const migrateLockID int64 = 51731907

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock so
// several instances can start at once.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &ChatModel{}, &MessageModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'message_models'
					AND constraint_name = 'message_models_chat_id_fkey'
				) THEN
					ALTER TABLE message_models
					ADD CONSTRAINT message_models_chat_id_fkey
					FOREIGN KEY (chat_id) REFERENCES chat_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure chat foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateUser inserts a user, assigning id and creation time.
func (s *GormStore) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u = stampUser(u)
	model := userToModel(u)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return u, nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserModel{}).Where("email = ?", normalizeEmail(email)).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateChat inserts a chat, assigning id and creation time.
func (s *GormStore) CreateChat(ctx context.Context, c domain.Chat) (domain.Chat, error) {
	c = stampChat(c)
	model := chatToModel(c)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Chat{}, err
	}
	return c, nil
}

// ListChatsByUser returns a user's chats in creation order.
func (s *GormStore) ListChatsByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	var models []ChatModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Chat, 0, len(models))
	for _, m := range models {
		res = append(res, chatFromModel(m))
	}
	return res, nil
}

// GetChat retrieves a chat.
func (s *GormStore) GetChat(ctx context.Context, id string) (domain.Chat, bool, error) {
	var model ChatModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Chat{}, false, nil
		}
		return domain.Chat{}, false, err
	}
	return chatFromModel(model), true, nil
}

// UpdatePageLocator records where the chat's page was published.
func (s *GormStore) UpdatePageLocator(ctx context.Context, chatID, locator string) error {
	res := s.db.WithContext(ctx).Model(&ChatModel{}).Where("id = ?", chatID).Update("page_locator", locator)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// AppendMessage records a message.
func (s *GormStore) AppendMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	msg = stampMessage(msg)
	model := messageToModel(msg)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// ListMessagesByChat returns every message of a chat in sequence order.
func (s *GormStore) ListMessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).
		Order("seq ASC").
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, m := range models {
		msgs = append(msgs, messageFromModel(m))
	}
	return msgs, nil
}

// MaxMessageSeq returns the highest sequence number stored for a chat, or 0.
func (s *GormStore) MaxMessageSeq(ctx context.Context, chatID string) (int64, error) {
	var highest int64
	if err := s.db.WithContext(ctx).Model(&MessageModel{}).
		Where("chat_id = ?", chatID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&highest).Error; err != nil {
		return 0, err
	}
	return highest, nil
}

func stampUser(u domain.User) domain.User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = normalizeEmail(u.Email)
	return u
}

func stampChat(c domain.Chat) domain.Chat {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return c
}

func stampMessage(m domain.Message) domain.Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return m
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func chatToModel(c domain.Chat) ChatModel {
	return ChatModel{
		ID:                    c.ID,
		UserID:                c.UserID,
		Title:                 c.Title,
		AdditionalDescription: c.AdditionalDescription,
		ResumeLocator:         c.ResumeLocator,
		PageLocator:           c.PageLocator,
		CreatedAt:             c.CreatedAt,
	}
}

func chatFromModel(m ChatModel) domain.Chat {
	return domain.Chat{
		ID:                    m.ID,
		UserID:                m.UserID,
		Title:                 m.Title,
		AdditionalDescription: m.AdditionalDescription,
		ResumeLocator:         m.ResumeLocator,
		PageLocator:           m.PageLocator,
		CreatedAt:             m.CreatedAt,
	}
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		Sender:    string(msg.Sender),
		Text:      msg.Text,
		Seq:       msg.Seq,
		CreatedAt: msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Sender:    domain.Sender(m.Sender),
		Text:      m.Text,
		Seq:       m.Seq,
		CreatedAt: m.CreatedAt,
	}
}
