package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"portfolioai/internal/util"
	"portfolioai/pkg/ai"
	"portfolioai/pkg/domain"
	"portfolioai/pkg/extract"
	"portfolioai/pkg/prompt"
	"portfolioai/pkg/storage"
)

const listChatsConcurrency = 8

// CreateChatInput is the create-chat request after transport decoding.
// Document is nil when no file was uploaded.
type CreateChatInput struct {
	Title       string
	Description string
	Filename    string
	Document    []byte
}

// ChatCreated is returned on success. When generation fails the chat is
// still returned alongside ErrGenerationFailed.
type ChatCreated struct {
	Chat           domain.Chat
	InitialMessage domain.Message
}

// CreateChat stores the résumé text, creates the chat and asks the model for
// the first version of the page.
func (a *App) CreateChat(ctx context.Context, user domain.User, in CreateChatInput) (ChatCreated, error) {
	logger := util.LoggerFromContext(ctx).With("user_id", user.ID)
	title := strings.TrimSpace(in.Title)
	if title == "" || in.Document == nil {
		return ChatCreated{}, ErrMissingFields
	}

	resumeText, err := extract.TextWithError(in.Document, in.Filename)
	if err != nil {
		logger.Warn("resume extraction failed, continuing with empty text", "filename", in.Filename, "err", err)
		resumeText = ""
	}

	locator, err := a.objects.PutText(ctx, a.inputBucket, storage.ResumeKey(user.ID, uuid.NewString(), in.Filename), resumeText, storage.ContentTypeText)
	if err != nil {
		return ChatCreated{}, fmt.Errorf("%w: %v", ErrResumeUpload, err)
	}

	chat, err := domain.NewChat(user.ID, title, in.Description, locator)
	if err != nil {
		return ChatCreated{}, fmt.Errorf("%w: %v", ErrMissingFields, err)
	}
	chat, err = a.store.CreateChat(ctx, chat)
	if err != nil {
		return ChatCreated{}, fmt.Errorf("create chat: %w", err)
	}
	logger = logger.With("chat_id", chat.ID)

	res := a.generate(ctx, prompt.Initial(resumeText, in.Description))
	if !res.OK() {
		logger.Error("initial generation failed", "err", res.Err)
		return ChatCreated{Chat: chat}, fmt.Errorf("%w: %v", ErrGenerationFailed, res.Err)
	}
	msg, err := a.appendMessage(ctx, chat.ID, domain.SenderBot, res.Text)
	if err != nil {
		return ChatCreated{Chat: chat}, err
	}
	return ChatCreated{Chat: chat, InitialMessage: msg}, nil
}

// SendMessage records the user's message, replays the transcript with the
// stored résumé and appends the model's reply.
func (a *App) SendMessage(ctx context.Context, user domain.User, chatID, text string) (domain.Message, error) {
	if strings.TrimSpace(chatID) == "" || strings.TrimSpace(text) == "" {
		return domain.Message{}, ErrMissingFields
	}
	chat, err := a.ownedChat(ctx, user, chatID)
	if err != nil {
		return domain.Message{}, err
	}
	logger := util.LoggerFromContext(ctx).With("user_id", user.ID, "chat_id", chat.ID)

	if _, err := a.appendMessage(ctx, chat.ID, domain.SenderUser, text); err != nil {
		return domain.Message{}, err
	}

	history, err := a.store.ListMessagesByChat(ctx, chat.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("list messages: %w", err)
	}
	domain.SortMessages(history)

	bucket, key, err := storage.ParseLocator(chat.ResumeLocator)
	if err != nil {
		logger.Error("chat has malformed resume locator", "locator", chat.ResumeLocator)
		return domain.Message{}, err
	}
	resumeText, err := a.objects.GetText(ctx, bucket, key)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", ErrResumeFetch, err)
	}

	res := a.generate(ctx, prompt.Turn(prompt.Transcript(history), text, resumeText))
	if !res.OK() {
		logger.Error("turn generation failed", "err", res.Err)
		return domain.Message{}, fmt.Errorf("%w: %v", ErrGenerationFailed, res.Err)
	}
	return a.appendMessage(ctx, chat.ID, domain.SenderBot, res.Text)
}

// ListChats summarises every chat owned by user with its latest message.
func (a *App) ListChats(ctx context.Context, user domain.User) ([]domain.ChatSummary, error) {
	chats, err := a.store.ListChatsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	summaries := make([]domain.ChatSummary, len(chats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listChatsConcurrency)
	for i, chat := range chats {
		i, chat := i, chat
		g.Go(func() error {
			msgs, err := a.store.ListMessagesByChat(gctx, chat.ID)
			if err != nil {
				return fmt.Errorf("list messages for chat %s: %w", chat.ID, err)
			}
			domain.SortMessages(msgs)
			summary := domain.ChatSummary{
				ID:          chat.ID,
				Title:       chat.Title,
				PageLocator: chat.PageLocator,
			}
			if n := len(msgs); n > 0 {
				summary.LastMessage = msgs[n-1].Text
				summary.LastUpdated = domain.FormatTime(msgs[n-1].CreatedAt)
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// ListMessages returns the chat transcript in order.
func (a *App) ListMessages(ctx context.Context, user domain.User, chatID string) ([]domain.Message, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrMissingFields
	}
	chat, err := a.ownedChat(ctx, user, chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := a.store.ListMessagesByChat(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	domain.SortMessages(msgs)
	return msgs, nil
}

func (a *App) ownedChat(ctx context.Context, user domain.User, chatID string) (domain.Chat, error) {
	chat, ok, err := a.store.GetChat(ctx, chatID)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	if !ok {
		return domain.Chat{}, ErrChatNotFound
	}
	if chat.UserID != user.ID {
		return domain.Chat{}, ErrChatForbidden
	}
	return chat, nil
}

func (a *App) appendMessage(ctx context.Context, chatID string, sender domain.Sender, text string) (domain.Message, error) {
	msg, err := domain.NewMessage(chatID, sender, text)
	if err != nil {
		return domain.Message{}, err
	}
	floor, err := a.store.MaxMessageSeq(ctx, chatID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("read message seq: %w", err)
	}
	msg.Seq, err = a.sequencer.Next(ctx, chatID, floor)
	if err != nil {
		return domain.Message{}, err
	}
	msg.CreatedAt = a.now().UTC()
	msg, err = a.store.AppendMessage(ctx, msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

func (a *App) generate(ctx context.Context, p string) ai.Result {
	start := time.Now()
	res := a.generator.Generate(ctx, p)
	util.LoggerFromContext(ctx).Info("generation finished",
		"ok", res.OK(),
		"prompt_chars", len(p),
		"completion_chars", len(res.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}
