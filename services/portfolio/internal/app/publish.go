package app

import (
	"context"
	"fmt"
	"strings"

	"portfolioai/internal/util"
	"portfolioai/pkg/domain"
	"portfolioai/pkg/events"
	"portfolioai/pkg/storage"
)

// Publish writes content as the chat's page and records its locator.
// Republishing overwrites the same object.
func (a *App) Publish(ctx context.Context, user domain.User, chatID, content string) (string, error) {
	if strings.TrimSpace(chatID) == "" || content == "" {
		return "", ErrMissingFields
	}
	chat, err := a.ownedChat(ctx, user, chatID)
	if err != nil {
		return "", err
	}
	locator, err := a.objects.PutText(ctx, a.outputBucket, storage.PageKey(user.ID, chat.ID), content, storage.ContentTypeHTML)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	if err := a.store.UpdatePageLocator(ctx, chat.ID, locator); err != nil {
		return "", fmt.Errorf("record page locator: %w", err)
	}

	logger := util.LoggerFromContext(ctx)
	logger.Info("page published", "chat_id", chat.ID, "page_url", locator)
	evt := events.PagePublished{
		ChatID:      chat.ID,
		UserID:      user.ID,
		PageURL:     locator,
		PublishedAt: a.now().UTC(),
	}
	if err := a.events.PublishPagePublished(ctx, evt); err != nil {
		logger.Warn("page published event not delivered", "chat_id", chat.ID, "err", err)
	}
	return locator, nil
}
