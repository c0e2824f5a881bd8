package events

import (
	"context"
	"encoding/json"
	"time"
)

// TypePagePublished is emitted after a portfolio page is written and its
// locator recorded.
const TypePagePublished = "page.published"

// PagePublished describes one successful publish.
type PagePublished struct {
	ChatID      string    `json:"chatId"`
	UserID      string    `json:"userId"`
	PageURL     string    `json:"pageUrl"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Publisher delivers domain events to downstream consumers.
type Publisher interface {
	PublishPagePublished(ctx context.Context, evt PagePublished) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishPagePublished(context.Context, PagePublished) error { return nil }
func (NoopPublisher) Close() error                                              { return nil }

func encode(evt PagePublished) ([]byte, error) {
	if evt.PublishedAt.IsZero() {
		evt.PublishedAt = time.Now().UTC()
	}
	return json.Marshal(evt)
}
