package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"portfolioai/pkg/ai"
	"portfolioai/pkg/events"
	"portfolioai/pkg/storage"
	"portfolioai/pkg/store"
)

// Generator produces one completion per call. *ai.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) ai.Result
}

// Config carries the collaborators built once in main.
type Config struct {
	Store        store.Store
	Sessions     store.SessionStore
	Objects      storage.ObjectStore
	Generator    Generator
	Sequencer    store.Sequencer
	Events       events.Publisher
	InputBucket  string
	OutputBucket string
}

// App holds the conversation and publication workflows.
type App struct {
	store        store.Store
	sessions     store.SessionStore
	objects      storage.ObjectStore
	generator    Generator
	sequencer    store.Sequencer
	events       events.Publisher
	inputBucket  string
	outputBucket string
	now          func() time.Time
}

// New validates cfg and constructs the application. Sequencer defaults to a
// process-local counter and Events to a no-op publisher.
func New(cfg Config) (*App, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("store required")
	case cfg.Sessions == nil:
		return nil, errors.New("session store required")
	case cfg.Objects == nil:
		return nil, errors.New("object store required")
	case cfg.Generator == nil:
		return nil, errors.New("generator required")
	case strings.TrimSpace(cfg.InputBucket) == "":
		return nil, errors.New("input bucket required")
	case strings.TrimSpace(cfg.OutputBucket) == "":
		return nil, errors.New("output bucket required")
	}
	sequencer := cfg.Sequencer
	if sequencer == nil {
		sequencer = store.NewLocalSequencer()
	}
	publisher := cfg.Events
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &App{
		store:        cfg.Store,
		sessions:     cfg.Sessions,
		objects:      cfg.Objects,
		generator:    cfg.Generator,
		sequencer:    sequencer,
		events:       publisher,
		inputBucket:  strings.TrimSpace(cfg.InputBucket),
		outputBucket: strings.TrimSpace(cfg.OutputBucket),
		now:          time.Now,
	}, nil
}
