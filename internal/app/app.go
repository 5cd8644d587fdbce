package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tubemindai/internal/mail"
	"tubemindai/internal/otp"
	"tubemindai/pkg/ai"
	"tubemindai/pkg/ingest"
	"tubemindai/pkg/notes"
	"tubemindai/pkg/storage"
	"tubemindai/pkg/store"
)

// VideoFetcher resolves YouTube metadata and transcripts.
type VideoFetcher interface {
	Fetch(ctx context.Context, videoID string) (*ingest.VideoInfo, error)
}

// Options wires the application's dependencies. Store, Sessions, OTP, Mailer,
// Objects, Generator, and Videos are required.
type Options struct {
	Store     store.Store
	Sessions  store.SessionStore
	OTP       *otp.Store
	Mailer    mail.Sender
	Objects   storage.ObjectStore
	Generator ai.TextGenerator
	Videos    VideoFetcher
	Lease     notes.Lease
	Logger    *slog.Logger

	SessionTTL       time.Duration
	LeaseTTL         time.Duration
	MaxUploadBytes   int64
	ChatContextTurns int
}

// App holds the core domain logic behind the HTTP surface.
type App struct {
	store    store.Store
	sessions store.SessionStore
	otp      *otp.Store
	mailer   mail.Sender
	objects  storage.ObjectStore
	pipeline *notes.Pipeline
	gen      ai.TextGenerator
	videos   VideoFetcher
	lease    notes.Lease
	logger   *slog.Logger

	sessionTTL       time.Duration
	leaseTTL         time.Duration
	maxUploadBytes   int64
	chatContextTurns int

	chatLocks keyedMutex
}

// New validates the wiring and builds the application.
func New(opts Options) (*App, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("store is required")
	case opts.Sessions == nil:
		return nil, errors.New("session store is required")
	case opts.OTP == nil:
		return nil, errors.New("otp store is required")
	case opts.Mailer == nil:
		return nil, errors.New("mail sender is required")
	case opts.Objects == nil:
		return nil, errors.New("object store is required")
	case opts.Generator == nil:
		return nil, errors.New("text generator is required")
	case opts.Videos == nil:
		return nil, errors.New("video fetcher is required")
	}
	if opts.Lease == nil {
		opts.Lease = notes.NewMemoryLease()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 5 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if opts.ChatContextTurns <= 0 {
		opts.ChatContextTurns = 10
	}
	return &App{
		store:            opts.Store,
		sessions:         opts.Sessions,
		otp:              opts.OTP,
		mailer:           opts.Mailer,
		objects:          opts.Objects,
		pipeline:         notes.NewPipeline(opts.Generator),
		gen:              opts.Generator,
		videos:           opts.Videos,
		lease:            opts.Lease,
		logger:           opts.Logger,
		sessionTTL:       opts.SessionTTL,
		leaseTTL:         opts.LeaseTTL,
		maxUploadBytes:   opts.MaxUploadBytes,
		chatContextTurns: opts.ChatContextTurns,
	}, nil
}

// ResetStaleGenerations marks rows stuck in processing as failed. Run
// periodically so crashed generations do not block resources forever.
func (a *App) ResetStaleGenerations() {
	n, err := a.store.ResetStaleProcessing(a.leaseTTL)
	if err != nil {
		a.logger.Error("reset stale generations", "error", err)
		return
	}
	if n > 0 {
		a.logger.Warn("reset stale generations", "count", n)
	}
}

// keyedMutex serializes work per string key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
