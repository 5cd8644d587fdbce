package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"tubemindai/internal/otp"
	"tubemindai/pkg/domain"
	"tubemindai/pkg/ingest"
	"tubemindai/pkg/storage"
	"tubemindai/pkg/store"
)

// captureMailer records sent mail instead of delivering it.
type captureMailer struct {
	mu   sync.Mutex
	sent []struct{ To, Subject, Body string }
}

func (m *captureMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, struct{ To, Subject, Body string }{to, subject, body})
	return nil
}

var otpCodePattern = regexp.MustCompile(`<b>(\d{6})</b>`)

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	match := otpCodePattern.FindStringSubmatch(m.sent[len(m.sent)-1].Body)
	if match == nil {
		t.Fatalf("no otp code in mail body %q", m.sent[len(m.sent)-1].Body)
	}
	return match[1]
}

// stubGenerator answers deterministically, or fails when broken.
type stubGenerator struct {
	mu     sync.Mutex
	broken error
	calls  int
}

func (g *stubGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	broken := g.broken
	g.mu.Unlock()
	if broken != nil {
		return "", broken
	}
	switch {
	case strings.Contains(systemPrompt, "answering questions"):
		return "grounded answer", nil
	case strings.Contains(systemPrompt, "summary"):
		return "generated summary", nil
	case strings.Contains(systemPrompt, "key points"):
		return "- key one\n- key two", nil
	case strings.Contains(systemPrompt, "bullet-point"):
		return "* note one\n* note two", nil
	default:
		return "grounded answer", nil
	}
}

// stubFetcher serves canned video metadata.
type stubFetcher struct {
	err  error
	info *ingest.VideoInfo
}

func (f *stubFetcher) Fetch(ctx context.Context, videoID string) (*ingest.VideoInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.info != nil {
		info := *f.info
		info.VideoID = videoID
		return &info, nil
	}
	return &ingest.VideoInfo{
		VideoID:         videoID,
		Title:           "Test Video",
		ChannelName:     "Test Channel",
		ThumbnailURL:    "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg",
		DurationSeconds: 90,
		Transcript:      "this is the transcript",
	}, nil
}

type testEnv struct {
	app     *App
	store   *store.MemoryStore
	mailer  *captureMailer
	gen     *stubGenerator
	fetcher *stubFetcher
	objects *storage.MemoryObjectStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := miniredis.RunT(t)
	otpStore, err := otp.NewStore(srv.Addr(), "")
	if err != nil {
		t.Fatalf("new otp store: %v", err)
	}
	sessions, err := store.NewJWTSessionStore("test-secret", time.Hour, store.NewMemorySessionRevoker(), store.JWTOptions{})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}

	env := &testEnv{
		store:   store.NewMemoryStore(),
		mailer:  &captureMailer{},
		gen:     &stubGenerator{},
		fetcher: &stubFetcher{},
		objects: storage.NewMemoryObjectStore(),
	}
	env.app, err = New(Options{
		Store:     env.store,
		Sessions:  sessions,
		OTP:       otpStore,
		Mailer:    env.mailer,
		Objects:   env.objects,
		Generator: env.gen,
		Videos:    env.fetcher,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return env
}

// signUp runs the full register+verify flow and returns a logged-in user.
func (env *testEnv) signUp(t *testing.T, name, email, password string) (domain.User, string) {
	t.Helper()
	ctx := context.Background()
	if err := env.app.Register(ctx, name, email, password); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	res, err := env.app.VerifySignupOTP(ctx, email, env.mailer.lastCode(t))
	if err != nil {
		t.Fatalf("verify otp for %s: %v", email, err)
	}
	return res.User, res.Token
}

func (env *testEnv) addPDF(t *testing.T, userID uint, fileName, content string) domain.PDFDocument {
	t.Helper()
	doc, err := env.store.CreatePDF(domain.PDFDocument{
		UserID:    userID,
		FileName:  fileName,
		FileSize:  int64(len(content)),
		PageCount: 1,
		Content:   content,
		Status:    domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("create pdf: %v", err)
	}
	return doc
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestResetStaleGenerations(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.signUp(t, "Stale", "stale@test.com", "password1")
	video, err := env.store.CreateVideo(domain.Video{
		UserID:         user.ID,
		YouTubeVideoID: "stuckvideo1",
		Status:         domain.StatusProcessing,
	})
	if err != nil {
		t.Fatalf("create video: %v", err)
	}

	env.app.leaseTTL = -time.Second
	env.app.ResetStaleGenerations()

	got, _, err := env.store.GetVideo(video.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if got.Status != domain.StatusFailed || got.ErrorMessage == "" {
		t.Fatalf("expected stale row to fail, got %s %q", got.Status, got.ErrorMessage)
	}
}

var errStubBroken = errors.New("model offline")
