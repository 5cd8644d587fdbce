package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"tubemindai/internal/app"
	"tubemindai/internal/otp"
	"tubemindai/internal/ratelimit"
	"tubemindai/pkg/ingest"
	"tubemindai/pkg/storage"
	"tubemindai/pkg/store"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *captureMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
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
	match := otpCodePattern.FindStringSubmatch(m.sent[len(m.sent)-1])
	if match == nil {
		t.Fatalf("no otp code in mail body %q", m.sent[len(m.sent)-1])
	}
	return match[1]
}

type stubGenerator struct{}

func (stubGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch {
	case strings.Contains(systemPrompt, "answering questions"):
		return "grounded answer", nil
	case strings.Contains(systemPrompt, "summary"):
		return "generated summary", nil
	case strings.Contains(systemPrompt, "key points"):
		return "- key one\n- key two", nil
	default:
		return "* note one\n* note two", nil
	}
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, videoID string) (*ingest.VideoInfo, error) {
	return &ingest.VideoInfo{
		VideoID:         videoID,
		Title:           "Test Video",
		ChannelName:     "Test Channel",
		ThumbnailURL:    "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg",
		DurationSeconds: 90,
		Transcript:      "this is the transcript",
	}, nil
}

type testServer struct {
	handler http.Handler
	store   *store.MemoryStore
	mailer  *captureMailer
}

func newTestServer(t *testing.T, authLimit int) *testServer {
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

	ts := &testServer{store: store.NewMemoryStore(), mailer: &captureMailer{}}
	application, err := app.New(app.Options{
		Store:     ts.store,
		Sessions:  sessions,
		OTP:       otpStore,
		Mailer:    ts.mailer,
		Objects:   storage.NewMemoryObjectStore(),
		Generator: stubGenerator{},
		Videos:    stubFetcher{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if authLimit > 0 {
		limiter, err = ratelimit.NewLocalFixedWindowLimiter(authLimit, time.Minute)
		if err != nil {
			t.Fatalf("new limiter: %v", err)
		}
	}
	server, err := New(Config{
		App:         application,
		AuthLimiter: limiter,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts.handler = server.Router()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// signUp runs the register+verify flow over HTTP and returns the bearer token.
func (ts *testServer) signUp(t *testing.T, name, email, password string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
		"email": email, "otp_code": ts.mailer.lastCode(t), "purpose": "signup",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify otp: status %d body %s", rec.Code, rec.Body)
	}
	var res otpVerifyResponse
	decodeBody(t, rec, &res)
	if res.Token == "" {
		t.Fatal("expected a session token after verification")
	}
	return res.Token
}

func (ts *testServer) makeAdmin(t *testing.T, email string) {
	t.Helper()
	u, ok, err := ts.store.GetUserByEmail(email)
	if err != nil || !ok {
		t.Fatalf("lookup %s: ok=%v err=%v", email, ok, err)
	}
	if err := ts.store.SetUserAdmin(u.ID, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 0)
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
}

func TestAuthFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.signUp(t, "Alice", "alice@test.com", "password1")

	// The issued token works against a protected route.
	rec := ts.do(t, http.MethodGet, "/api/video/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list with fresh token: status %d body %s", rec.Code, rec.Body)
	}

	// Login returns the documented wire shape.
	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@test.com", "password": "password1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body)
	}
	var login map[string]any
	decodeBody(t, rec, &login)
	for _, key := range []string{"access_token", "token_type", "user_id", "email", "name", "is_admin"} {
		if _, ok := login[key]; !ok {
			t.Errorf("login response missing %q: %v", key, login)
		}
	}
	if login["token_type"] != "bearer" {
		t.Fatalf("token_type = %v", login["token_type"])
	}
}

func TestLoginFailuresOverHTTP(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.signUp(t, "Alice", "alice@test.com", "password1")

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@test.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Error == "" || body.Message == "" {
		t.Fatalf("error envelope incomplete: %+v", body)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@test.com", "password": "whatever",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown account: status %d", rec.Code)
	}
}

func TestPasswordResetOverHTTP(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.signUp(t, "Alice", "alice@test.com", "password1")

	rec := ts.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "alice@test.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot password: status %d body %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/forgot-password/verify-otp", "", map[string]string{
		"email": "alice@test.com", "otp_code": ts.mailer.lastCode(t),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify reset otp: status %d body %s", rec.Code, rec.Body)
	}
	var verify otpVerifyResponse
	decodeBody(t, rec, &verify)
	if verify.ResetToken == "" {
		t.Fatal("expected a reset token")
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/reset-password-simple", "", map[string]string{
		"email":            "alice@test.com",
		"new_password":     "password2",
		"confirm_password": "password2",
		"reset_token":      verify.ResetToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset password: status %d body %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@test.com", "password": "password2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: status %d body %s", rec.Code, rec.Body)
	}
}

func TestAuthRateLimit(t *testing.T) {
	ts := newTestServer(t, 2)
	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "x@test.com", "password": "nope",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d", i, rec.Code)
		}
	}
	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "x@test.com", "password": "nope",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, 0)
	for _, path := range []string{"/api/video/", "/api/pdf/", "/api/admin/stats"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status %d", path, rec.Code)
		}
		rec = ts.do(t, http.MethodGet, path, "garbage-token", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s with bad token: status %d", path, rec.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.signUp(t, "Alice", "alice@test.com", "password1")

	rec := ts.do(t, http.MethodGet, "/api/auth/login", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET login: status %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPut, "/api/video/", token, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT video list: status %d", rec.Code)
	}
}

// multipartUpload builds a multipart body with one file field.
func multipartUpload(t *testing.T, fileName string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestPDFUploadRejectsNonPDF(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.signUp(t, "Alice", "alice@test.com", "password1")

	body, contentType := multipartUpload(t, "notes.pdf", []byte("plain text, not a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/pdf/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-pdf upload, got %d body %s", rec.Code, rec.Body)
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.signUp(t, "Alice", "alice@test.com", "password1")

	rec := ts.do(t, http.MethodGet, "/api/video/9999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if _, ok := body["error"]; !ok {
		t.Fatalf("missing error field: %v", body)
	}
	if _, ok := body["message"]; !ok {
		t.Fatalf("missing message field: %v", body)
	}
}
