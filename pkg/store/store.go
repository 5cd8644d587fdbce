package store

import (
	"time"

	"tubemindai/pkg/domain"
)

// ListOptions controls pagination, search, and filtering for list queries.
// Search is a case-insensitive substring match over the entity's name-like
// columns. A zero UserID means no owner filter.
type ListOptions struct {
	Skip      int
	Limit     int
	Search    string
	UserID    uint
	SavedOnly bool
}

// AdminUserRow enriches a user with per-user resource counts.
type AdminUserRow struct {
	domain.User
	VideoCount int
	ChatCount  int
}

// AdminVideoRow enriches a video with owner identity and chat count.
type AdminVideoRow struct {
	domain.Video
	UserName  string
	UserEmail string
	ChatCount int
}

// AdminPDFRow enriches a PDF with owner identity and chat count.
type AdminPDFRow struct {
	domain.PDFDocument
	UserName  string
	UserEmail string
	ChatCount int
}

// Store defines persistence operations for users, videos, PDFs, and chats.
// List results are deterministic: created_at DESC, id DESC tiebreak.
type Store interface {
	// users
	CreateUser(u domain.User) (domain.User, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id uint) (domain.User, bool, error)
	SetUserVerified(id uint, verified bool) error
	SetUserActive(id uint, active bool) error
	SetUserAdmin(id uint, admin bool) error
	SetUserPassword(id uint, passwordHash string) error
	ListUsers(opts ListOptions) ([]AdminUserRow, int, error)

	// videos
	CreateVideo(v domain.Video) (domain.Video, error)
	GetVideo(id uint) (domain.Video, bool, error)
	GetVideoByYouTubeID(userID uint, youtubeID string) (domain.Video, bool, error)
	SetVideoIngest(id uint, title, thumbnailURL, duration, transcript string, metadata map[string]string) error
	SetVideoNotes(id uint, summary, keyPoints, bulletNotes string) error
	SetVideoStatus(id uint, status domain.GenerationStatus, errMsg string) error
	SetVideoSaved(id uint, saved bool) error
	ListVideos(opts ListOptions) ([]domain.Video, int, error)
	ListVideosAdmin(opts ListOptions) ([]AdminVideoRow, int, error)
	DeleteVideo(id uint) error

	// pdfs
	CreatePDF(p domain.PDFDocument) (domain.PDFDocument, error)
	GetPDF(id uint) (domain.PDFDocument, bool, error)
	SetPDFNotes(id uint, summary, keyPoints, bulletNotes string) error
	SetPDFStatus(id uint, status domain.GenerationStatus, errMsg string) error
	ListPDFs(opts ListOptions) ([]domain.PDFDocument, int, error)
	ListPDFsAdmin(opts ListOptions) ([]AdminPDFRow, int, error)
	DeletePDF(id uint) error

	// chats
	AppendChatMessage(msg domain.ChatMessage) (domain.ChatMessage, error)
	SetChatResponse(id uint, response string) error
	GetChatMessage(id uint) (domain.ChatMessage, bool, error)
	ListChatMessages(userID uint, kind domain.ResourceKind, resourceID uint, skip, limit int) ([]domain.ChatMessage, int, error)
	ListChatHistories(userID uint, kind domain.ResourceKind) ([]domain.ChatHistory, error)
	DeleteChatMessage(id uint) error
	DeleteChatsForResource(kind domain.ResourceKind, resourceID uint) error
	DeleteChatsForUser(userID uint, kind domain.ResourceKind) error

	// admin aggregates and maintenance
	Stats() (domain.Stats, error)
	ResetStaleProcessing(olderThan time.Duration) (int64, error)
}

// SessionStore issues and validates bearer session tokens.
type SessionStore interface {
	NewSession(userID uint) (string, error)
	UserIDFromToken(token string) (uint, bool, error)
	RevokeUserSessions(userID uint, since time.Time) error
}
