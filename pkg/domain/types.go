package domain

import "time"

// GenerationStatus tracks the note-generation lifecycle of a resource.
type GenerationStatus string

const (
	StatusPending    GenerationStatus = "pending"
	StatusProcessing GenerationStatus = "processing"
	StatusDone       GenerationStatus = "done"
	StatusFailed     GenerationStatus = "failed"
)

// ResourceKind identifies what a chat conversation is grounded against.
type ResourceKind string

const (
	KindVideo ResourceKind = "video"
	KindPDF   ResourceKind = "pdf"
)

// OTPPurpose scopes a one-time code to the flow that requested it.
type OTPPurpose string

const (
	PurposeSignup         OTPPurpose = "signup"
	PurposeForgotPassword OTPPurpose = "forgot_password"
)

type User struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Video struct {
	ID             uint              `json:"id"`
	UserID         uint              `json:"user_id"`
	YouTubeVideoID string            `json:"youtube_video_id"`
	VideoURL       string            `json:"video_url"`
	Title          string            `json:"title"`
	ThumbnailURL   string            `json:"thumbnail_url"`
	Duration       string            `json:"duration"`
	Transcript     string            `json:"-"`
	Metadata       map[string]string `json:"-"`
	Summary        string            `json:"summary"`
	KeyPoints      string            `json:"key_points"`
	BulletNotes    string            `json:"bullet_notes"`
	Status         GenerationStatus  `json:"status"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	IsSaved        bool              `json:"is_saved"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type PDFDocument struct {
	ID           uint              `json:"id"`
	UserID       uint              `json:"user_id"`
	FileName     string            `json:"file_name"`
	FileSize     int64             `json:"file_size"`
	PageCount    int               `json:"page_count"`
	StorageKey   string            `json:"-"`
	Content      string            `json:"-"`
	Metadata     map[string]string `json:"-"`
	Summary      string            `json:"summary"`
	KeyPoints    string            `json:"key_points"`
	BulletNotes  string            `json:"bullet_notes"`
	Status       GenerationStatus  `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ChatMessage is one request/response turn. Response stays empty until the
// model has answered; the user-authored half is never lost on LLM failure.
type ChatMessage struct {
	ID            uint         `json:"id"`
	UserID        uint         `json:"user_id"`
	ResourceKind  ResourceKind `json:"resource_kind"`
	ResourceID    uint         `json:"resource_id"`
	Message       string       `json:"message"`
	Response      string       `json:"response"`
	Answered      bool         `json:"answered"`
	IsUserMessage bool         `json:"is_user_message"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ChatHistory summarizes one resource's conversation for history list screens.
type ChatHistory struct {
	ResourceID     uint         `json:"resource_id"`
	ResourceKind   ResourceKind `json:"resource_kind"`
	Title          string       `json:"title"`
	ThumbnailURL   string       `json:"thumbnail_url,omitempty"`
	YouTubeVideoID string       `json:"youtube_video_id,omitempty"`
	LastMessage    string       `json:"last_message"`
	LastMessageAt  time.Time    `json:"last_message_at"`
	MessageCount   int          `json:"message_count"`
}

// UserStats aggregates user counts for the admin dashboard.
type UserStats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Verified     int `json:"verified"`
	NewToday     int `json:"new_today"`
	NewLast7Days int `json:"new_last_7_days"`
}

// ResourceStats aggregates video or PDF counts.
type ResourceStats struct {
	Total        int `json:"total"`
	WithNotes    int `json:"with_notes"`
	NewToday     int `json:"new_today"`
	NewLast7Days int `json:"new_last_7_days"`
}

// ChatStats aggregates chat message counts.
type ChatStats struct {
	Total    int `json:"total"`
	NewToday int `json:"new_today"`
}

// Stats is the full admin dashboard payload. Chat counts are split by the
// kind of resource the conversation is grounded against.
type Stats struct {
	Users      UserStats     `json:"users"`
	Videos     ResourceStats `json:"videos"`
	PDFs       ResourceStats `json:"pdfs"`
	VideoChats ChatStats     `json:"chats"`
	PDFChats   ChatStats     `json:"pdf_chats"`
}
