package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	IsActive     bool
	IsVerified   bool
	IsAdmin      bool
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time
}

type VideoModel struct {
	ID             uint           `gorm:"primaryKey"`
	UserID         uint           `gorm:"not null;index;uniqueIndex:idx_videos_owner_youtube,priority:1"`
	YouTubeVideoID string         `gorm:"column:youtube_video_id;not null;uniqueIndex:idx_videos_owner_youtube,priority:2"`
	VideoURL       string         `gorm:"not null"`
	Title          string
	ThumbnailURL   string
	Duration       string
	Transcript     string         `gorm:"type:text"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"`
	Summary        string         `gorm:"type:text"`
	KeyPoints      string         `gorm:"type:text"`
	BulletNotes    string         `gorm:"type:text"`
	Status         string         `gorm:"not null;index"`
	ErrorMessage   string
	IsSaved        bool
	CreatedAt      time.Time `gorm:"not null;index"`
	UpdatedAt      time.Time `gorm:"not null"`
}

type PDFModel struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"not null;index"`
	FileName     string `gorm:"not null"`
	FileSize     int64  `gorm:"not null"`
	PageCount    int
	StorageKey   string
	Content      string         `gorm:"type:text"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	Summary      string         `gorm:"type:text"`
	KeyPoints    string         `gorm:"type:text"`
	BulletNotes  string         `gorm:"type:text"`
	Status       string         `gorm:"not null;index"`
	ErrorMessage string
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type ChatMessageModel struct {
	ID            uint    `gorm:"primaryKey"`
	UserID        uint    `gorm:"not null;index"`
	ResourceKind  string  `gorm:"not null;index:idx_chats_resource,priority:1"`
	ResourceID    uint    `gorm:"not null;index:idx_chats_resource,priority:2"`
	Message       string  `gorm:"type:text;not null"`
	Response      *string `gorm:"type:text"`
	IsUserMessage bool    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null;index"`
}
