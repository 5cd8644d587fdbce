package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tubemindai/pkg/domain"
)

const migrateLockID int64 = 86428642

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so concurrent instances do not race on schema changes.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &VideoModel{}, &PDFModel{}, &ChatMessageModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// users

// CreateUser inserts a user and returns it with the assigned ID.
func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	model := userToModel(u)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	model.UpdatedAt = model.CreatedAt
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id uint) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SetUserVerified marks a user verified (and active on first verification).
func (s *GormStore) SetUserVerified(id uint, verified bool) error {
	updates := map[string]any{
		"is_verified": verified,
		"updated_at":  time.Now().UTC(),
	}
	if verified {
		updates["is_active"] = true
	}
	return s.db.Model(&UserModel{}).Where("id = ?", id).Updates(updates).Error
}

// SetUserActive toggles the account's active flag.
func (s *GormStore) SetUserActive(id uint, active bool) error {
	return s.db.Model(&UserModel{}).Where("id = ?", id).Updates(map[string]any{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}).Error
}

// SetUserAdmin grants or removes the admin role.
func (s *GormStore) SetUserAdmin(id uint, admin bool) error {
	return s.db.Model(&UserModel{}).Where("id = ?", id).Updates(map[string]any{
		"is_admin":   admin,
		"updated_at": time.Now().UTC(),
	}).Error
}

// SetUserPassword replaces the stored password hash.
func (s *GormStore) SetUserPassword(id uint, passwordHash string) error {
	return s.db.Model(&UserModel{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	}).Error
}

type adminUserScan struct {
	UserModel
	VideoCount int
	ChatCount  int
}

// ListUsers returns users with per-user counts for the admin surface.
func (s *GormStore) ListUsers(opts ListOptions) ([]AdminUserRow, int, error) {
	base := s.db.Model(&UserModel{})
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		base = base.Where("name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []adminUserScan
	err := base.
		Select(`user_models.*,
			(SELECT COUNT(*) FROM video_models v WHERE v.user_id = user_models.id) AS video_count,
			(SELECT COUNT(*) FROM chat_message_models c WHERE c.user_id = user_models.id) AS chat_count`).
		Order("created_at DESC, id DESC").
		Offset(opts.Skip).
		Limit(normalizeLimit(opts.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]AdminUserRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, AdminUserRow{
			User:       userFromModel(row.UserModel),
			VideoCount: row.VideoCount,
			ChatCount:  row.ChatCount,
		})
	}
	return out, int(total), nil
}

// videos

// CreateVideo inserts a video row and returns it with the assigned ID.
func (s *GormStore) CreateVideo(v domain.Video) (domain.Video, error) {
	model := videoToModel(v)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	model.UpdatedAt = model.CreatedAt
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Video{}, err
	}
	return videoFromModel(model), nil
}

// GetVideo retrieves a video by ID.
func (s *GormStore) GetVideo(id uint) (domain.Video, bool, error) {
	var model VideoModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Video{}, false, nil
		}
		return domain.Video{}, false, err
	}
	return videoFromModel(model), true, nil
}

// GetVideoByYouTubeID looks up a user's video by canonical YouTube ID.
// Re-generating the same video reuses this row instead of duplicating it.
func (s *GormStore) GetVideoByYouTubeID(userID uint, youtubeID string) (domain.Video, bool, error) {
	var model VideoModel
	err := s.db.Where("user_id = ? AND youtube_video_id = ?", userID, youtubeID).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Video{}, false, nil
		}
		return domain.Video{}, false, err
	}
	return videoFromModel(model), true, nil
}

// SetVideoIngest stores the ingested transcript and metadata.
func (s *GormStore) SetVideoIngest(id uint, title, thumbnailURL, duration, transcript string, metadata map[string]string) error {
	meta, _ := json.Marshal(metadata)
	return s.db.Model(&VideoModel{}).Where("id = ?", id).Updates(map[string]any{
		"title":         title,
		"thumbnail_url": thumbnailURL,
		"duration":      duration,
		"transcript":    transcript,
		"metadata":      meta,
		"updated_at":    time.Now().UTC(),
	}).Error
}

// SetVideoNotes persists all three generated fields and marks the row done.
func (s *GormStore) SetVideoNotes(id uint, summary, keyPoints, bulletNotes string) error {
	return s.db.Model(&VideoModel{}).Where("id = ?", id).Updates(map[string]any{
		"summary":       summary,
		"key_points":    keyPoints,
		"bullet_notes":  bulletNotes,
		"status":        string(domain.StatusDone),
		"error_message": "",
		"updated_at":    time.Now().UTC(),
	}).Error
}

// SetVideoStatus updates generation status and error reason.
func (s *GormStore) SetVideoStatus(id uint, status domain.GenerationStatus, errMsg string) error {
	return s.db.Model(&VideoModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":        string(status),
		"error_message": errMsg,
		"updated_at":    time.Now().UTC(),
	}).Error
}

// SetVideoSaved toggles the owner's saved flag.
func (s *GormStore) SetVideoSaved(id uint, saved bool) error {
	return s.db.Model(&VideoModel{}).Where("id = ?", id).Updates(map[string]any{
		"is_saved":   saved,
		"updated_at": time.Now().UTC(),
	}).Error
}

// ListVideos returns videos scoped by the options.
func (s *GormStore) ListVideos(opts ListOptions) ([]domain.Video, int, error) {
	base := s.db.Model(&VideoModel{})
	if opts.UserID != 0 {
		base = base.Where("user_id = ?", opts.UserID)
	}
	if opts.SavedOnly {
		base = base.Where("is_saved = ?", true)
	}
	if opts.Search != "" {
		base = base.Where("title ILIKE ?", "%"+opts.Search+"%")
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []VideoModel
	err := base.
		Order("created_at DESC, id DESC").
		Offset(opts.Skip).
		Limit(normalizeLimit(opts.Limit)).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Video, 0, len(models))
	for _, m := range models {
		out = append(out, videoFromModel(m))
	}
	return out, int(total), nil
}

type adminVideoScan struct {
	VideoModel
	UserName  string
	UserEmail string
	ChatCount int
}

// ListVideosAdmin returns videos joined with owner identity and chat counts.
func (s *GormStore) ListVideosAdmin(opts ListOptions) ([]AdminVideoRow, int, error) {
	base := s.db.Model(&VideoModel{})
	if opts.UserID != 0 {
		base = base.Where("video_models.user_id = ?", opts.UserID)
	}
	if opts.Search != "" {
		base = base.Where("video_models.title ILIKE ?", "%"+opts.Search+"%")
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []adminVideoScan
	err := base.
		Select(`video_models.*, u.name AS user_name, u.email AS user_email,
			(SELECT COUNT(*) FROM chat_message_models c
			 WHERE c.resource_kind = 'video' AND c.resource_id = video_models.id) AS chat_count`).
		Joins("JOIN user_models u ON u.id = video_models.user_id").
		Order("video_models.created_at DESC, video_models.id DESC").
		Offset(opts.Skip).
		Limit(normalizeLimit(opts.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]AdminVideoRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, AdminVideoRow{
			Video:     videoFromModel(row.VideoModel),
			UserName:  row.UserName,
			UserEmail: row.UserEmail,
			ChatCount: row.ChatCount,
		})
	}
	return out, int(total), nil
}

// DeleteVideo removes a video and its chat messages in one transaction.
func (s *GormStore) DeleteVideo(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ChatMessageModel{}, "resource_kind = ? AND resource_id = ?", string(domain.KindVideo), id).Error; err != nil {
			return err
		}
		return tx.Delete(&VideoModel{}, "id = ?", id).Error
	})
}

// pdfs

// CreatePDF inserts a PDF row and returns it with the assigned ID.
func (s *GormStore) CreatePDF(p domain.PDFDocument) (domain.PDFDocument, error) {
	model := pdfToModel(p)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	model.UpdatedAt = model.CreatedAt
	if err := s.db.Create(&model).Error; err != nil {
		return domain.PDFDocument{}, err
	}
	return pdfFromModel(model), nil
}

// GetPDF retrieves a PDF by ID.
func (s *GormStore) GetPDF(id uint) (domain.PDFDocument, bool, error) {
	var model PDFModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.PDFDocument{}, false, nil
		}
		return domain.PDFDocument{}, false, err
	}
	return pdfFromModel(model), true, nil
}

// SetPDFNotes persists all three generated fields and marks the row done.
func (s *GormStore) SetPDFNotes(id uint, summary, keyPoints, bulletNotes string) error {
	return s.db.Model(&PDFModel{}).Where("id = ?", id).Updates(map[string]any{
		"summary":       summary,
		"key_points":    keyPoints,
		"bullet_notes":  bulletNotes,
		"status":        string(domain.StatusDone),
		"error_message": "",
		"updated_at":    time.Now().UTC(),
	}).Error
}

// SetPDFStatus updates generation status and error reason.
func (s *GormStore) SetPDFStatus(id uint, status domain.GenerationStatus, errMsg string) error {
	return s.db.Model(&PDFModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":        string(status),
		"error_message": errMsg,
		"updated_at":    time.Now().UTC(),
	}).Error
}

// ListPDFs returns PDFs scoped by the options.
func (s *GormStore) ListPDFs(opts ListOptions) ([]domain.PDFDocument, int, error) {
	base := s.db.Model(&PDFModel{})
	if opts.UserID != 0 {
		base = base.Where("user_id = ?", opts.UserID)
	}
	if opts.Search != "" {
		base = base.Where("file_name ILIKE ?", "%"+opts.Search+"%")
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []PDFModel
	err := base.
		Order("created_at DESC, id DESC").
		Offset(opts.Skip).
		Limit(normalizeLimit(opts.Limit)).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.PDFDocument, 0, len(models))
	for _, m := range models {
		out = append(out, pdfFromModel(m))
	}
	return out, int(total), nil
}

type adminPDFScan struct {
	PDFModel
	UserName  string
	UserEmail string
	ChatCount int
}

// ListPDFsAdmin returns PDFs joined with owner identity and chat counts.
func (s *GormStore) ListPDFsAdmin(opts ListOptions) ([]AdminPDFRow, int, error) {
	base := s.db.Model(&PDFModel{})
	if opts.UserID != 0 {
		base = base.Where("pdf_models.user_id = ?", opts.UserID)
	}
	if opts.Search != "" {
		base = base.Where("pdf_models.file_name ILIKE ?", "%"+opts.Search+"%")
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []adminPDFScan
	err := base.
		Select(`pdf_models.*, u.name AS user_name, u.email AS user_email,
			(SELECT COUNT(*) FROM chat_message_models c
			 WHERE c.resource_kind = 'pdf' AND c.resource_id = pdf_models.id) AS chat_count`).
		Joins("JOIN user_models u ON u.id = pdf_models.user_id").
		Order("pdf_models.created_at DESC, pdf_models.id DESC").
		Offset(opts.Skip).
		Limit(normalizeLimit(opts.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]AdminPDFRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, AdminPDFRow{
			PDFDocument: pdfFromModel(row.PDFModel),
			UserName:    row.UserName,
			UserEmail:   row.UserEmail,
			ChatCount:   row.ChatCount,
		})
	}
	return out, int(total), nil
}

// DeletePDF removes a PDF and its chat messages in one transaction.
func (s *GormStore) DeletePDF(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ChatMessageModel{}, "resource_kind = ? AND resource_id = ?", string(domain.KindPDF), id).Error; err != nil {
			return err
		}
		return tx.Delete(&PDFModel{}, "id = ?", id).Error
	})
}

// chats

// AppendChatMessage records a chat turn and returns it with the assigned ID.
func (s *GormStore) AppendChatMessage(msg domain.ChatMessage) (domain.ChatMessage, error) {
	model := chatToModel(msg)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.ChatMessage{}, err
	}
	return chatFromModel(model), nil
}

// SetChatResponse fills in the model's answer for a turn.
func (s *GormStore) SetChatResponse(id uint, response string) error {
	return s.db.Model(&ChatMessageModel{}).Where("id = ?", id).Update("response", response).Error
}

// GetChatMessage retrieves one chat turn.
func (s *GormStore) GetChatMessage(id uint) (domain.ChatMessage, bool, error) {
	var model ChatMessageModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChatMessage{}, false, nil
		}
		return domain.ChatMessage{}, false, err
	}
	return chatFromModel(model), true, nil
}

// ListChatMessages returns a resource's turns in chronological order.
func (s *GormStore) ListChatMessages(userID uint, kind domain.ResourceKind, resourceID uint, skip, limit int) ([]domain.ChatMessage, int, error) {
	base := s.db.Model(&ChatMessageModel{}).
		Where("user_id = ? AND resource_kind = ? AND resource_id = ?", userID, string(kind), resourceID)
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []ChatMessageModel
	err := base.
		Order("created_at ASC, id ASC").
		Offset(skip).
		Limit(normalizeLimit(limit)).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.ChatMessage, 0, len(models))
	for _, m := range models {
		out = append(out, chatFromModel(m))
	}
	return out, int(total), nil
}

type historyScan struct {
	ResourceID    uint
	LastMessageAt time.Time
	MessageCount  int
}

// ListChatHistories returns one summary row per resource the user has chatted
// with, newest activity first.
func (s *GormStore) ListChatHistories(userID uint, kind domain.ResourceKind) ([]domain.ChatHistory, error) {
	var groups []historyScan
	err := s.db.Model(&ChatMessageModel{}).
		Select("resource_id, MAX(created_at) AS last_message_at, COUNT(*) AS message_count").
		Where("user_id = ? AND resource_kind = ?", userID, string(kind)).
		Group("resource_id").
		Order("last_message_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChatHistory, 0, len(groups))
	for _, g := range groups {
		var last ChatMessageModel
		err := s.db.Where("user_id = ? AND resource_kind = ? AND resource_id = ?", userID, string(kind), g.ResourceID).
			Order("created_at DESC, id DESC").
			First(&last).Error
		if err != nil {
			return nil, err
		}
		h := domain.ChatHistory{
			ResourceID:    g.ResourceID,
			ResourceKind:  kind,
			LastMessage:   last.Message,
			LastMessageAt: g.LastMessageAt,
			MessageCount:  g.MessageCount,
		}
		switch kind {
		case domain.KindVideo:
			if video, ok, err := s.GetVideo(g.ResourceID); err != nil {
				return nil, err
			} else if ok {
				h.Title = video.Title
				h.ThumbnailURL = video.ThumbnailURL
				h.YouTubeVideoID = video.YouTubeVideoID
			}
		case domain.KindPDF:
			if pdf, ok, err := s.GetPDF(g.ResourceID); err != nil {
				return nil, err
			} else if ok {
				h.Title = pdf.FileName
			}
		}
		out = append(out, h)
	}
	return out, nil
}

// DeleteChatMessage removes one chat turn.
func (s *GormStore) DeleteChatMessage(id uint) error {
	return s.db.Delete(&ChatMessageModel{}, "id = ?", id).Error
}

// DeleteChatsForResource removes all turns for one resource transactionally.
func (s *GormStore) DeleteChatsForResource(kind domain.ResourceKind, resourceID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&ChatMessageModel{}, "resource_kind = ? AND resource_id = ?", string(kind), resourceID).Error
	})
}

// DeleteChatsForUser removes all of a user's turns for a kind transactionally.
func (s *GormStore) DeleteChatsForUser(userID uint, kind domain.ResourceKind) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&ChatMessageModel{}, "user_id = ? AND resource_kind = ?", userID, string(kind)).Error
	})
}

// Stats computes the admin dashboard aggregates.
func (s *GormStore) Stats() (domain.Stats, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)

	var stats domain.Stats
	count := func(model any, dst *int, conds ...any) error {
		q := s.db.Model(model)
		if len(conds) > 0 {
			q = q.Where(conds[0], conds[1:]...)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return err
		}
		*dst = int(n)
		return nil
	}

	steps := []func() error{
		func() error { return count(&UserModel{}, &stats.Users.Total) },
		func() error { return count(&UserModel{}, &stats.Users.Active, "is_active = ?", true) },
		func() error { return count(&UserModel{}, &stats.Users.Verified, "is_verified = ?", true) },
		func() error { return count(&UserModel{}, &stats.Users.NewToday, "created_at >= ?", today) },
		func() error { return count(&UserModel{}, &stats.Users.NewLast7Days, "created_at >= ?", weekAgo) },
		func() error { return count(&VideoModel{}, &stats.Videos.Total) },
		func() error {
			return count(&VideoModel{}, &stats.Videos.WithNotes, "status = ?", string(domain.StatusDone))
		},
		func() error { return count(&VideoModel{}, &stats.Videos.NewToday, "created_at >= ?", today) },
		func() error { return count(&VideoModel{}, &stats.Videos.NewLast7Days, "created_at >= ?", weekAgo) },
		func() error { return count(&PDFModel{}, &stats.PDFs.Total) },
		func() error {
			return count(&PDFModel{}, &stats.PDFs.WithNotes, "status = ?", string(domain.StatusDone))
		},
		func() error { return count(&PDFModel{}, &stats.PDFs.NewToday, "created_at >= ?", today) },
		func() error { return count(&PDFModel{}, &stats.PDFs.NewLast7Days, "created_at >= ?", weekAgo) },
		func() error {
			return count(&ChatMessageModel{}, &stats.VideoChats.Total, "resource_kind = ?", string(domain.KindVideo))
		},
		func() error {
			return count(&ChatMessageModel{}, &stats.VideoChats.NewToday,
				"resource_kind = ? AND created_at >= ?", string(domain.KindVideo), today)
		},
		func() error {
			return count(&ChatMessageModel{}, &stats.PDFChats.Total, "resource_kind = ?", string(domain.KindPDF))
		},
		func() error {
			return count(&ChatMessageModel{}, &stats.PDFChats.NewToday,
				"resource_kind = ? AND created_at >= ?", string(domain.KindPDF), today)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return domain.Stats{}, err
		}
	}
	return stats, nil
}

// ResetStaleProcessing fails rows stuck in processing longer than olderThan.
// It is the safety net for generations whose owner died mid-run.
func (s *GormStore) ResetStaleProcessing(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	updates := map[string]any{
		"status":        string(domain.StatusFailed),
		"error_message": "generation interrupted",
		"updated_at":    time.Now().UTC(),
	}
	var affected int64
	res := s.db.Model(&VideoModel{}).
		Where("status = ? AND updated_at < ?", string(domain.StatusProcessing), cutoff).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	affected += res.RowsAffected
	res = s.db.Model(&PDFModel{}).
		Where("status = ? AND updated_at < ?", string(domain.StatusProcessing), cutoff).
		Updates(updates)
	if res.Error != nil {
		return affected, res.Error
	}
	affected += res.RowsAffected
	return affected, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

// model conversions

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		IsVerified:   m.IsVerified,
		IsAdmin:      m.IsAdmin,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func videoToModel(v domain.Video) VideoModel {
	meta, _ := json.Marshal(v.Metadata)
	return VideoModel{
		ID:             v.ID,
		UserID:         v.UserID,
		YouTubeVideoID: v.YouTubeVideoID,
		VideoURL:       v.VideoURL,
		Title:          v.Title,
		ThumbnailURL:   v.ThumbnailURL,
		Duration:       v.Duration,
		Transcript:     v.Transcript,
		Metadata:       meta,
		Summary:        v.Summary,
		KeyPoints:      v.KeyPoints,
		BulletNotes:    v.BulletNotes,
		Status:         string(v.Status),
		ErrorMessage:   v.ErrorMessage,
		IsSaved:        v.IsSaved,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
}

func videoFromModel(m VideoModel) domain.Video {
	var meta map[string]string
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &meta)
	}
	return domain.Video{
		ID:             m.ID,
		UserID:         m.UserID,
		YouTubeVideoID: m.YouTubeVideoID,
		VideoURL:       m.VideoURL,
		Title:          m.Title,
		ThumbnailURL:   m.ThumbnailURL,
		Duration:       m.Duration,
		Transcript:     m.Transcript,
		Metadata:       meta,
		Summary:        m.Summary,
		KeyPoints:      m.KeyPoints,
		BulletNotes:    m.BulletNotes,
		Status:         domain.GenerationStatus(m.Status),
		ErrorMessage:   m.ErrorMessage,
		IsSaved:        m.IsSaved,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func pdfToModel(p domain.PDFDocument) PDFModel {
	meta, _ := json.Marshal(p.Metadata)
	return PDFModel{
		ID:           p.ID,
		UserID:       p.UserID,
		FileName:     p.FileName,
		FileSize:     p.FileSize,
		PageCount:    p.PageCount,
		StorageKey:   p.StorageKey,
		Content:      p.Content,
		Metadata:     meta,
		Summary:      p.Summary,
		KeyPoints:    p.KeyPoints,
		BulletNotes:  p.BulletNotes,
		Status:       string(p.Status),
		ErrorMessage: p.ErrorMessage,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func pdfFromModel(m PDFModel) domain.PDFDocument {
	var meta map[string]string
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &meta)
	}
	return domain.PDFDocument{
		ID:           m.ID,
		UserID:       m.UserID,
		FileName:     m.FileName,
		FileSize:     m.FileSize,
		PageCount:    m.PageCount,
		StorageKey:   m.StorageKey,
		Content:      m.Content,
		Metadata:     meta,
		Summary:      m.Summary,
		KeyPoints:    m.KeyPoints,
		BulletNotes:  m.BulletNotes,
		Status:       domain.GenerationStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func chatToModel(msg domain.ChatMessage) ChatMessageModel {
	var response *string
	if msg.Answered {
		value := msg.Response
		response = &value
	}
	return ChatMessageModel{
		ID:            msg.ID,
		UserID:        msg.UserID,
		ResourceKind:  string(msg.ResourceKind),
		ResourceID:    msg.ResourceID,
		Message:       msg.Message,
		Response:      response,
		IsUserMessage: msg.IsUserMessage,
		CreatedAt:     msg.CreatedAt,
	}
}

func chatFromModel(m ChatMessageModel) domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:            m.ID,
		UserID:        m.UserID,
		ResourceKind:  domain.ResourceKind(m.ResourceKind),
		ResourceID:    m.ResourceID,
		Message:       m.Message,
		IsUserMessage: m.IsUserMessage,
		CreatedAt:     m.CreatedAt,
	}
	if m.Response != nil {
		msg.Response = *m.Response
		msg.Answered = true
	}
	return msg
}
