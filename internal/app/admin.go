package app

import (
	"context"
	"errors"
	"time"

	"tubemindai/pkg/domain"
	"tubemindai/pkg/store"
)

// ErrSelfDeactivation guards admins from locking themselves out.
var ErrSelfDeactivation = errors.New("admins cannot deactivate their own account")

// Stats returns the admin dashboard aggregates.
func (a *App) Stats() (domain.Stats, error) {
	return a.store.Stats()
}

// ListAllUsers pages through every account with per-user resource counts.
func (a *App) ListAllUsers(opts store.ListOptions) ([]store.AdminUserRow, int, error) {
	return a.store.ListUsers(opts)
}

// ListAllVideos pages through every video with owner identity.
func (a *App) ListAllVideos(opts store.ListOptions) ([]store.AdminVideoRow, int, error) {
	return a.store.ListVideosAdmin(opts)
}

// ListAllPDFs pages through every document with owner identity.
func (a *App) ListAllPDFs(opts store.ListOptions) ([]store.AdminPDFRow, int, error) {
	return a.store.ListPDFsAdmin(opts)
}

// SetUserActive activates or deactivates an account. Deactivation revokes
// the user's live sessions immediately.
func (a *App) SetUserActive(admin domain.User, userID uint, active bool) (domain.User, error) {
	if userID == admin.ID && !active {
		return domain.User{}, ErrSelfDeactivation
	}
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	if !found {
		return domain.User{}, ErrResourceNotFound
	}
	if err := a.store.SetUserActive(userID, active); err != nil {
		return domain.User{}, err
	}
	if !active {
		if err := a.sessions.RevokeUserSessions(userID, time.Now().UTC()); err != nil {
			return domain.User{}, err
		}
	}
	user.IsActive = active
	event := "user_activated"
	if !active {
		event = "user_deactivated"
	}
	a.logger.Warn("security_event", "event", event, "user_id", userID, "admin_id", admin.ID)
	return user, nil
}

// AdminDeleteVideo removes any user's video and its chats.
func (a *App) AdminDeleteVideo(ctx context.Context, admin domain.User, videoID uint) error {
	video, found, err := a.store.GetVideo(videoID)
	if err != nil {
		return err
	}
	if !found {
		return ErrResourceNotFound
	}
	if err := a.store.DeleteVideo(videoID); err != nil {
		return err
	}
	a.logger.Warn("security_event", "event", "admin_video_deleted",
		"video_id", videoID, "owner_id", video.UserID, "admin_id", admin.ID)
	return nil
}

// AdminDeletePDF removes any user's document, its chats, and the stored file.
func (a *App) AdminDeletePDF(ctx context.Context, admin domain.User, pdfID uint) error {
	doc, found, err := a.store.GetPDF(pdfID)
	if err != nil {
		return err
	}
	if !found {
		return ErrResourceNotFound
	}
	if err := a.store.DeletePDF(pdfID); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := a.objects.Delete(ctx, doc.StorageKey); err != nil {
			a.logger.Error("delete pdf object", "pdf_id", pdfID, "key", doc.StorageKey, "error", err)
		}
	}
	a.logger.Warn("security_event", "event", "admin_pdf_deleted",
		"pdf_id", pdfID, "owner_id", doc.UserID, "admin_id", admin.ID)
	return nil
}
