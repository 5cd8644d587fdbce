package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tubemindai/pkg/domain"
	"tubemindai/pkg/ingest"
	"tubemindai/pkg/notes"
	"tubemindai/pkg/store"
)

// GenerateVideoNotes ingests a YouTube video for the user and produces study
// notes. The call is synchronous; the client waits for the finished notes.
// Re-submitting a finished video returns the stored result, re-submitting a
// failed one retries, and a video mid-generation returns
// ErrGenerationInFlight.
func (a *App) GenerateVideoNotes(ctx context.Context, user domain.User, videoURL string) (domain.Video, error) {
	youtubeID, err := ingest.ParseVideoID(videoURL)
	if err != nil {
		return domain.Video{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	video, found, err := a.store.GetVideoByYouTubeID(user.ID, youtubeID)
	if err != nil {
		return domain.Video{}, err
	}
	if !found {
		video, err = a.store.CreateVideo(domain.Video{
			UserID:         user.ID,
			YouTubeVideoID: youtubeID,
			VideoURL:       videoURL,
			Status:         domain.StatusPending,
		})
		if err != nil {
			return domain.Video{}, err
		}
	}
	switch video.Status {
	case domain.StatusDone:
		return video, nil
	case domain.StatusProcessing:
		return domain.Video{}, ErrGenerationInFlight
	}

	leaseKey := leaseKey(domain.KindVideo, video.ID)
	ok, err := a.lease.Acquire(ctx, leaseKey, a.leaseTTL)
	if err != nil {
		return domain.Video{}, err
	}
	if !ok {
		return domain.Video{}, ErrGenerationInFlight
	}
	defer func() { _ = a.lease.Release(context.WithoutCancel(ctx), leaseKey) }()

	if err := a.store.SetVideoStatus(video.ID, domain.StatusProcessing, ""); err != nil {
		return domain.Video{}, err
	}

	if video.Transcript == "" {
		info, err := a.videos.Fetch(ctx, youtubeID)
		if err != nil {
			return domain.Video{}, a.failVideo(video.ID, err)
		}
		metadata := map[string]string{"channel_name": info.ChannelName}
		duration := formatDuration(info.DurationSeconds)
		if err := a.store.SetVideoIngest(video.ID, info.Title, info.ThumbnailURL, duration, info.Transcript, metadata); err != nil {
			return domain.Video{}, err
		}
		video.Title = info.Title
		video.Transcript = info.Transcript
	}

	result, err := a.pipeline.Generate(ctx, notes.Source{
		Kind:  domain.KindVideo,
		Title: video.Title,
		Text:  video.Transcript,
	})
	if err != nil {
		return domain.Video{}, a.failVideo(video.ID, err)
	}
	if err := a.store.SetVideoNotes(video.ID, result.Summary, result.KeyPoints, result.BulletNotes); err != nil {
		return domain.Video{}, err
	}
	if err := a.store.SetVideoStatus(video.ID, domain.StatusDone, ""); err != nil {
		return domain.Video{}, err
	}
	a.logger.Info("video notes generated", "video_id", video.ID, "user_id", user.ID, "youtube_id", youtubeID)

	video, _, err = a.store.GetVideo(video.ID)
	return video, err
}

// failVideo records the failure reason and maps the cause to a caller-facing
// error. The row always ends in a terminal state, even on a canceled request.
func (a *App) failVideo(videoID uint, cause error) error {
	reason := failureReason(cause)
	if err := a.store.SetVideoStatus(videoID, domain.StatusFailed, reason); err != nil {
		a.logger.Error("mark video failed", "video_id", videoID, "error", err)
	}
	a.logger.Warn("video generation failed", "video_id", videoID, "reason", reason)
	return generationError(cause)
}

func failureReason(cause error) string {
	switch {
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		return "canceled"
	default:
		return cause.Error()
	}
}

func generationError(cause error) error {
	switch {
	case errors.Is(cause, ingest.ErrNoTranscript),
		errors.Is(cause, ingest.ErrVideoNotFound),
		errors.Is(cause, ingest.ErrUnsupportedFormat),
		errors.Is(cause, ingest.ErrCorruptFile),
		errors.Is(cause, ingest.ErrNoText):
		return fmt.Errorf("%w: %v", ErrGenerationFailed, cause)
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		return cause
	default:
		return fmt.Errorf("%w: %v", ErrGenerationFailed, cause)
	}
}

func leaseKey(kind domain.ResourceKind, id uint) string {
	return string(kind) + ":" + strconv.FormatUint(uint64(id), 10)
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// GetVideo returns a video the user owns. Admins can read any video.
func (a *App) GetVideo(user domain.User, id uint) (domain.Video, error) {
	video, found, err := a.store.GetVideo(id)
	if err != nil {
		return domain.Video{}, err
	}
	if !found {
		return domain.Video{}, ErrResourceNotFound
	}
	if video.UserID != user.ID && !user.IsAdmin {
		return domain.Video{}, ErrForbidden
	}
	return video, nil
}

// GetVideoByYouTubeID returns the user's video for a YouTube id, if any.
func (a *App) GetVideoByYouTubeID(user domain.User, youtubeID string) (domain.Video, error) {
	video, found, err := a.store.GetVideoByYouTubeID(user.ID, youtubeID)
	if err != nil {
		return domain.Video{}, err
	}
	if !found {
		return domain.Video{}, ErrResourceNotFound
	}
	return video, nil
}

// ListVideos pages through the user's videos, optionally only saved ones.
func (a *App) ListVideos(user domain.User, opts store.ListOptions) ([]domain.Video, int, error) {
	opts.UserID = user.ID
	return a.store.ListVideos(opts)
}

// SetVideoSaved toggles the saved flag on a video the user owns.
func (a *App) SetVideoSaved(user domain.User, id uint, saved bool) (domain.Video, error) {
	video, err := a.GetVideo(user, id)
	if err != nil {
		return domain.Video{}, err
	}
	if err := a.store.SetVideoSaved(video.ID, saved); err != nil {
		return domain.Video{}, err
	}
	video.IsSaved = saved
	return video, nil
}

// DeleteVideo removes the video and its chat history.
func (a *App) DeleteVideo(user domain.User, id uint) error {
	video, err := a.GetVideo(user, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteVideo(video.ID); err != nil {
		return err
	}
	a.logger.Info("video deleted", "video_id", video.ID, "user_id", user.ID)
	return nil
}
