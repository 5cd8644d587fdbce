package server

import (
	"time"

	"tubemindai/pkg/domain"
	"tubemindai/pkg/store"
)

// Wire DTOs for the mobile client. Field names are part of the released
// client contract and must not change shape.

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpVerifyRequest struct {
	Email   string `json:"email"`
	OTPCode string `json:"otp_code"`
	Purpose string `json:"purpose"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
	ResetToken      string `json:"reset_token"`
}

type videoGenerateRequest struct {
	VideoURL string `json:"video_url"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      uint   `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsAdmin     bool   `json:"is_admin"`
}

type otpVerifyResponse struct {
	Message    string `json:"message"`
	Verified   bool   `json:"verified"`
	Token      string `json:"token,omitempty"`
	ResetToken string `json:"reset_token,omitempty"`
}

type videoResponse struct {
	ID           uint   `json:"id"`
	VideoID      string `json:"video_id"`
	VideoURL     string `json:"video_url"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	Duration     string `json:"duration"`
	Summary      string `json:"summary"`
	KeyPoints    string `json:"key_points"`
	BulletNotes  string `json:"bullet_notes"`
	Status       string `json:"status"`
	IsSaved      bool   `json:"is_saved"`
	CreatedAt    string `json:"created_at"`
}

type videoGenerateResponse struct {
	Message        string `json:"message"`
	VideoID        uint   `json:"video_id"`
	YouTubeVideoID string `json:"youtube_video_id"`
	Title          string `json:"title"`
	ThumbnailURL   string `json:"thumbnail_url"`
	Summary        string `json:"summary"`
	KeyPoints      string `json:"key_points"`
	BulletNotes    string `json:"bullet_notes"`
	Status         string `json:"status"`
}

type videoListResponse struct {
	Videos []videoResponse `json:"videos"`
	Total  int             `json:"total"`
}

type pdfResponse struct {
	ID          uint   `json:"id"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	PageCount   int    `json:"page_count"`
	Summary     string `json:"summary"`
	KeyPoints   string `json:"key_points"`
	BulletNotes string `json:"bullet_notes"`
	Status      string `json:"status"`
	IsSaved     bool   `json:"is_saved"`
	CreatedAt   string `json:"created_at"`
}

type pdfUploadResponse struct {
	Message   string `json:"message"`
	PDFID     uint   `json:"pdf_id"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
	PageCount int    `json:"page_count"`
	Status    string `json:"status"`
}

type pdfGenerateResponse struct {
	Message     string `json:"message"`
	PDFID       uint   `json:"pdf_id"`
	FileName    string `json:"file_name"`
	Summary     string `json:"summary"`
	KeyPoints   string `json:"key_points"`
	BulletNotes string `json:"bullet_notes"`
	Status      string `json:"status"`
}

type pdfListResponse struct {
	PDFs  []pdfResponse `json:"pdfs"`
	Total int           `json:"total"`
}

type chatMessageResponse struct {
	ID            uint   `json:"id"`
	Message       string `json:"message"`
	Response      string `json:"response"`
	IsUserMessage bool   `json:"is_user_message"`
	CreatedAt     string `json:"created_at"`
}

type chatHistoryResponse struct {
	Messages []chatMessageResponse `json:"messages"`
	Total    int                   `json:"total"`
}

type videoChatHistoryItem struct {
	VideoID           uint   `json:"video_id"`
	VideoTitle        string `json:"video_title"`
	VideoThumbnailURL string `json:"video_thumbnail_url"`
	LastMessage       string `json:"last_message"`
	LastMessageTime   string `json:"last_message_time"`
	MessageCount      int    `json:"message_count"`
	YouTubeVideoID    string `json:"youtube_video_id"`
}

type videoChatHistoryListResponse struct {
	Histories []videoChatHistoryItem `json:"histories"`
	Total     int                    `json:"total"`
}

type pdfChatHistoryItem struct {
	PDFID           uint   `json:"pdf_id"`
	PDFName         string `json:"pdf_name"`
	LastMessage     string `json:"last_message"`
	LastMessageTime string `json:"last_message_time"`
	MessageCount    int    `json:"message_count"`
}

type pdfChatHistoryListResponse struct {
	Histories []pdfChatHistoryItem `json:"histories"`
	Total     int                  `json:"total"`
}

type adminUserItem struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
	IsAdmin    bool   `json:"is_admin"`
	CreatedAt  string `json:"created_at"`
	VideoCount int    `json:"video_count"`
	ChatCount  int    `json:"chat_count"`
}

type adminUsersResponse struct {
	Users []adminUserItem `json:"users"`
	Total int             `json:"total"`
	Skip  int             `json:"skip"`
	Limit int             `json:"limit"`
}

type adminVideoItem struct {
	ID           uint   `json:"id"`
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	UserID       uint   `json:"user_id"`
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
	HasNotes     bool   `json:"has_notes"`
	ChatCount    int    `json:"chat_count"`
	CreatedAt    string `json:"created_at"`
}

type adminVideosResponse struct {
	Videos []adminVideoItem `json:"videos"`
	Total  int              `json:"total"`
	Skip   int              `json:"skip"`
	Limit  int              `json:"limit"`
}

type adminPDFItem struct {
	ID        uint   `json:"id"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
	PageCount int    `json:"page_count"`
	UserID    uint   `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	HasNotes  bool   `json:"has_notes"`
	ChatCount int    `json:"chat_count"`
	CreatedAt string `json:"created_at"`
}

type adminPDFsResponse struct {
	PDFs  []adminPDFItem `json:"pdfs"`
	Total int            `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

func wireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toVideoResponse(v domain.Video) videoResponse {
	return videoResponse{
		ID:           v.ID,
		VideoID:      v.YouTubeVideoID,
		VideoURL:     v.VideoURL,
		Title:        v.Title,
		ThumbnailURL: v.ThumbnailURL,
		Duration:     v.Duration,
		Summary:      v.Summary,
		KeyPoints:    v.KeyPoints,
		BulletNotes:  v.BulletNotes,
		Status:       string(v.Status),
		IsSaved:      v.IsSaved,
		CreatedAt:    wireTime(v.CreatedAt),
	}
}

func toVideoGenerateResponse(msg string, v domain.Video) videoGenerateResponse {
	return videoGenerateResponse{
		Message:        msg,
		VideoID:        v.ID,
		YouTubeVideoID: v.YouTubeVideoID,
		Title:          v.Title,
		ThumbnailURL:   v.ThumbnailURL,
		Summary:        v.Summary,
		KeyPoints:      v.KeyPoints,
		BulletNotes:    v.BulletNotes,
		Status:         string(v.Status),
	}
}

func toPDFResponse(p domain.PDFDocument) pdfResponse {
	return pdfResponse{
		ID:          p.ID,
		FileName:    p.FileName,
		FileSize:    p.FileSize,
		PageCount:   p.PageCount,
		Summary:     p.Summary,
		KeyPoints:   p.KeyPoints,
		BulletNotes: p.BulletNotes,
		Status:      string(p.Status),
		IsSaved:     p.Status == domain.StatusDone,
		CreatedAt:   wireTime(p.CreatedAt),
	}
}

func toChatMessages(msgs []domain.ChatMessage) []chatMessageResponse {
	out := make([]chatMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessageResponse{
			ID:            m.ID,
			Message:       m.Message,
			Response:      m.Response,
			IsUserMessage: m.IsUserMessage,
			CreatedAt:     wireTime(m.CreatedAt),
		})
	}
	return out
}

func toVideoChatHistories(histories []domain.ChatHistory) []videoChatHistoryItem {
	out := make([]videoChatHistoryItem, 0, len(histories))
	for _, h := range histories {
		out = append(out, videoChatHistoryItem{
			VideoID:           h.ResourceID,
			VideoTitle:        h.Title,
			VideoThumbnailURL: h.ThumbnailURL,
			LastMessage:       h.LastMessage,
			LastMessageTime:   wireTime(h.LastMessageAt),
			MessageCount:      h.MessageCount,
			YouTubeVideoID:    h.YouTubeVideoID,
		})
	}
	return out
}

func toPDFChatHistories(histories []domain.ChatHistory) []pdfChatHistoryItem {
	out := make([]pdfChatHistoryItem, 0, len(histories))
	for _, h := range histories {
		out = append(out, pdfChatHistoryItem{
			PDFID:           h.ResourceID,
			PDFName:         h.Title,
			LastMessage:     h.LastMessage,
			LastMessageTime: wireTime(h.LastMessageAt),
			MessageCount:    h.MessageCount,
		})
	}
	return out
}

func toAdminUsers(rows []store.AdminUserRow) []adminUserItem {
	out := make([]adminUserItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, adminUserItem{
			ID:         row.ID,
			Name:       row.Name,
			Email:      row.Email,
			IsActive:   row.IsActive,
			IsVerified: row.IsVerified,
			IsAdmin:    row.IsAdmin,
			CreatedAt:  wireTime(row.CreatedAt),
			VideoCount: row.VideoCount,
			ChatCount:  row.ChatCount,
		})
	}
	return out
}

func toAdminVideos(rows []store.AdminVideoRow) []adminVideoItem {
	out := make([]adminVideoItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, adminVideoItem{
			ID:           row.ID,
			VideoID:      row.YouTubeVideoID,
			Title:        row.Title,
			ThumbnailURL: row.ThumbnailURL,
			UserID:       row.UserID,
			UserName:     row.UserName,
			UserEmail:    row.UserEmail,
			HasNotes:     row.Status == domain.StatusDone,
			ChatCount:    row.ChatCount,
			CreatedAt:    wireTime(row.CreatedAt),
		})
	}
	return out
}

func toAdminPDFs(rows []store.AdminPDFRow) []adminPDFItem {
	out := make([]adminPDFItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, adminPDFItem{
			ID:        row.ID,
			FileName:  row.FileName,
			FileSize:  row.FileSize,
			PageCount: row.PageCount,
			UserID:    row.UserID,
			UserName:  row.UserName,
			UserEmail: row.UserEmail,
			HasNotes:  row.Status == domain.StatusDone,
			ChatCount: row.ChatCount,
			CreatedAt: wireTime(row.CreatedAt),
		})
	}
	return out
}
