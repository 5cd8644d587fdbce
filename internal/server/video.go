package server

import (
	"net/http"
	"strings"

	"tubemindai/pkg/domain"
)

func (s *Server) handleVideoGenerate(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req videoGenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	video, err := s.app.GenerateVideoNotes(r.Context(), user, req.VideoURL)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVideoGenerateResponse("notes generated", video))
}

func (s *Server) handleVideoList(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	opts := listOptions(r)
	videos, total, err := s.app.ListVideos(user, opts)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	items := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		items = append(items, toVideoResponse(v))
	}
	writeJSON(w, http.StatusOK, videoListResponse{Videos: items, Total: total})
}

// handleVideoPath dispatches /api/video/{id}, /api/video/{id}/save,
// /api/video/{id}/chat, /api/video/youtube/{yt_id}, and the chat
// history routes under /api/video/chat/.
func (s *Server) handleVideoPath(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/api/video/")
	if path == "" {
		s.handleVideoList(w, r, user)
		return
	}
	parts := strings.Split(path, "/")

	switch parts[0] {
	case "chat":
		s.handleVideoChatCollection(w, r, user, parts[1:])
		return
	case "youtube":
		if len(parts) != 2 || parts[1] == "" {
			notFound(w)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		video, err := s.app.GetVideoByYouTubeID(user, parts[1])
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toVideoResponse(video))
		return
	}

	id, ok := pathID(parts[0])
	if !ok {
		notFound(w)
		return
	}
	switch {
	case len(parts) == 1:
		s.handleVideoByID(w, r, user, id)
	case len(parts) == 2 && parts[1] == "save":
		s.handleVideoSave(w, r, user, id)
	case len(parts) == 2 && parts[1] == "chat":
		s.handleResourceChat(w, r, user, domain.KindVideo, id)
	default:
		notFound(w)
	}
}

func (s *Server) handleVideoByID(w http.ResponseWriter, r *http.Request, user domain.User, id uint) {
	switch r.Method {
	case http.MethodGet:
		video, err := s.app.GetVideo(user, id)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toVideoResponse(video))
	case http.MethodDelete:
		if err := s.app.DeleteVideo(user, id); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "video deleted"})
	default:
		methodNotAllowed(w)
	}
}

// handleVideoSave toggles the saved flag.
func (s *Server) handleVideoSave(w http.ResponseWriter, r *http.Request, user domain.User, id uint) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	video, err := s.app.GetVideo(user, id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	video, err = s.app.SetVideoSaved(user, id, !video.IsSaved)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponse(video))
}

// handleVideoChatCollection serves /api/video/chat/histories,
// /api/video/chat/all, and /api/video/chat/{message_id}.
func (s *Server) handleVideoChatCollection(w http.ResponseWriter, r *http.Request, user domain.User, parts []string) {
	if len(parts) != 1 || parts[0] == "" {
		notFound(w)
		return
	}
	switch parts[0] {
	case "histories":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		histories, err := s.app.ChatHistories(user, domain.KindVideo)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		items := toVideoChatHistories(histories)
		writeJSON(w, http.StatusOK, videoChatHistoryListResponse{Histories: items, Total: len(items)})
	case "all":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DeleteAllChats(user, domain.KindVideo); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "all video chats deleted"})
	default:
		id, ok := pathID(parts[0])
		if !ok {
			notFound(w)
			return
		}
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DeleteChatMessage(user, id); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "chat message deleted"})
	}
}

// handleResourceChat serves the POST/GET/DELETE chat surface shared by
// videos and PDFs.
func (s *Server) handleResourceChat(w http.ResponseWriter, r *http.Request, user domain.User, kind domain.ResourceKind, id uint) {
	switch r.Method {
	case http.MethodPost:
		var req chatRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
		msg, err := s.app.SendMessage(r.Context(), user, kind, id, req.Message)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chatMessageResponse{
			ID:            msg.ID,
			Message:       msg.Message,
			Response:      msg.Response,
			IsUserMessage: msg.IsUserMessage,
			CreatedAt:     wireTime(msg.CreatedAt),
		})
	case http.MethodGet:
		opts := listOptions(r)
		msgs, total, err := s.app.ChatHistory(user, kind, id, opts.Skip, opts.Limit)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chatHistoryResponse{Messages: toChatMessages(msgs), Total: total})
	case http.MethodDelete:
		if err := s.app.DeleteChatsForResource(user, kind, id); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "conversation deleted"})
	default:
		methodNotAllowed(w)
	}
}
