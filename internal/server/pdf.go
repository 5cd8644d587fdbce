package server

import (
	"net/http"
	"strings"

	"tubemindai/pkg/domain"
)

func (s *Server) handlePDFUpload(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file is required (field: file)")
		return
	}
	defer file.Close()
	doc, err := s.app.UploadPDF(r.Context(), user, header.Filename, file, header.Size)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pdfUploadResponse{
		Message:   "pdf uploaded",
		PDFID:     doc.ID,
		FileName:  doc.FileName,
		FileSize:  doc.FileSize,
		PageCount: doc.PageCount,
		Status:    string(doc.Status),
	})
}

func (s *Server) handlePDFList(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	opts := listOptions(r)
	docs, total, err := s.app.ListPDFs(user, opts)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	items := make([]pdfResponse, 0, len(docs))
	for _, p := range docs {
		items = append(items, toPDFResponse(p))
	}
	writeJSON(w, http.StatusOK, pdfListResponse{PDFs: items, Total: total})
}

// handlePDFPath dispatches /api/pdf/{id}, /api/pdf/{id}/generate,
// /api/pdf/{id}/chat, and the chat history routes under /api/pdf/chat/.
func (s *Server) handlePDFPath(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/api/pdf/")
	if path == "" {
		s.handlePDFList(w, r, user)
		return
	}
	parts := strings.Split(path, "/")

	if parts[0] == "chat" {
		s.handlePDFChatCollection(w, r, user, parts[1:])
		return
	}

	id, ok := pathID(parts[0])
	if !ok {
		notFound(w)
		return
	}
	switch {
	case len(parts) == 1:
		s.handlePDFByID(w, r, user, id)
	case len(parts) == 2 && parts[1] == "generate":
		s.handlePDFGenerate(w, r, user, id)
	case len(parts) == 2 && parts[1] == "chat":
		s.handleResourceChat(w, r, user, domain.KindPDF, id)
	default:
		notFound(w)
	}
}

func (s *Server) handlePDFByID(w http.ResponseWriter, r *http.Request, user domain.User, id uint) {
	switch r.Method {
	case http.MethodGet:
		doc, err := s.app.GetPDF(user, id)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPDFResponse(doc))
	case http.MethodDelete:
		if err := s.app.DeletePDF(r.Context(), user, id); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "pdf deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePDFGenerate(w http.ResponseWriter, r *http.Request, user domain.User, id uint) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	doc, err := s.app.GeneratePDFNotes(r.Context(), user, id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pdfGenerateResponse{
		Message:     "notes generated",
		PDFID:       doc.ID,
		FileName:    doc.FileName,
		Summary:     doc.Summary,
		KeyPoints:   doc.KeyPoints,
		BulletNotes: doc.BulletNotes,
		Status:      string(doc.Status),
	})
}

// handlePDFChatCollection serves /api/pdf/chat/histories,
// /api/pdf/chat/all, and /api/pdf/chat/{message_id}.
func (s *Server) handlePDFChatCollection(w http.ResponseWriter, r *http.Request, user domain.User, parts []string) {
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
		histories, err := s.app.ChatHistories(user, domain.KindPDF)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		items := toPDFChatHistories(histories)
		writeJSON(w, http.StatusOK, pdfChatHistoryListResponse{Histories: items, Total: len(items)})
	case "all":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DeleteAllChats(user, domain.KindPDF); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "all pdf chats deleted"})
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
