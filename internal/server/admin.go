package server

import (
	"net/http"
	"strings"

	"tubemindai/pkg/domain"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Stats()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	opts := listOptions(r)
	rows, total, err := s.app.ListAllUsers(opts)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminUsersResponse{
		Users: toAdminUsers(rows),
		Total: total,
		Skip:  opts.Skip,
		Limit: opts.Limit,
	})
}

// handleAdminUserPath serves PUT /api/admin/users/{id}/activate and
// PUT /api/admin/users/{id}/deactivate.
func (s *Server) handleAdminUserPath(w http.ResponseWriter, r *http.Request, admin domain.User) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/admin/users/"), "/")
	if len(parts) != 2 {
		notFound(w)
		return
	}
	id, ok := pathID(parts[0])
	if !ok {
		notFound(w)
		return
	}
	var active bool
	switch parts[1] {
	case "activate":
		active = true
	case "deactivate":
		active = false
	default:
		notFound(w)
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	user, err := s.app.SetUserActive(admin, id, active)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleAdminVideos(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	opts := listOptions(r)
	rows, total, err := s.app.ListAllVideos(opts)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminVideosResponse{
		Videos: toAdminVideos(rows),
		Total:  total,
		Skip:   opts.Skip,
		Limit:  opts.Limit,
	})
}

func (s *Server) handleAdminVideoPath(w http.ResponseWriter, r *http.Request, admin domain.User) {
	id, ok := pathID(strings.TrimPrefix(r.URL.Path, "/api/admin/videos/"))
	if !ok {
		notFound(w)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.AdminDeleteVideo(r.Context(), admin, id); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "video deleted"})
}

func (s *Server) handleAdminPDFs(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	opts := listOptions(r)
	rows, total, err := s.app.ListAllPDFs(opts)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminPDFsResponse{
		PDFs:  toAdminPDFs(rows),
		Total: total,
		Skip:  opts.Skip,
		Limit: opts.Limit,
	})
}

func (s *Server) handleAdminPDFPath(w http.ResponseWriter, r *http.Request, admin domain.User) {
	id, ok := pathID(strings.TrimPrefix(r.URL.Path, "/api/admin/pdfs/"))
	if !ok {
		notFound(w)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.AdminDeletePDF(r.Context(), admin, id); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "pdf deleted"})
}
