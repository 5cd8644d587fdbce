package server

import (
	"net/http"
	"testing"

	"tubemindai/pkg/domain"
)

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.signUp(t, "Alice", "alice@test.com", "password1")

	for _, path := range []string{"/api/admin/stats", "/api/admin/users", "/api/admin/videos", "/api/admin/pdfs"} {
		rec := ts.do(t, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s as non-admin: status %d", path, rec.Code)
		}
	}
}

func TestAdminStatsOverHTTP(t *testing.T) {
	ts := newTestServer(t, 0)
	adminToken := ts.signUp(t, "Admin", "admin@test.com", "password1")
	ts.makeAdmin(t, "admin@test.com")
	userToken := ts.signUp(t, "Alice", "alice@test.com", "password1")
	res := generateVideo(ts, t, userToken)
	rec := ts.do(t, http.MethodPost, "/api/video/"+itoa(res.VideoID)+"/chat", userToken,
		map[string]string{"message": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: status %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: status %d body %s", rec.Code, rec.Body)
	}
	var stats map[string]map[string]int
	decodeBody(t, rec, &stats)
	for _, key := range []string{"users", "videos", "pdfs", "chats", "pdf_chats"} {
		if _, ok := stats[key]; !ok {
			t.Fatalf("stats missing %q: %v", key, stats)
		}
	}
	if stats["users"]["total"] != 2 || stats["videos"]["total"] != 1 {
		t.Fatalf("stats %v", stats)
	}
	if stats["chats"]["total"] != 1 || stats["pdf_chats"]["total"] != 0 {
		t.Fatalf("chat split %v", stats)
	}
}

func TestAdminUserActivationOverHTTP(t *testing.T) {
	ts := newTestServer(t, 0)
	adminToken := ts.signUp(t, "Admin", "admin@test.com", "password1")
	ts.makeAdmin(t, "admin@test.com")
	victimToken := ts.signUp(t, "Bob", "bob@test.com", "password1")
	victim, _, _ := ts.store.GetUserByEmail("bob@test.com")

	rec := ts.do(t, http.MethodPut, "/api/admin/users/"+itoa(victim.ID)+"/deactivate", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: status %d body %s", rec.Code, rec.Body)
	}

	// The victim's existing session stops working at once.
	rec = ts.do(t, http.MethodGet, "/api/video/", victimToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated session: status %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPut, "/api/admin/users/"+itoa(victim.ID)+"/activate", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reactivate: status %d", rec.Code)
	}
	var user domain.User
	decodeBody(t, rec, &user)
	if !user.IsActive {
		t.Fatalf("expected active user, got %+v", user)
	}

	// Self-deactivation is refused.
	admin, _, _ := ts.store.GetUserByEmail("admin@test.com")
	rec = ts.do(t, http.MethodPut, "/api/admin/users/"+itoa(admin.ID)+"/deactivate", adminToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self-deactivation: status %d", rec.Code)
	}
}

func TestAdminListsAndDeletesOverHTTP(t *testing.T) {
	ts := newTestServer(t, 0)
	adminToken := ts.signUp(t, "Admin", "admin@test.com", "password1")
	ts.makeAdmin(t, "admin@test.com")
	userToken := ts.signUp(t, "Alice", "alice@test.com", "password1")
	res := generateVideo(ts, t, userToken)
	doc := ts.addPDF(t, "alice@test.com", "paper.pdf", "body")

	rec := ts.do(t, http.MethodGet, "/api/admin/users?limit=10", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("users: status %d", rec.Code)
	}
	var users adminUsersResponse
	decodeBody(t, rec, &users)
	if users.Total != 2 || users.Limit != 10 {
		t.Fatalf("users %+v", users)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/videos", adminToken, nil)
	var videos adminVideosResponse
	decodeBody(t, rec, &videos)
	if videos.Total != 1 || videos.Videos[0].UserEmail != "alice@test.com" {
		t.Fatalf("videos %+v", videos)
	}
	if !videos.Videos[0].HasNotes {
		t.Fatalf("expected has_notes for generated video: %+v", videos.Videos[0])
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/pdfs", adminToken, nil)
	var pdfs adminPDFsResponse
	decodeBody(t, rec, &pdfs)
	if pdfs.Total != 1 || pdfs.PDFs[0].FileName != "paper.pdf" {
		t.Fatalf("pdfs %+v", pdfs)
	}

	// Admin can delete another user's resources.
	rec = ts.do(t, http.MethodDelete, "/api/admin/videos/"+itoa(res.VideoID), adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete video: status %d body %s", rec.Code, rec.Body)
	}
	rec = ts.do(t, http.MethodDelete, "/api/admin/pdfs/"+itoa(doc.ID), adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete pdf: status %d body %s", rec.Code, rec.Body)
	}
	rec = ts.do(t, http.MethodGet, "/api/video/"+itoa(res.VideoID), userToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("video after admin delete: status %d", rec.Code)
	}
}
