package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseVideoID(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", false},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"", "", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", true},
		{"https://www.youtube.com/watch?v=tooshort", "", true},
		{"not a url at all", "", true},
	}
	for _, tc := range cases {
		got, err := ParseVideoID(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidVideoURL) {
				t.Errorf("ParseVideoID(%q): expected ErrInvalidVideoURL, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseVideoID(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func watchPage(captionURL string) string {
	captions := ""
	if captionURL != "" {
		captions = fmt.Sprintf(`"captionTracks":[{"baseUrl":%q,"languageCode":"en","kind":""}],`, captionURL)
	}
	return fmt.Sprintf(`<!DOCTYPE html><html><head>
<meta property="og:title" content="Test Video Title">
<meta property="og:image" content="https://i.ytimg.com/vi/abc/maxres.jpg">
</head><body>
<script>var ytInitialPlayerResponse = {%s"videoDetails":{"videoId":"dQw4w9WgXcQ","lengthSeconds":"212","ownerChannelName":"Test Channel"}};</script>
</body></html>`, captions)
}

const transcriptXML = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="2.5">Never gonna give</text>
  <text start="2.5" dur="2.0">you up &amp;amp; let you down</text>
  <text start="4.5" dur="1.0">   </text>
</transcript>`

func newTestYouTubeClient(srv *httptest.Server) *YouTubeClient {
	c := NewYouTubeClient()
	c.baseURL = srv.URL
	c.httpClient = srv.Client()
	return c
}

func TestYouTubeFetch(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/watch"):
			fmt.Fprint(w, watchPage(srv.URL+"/api/timedtext?v=dQw4w9WgXcQ"))
		case strings.HasPrefix(r.URL.Path, "/api/timedtext"):
			fmt.Fprint(w, transcriptXML)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	info, err := newTestYouTubeClient(srv).Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if info.Title != "Test Video Title" {
		t.Errorf("title = %q", info.Title)
	}
	if info.ChannelName != "Test Channel" {
		t.Errorf("channel = %q", info.ChannelName)
	}
	if info.DurationSeconds != 212 {
		t.Errorf("duration = %d", info.DurationSeconds)
	}
	if info.ThumbnailURL != "https://i.ytimg.com/vi/abc/maxres.jpg" {
		t.Errorf("thumbnail = %q", info.ThumbnailURL)
	}
	if want := "Never gonna give you up & let you down"; info.Transcript != want {
		t.Errorf("transcript = %q, want %q", info.Transcript, want)
	}
}

func TestYouTubeFetchNoTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(""))
	}))
	defer srv.Close()

	_, err := newTestYouTubeClient(srv).Fetch(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
}

func TestYouTubeFetchVideoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head></head><body>{"playabilityStatus":{"status":"ERROR"}}</body></html>`)
	}))
	defer srv.Close()

	_, err := newTestYouTubeClient(srv).Fetch(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestYouTubeFetchRejectsBadID(t *testing.T) {
	c := NewYouTubeClient()
	if _, err := c.Fetch(context.Background(), "nope"); !errors.Is(err, ErrInvalidVideoURL) {
		t.Fatalf("expected ErrInvalidVideoURL, got %v", err)
	}
}
