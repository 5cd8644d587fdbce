package ingest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var (
	// ErrInvalidVideoURL marks input that does not point at a YouTube video.
	ErrInvalidVideoURL = errors.New("not a recognizable youtube video url")
	// ErrVideoNotFound marks videos that are missing, private, or region locked.
	ErrVideoNotFound = errors.New("video unavailable")
	// ErrNoTranscript marks videos without any caption track.
	ErrNoTranscript = errors.New("video has no transcript")
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoID extracts the 11-character video id from the URL shapes the
// mobile client sends: watch links, youtu.be short links, shorts, embeds,
// live links, and bare ids.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidVideoURL
	}
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidVideoURL
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	switch host {
	case "youtu.be":
		if id := firstPathSegment(u.Path); videoIDPattern.MatchString(id) {
			return id, nil
		}
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if id := u.Query().Get("v"); videoIDPattern.MatchString(id) {
			return id, nil
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/", "/v/"} {
			if strings.HasPrefix(u.Path, prefix) {
				if id := firstPathSegment(strings.TrimPrefix(u.Path, prefix)); videoIDPattern.MatchString(id) {
					return id, nil
				}
			}
		}
	}
	return "", ErrInvalidVideoURL
}

func firstPathSegment(path string) string {
	path = strings.Trim(path, "/")
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return path
}

// VideoInfo is the metadata and transcript pulled from a video watch page.
type VideoInfo struct {
	VideoID         string
	Title           string
	ChannelName     string
	ThumbnailURL    string
	DurationSeconds int
	Transcript      string
}

// YouTubeClient fetches video metadata and caption transcripts by scraping
// the public watch page. No API key required.
type YouTubeClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeClient builds a client against the public site.
func NewYouTubeClient() *YouTubeClient {
	return &YouTubeClient{
		baseURL:    "https://www.youtube.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch loads the watch page for the video and resolves its metadata plus
// the transcript from the first available caption track. English tracks are
// preferred when several exist.
func (c *YouTubeClient) Fetch(ctx context.Context, videoID string) (*VideoInfo, error) {
	if !videoIDPattern.MatchString(videoID) {
		return nil, ErrInvalidVideoURL
	}
	page, err := c.get(ctx, c.baseURL+"/watch?v="+videoID)
	if err != nil {
		return nil, err
	}

	info := &VideoInfo{VideoID: videoID}
	fillFromMetaTags(page, info)
	if info.Title == "" || strings.Contains(page, `"status":"ERROR"`) {
		return nil, ErrVideoNotFound
	}
	if secs := extractJSONString(page, "lengthSeconds"); secs != "" {
		info.DurationSeconds, _ = strconv.Atoi(secs)
	}
	if info.ChannelName == "" {
		info.ChannelName = extractJSONString(page, "ownerChannelName")
	}
	if info.ThumbnailURL == "" {
		info.ThumbnailURL = "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
	}

	captionURL, err := pickCaptionTrack(page)
	if err != nil {
		return nil, err
	}
	transcript, err := c.fetchTranscript(ctx, captionURL)
	if err != nil {
		return nil, err
	}
	info.Transcript = transcript
	return info, nil
}

func (c *YouTubeClient) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrVideoNotFound
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

// fillFromMetaTags walks the watch page HTML for og: metadata.
func fillFromMetaTags(page string, info *VideoInfo) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property":
					property = attr.Val
				case "content":
					content = attr.Val
				}
			}
			switch property {
			case "og:title":
				info.Title = content
			case "og:image":
				info.ThumbnailURL = content
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
}

// extractJSONString pulls a top-level "key":"value" string out of the player
// response JSON embedded in the page, without parsing the whole blob.
func extractJSONString(page, key string) string {
	marker := `"` + key + `":"`
	idx := strings.Index(page, marker)
	if idx < 0 {
		return ""
	}
	rest := page[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// pickCaptionTrack finds the caption track list in the player response and
// returns the best track URL. Manual English captions win over auto-generated
// ones, which win over whatever is first.
func pickCaptionTrack(page string) (string, error) {
	marker := `"captionTracks":`
	idx := strings.Index(page, marker)
	if idx < 0 {
		return "", ErrNoTranscript
	}
	rest := page[idx+len(marker):]
	end := matchBracket(rest)
	if end < 0 {
		return "", ErrNoTranscript
	}
	var tracks []captionTrack
	if err := json.Unmarshal([]byte(rest[:end]), &tracks); err != nil || len(tracks) == 0 {
		return "", ErrNoTranscript
	}

	best := tracks[0]
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			if t.Kind != "asr" {
				best = t
				break
			}
			if !strings.HasPrefix(best.LanguageCode, "en") {
				best = t
			}
		}
	}
	if best.BaseURL == "" {
		return "", ErrNoTranscript
	}
	return best.BaseURL, nil
}

// matchBracket returns the index just past the JSON array starting at s[0].
func matchBracket(s string) int {
	if len(s) == 0 || s[0] != '[' {
		return -1
	}
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '[':
			if !inString {
				depth++
			}
		case ']':
			if !inString {
				depth--
				if depth == 0 {
					return i + 1
				}
			}
		}
	}
	return -1
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

func (c *YouTubeClient) fetchTranscript(ctx context.Context, captionURL string) (string, error) {
	body, err := c.get(ctx, captionURL)
	if err != nil {
		return "", err
	}
	var tt timedText
	if err := xml.Unmarshal([]byte(body), &tt); err != nil {
		return "", fmt.Errorf("parse transcript: %w", err)
	}
	var b strings.Builder
	for _, line := range tt.Texts {
		text := NormalizeText(html.UnescapeString(line.Body))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}
	if b.Len() == 0 {
		return "", ErrNoTranscript
	}
	return b.String(), nil
}
