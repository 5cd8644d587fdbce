package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"tubemindai/pkg/domain"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors GormStore semantics: stable created_at DESC ordering,
// case-insensitive substring search, transactional-looking cascades.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[uint]domain.User
	videos     map[uint]domain.Video
	pdfs       map[uint]domain.PDFDocument
	chats      map[uint]domain.ChatMessage
	nextUser   uint
	nextVideo  uint
	nextPDF    uint
	nextChat   uint
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uint]domain.User),
		videos:    make(map[uint]domain.Video),
		pdfs:      make(map[uint]domain.PDFDocument),
		chats:     make(map[uint]domain.ChatMessage),
		nextUser:  1,
		nextVideo: 1,
		nextPDF:   1,
		nextChat:  1,
	}
}

func (s *MemoryStore) CreateUser(u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextUser
	s.nextUser++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (s *MemoryStore) GetUserByID(id uint) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) SetUserVerified(id uint, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsVerified = verified
		if verified {
			u.IsActive = true
		}
		u.UpdatedAt = time.Now().UTC()
		s.users[id] = u
	}
	return nil
}

func (s *MemoryStore) SetUserActive(id uint, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
		u.UpdatedAt = time.Now().UTC()
		s.users[id] = u
	}
	return nil
}

func (s *MemoryStore) SetUserAdmin(id uint, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsAdmin = admin
		u.UpdatedAt = time.Now().UTC()
		s.users[id] = u
	}
	return nil
}

func (s *MemoryStore) SetUserPassword(id uint, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now().UTC()
		s.users[id] = u
	}
	return nil
}

func (s *MemoryStore) ListUsers(opts ListOptions) ([]AdminUserRow, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.User
	for _, u := range s.users {
		if opts.Search != "" && !containsFold(u.Name, opts.Search) && !containsFold(u.Email, opts.Search) {
			continue
		}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := len(all)
	all = paginate(all, opts.Skip, opts.Limit)
	out := make([]AdminUserRow, 0, len(all))
	for _, u := range all {
		row := AdminUserRow{User: u}
		for _, v := range s.videos {
			if v.UserID == u.ID {
				row.VideoCount++
			}
		}
		for _, c := range s.chats {
			if c.UserID == u.ID {
				row.ChatCount++
			}
		}
		out = append(out, row)
	}
	return out, total, nil
}

func (s *MemoryStore) CreateVideo(v domain.Video) (domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.nextVideo
	s.nextVideo++
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.UpdatedAt = v.CreatedAt
	s.videos[v.ID] = v
	return v, nil
}

func (s *MemoryStore) GetVideo(id uint) (domain.Video, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	return v, ok, nil
}

func (s *MemoryStore) GetVideoByYouTubeID(userID uint, youtubeID string) (domain.Video, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.UserID == userID && v.YouTubeVideoID == youtubeID {
			return v, true, nil
		}
	}
	return domain.Video{}, false, nil
}

func (s *MemoryStore) SetVideoIngest(id uint, title, thumbnailURL, duration, transcript string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		v.Title = title
		v.ThumbnailURL = thumbnailURL
		v.Duration = duration
		v.Transcript = transcript
		v.Metadata = metadata
		v.UpdatedAt = time.Now().UTC()
		s.videos[id] = v
	}
	return nil
}

func (s *MemoryStore) SetVideoNotes(id uint, summary, keyPoints, bulletNotes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		v.Summary = summary
		v.KeyPoints = keyPoints
		v.BulletNotes = bulletNotes
		v.Status = domain.StatusDone
		v.ErrorMessage = ""
		v.UpdatedAt = time.Now().UTC()
		s.videos[id] = v
	}
	return nil
}

func (s *MemoryStore) SetVideoStatus(id uint, status domain.GenerationStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		v.Status = status
		v.ErrorMessage = errMsg
		v.UpdatedAt = time.Now().UTC()
		s.videos[id] = v
	}
	return nil
}

func (s *MemoryStore) SetVideoSaved(id uint, saved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		v.IsSaved = saved
		v.UpdatedAt = time.Now().UTC()
		s.videos[id] = v
	}
	return nil
}

func (s *MemoryStore) ListVideos(opts ListOptions) ([]domain.Video, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.Video
	for _, v := range s.videos {
		if opts.UserID != 0 && v.UserID != opts.UserID {
			continue
		}
		if opts.SavedOnly && !v.IsSaved {
			continue
		}
		if opts.Search != "" && !containsFold(v.Title, opts.Search) {
			continue
		}
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := len(all)
	return paginate(all, opts.Skip, opts.Limit), total, nil
}

func (s *MemoryStore) ListVideosAdmin(opts ListOptions) ([]AdminVideoRow, int, error) {
	videos, total, err := s.ListVideos(opts)
	if err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AdminVideoRow, 0, len(videos))
	for _, v := range videos {
		row := AdminVideoRow{Video: v}
		if u, ok := s.users[v.UserID]; ok {
			row.UserName = u.Name
			row.UserEmail = u.Email
		}
		for _, c := range s.chats {
			if c.ResourceKind == domain.KindVideo && c.ResourceID == v.ID {
				row.ChatCount++
			}
		}
		out = append(out, row)
	}
	return out, total, nil
}

func (s *MemoryStore) DeleteVideo(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, id)
	for cid, c := range s.chats {
		if c.ResourceKind == domain.KindVideo && c.ResourceID == id {
			delete(s.chats, cid)
		}
	}
	return nil
}

func (s *MemoryStore) CreatePDF(p domain.PDFDocument) (domain.PDFDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextPDF
	s.nextPDF++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	s.pdfs[p.ID] = p
	return p, nil
}

func (s *MemoryStore) GetPDF(id uint) (domain.PDFDocument, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pdfs[id]
	return p, ok, nil
}

func (s *MemoryStore) SetPDFNotes(id uint, summary, keyPoints, bulletNotes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pdfs[id]; ok {
		p.Summary = summary
		p.KeyPoints = keyPoints
		p.BulletNotes = bulletNotes
		p.Status = domain.StatusDone
		p.ErrorMessage = ""
		p.UpdatedAt = time.Now().UTC()
		s.pdfs[id] = p
	}
	return nil
}

func (s *MemoryStore) SetPDFStatus(id uint, status domain.GenerationStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pdfs[id]; ok {
		p.Status = status
		p.ErrorMessage = errMsg
		p.UpdatedAt = time.Now().UTC()
		s.pdfs[id] = p
	}
	return nil
}

func (s *MemoryStore) ListPDFs(opts ListOptions) ([]domain.PDFDocument, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.PDFDocument
	for _, p := range s.pdfs {
		if opts.UserID != 0 && p.UserID != opts.UserID {
			continue
		}
		if opts.Search != "" && !containsFold(p.FileName, opts.Search) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := len(all)
	return paginate(all, opts.Skip, opts.Limit), total, nil
}

func (s *MemoryStore) ListPDFsAdmin(opts ListOptions) ([]AdminPDFRow, int, error) {
	pdfs, total, err := s.ListPDFs(opts)
	if err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AdminPDFRow, 0, len(pdfs))
	for _, p := range pdfs {
		row := AdminPDFRow{PDFDocument: p}
		if u, ok := s.users[p.UserID]; ok {
			row.UserName = u.Name
			row.UserEmail = u.Email
		}
		for _, c := range s.chats {
			if c.ResourceKind == domain.KindPDF && c.ResourceID == p.ID {
				row.ChatCount++
			}
		}
		out = append(out, row)
	}
	return out, total, nil
}

func (s *MemoryStore) DeletePDF(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pdfs, id)
	for cid, c := range s.chats {
		if c.ResourceKind == domain.KindPDF && c.ResourceID == id {
			delete(s.chats, cid)
		}
	}
	return nil
}

func (s *MemoryStore) AppendChatMessage(msg domain.ChatMessage) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.nextChat
	s.nextChat++
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.chats[msg.ID] = msg
	return msg, nil
}

func (s *MemoryStore) SetChatResponse(id uint, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[id]; ok {
		c.Response = response
		c.Answered = true
		s.chats[id] = c
	}
	return nil
}

func (s *MemoryStore) GetChatMessage(id uint) (domain.ChatMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	return c, ok, nil
}

func (s *MemoryStore) ListChatMessages(userID uint, kind domain.ResourceKind, resourceID uint, skip, limit int) ([]domain.ChatMessage, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.ChatMessage
	for _, c := range s.chats {
		if c.UserID == userID && c.ResourceKind == kind && c.ResourceID == resourceID {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	return paginate(all, skip, limit), total, nil
}

func (s *MemoryStore) ListChatHistories(userID uint, kind domain.ResourceKind) ([]domain.ChatHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byResource := make(map[uint][]domain.ChatMessage)
	for _, c := range s.chats {
		if c.UserID == userID && c.ResourceKind == kind {
			byResource[c.ResourceID] = append(byResource[c.ResourceID], c)
		}
	}
	var out []domain.ChatHistory
	for resourceID, msgs := range byResource {
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
		last := msgs[len(msgs)-1]
		h := domain.ChatHistory{
			ResourceID:    resourceID,
			ResourceKind:  kind,
			LastMessage:   last.Message,
			LastMessageAt: last.CreatedAt,
			MessageCount:  len(msgs),
		}
		switch kind {
		case domain.KindVideo:
			if v, ok := s.videos[resourceID]; ok {
				h.Title = v.Title
				h.ThumbnailURL = v.ThumbnailURL
				h.YouTubeVideoID = v.YouTubeVideoID
			}
		case domain.KindPDF:
			if p, ok := s.pdfs[resourceID]; ok {
				h.Title = p.FileName
			}
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (s *MemoryStore) DeleteChatMessage(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, id)
	return nil
}

func (s *MemoryStore) DeleteChatsForResource(kind domain.ResourceKind, resourceID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chats {
		if c.ResourceKind == kind && c.ResourceID == resourceID {
			delete(s.chats, id)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteChatsForUser(userID uint, kind domain.ResourceKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chats {
		if c.UserID == userID && c.ResourceKind == kind {
			delete(s.chats, id)
		}
	}
	return nil
}

func (s *MemoryStore) Stats() (domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)

	var stats domain.Stats
	for _, u := range s.users {
		stats.Users.Total++
		if u.IsActive {
			stats.Users.Active++
		}
		if u.IsVerified {
			stats.Users.Verified++
		}
		if !u.CreatedAt.Before(today) {
			stats.Users.NewToday++
		}
		if !u.CreatedAt.Before(weekAgo) {
			stats.Users.NewLast7Days++
		}
	}
	for _, v := range s.videos {
		stats.Videos.Total++
		if v.Status == domain.StatusDone {
			stats.Videos.WithNotes++
		}
		if !v.CreatedAt.Before(today) {
			stats.Videos.NewToday++
		}
		if !v.CreatedAt.Before(weekAgo) {
			stats.Videos.NewLast7Days++
		}
	}
	for _, p := range s.pdfs {
		stats.PDFs.Total++
		if p.Status == domain.StatusDone {
			stats.PDFs.WithNotes++
		}
		if !p.CreatedAt.Before(today) {
			stats.PDFs.NewToday++
		}
		if !p.CreatedAt.Before(weekAgo) {
			stats.PDFs.NewLast7Days++
		}
	}
	for _, c := range s.chats {
		bucket := &stats.VideoChats
		if c.ResourceKind == domain.KindPDF {
			bucket = &stats.PDFChats
		}
		bucket.Total++
		if !c.CreatedAt.Before(today) {
			bucket.NewToday++
		}
	}
	return stats, nil
}

func (s *MemoryStore) ResetStaleProcessing(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var affected int64
	for id, v := range s.videos {
		if v.Status == domain.StatusProcessing && v.UpdatedAt.Before(cutoff) {
			v.Status = domain.StatusFailed
			v.ErrorMessage = "generation interrupted"
			v.UpdatedAt = time.Now().UTC()
			s.videos[id] = v
			affected++
		}
	}
	for id, p := range s.pdfs {
		if p.Status == domain.StatusProcessing && p.UpdatedAt.Before(cutoff) {
			p.Status = domain.StatusFailed
			p.ErrorMessage = "generation interrupted"
			p.UpdatedAt = time.Now().UTC()
			s.pdfs[id] = p
			affected++
		}
	}
	return affected, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	limit = normalizeLimit(limit)
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}
