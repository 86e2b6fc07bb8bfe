// Package memstore is an in-process implementation of the repositories used
// when no DATABASE_URL is configured, and by the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/railmadad/backend/internal/db"
	"github.com/railmadad/backend/internal/models"
)

type Store struct {
	mu         sync.RWMutex
	seq        int64
	complaints map[string]models.Complaint
	byNumber   map[string]string
	categories map[string]models.Category
	media      map[string]models.Media
	chunks     map[string]map[int][]byte
	users      map[string]models.User
}

func New() *Store {
	return &Store{
		complaints: map[string]models.Complaint{},
		byNumber:   map[string]string{},
		categories: map[string]models.Category{},
		media:      map[string]models.Media{},
		chunks:     map[string]map[int][]byte{},
		users:      map[string]models.User{},
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// Categories

func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, cloneCategory(c))
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return models.Category{}, db.ErrNotFound
	}
	return cloneCategory(c), nil
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return cloneCategory(c), nil
		}
	}
	return models.Category{}, db.ErrNotFound
}

func (s *Store) InsertCategory(ctx context.Context, c models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(c.Name, "") {
		return db.ErrDuplicate
	}
	if _, ok := s.categories[c.ID]; ok {
		return db.ErrDuplicate
	}
	s.categories[c.ID] = cloneCategory(c)
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return db.ErrNotFound
	}
	if s.nameTaken(c.Name, c.ID) {
		return db.ErrDuplicate
	}
	s.categories[c.ID] = cloneCategory(c)
	return nil
}

func (s *Store) nameTaken(name, exceptID string) bool {
	for id, c := range s.categories {
		if id != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func cloneCategory(c models.Category) models.Category {
	c.Aliases = append([]string(nil), c.Aliases...)
	return c
}

// Complaints

func (s *Store) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.complaints[c.ID]; ok {
		return db.ErrDuplicate
	}
	for {
		s.seq++
		id := models.FormatComplaintID(s.seq)
		if _, taken := s.byNumber[id]; !taken {
			c.ComplaintID = id
			break
		}
	}
	if c.Version == 0 {
		c.Version = 1
	}
	s.complaints[c.ID] = c.Clone()
	s.byNumber[c.ComplaintID] = c.ID
	return nil
}

func (s *Store) GetComplaint(ctx context.Context, id string) (models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[id]
	if !ok {
		return models.Complaint{}, db.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *Store) GetComplaintByComplaintID(ctx context.Context, complaintID string) (models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[complaintID]
	if !ok {
		return models.Complaint{}, db.ErrNotFound
	}
	return s.complaints[id].Clone(), nil
}

func (s *Store) ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int, error) {
	f.Normalize()
	s.mu.RLock()
	matched := s.match(f)
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ComplaintID > matched[j].ComplaintID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	start := f.Offset()
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *Store) ComplaintsSince(ctx context.Context, since time.Time, ownerID string) ([]models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.match(models.ComplaintFilter{OwnerID: ownerID, Since: &since}), nil
}

func (s *Store) match(f models.ComplaintFilter) []models.Complaint {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := []models.Complaint{}
	for _, c := range s.complaints {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.CategoryID != "" && (c.CategoryID == nil || *c.CategoryID != f.CategoryID) {
			continue
		}
		if f.Priority != "" && c.Priority != f.Priority {
			continue
		}
		if f.OwnerID != "" && c.UserID != f.OwnerID {
			continue
		}
		if f.AssigneeID != "" && (c.Assignment == nil || c.Assignment.StaffID != f.AssigneeID) {
			continue
		}
		if f.Since != nil && c.CreatedAt.Before(*f.Since) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.ComplaintID), q) && !strings.Contains(strings.ToLower(c.Description), q) {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

func (s *Store) UpdateComplaint(ctx context.Context, c *models.Complaint, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.complaints[c.ID]
	if !ok {
		return db.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return db.ErrVersionConflict
	}
	next := c.Clone()
	// identity fields are immutable after creation
	next.ComplaintID = cur.ComplaintID
	next.UserID = cur.UserID
	next.CreatedAt = cur.CreatedAt
	next.Version = expectedVersion + 1
	s.complaints[c.ID] = next
	c.Version = next.Version
	return nil
}

// Media

func (s *Store) InsertMedia(ctx context.Context, m models.Media, chunks []models.MediaChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.media[m.ID]; ok {
		return db.ErrDuplicate
	}
	stored := make(map[int][]byte, len(chunks))
	for _, ch := range chunks {
		if _, dup := stored[ch.N]; dup {
			return db.ErrDuplicate
		}
		stored[ch.N] = append([]byte(nil), ch.Data...)
	}
	s.media[m.ID] = m
	s.chunks[m.ID] = stored
	return nil
}

func (s *Store) GetMedia(ctx context.Context, id string) (models.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.media[id]
	if !ok {
		return models.Media{}, db.ErrNotFound
	}
	if m.AIAnalysis != nil {
		a := m.AIAnalysis.Clone()
		m.AIAnalysis = &a
	}
	return m, nil
}

func (s *Store) GetMediaChunks(ctx context.Context, id string) ([]models.MediaChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.chunks[id]
	out := make([]models.MediaChunk, 0, len(stored))
	for n, data := range stored {
		out = append(out, models.MediaChunk{MediaID: id, N: n, Data: append([]byte(nil), data...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].N < out[j].N })
	return out, nil
}

func (s *Store) AttachMedia(ctx context.Context, mediaID, complaintID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[mediaID]
	if !ok {
		return db.ErrNotFound
	}
	m.ComplaintID = complaintID
	s.media[mediaID] = m
	return nil
}

func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.media, id)
	delete(s.chunks, id)
	return nil
}

func (s *Store) SaveMediaAnalysis(ctx context.Context, mediaID string, a models.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[mediaID]
	if !ok {
		return db.ErrNotFound
	}
	cp := a.Clone()
	m.AIAnalysis = &cp
	s.media[mediaID] = m
	return nil
}

// Users

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, db.ErrNotFound
	}
	return s.withLoad(u), nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			return s.withLoad(u), nil
		}
	}
	return models.User{}, db.ErrNotFound
}

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return db.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.PhoneNumber == u.PhoneNumber {
			return db.ErrDuplicate
		}
	}
	u.Skills = append([]string(nil), u.Skills...)
	s.users[u.ID] = u
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return db.ErrNotFound
	}
	u.PhoneNumber = cur.PhoneNumber
	u.CreatedAt = cur.CreatedAt
	u.Skills = append([]string(nil), u.Skills...)
	s.users[u.ID] = u
	return nil
}

func (s *Store) ListWorkers(ctx context.Context, f models.WorkerFilter) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	train := strings.TrimSpace(f.TrainNumber)
	var out []models.User
	for _, u := range s.users {
		if u.Role != models.RoleWorker {
			continue
		}
		if f.AvailableOnly && !u.Available {
			continue
		}
		if train != "" && u.CurrentTrain != train {
			continue
		}
		out = append(out, s.withLoad(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActiveLoad == out[j].ActiveLoad {
			return out[i].ID < out[j].ID
		}
		return out[i].ActiveLoad < out[j].ActiveLoad
	})
	return out, nil
}

func (s *Store) withLoad(u models.User) models.User {
	u.Skills = append([]string(nil), u.Skills...)
	u.ActiveLoad = 0
	for _, c := range s.complaints {
		if c.Assignment == nil || c.Assignment.StaffID != u.ID {
			continue
		}
		if c.Status == models.StatusApproved || c.Status == models.StatusInProgress {
			u.ActiveLoad++
		}
	}
	return u
}
