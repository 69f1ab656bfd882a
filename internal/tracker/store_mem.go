package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryStore struct {
	mu          sync.RWMutex
	seq         int64
	users       map[int64]User
	subjects    map[int64]Subject
	assessments map[int64]Assessment
}

// NewInMemoryStore is used by tests and DB_DRIVER=memory.
func NewInMemoryStore() Store {
	return &memoryStore{
		users:       map[int64]User{},
		subjects:    map[int64]Subject{},
		assessments: map[int64]Assessment{},
	}
}

func (m *memoryStore) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *memoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.users {
		if ex.StudentID == u.StudentID {
			return User{}, fmt.Errorf("student id %q: %w", u.StudentID, ErrConflict)
		}
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	u.ID = m.nextID()
	u.CreatedAt = time.Now().Unix()
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryStore) GetUser(_ context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

func (m *memoryStore) GetUserByStudentID(_ context.Context, studentID string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.StudentID == studentID {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("student id %q: %w", studentID, ErrNotFound)
}

func (m *memoryStore) ListUsers(_ context.Context, opts ListOpts) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	q := strings.ToLower(strings.TrimSpace(opts.Q))
	all := make([]User, 0, len(m.users))
	for _, u := range m.users {
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.StudentID), q) {
			continue
		}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if opts.Offset >= len(all) {
		return []User{}, nil
	}
	if opts.Offset > 0 {
		all = all[opts.Offset:]
	}
	if len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (m *memoryStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memoryStore) UpdateRole(_ context.Context, id int64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if role != RoleAdmin && m.lastAdminLocked(u) {
		return ErrLastAdmin
	}
	u.Role = role
	m.users[id] = u
	return nil
}

// lastAdminLocked reports whether u is the only admin left.
func (m *memoryStore) lastAdminLocked(u User) bool {
	if u.Role != RoleAdmin {
		return false
	}
	for _, o := range m.users {
		if o.ID != u.ID && o.Role == RoleAdmin {
			return false
		}
	}
	return true
}

func (m *memoryStore) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if m.lastAdminLocked(u) {
		return ErrLastAdmin
	}
	for sid, s := range m.subjects {
		if s.UserID == id {
			m.deleteSubjectLocked(sid)
		}
	}
	delete(m.users, id)
	return nil
}

func (m *memoryStore) ListSubjects(_ context.Context, userID int64, semester string) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Subject{}
	for _, s := range m.subjects {
		if s.UserID != userID || (semester != "" && s.Semester != semester) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) GetSubject(_ context.Context, id int64) (Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return Subject{}, fmt.Errorf("subject %d: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *memoryStore) CreateSubject(_ context.Context, s Subject) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[s.UserID]; !ok {
		return Subject{}, fmt.Errorf("user %d: %w", s.UserID, ErrNotFound)
	}
	s.ID = m.nextID()
	m.subjects[s.ID] = s
	return s, nil
}

func (m *memoryStore) UpdateSubject(_ context.Context, s Subject) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.subjects[s.ID]
	if !ok {
		return Subject{}, fmt.Errorf("subject %d: %w", s.ID, ErrNotFound)
	}
	s.UserID = cur.UserID
	m.subjects[s.ID] = s
	return s, nil
}

func (m *memoryStore) DeleteSubject(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[id]; !ok {
		return fmt.Errorf("subject %d: %w", id, ErrNotFound)
	}
	m.deleteSubjectLocked(id)
	return nil
}

func (m *memoryStore) deleteSubjectLocked(id int64) {
	delete(m.subjects, id)
	for aid, a := range m.assessments {
		if a.SubjectID == id {
			delete(m.assessments, aid)
		}
	}
}

func (m *memoryStore) ListAssessments(_ context.Context, subjectID int64) ([]Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Assessment{}
	for _, a := range m.assessments {
		if a.SubjectID == subjectID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) GetAssessment(_ context.Context, id int64) (Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return Assessment{}, fmt.Errorf("assessment %d: %w", id, ErrNotFound)
	}
	return a, nil
}

func (m *memoryStore) CreateAssessment(_ context.Context, a Assessment) (Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[a.SubjectID]; !ok {
		return Assessment{}, fmt.Errorf("subject %d: %w", a.SubjectID, ErrNotFound)
	}
	a.ID = m.nextID()
	m.assessments[a.ID] = a
	return a, nil
}

func (m *memoryStore) UpdateAssessment(_ context.Context, a Assessment) (Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.assessments[a.ID]
	if !ok {
		return Assessment{}, fmt.Errorf("assessment %d: %w", a.ID, ErrNotFound)
	}
	a.SubjectID = cur.SubjectID
	m.assessments[a.ID] = a
	return a, nil
}

func (m *memoryStore) DeleteAssessment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[id]; !ok {
		return fmt.Errorf("assessment %d: %w", id, ErrNotFound)
	}
	delete(m.assessments, id)
	return nil
}
