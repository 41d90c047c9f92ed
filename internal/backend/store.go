package backend

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound = errors.New("usuario no encontrado")
	ErrEmailTaken   = errors.New("el correo ya está registrado")
)

// User is an account row in the development store.
type User struct {
	ID               string
	Username         string
	Email            string
	Phone            string
	PasswordHash     []byte
	FirstName        string
	LastName         string
	DocumentNumber   string
	Roles            []string
	DailyLimit       decimal.Decimal
	TwoFactorEnabled bool
	TwoFactorSecret  string
	CardActive       bool
	CardMasked       string
	CardHolder       string
	LastLimitChange  time.Time
	CreatedAt        time.Time
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// pendingChange is in-flight state for the profile change flows. A user has
// at most one per flow kind; confirming or restarting the flow replaces it.
type pendingChange struct {
	NewEmail string
	NewPhone string
	NewLimit decimal.Decimal
}

type userStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	pending map[string]*pendingChange
}

func newUserStore() *userStore {
	return &userStore{
		byID:    make(map[string]*User),
		pending: make(map[string]*pendingChange),
	}
}

func (s *userStore) Create(u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupLocked(u.Email) != nil || s.lookupLocked(u.Username) != nil {
		return ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.byID[u.ID] = u
	return nil
}

func (s *userStore) ByID(id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// Lookup resolves a username or email, case-insensitively.
func (s *userStore) Lookup(identifier string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.lookupLocked(identifier)
	if u == nil {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *userStore) lookupLocked(identifier string) *User {
	id := strings.ToLower(strings.TrimSpace(identifier))
	if id == "" {
		return nil
	}
	for _, u := range s.byID {
		if strings.ToLower(u.Username) == id || strings.ToLower(u.Email) == id {
			return u
		}
	}
	return nil
}

func (s *userStore) ByDocument(doc string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.DocumentNumber == doc {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

// Update applies fn to the stored user under the write lock.
func (s *userStore) Update(id string, fn func(*User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(u)
	return nil
}

func (s *userStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.byID, id)
	delete(s.pending, id)
	return nil
}

func (s *userStore) SetPending(id string, fn func(*pendingChange)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		p = &pendingChange{}
		s.pending[id] = p
	}
	fn(p)
}

func (s *userStore) Pending(id string) (pendingChange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[id]
	if !ok {
		return pendingChange{}, false
	}
	return *p, true
}

func (s *userStore) ClearPending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

func (s *userStore) CheckPassword(id, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

// MatchRecipients returns users whose username or email equals the query,
// excluding the requester.
func (s *userStore) MatchRecipient(query, excludeID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.lookupLocked(query)
	if u == nil || u.ID == excludeID {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}
