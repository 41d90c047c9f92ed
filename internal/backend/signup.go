package backend

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// signup tracks a registration in progress, keyed by the session ID handed
// back from the start endpoint.
type signup struct {
	ID            string
	Email         string
	Phone         string
	Password      string
	EmailVerified bool
	PhoneVerified bool
	CreatedAt     time.Time
}

type signupStore struct {
	mu       sync.Mutex
	sessions map[string]*signup
	ttl      time.Duration
}

func newSignupStore(ttl time.Duration) *signupStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &signupStore{sessions: make(map[string]*signup), ttl: ttl}
}

func (s *signupStore) Start(email, phone, password string) *signup {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &signup{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Phone:     strings.TrimSpace(phone),
		Password:  password,
		CreatedAt: time.Now(),
	}
	s.sessions[sess.ID] = sess
	return sess
}

func (s *signupStore) Get(id string) (*signup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Since(sess.CreatedAt) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

func (s *signupStore) Update(id string, fn func(*signup)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	fn(sess)
	return true
}

func (s *signupStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// registryPerson is an identity-registry row used to vet KYC submissions.
type registryPerson struct {
	FirstName string
	LastName  string
	BirthDate time.Time
}

// identityRegistry mimics the national registry lookup the real platform
// performs during onboarding.
type identityRegistry struct {
	mu      sync.RWMutex
	persons map[string]registryPerson
}

func newIdentityRegistry() *identityRegistry {
	return &identityRegistry{persons: make(map[string]registryPerson)}
}

func (r *identityRegistry) Add(dni string, p registryPerson) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persons[dni] = p
}

func (r *identityRegistry) Find(dni string) (registryPerson, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.persons[dni]
	return p, ok
}

// NamesMatch compares submitted names against the registry row, ignoring
// case and surrounding whitespace.
func (p registryPerson) NamesMatch(first, last string) bool {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(p.FirstName) == norm(first) && norm(p.LastName) == norm(last)
}

func (p registryPerson) Age(now time.Time) int {
	years := now.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
