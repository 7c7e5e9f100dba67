package app

import (
	"math/rand"
	"sync"
	"time"

	"livequiz-service/internal/domain"
)

// codeAlphabet is uppercase and drops the visually ambiguous glyphs
// (I, O, 0, 1) so codes survive being read off a projector.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultCodeLength and DefaultCodeAttempts bound session code allocation.
const (
	DefaultCodeLength   = 6
	DefaultCodeAttempts = 5
)

// CodeFunc produces candidate session codes. Injectable so tests can force
// collisions.
type CodeFunc func() string

// RandomCodeFunc returns a CodeFunc drawing fixed-length codes from the
// unambiguous alphabet.
func RandomCodeFunc(length int) CodeFunc {
	if length <= 0 {
		length = DefaultCodeLength
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		buf := make([]byte, length)
		for i := range buf {
			buf[i] = codeAlphabet[rnd.Intn(len(codeAlphabet))]
		}
		return string(buf)
	}
}

// Registry owns the concurrent map of active sessions. Codes are unique
// among currently active sessions only; a removed code may be reallocated.
type Registry struct {
	gen      CodeFunc
	attempts int

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(gen CodeFunc, attempts int) *Registry {
	if gen == nil {
		gen = RandomCodeFunc(DefaultCodeLength)
	}
	if attempts <= 0 {
		attempts = DefaultCodeAttempts
	}
	return &Registry{
		gen:      gen,
		attempts: attempts,
		sessions: make(map[string]*Session),
	}
}

// Create allocates a unique code and inserts the session built for it, both
// under one lock so two concurrent creations cannot claim the same code.
// Allocation gives up after the retry budget with a definite error.
func (r *Registry) Create(build func(code string) *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < r.attempts; i++ {
		code := r.gen()
		if _, taken := r.sessions[code]; taken {
			continue
		}
		session := build(code)
		r.sessions[code] = session
		return session, nil
	}
	return nil, domain.ErrCodeSpaceExhausted
}

// Get looks up an active session by code.
func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[code]
	return session, ok
}

// Remove deletes a session; later lookups see not-found, never a stale ref.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, code)
}

// Len is the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
