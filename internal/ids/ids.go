// Package ids provides identifier sources for QTI packages. A Source is
// created per export so counters never leak between builds.
package ids

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Source hands out identifiers. Implementations must return values that are
// valid XML NCNames (they start with a letter).
type Source interface {
	Next() string
}

// Factory creates a fresh Source for one build.
type Factory func() Source

type Scheme string

const (
	SchemeUUID     Scheme = "uuid"
	SchemeULID     Scheme = "ulid"
	SchemeSequence Scheme = "sequence"
)

// FactoryFor maps a configured scheme to a factory. Unknown schemes fall
// back to UUIDs.
func FactoryFor(s Scheme) Factory {
	switch Scheme(strings.ToLower(string(s))) {
	case SchemeULID:
		return func() Source { return NewULID() }
	case SchemeSequence:
		return func() Source { return NewSequence("id") }
	default:
		return func() Source { return NewUUID() }
	}
}

// --- sequence ---

type sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequence returns a deterministic source: prefix1, prefix2, ...
func NewSequence(prefix string) Source {
	if prefix == "" {
		prefix = "id"
	}
	return &sequence{prefix: prefix}
}

func (s *sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%d", s.prefix, s.n)
}

// --- uuid ---

type uuidSource struct{}

// NewUUID returns Canvas-style identifiers: "g" followed by 32 hex digits.
func NewUUID() Source { return uuidSource{} }

func (uuidSource) Next() string {
	return "g" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// --- ulid ---

type ulidSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULID returns lexically sortable identifiers prefixed with "g".
func NewULID() Source {
	return &ulidSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (s *ulidSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	return "g" + strings.ToLower(id.String())
}

// --- fixed list, mostly for tests ---

type list struct {
	mu     sync.Mutex
	values []string
	i      int
}

// NewList replays the given identifiers in order and then repeats the last
// one, which lets tests provoke collisions.
func NewList(values ...string) Source {
	return &list{values: values}
}

func (l *list) Next() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.values) == 0 {
		return ""
	}
	if l.i >= len(l.values) {
		return l.values[len(l.values)-1]
	}
	v := l.values[l.i]
	l.i++
	return v
}
