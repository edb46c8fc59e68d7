// Package store provides in-memory storage for named equations.
package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/polycalc/pkg/poly"
)

// Sentinel errors returned by the store.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidID     = errors.New("invalid equation id")
)

// MaxIDLength is the longest accepted equation ID.
const MaxIDLength = 63

var validID = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidID reports whether id may name an equation.
func ValidID(id string) bool {
	return len(id) <= MaxIDLength && validID.MatchString(id)
}

// Equation is a stored, already parsed equation.
type Equation struct {
	Name        string          `json:"name"`
	Expression  string          `json:"expression"`
	Polynomial  poly.Polynomial `json:"-"`
	Description string          `json:"description,omitempty"`
	RevisionID  string          `json:"revisionId"`
	CreateTime  time.Time       `json:"createTime"`
	UpdateTime  time.Time       `json:"updateTime"`
}

// Store is a thread-safe in-memory registry of equations. Returned
// equations are copies; changing them does not affect the store.
type Store struct {
	mu        sync.RWMutex
	equations map[string]*Equation

	// Counter for revision IDs
	revCounter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		equations: make(map[string]*Equation),
	}
}

// CreateEquation stores a new equation. An empty id is replaced by a
// generated "eq-<uuid>" name.
func (s *Store) CreateEquation(id, expression string, p poly.Polynomial, description string) (Equation, error) {
	if id == "" {
		id = "eq-" + uuid.NewString()
	}
	if !ValidID(id) {
		return Equation{}, fmt.Errorf("%w %q", ErrInvalidID, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.equations[id]; exists {
		return Equation{}, fmt.Errorf("equation '%s' %w", id, ErrAlreadyExists)
	}

	s.revCounter++
	now := time.Now()
	eq := &Equation{
		Name:        id,
		Expression:  expression,
		Polynomial:  p,
		Description: description,
		RevisionID:  fmt.Sprintf("%06d", s.revCounter),
		CreateTime:  now,
		UpdateTime:  now,
	}
	s.equations[id] = eq
	return *eq, nil
}

// GetEquation retrieves an equation by name.
func (s *Store) GetEquation(name string) (Equation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eq, ok := s.equations[name]
	if !ok {
		return Equation{}, fmt.Errorf("equation '%s' %w", name, ErrNotFound)
	}
	return *eq, nil
}

// ListEquations returns all equations ordered by name.
func (s *Store) ListEquations() []Equation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Equation, 0, len(s.equations))
	for _, eq := range s.equations {
		result = append(result, *eq)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// UpdateEquation replaces an equation's expression. An empty description
// keeps the current one.
func (s *Store) UpdateEquation(name, expression string, p poly.Polynomial, description string) (Equation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eq, ok := s.equations[name]
	if !ok {
		return Equation{}, fmt.Errorf("equation '%s' %w", name, ErrNotFound)
	}

	s.revCounter++
	eq.Expression = expression
	eq.Polynomial = p
	if description != "" {
		eq.Description = description
	}
	eq.RevisionID = fmt.Sprintf("%06d", s.revCounter)
	eq.UpdateTime = time.Now()

	return *eq, nil
}

// DeleteEquation removes an equation.
func (s *Store) DeleteEquation(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.equations[name]; !ok {
		return fmt.Errorf("equation '%s' %w", name, ErrNotFound)
	}
	delete(s.equations, name)
	return nil
}

// Len returns the number of stored equations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.equations)
}
