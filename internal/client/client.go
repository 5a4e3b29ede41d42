// Package client provides the in-memory client store.
package client

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zulandar/devteam/internal/models"
)

var (
	// ErrNotFound indicates no client has the requested ID.
	ErrNotFound = errors.New("client not found")
	// ErrInvalidInput indicates a required field is missing.
	ErrInvalidInput = errors.New("invalid client input")
)

// CreateOpts holds parameters for creating a client.
type CreateOpts struct {
	Name        string
	Email       string
	Phone       string
	Company     string
	Description string
}

// Store is an ordered, mutex-guarded collection of clients.
type Store struct {
	mu      sync.Mutex
	clients []models.Client
	now     func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Create appends a new client with a fresh ID and timestamps.
func (s *Store) Create(opts CreateOpts) (models.Client, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return models.Client{}, fmt.Errorf("client: %w: name is required", ErrInvalidInput)
	}
	now := s.now()
	c := models.Client{
		ID:          uuid.NewString(),
		Name:        opts.Name,
		Email:       opts.Email,
		Phone:       opts.Phone,
		Company:     opts.Company,
		Description: opts.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.clients = append(s.clients, c)
	s.mu.Unlock()
	return c, nil
}

// Get returns the client with the given ID.
func (s *Store) Get(id string) (models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Client{}, fmt.Errorf("client: %w: %s", ErrNotFound, id)
}

// List returns all clients in insertion order.
func (s *Store) List() []models.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Client, len(s.clients))
	copy(out, s.clients)
	return out
}

// Len returns the number of clients.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Update merges patch into the client and refreshes UpdatedAt.
func (s *Store) Update(id string, patch models.ClientPatch) (models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clients {
		if s.clients[i].ID == id {
			patch.Apply(&s.clients[i])
			s.clients[i].UpdatedAt = s.now()
			return s.clients[i], nil
		}
	}
	return models.Client{}, fmt.Errorf("client: %w: %s", ErrNotFound, id)
}

// Delete removes the client. Projects referencing it are not touched.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clients {
		if s.clients[i].ID == id {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("client: %w: %s", ErrNotFound, id)
}
