// Package app holds the explicit application state shared by the dashboard,
// search and voice components.
package app

import (
	"sync"

	"github.com/coupn-app/coupn/internal/model"
)

// State is the current user and their promotion list. Readers always receive
// copies; only the owner mutates it through SetPromotions and Remove.
type State struct {
	user       string
	promotions []model.Promotion
	version    uint64
	mu         sync.RWMutex
}

// NewState creates state for user.
func NewState(user string) *State {
	return &State{user: user}
}

// User returns the current user ID.
func (s *State) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Promotions returns a snapshot of the promotion list.
func (s *State) Promotions() []model.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Promotion, len(s.promotions))
	copy(out, s.promotions)
	return out
}

// SetPromotions replaces the list and returns the new version.
func (s *State) SetPromotions(promotions []model.Promotion) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promotions = make([]model.Promotion, len(promotions))
	copy(s.promotions, promotions)
	s.version++
	return s.version
}

// Remove deletes every promotion with key and reports whether any was found.
func (s *State) Remove(key model.PromotionKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.promotions[:0:0]
	for _, p := range s.promotions {
		if p.Key() != key {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(s.promotions) {
		return false
	}
	s.promotions = kept
	s.version++
	return true
}

// Version increases with every mutation of the list.
func (s *State) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
