// Package session holds per-conversation state: the current search result
// cache and the controller's navigation state.
package session

import (
	"sync"
	"time"
)

// State is where a conversation is in the results/detail navigation.
type State int

const (
	Idle State = iota
	ResultsShown
	DetailShown
	FavoritesShown
	FavoriteDetailShown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ResultsShown:
		return "results"
	case DetailShown:
		return "detail"
	case FavoritesShown:
		return "favorites"
	case FavoriteDetailShown:
		return "favorite-detail"
	default:
		return "unknown"
	}
}

// Session is one conversation's state. Lock serializes the conversation's
// events; it is independent of the cache's own locking.
type Session struct {
	ID             string
	ConversationID int64
	Cache          ResultCache
	CreatedAt      time.Time

	turn     sync.Mutex
	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

func (s *Session) Lock() {
	s.turn.Lock()
}

func (s *Session) Unlock() {
	s.turn.Unlock()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
