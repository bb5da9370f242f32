package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry holds one Session per room. Sessions are restored from the Store on
// first access and saved back periodically and on shutdown.
type Registry struct {
	deps         Dependencies
	rules        Rules
	store        Store
	saveInterval time.Duration
	instanceID   string // short ID for logging

	mu       sync.RWMutex
	sessions map[string]*Session
	ctx      context.Context
}

// NewRegistry creates a registry. store may be nil, in which case sessions
// only live in memory.
func NewRegistry(ctx context.Context, deps Dependencies, rules Rules, store Store, saveInterval time.Duration) *Registry {
	return &Registry{
		deps:         deps.withDefaults(),
		rules:        rules,
		store:        store,
		saveInterval: saveInterval,
		instanceID:   uuid.New().String()[:8],
		sessions:     make(map[string]*Session),
		ctx:          ctx,
	}
}

// Session returns the room's session, restoring it from the store or creating
// an empty one when none exists.
func (r *Registry) Session(ctx context.Context, roomID string) (*Session, error) {
	if s, ok := r.Lookup(roomID); ok {
		return s, nil
	}

	var saved *SavedState
	if r.store != nil {
		st, err := r.store.Load(ctx, roomID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("failed to load session %s: %w", roomID, err)
		default:
			saved = st
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have won the race while we were loading.
	if s, ok := r.sessions[roomID]; ok {
		return s, nil
	}

	var s *Session
	if saved != nil {
		s = RestoreSession(r.ctx, roomID, r.deps, r.rules, *saved)
	} else {
		s = NewSession(r.ctx, roomID, r.deps, r.rules)
		log.Info().Str("instance_id", r.instanceID).Str("room_id", roomID).Msg("created session")
	}
	r.sessions[roomID] = s
	return s, nil
}

// Lookup returns the room's session if it is loaded.
func (r *Registry) Lookup(roomID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[roomID]
	return s, ok
}

// Rooms lists loaded room IDs in sorted order.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		rooms = append(rooms, id)
	}
	sort.Strings(rooms)
	return rooms
}

// Remove closes a room's session and deletes its persisted state.
func (r *Registry) Remove(ctx context.Context, roomID string) error {
	r.mu.Lock()
	s, ok := r.sessions[roomID]
	delete(r.sessions, roomID)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	if r.store == nil {
		return nil
	}
	if err := r.store.Delete(ctx, roomID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", roomID, err)
	}
	return nil
}

// SaveAll persists every loaded session and returns the first error seen.
func (r *Registry) SaveAll(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, s := range sessions {
		if err := r.store.Save(ctx, s.RoomID(), s.Saved()); err != nil {
			log.Error().Err(err).Str("room_id", s.RoomID()).Msg("failed to save session")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Run saves all sessions every saveInterval until ctx is cancelled, then
// saves one last time and closes them.
func (r *Registry) Run(ctx context.Context) {
	log.Info().
		Str("instance_id", r.instanceID).
		Dur("save_interval", r.saveInterval).
		Msg("session registry started")

	for {
		var tick <-chan time.Time
		if r.saveInterval > 0 {
			tick = r.deps.Clock.After(r.saveInterval)
		}
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case <-tick:
			if err := r.SaveAll(ctx); err != nil {
				log.Warn().Err(err).Msg("periodic save incomplete")
			}
		}
	}
}

func (r *Registry) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.SaveAll(ctx); err != nil {
		log.Error().Err(err).Msg("final save incomplete")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
	log.Info().Str("instance_id", r.instanceID).Msg("session registry stopped")
}
