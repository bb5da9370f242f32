package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type memStore struct {
	mu     sync.Mutex
	states map[string]SavedState
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]SavedState)}
}

func (m *memStore) Save(_ context.Context, roomID string, st SavedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[roomID] = st
	return nil
}

func (m *memStore) Load(_ context.Context, roomID string) (*SavedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

func (m *memStore) Delete(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, roomID)
	return nil
}

func TestRegistry_CreatesAndReusesSessions(t *testing.T) {
	h := newHarness(t, "A")
	r := NewRegistry(context.Background(), h.deps, h.rules, newMemStore(), 0)

	s1, err := r.Session(context.Background(), "room1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	s2, err := r.Session(context.Background(), "room1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if s1 != s2 {
		t.Error("Session returned different sessions for one room")
	}
	if _, err := r.Session(context.Background(), "room0"); err != nil {
		t.Fatalf("Session: %v", err)
	}
	if got := r.Rooms(); len(got) != 2 || got[0] != "room0" || got[1] != "room1" {
		t.Errorf("Rooms() = %v", got)
	}
}

func TestRegistry_SaveAndRestore(t *testing.T) {
	h := newHarness(t, "A")
	store := newMemStore()
	r := NewRegistry(context.Background(), h.deps, h.rules, store, 0)

	s, _ := r.Session(context.Background(), "room1")
	s.Join("A")
	s.SetScoring(ScoringCoop)
	if err := r.SaveAll(context.Background()); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	// A second registry, as after a restart.
	r2 := NewRegistry(context.Background(), h.deps, h.rules, store, 0)
	restored, err := r2.Session(context.Background(), "room1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	t.Cleanup(restored.Close)
	if got := restored.State().Scoring; got != ScoringCoop {
		t.Errorf("restored scoring %s, want coop", got)
	}

	if err := r2.Remove(context.Background(), "room1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := r2.Lookup("room1"); ok {
		t.Error("room still loaded after Remove")
	}
	if _, err := store.Load(context.Background(), "room1"); err != ErrNotFound {
		t.Errorf("stored state not deleted: %v", err)
	}
}

func TestRestore_KeepsUndoSnapshot(t *testing.T) {
	h := newHarness(t, "A")
	h.start()
	h.s.mu.Lock()
	h.s.takeSnapshot()
	h.s.mu.Unlock()
	h.s.SetScoring(ScoringCoop)

	data, err := json.Marshal(h.s.Saved())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var saved SavedState
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	h.restore(&saved)

	if !h.s.Undo() {
		t.Fatal("Undo unavailable after restore")
	}
	if got := h.s.State().Scoring; got != ScoringStandard {
		t.Errorf("scoring after undo %s, want standard", got)
	}
	if h.s.Saved().Snapshot == nil {
		t.Error("snapshot dropped from saved state after undo")
	}
}

func TestRegistry_RunSavesOnShutdown(t *testing.T) {
	h := newHarness(t, "A")
	store := newMemStore()
	r := NewRegistry(context.Background(), h.deps, h.rules, store, time.Minute)
	s, _ := r.Session(context.Background(), "room1")
	s.Join("A")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := store.Load(context.Background(), "room1"); err != nil {
		t.Errorf("room not saved on shutdown: %v", err)
	}
	if len(r.Rooms()) != 0 {
		t.Error("sessions left open after shutdown")
	}
}

// A restored answer window keeps only the time that was left on it.
func TestRestore_RearmsTimerFromDeadline(t *testing.T) {
	h := newHarness(t, "A")
	h.start()
	h.s.PickQuestion("A", "1_1")
	h.playClue()
	h.clock.Advance(10 * time.Second)

	saved := h.s.Saved()
	h.restore(&saved)
	if got := h.s.State().Phase; got != PhaseAwaitingAnswers {
		t.Fatalf("phase %s after restore, want %s", got, PhaseAwaitingAnswers)
	}

	h.clock.Advance(5 * time.Second)
	h.waitFor("reveal", func(st PublicState) bool { return st.Revealed })
}

func TestRestore_FinishesTextlessClue(t *testing.T) {
	h := newHarness(t, "A")
	st := newSavedState(fixtureEpisode())
	st.Board = buildBoard(fixtureEpisode().Jeopardy)
	st.Public.Board = buildPublicBoard(fixtureEpisode().Jeopardy)
	st.Public.Round = RoundJeopardy
	st.Public.CurrentQ = "1_1"

	h.restore(st)
	h.clock.Advance(time.Millisecond)
	h.waitPhase(PhaseAwaitingAnswers)
}

func TestRestore_StartsRoundAfterInterruptedIntro(t *testing.T) {
	h := newHarness(t, "A")
	h.restore(newSavedState(fixtureEpisode()))
	if got := h.s.State().Round; got != RoundJeopardy {
		t.Errorf("round %q, want jeopardy", got)
	}
}

func TestNextRound_EndIsTerminal(t *testing.T) {
	h := newHarness(t, "A")
	st := newSavedState(fixtureEpisode())
	st.Public.Round = RoundEnd
	h.restore(st)

	h.s.mu.Lock()
	h.s.nextRound()
	h.s.mu.Unlock()
	if got := h.s.State().Round; got != RoundEnd {
		t.Errorf("round %q after end, want end", got)
	}
}

func TestNextRound_DoublePickerIsLowestScorer(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	st := newSavedState(fixtureEpisode())
	st.Public.Round = RoundJeopardy
	st.Public.Scores = map[string]int{"A": 400, "B": -200, "C": 0}
	h.restore(st)

	h.s.mu.Lock()
	h.s.nextRound()
	h.s.mu.Unlock()
	got := h.s.State()
	if got.Round != RoundDouble {
		t.Fatalf("round %q, want double", got.Round)
	}
	if got.Picker != "B" {
		t.Errorf("picker %q, want B", got.Picker)
	}
}
