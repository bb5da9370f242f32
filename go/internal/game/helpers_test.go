package game

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/jeopardy/go/internal/game/events"
)

type fakeRoster struct {
	mu      sync.Mutex
	members []Participant
}

func (r *fakeRoster) Members(string) []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.members)
}

func (r *fakeRoster) DisplayName(_, id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.members {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

func (r *fakeRoster) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = slices.DeleteFunc(r.members, func(p Participant) bool { return p.ID == id })
}

type fakeOut struct {
	mu     sync.Mutex
	states []PublicState
	events []Event
}

func (o *fakeOut) PublishState(_ string, st PublicState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, st)
}

func (o *fakeOut) PublishEvent(_ string, ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *fakeOut) stateCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.states)
}

func (o *fakeOut) lastState() PublicState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[len(o.states)-1]
}

func (o *fakeOut) count(t EventType) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, ev := range o.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (o *fakeOut) find(t EventType) (Event, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ev := range o.events {
		if ev.Type == t {
			return ev, true
		}
	}
	return Event{}, false
}

// fakeJudge accepts a candidate that contains the reference.
type fakeJudge struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (j *fakeJudge) JudgeAnswer(_ context.Context, candidate, reference string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, candidate)
	if j.err != nil {
		return false, j.err
	}
	return reference != "" && strings.Contains(candidate, reference), nil
}

type fakeResults struct {
	mu         sync.Mutex
	standings  [][]events.Standing
	counters   map[string]int
	judgements []string
}

func (r *fakeResults) RecordResults(_ context.Context, standings []events.Standing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.standings = append(r.standings, standings)
	return nil
}

func (r *fakeResults) IncrementCounter(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counters == nil {
		r.counters = make(map[string]int)
	}
	r.counters[name]++
	return nil
}

func (r *fakeResults) RecordJudgement(_ context.Context, reference, submitted string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.judgements = append(r.judgements, reference+","+submitted)
	return nil
}

type fakeEpisodes struct {
	ep Episode
}

func (f fakeEpisodes) Episode(ref, _ string) (*Episode, error) {
	if ref == "missing" {
		return nil, ErrNotFound
	}
	ep := f.ep
	return &ep, nil
}

func (f fakeEpisodes) Custom(string) (*Episode, error) {
	ep := f.ep
	ep.EpNum = "Custom"
	return &ep, nil
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *fakeEvents) PublishDomainEvent(_ context.Context, _, eventType string, _ any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, eventType)
	return nil
}

func (e *fakeEvents) has(eventType string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Contains(e.types, eventType)
}

func fixtureEpisode() Episode {
	return Episode{
		EpNum:   "42",
		AirDate: "2004-06-02",
		Jeopardy: []Clue{
			{X: 1, Y: 1, Category: "CAPITALS", Value: 200, Question: "City of light", Answer: "Paris"},
			{X: 1, Y: 2, Category: "CAPITALS", Value: 400, Question: "Eternal city", Answer: "Rome", DailyDouble: true},
		},
		Double: []Clue{
			{X: 1, Y: 1, Category: "MORE CAPITALS", Value: 400, Question: "Divided until 1990", Answer: "Berlin"},
		},
		Final: []Clue{
			{X: 1, Y: 1, Category: "CITIES", Question: "Formerly Edo", Answer: "Tokyo"},
		},
	}
}

func testRules() Rules {
	r := DefaultRules()
	r.IntroPhrasePause = 0
	r.ContestantPause = 0
	r.HostPause = 0
	return r
}

type harness struct {
	t       *testing.T
	clock   *clockwork.FakeClock
	roster  *fakeRoster
	out     *fakeOut
	judge   *fakeJudge
	results *fakeResults
	events  *fakeEvents
	deps    Dependencies
	rules   Rules
	s       *Session
}

func newHarness(t *testing.T, ids ...string) *harness {
	return newHarnessWithRules(t, testRules(), ids...)
}

func newHarnessWithRules(t *testing.T, rules Rules, ids ...string) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		clock:   clockwork.NewFakeClock(),
		roster:  &fakeRoster{},
		out:     &fakeOut{},
		judge:   &fakeJudge{},
		results: &fakeResults{},
		events:  &fakeEvents{},
		rules:   rules,
	}
	for _, id := range ids {
		h.roster.members = append(h.roster.members, Participant{ID: id, Name: "name-" + id})
	}
	h.deps = Dependencies{
		Clock:    h.clock,
		Judge:    h.judge,
		Roster:   h.roster,
		Out:      h.out,
		Results:  h.results,
		Episodes: fakeEpisodes{ep: fixtureEpisode()},
		Events:   h.events,
		Intn:     func(int) int { return 0 },
	}
	h.s = NewSession(context.Background(), "room1", h.deps, rules)
	t.Cleanup(h.s.Close)
	return h
}

// rebuild replaces the harness session with a fresh one using h.deps.
func (h *harness) rebuild() {
	h.s.Close()
	h.s = NewSession(context.Background(), "room1", h.deps, h.rules)
	h.t.Cleanup(h.s.Close)
}

// restore replaces the harness session with one rebuilt from st.
func (h *harness) restore(st *SavedState) {
	h.s.Close()
	h.s = RestoreSession(context.Background(), "room1", h.deps, h.rules, *st)
	h.t.Cleanup(h.s.Close)
}

func (h *harness) waitFor(desc string, cond func(PublicState) bool) PublicState {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := h.s.State()
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("timed out waiting for %s: round=%q phase=%s q=%q", desc, st.Round, st.Phase, st.CurrentQ)
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) waitPhase(p Phase) PublicState {
	h.t.Helper()
	return h.waitFor(string(p), func(st PublicState) bool { return st.Phase == p })
}

// start loads the fixture episode and waits for the jeopardy round.
func (h *harness) start() {
	h.t.Helper()
	if !h.s.Start("42", "", "") {
		h.t.Fatal("Start returned false")
	}
	h.waitFor("jeopardy round", func(st PublicState) bool { return st.Round == RoundJeopardy })
}

// playClue lets the clue read time elapse and waits for the answer window.
func (h *harness) playClue() PublicState {
	h.t.Helper()
	h.clock.Advance(time.Minute)
	return h.waitPhase(PhaseAwaitingAnswers)
}

func boolPtr(b bool) *bool { return &b }
