package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/jeopardy/go/internal/episodes"
	"github.com/mcdev12/jeopardy/go/internal/game"
	"github.com/mcdev12/jeopardy/go/internal/judge"
)

type leaveRecorder struct {
	mu     sync.Mutex
	leaves []string
}

func (l *leaveRecorder) HandleMessage(context.Context, *Connection, []byte) {}

func (l *leaveRecorder) HandleLeave(_ context.Context, roomID, participantID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.leaves = append(l.leaves, roomID+"/"+participantID)
}

func (l *leaveRecorder) recorded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.leaves...)
}

// addConn registers a connection without a socket behind it.
func addConn(cm *ConnectionManager, roomID, participantID, name string, at time.Time) *Connection {
	c := &Connection{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		RoomID:        roomID,
		Send:          make(chan []byte, 64),
		Manager:       cm,
		ConnectedAt:   at,
		ctx:           context.Background(),
	}
	cm.registerConnection(c, name)
	return c
}

// nextEnvelope reads from c until an envelope of type typ arrives.
func nextEnvelope(t *testing.T, c *Connection, typ string) *Envelope {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				t.Fatalf("send channel closed waiting for %q", typ)
			}
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("unmarshal envelope: %v", err)
			}
			if env.Type == typ {
				return &env
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q envelope", typ)
		}
	}
}

func fixtureCatalog() *episodes.Catalog {
	return episodes.NewCatalog(map[string]game.Episode{
		"42": {
			EpNum:   "42",
			AirDate: "2004-06-02",
			Jeopardy: []game.Clue{
				{X: 1, Y: 1, Category: "CAPITALS", Value: 200, Question: "City of light", Answer: "Paris"},
				{X: 1, Y: 2, Category: "CAPITALS", Value: 400, Question: "Eternal city", Answer: "Rome", DailyDouble: true},
			},
			Double: []game.Clue{
				{X: 1, Y: 1, Category: "MORE CAPITALS", Value: 400, Question: "Divided until 1990", Answer: "Berlin"},
			},
			Final: []game.Clue{
				{X: 1, Y: 1, Category: "CITIES", Question: "Formerly Edo", Answer: "Tokyo"},
			},
		},
	})
}

type testGateway struct {
	cm       *ConnectionManager
	registry *game.Registry
	router   *Router
	service  *Service
}

// newTestGateway wires a gateway around an in-memory registry with no
// presentation pauses.
func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rules := game.DefaultRules()
	rules.IntroPhrasePause = 0
	rules.ContestantPause = 0
	rules.HostPause = 0

	cm := NewConnectionManager(DefaultConnectionConfig())
	registry := game.NewRegistry(ctx, game.Dependencies{
		Judge:    judge.Normalized{},
		Roster:   cm,
		Out:      cm,
		Chat:     cm,
		Episodes: fixtureCatalog(),
	}, rules, nil, 0)
	svc := NewService(cm, registry)
	go svc.Start(ctx)

	return &testGateway{
		cm:       cm,
		registry: registry,
		router:   cm.handler.(*Router),
		service:  svc,
	}
}

func (g *testGateway) send(t *testing.T, c *Connection, typ string, data any) {
	t.Helper()
	in := Intent{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal intent data: %v", err)
		}
		in.Data = raw
	}
	msg, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	g.router.HandleMessage(context.Background(), c, msg)
}

func (g *testGateway) waitState(t *testing.T, roomID, desc string, cond func(game.PublicState) bool) game.PublicState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if s, ok := g.registry.Lookup(roomID); ok {
			if st := s.State(); cond(st) {
				return st
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", desc)
		}
		time.Sleep(time.Millisecond)
	}
}
