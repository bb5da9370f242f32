package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mcdev12/jeopardy/go/internal/game"
)

func TestRouter_InitSendsIdentityAndJoins(t *testing.T) {
	g := newTestGateway(t)
	c := addConn(g.cm, "r1", "p1", "Ann", time.Now())

	g.send(t, c, IntentInit, nil)

	env := nextEnvelope(t, c, TypeIdentity)
	var id IdentityData
	if err := json.Unmarshal(env.Data, &id); err != nil {
		t.Fatalf("unmarshal identity: %v", err)
	}
	if id.ParticipantID != "p1" || id.Name != "Ann" {
		t.Errorf("identity = %+v, want p1/Ann", id)
	}

	env = nextEnvelope(t, c, TypeState)
	var st game.PublicState
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if _, ok := st.Scores["p1"]; !ok {
		t.Errorf("joined participant missing from scores: %v", st.Scores)
	}
}

func TestRouter_DailyDoubleWagerIsPrivate(t *testing.T) {
	g := newTestGateway(t)
	p1 := addConn(g.cm, "r1", "p1", "Ann", time.Now())
	p2 := addConn(g.cm, "r1", "p2", "Bob", time.Now().Add(time.Second))

	g.send(t, p1, IntentStart, startData{Episode: "42"})
	st := g.waitState(t, "r1", "jeopardy round", func(st game.PublicState) bool {
		return st.Round == game.RoundJeopardy
	})

	picker := p1
	if st.Picker == "p2" {
		picker = p2
	}
	g.send(t, picker, IntentPick, pickData{ID: "1_2"})
	g.waitState(t, "r1", "wager window", func(st game.PublicState) bool {
		return st.Phase == game.PhaseAwaitingWager
	})

	// Wagers clamp to the jeopardy-round floor of 1000.
	g.send(t, picker, IntentWager, json.RawMessage(`{"amount":"5000"}`))
	env := nextEnvelope(t, picker, TypeMyWager)
	var w MyWagerData
	if err := json.Unmarshal(env.Data, &w); err != nil {
		t.Fatalf("unmarshal wager: %v", err)
	}
	if w.Amount != 1000 {
		t.Errorf("wager = %d, want 1000", w.Amount)
	}

	other := p2
	if picker == p2 {
		other = p1
	}
	for len(other.Send) > 0 {
		var env Envelope
		if err := json.Unmarshal(<-other.Send, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if env.Type == TypeMyWager {
			t.Fatal("wager leaked to another participant")
		}
	}
}

func TestRouter_RenameUpdatesDisplayName(t *testing.T) {
	g := newTestGateway(t)
	c := addConn(g.cm, "r1", "p1", "", time.Now())

	g.send(t, c, IntentRename, renameData{Name: "Ann"})
	if name := g.cm.DisplayName("r1", "p1"); name != "Ann" {
		t.Errorf("DisplayName = %q, want Ann", name)
	}

	g.send(t, c, IntentRename, renameData{Name: ""})
	if name := g.cm.DisplayName("r1", "p1"); name != "Ann" {
		t.Errorf("empty rename changed name to %q", name)
	}
}

func TestRouter_DropsMalformedIntents(t *testing.T) {
	g := newTestGateway(t)
	c := addConn(g.cm, "r1", "p1", "", time.Now())

	g.router.HandleMessage(context.Background(), c, []byte("{not json"))
	if rooms := g.registry.Rooms(); len(rooms) != 0 {
		t.Errorf("malformed intent opened rooms %v", rooms)
	}

	g.send(t, c, "teleport", nil)
	g.send(t, c, IntentPick, nil)
	g.send(t, c, IntentStart, json.RawMessage(`"42"`))

	st := g.waitState(t, "r1", "session", func(game.PublicState) bool { return true })
	if st.Round != game.RoundNone {
		t.Errorf("round = %q after bad intents, want none", st.Round)
	}
}

func TestRouter_LeaveWithoutSessionIsNoop(t *testing.T) {
	g := newTestGateway(t)
	g.router.HandleLeave(context.Background(), "nowhere", "p1")
	if rooms := g.registry.Rooms(); len(rooms) != 0 {
		t.Errorf("leave opened rooms %v", rooms)
	}
}

func TestWagerAmount_AcceptsNumberOrString(t *testing.T) {
	for _, in := range []string{`{"amount":750}`, `{"amount":"750"}`, `{"amount":" 750 "}`} {
		var d wagerData
		if err := json.Unmarshal([]byte(in), &d); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got := game.ClampWager(string(d.Amount), 0, 1000); got != 750 {
			t.Errorf("%s: clamped %d, want 750", in, got)
		}
	}
}

func TestStartIntent_FitsReadLimitAtCustomMaximum(t *testing.T) {
	// Control characters escape to six bytes each.
	custom := strings.Repeat("\x01", game.DefaultRules().MaxCustomDataLength)
	msg, err := json.Marshal(Intent{Type: IntentStart, Data: mustJSON(t, startData{Custom: custom})})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if limit := DefaultConnectionConfig().MaxMessageSize; int64(len(msg)) > limit {
		t.Errorf("start intent is %d bytes, read limit %d", len(msg), limit)
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
