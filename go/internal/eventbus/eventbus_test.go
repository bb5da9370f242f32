package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mcdev12/jeopardy/go/internal/game/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type fakeJS struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakeJS) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: "JEOPARDY_EVENTS", Sequence: uint64(len(f.msgs))}, nil
}

func TestPublisher_PublishDomainEvent(t *testing.T) {
	js := &fakeJS{}
	p := NewPublisher(js, DefaultConfig())
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	payload := events.GameEndedPayload{RoomID: "room1", EpNum: "42", Standings: []events.Standing{{ParticipantID: "a", Score: 100}}}
	if err := p.PublishDomainEvent(context.Background(), "room1", events.EventTypeGameEnded, payload); err != nil {
		t.Fatalf("PublishDomainEvent: %v", err)
	}

	if len(js.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(js.msgs))
	}
	msg := js.msgs[0]
	if msg.Subject != "jeopardy.events.GameEnded" {
		t.Errorf("subject %q", msg.Subject)
	}
	if msg.Header.Get("Room-ID") != "room1" || msg.Header.Get("Event-Type") != events.EventTypeGameEnded {
		t.Errorf("headers %v", msg.Header)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.EventID == "" || env.EventID != msg.Header.Get("Event-ID") {
		t.Errorf("event id %q, header %q", env.EventID, msg.Header.Get("Event-ID"))
	}
	if !env.Timestamp.Equal(p.now()) {
		t.Errorf("timestamp %v", env.Timestamp)
	}
	var got events.GameEndedPayload
	if err := env.Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.EpNum != "42" || len(got.Standings) != 1 {
		t.Errorf("payload %+v", got)
	}
}

func TestPublisher_Error(t *testing.T) {
	p := NewPublisher(&fakeJS{err: errors.New("no responders")}, DefaultConfig())
	if err := p.PublishDomainEvent(context.Background(), "r", "X", struct{}{}); err == nil {
		t.Error("expected an error")
	}
}

// fakeMsg implements only the jetstream.Msg methods dispatch calls.
type fakeMsg struct {
	jetstream.Msg
	data                []byte
	acked, naked, termd bool
}

func (m *fakeMsg) Data() []byte    { return m.data }
func (m *fakeMsg) Subject() string { return "jeopardy.events.GameEnded" }
func (m *fakeMsg) Ack() error      { m.acked = true; return nil }
func (m *fakeMsg) Nak() error      { m.naked = true; return nil }
func (m *fakeMsg) Term() error     { m.termd = true; return nil }

func TestConsumer_Dispatch(t *testing.T) {
	var seen []string
	fail := false
	c := &Consumer{handler: func(_ context.Context, env Envelope) error {
		if fail {
			return errors.New("db down")
		}
		seen = append(seen, env.RoomID)
		return nil
	}}

	good, _ := json.Marshal(Envelope{EventID: "1", EventType: "GameEnded", RoomID: "room1", Payload: json.RawMessage(`{}`)})

	msg := &fakeMsg{data: good}
	c.dispatch(context.Background(), msg)
	if !msg.acked || len(seen) != 1 || seen[0] != "room1" {
		t.Errorf("handled message: acked=%v seen=%v", msg.acked, seen)
	}

	fail = true
	msg = &fakeMsg{data: good}
	c.dispatch(context.Background(), msg)
	if !msg.naked || msg.acked {
		t.Errorf("failed handler: naked=%v acked=%v", msg.naked, msg.acked)
	}

	msg = &fakeMsg{data: []byte("not json")}
	c.dispatch(context.Background(), msg)
	if !msg.termd {
		t.Error("undecodable message was not terminated")
	}
}

func TestConfig_Subject(t *testing.T) {
	if got := DefaultConfig().Subject("RoundStarted"); got != "jeopardy.events.RoundStarted" {
		t.Errorf("Subject = %q", got)
	}
}
