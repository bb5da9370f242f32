package results

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mcdev12/jeopardy/go/internal/game/events"
	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	lists    map[string][]string
	counters map[string]int64
	err      error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: make(map[string][]string), counters: make(map[string]int64)}
}

func (f *fakeRedis) LPush(_ context.Context, key string, values ...any) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, v := range values {
		var s string
		switch v := v.(type) {
		case []byte:
			s = string(v)
		case string:
			s = v
		}
		f.lists[key] = append([]string{s}, f.lists[key]...)
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func TestRedisSink(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	sink := NewRedisSink(rdb)

	standings := []events.Standing{{ParticipantID: "a", Name: "Alice", Score: 1200}}
	if err := sink.RecordResults(ctx, standings); err != nil {
		t.Fatalf("RecordResults: %v", err)
	}
	var got []events.Standing
	if err := json.Unmarshal([]byte(rdb.lists["jpd:results"][0]), &got); err != nil {
		t.Fatalf("stored results are not JSON: %v", err)
	}
	if len(got) != 1 || got[0].Score != 1200 {
		t.Errorf("stored standings = %+v", got)
	}

	for range 2 {
		if err := sink.IncrementCounter(ctx, "newGames"); err != nil {
			t.Fatalf("IncrementCounter: %v", err)
		}
	}
	if rdb.counters["jpd:newGames"] != 2 {
		t.Errorf("jpd:newGames = %d, want 2", rdb.counters["jpd:newGames"])
	}

	if err := sink.RecordJudgement(ctx, "Paris", "paree"); err != nil {
		t.Fatalf("RecordJudgement: %v", err)
	}
	if e := rdb.lists["jpd:nonTrivialJudges"]; len(e) != 1 || e[0] != "Paris,paree,1" {
		t.Errorf("nonTrivialJudges = %v", e)
	}
}

func TestRedisSink_Errors(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("down")
	sink := NewRedisSink(rdb)
	ctx := context.Background()

	if err := sink.RecordResults(ctx, nil); err == nil {
		t.Error("RecordResults: expected error")
	}
	if err := sink.IncrementCounter(ctx, "x"); err == nil {
		t.Error("IncrementCounter: expected error")
	}
	if err := sink.RecordJudgement(ctx, "a", "b"); err == nil {
		t.Error("RecordJudgement: expected error")
	}
}
