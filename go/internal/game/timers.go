package game

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type timerKind int

const (
	clueTimer timerKind = iota
	answerTimer
	wagerTimer
)

func (k timerKind) String() string {
	switch k {
	case clueTimer:
		return "clue"
	case answerTimer:
		return "answer"
	case wagerTimer:
		return "wager"
	}
	return "unknown"
}

type phaseTimer struct {
	timer clockwork.Timer
	gen   uint64
	stop  chan struct{}
}

// schedule arms a one-shot timer for kind, replacing any timer of the same
// kind. fire runs with the session lock held and only if the timer is still
// the current one for its kind when it gets the lock. Caller holds s.mu.
func (s *Session) schedule(kind timerKind, d time.Duration, fire func()) {
	s.cancelTimer(kind)

	s.timerGen++
	pt := &phaseTimer{
		timer: s.deps.Clock.NewTimer(max(d, 0)),
		gen:   s.timerGen,
		stop:  make(chan struct{}),
	}
	s.timers[kind] = pt

	go func(pt *phaseTimer) {
		select {
		case <-pt.timer.Chan():
			s.mu.Lock()
			defer s.mu.Unlock()
			current, ok := s.timers[kind]
			if !ok || current.gen != pt.gen {
				log.Debug().
					Str("room_id", s.roomID).
					Stringer("timer", kind).
					Msg("stale timer fired, ignoring")
				return
			}
			delete(s.timers, kind)
			fire()
		case <-pt.stop:
		case <-s.ctx.Done():
			stopAndDrainTimer(pt.timer)
		}
	}(pt)

	log.Debug().
		Str("room_id", s.roomID).
		Stringer("timer", kind).
		Dur("duration", d).
		Msg("scheduled one-shot timer")
}

// cancelTimer cancels and removes an active timer. Caller holds s.mu.
func (s *Session) cancelTimer(kind timerKind) {
	pt, ok := s.timers[kind]
	if !ok {
		return
	}
	stopAndDrainTimer(pt.timer)
	close(pt.stop)
	delete(s.timers, kind)
}

// cancelAllTimers cancels every phase timer. Caller holds s.mu.
func (s *Session) cancelAllTimers() {
	for kind := range s.timers {
		s.cancelTimer(kind)
	}
}

// remaining converts an absolute deadline in unix milliseconds into a wait from now.
func (s *Session) remaining(deadlineMS int64) time.Duration {
	return max(time.Duration(deadlineMS-s.nowMillis())*time.Millisecond, 0)
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
