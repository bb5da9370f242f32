package game

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// Session is one room's game. Every exported method and every timer callback
// runs under a single mutex, so mutations of a room never interleave.
type Session struct {
	roomID string
	deps   Dependencies
	rules  Rules

	mu       sync.Mutex
	state    *SavedState
	snapshot *SavedState
	timers   map[timerKind]*phaseTimer
	timerGen uint64
	// gameGen changes on every load so an intro from an older load can tell it is stale.
	gameGen uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates an empty session for roomID. The session lives until ctx
// is cancelled or Close is called.
func NewSession(ctx context.Context, roomID string, deps Dependencies, rules Rules) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		roomID: roomID,
		deps:   deps.withDefaults(),
		rules:  rules,
		state:  newSavedState(Episode{}),
		timers: make(map[timerKind]*phaseTimer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RestoreSession rebuilds a session from persisted state. Pending phase timers
// are re-armed with whatever time is left on their stored deadlines.
func RestoreSession(ctx context.Context, roomID string, deps Dependencies, rules Rules, saved SavedState) *Session {
	s := NewSession(ctx, roomID, deps, rules)
	s.mu.Lock()
	defer s.mu.Unlock()

	st := saved.clone()
	st.normalize()
	s.state = st
	if saved.Snapshot != nil {
		snap := saved.Snapshot.clone()
		snap.normalize()
		s.snapshot = snap
	}
	s.rearmTimers()

	log.Info().
		Str("room_id", roomID).
		Str("round", string(st.Public.Round)).
		Str("question", st.Public.CurrentQ).
		Msg("session restored")
	return s
}

func (s *Session) rearmTimers() {
	pub := &s.state.Public
	q := &pub.QuestionState

	if q.QuestionEndTS != 0 {
		s.schedule(answerTimer, s.remaining(q.QuestionEndTS), s.answerWindowExpired)
	}
	if q.PlayClueEndTS != 0 {
		s.schedule(clueTimer, s.remaining(q.PlayClueEndTS), s.playClueDone)
	}
	if q.WagerEndTS != 0 && q.WaitingForWager != nil {
		s.schedule(wagerTimer, s.remaining(q.WagerEndTS), s.wagerWindowExpired)
	}

	// A clue without text has no stored deadline; finish it straight away.
	if q.Phase() == PhasePlayingClue && q.PlayClueEndTS == 0 {
		s.schedule(clueTimer, 0, s.playClueDone)
	}
	// A load whose intro never finished starts its first round now.
	if pub.Round == RoundNone && len(s.state.Episode.Jeopardy)+len(s.state.Episode.Double)+len(s.state.Episode.Final) > 0 {
		s.nextRound()
	}
}

// RoomID returns the room this session belongs to.
func (s *Session) RoomID() string {
	return s.roomID
}

// State returns a copy of the published state.
func (s *Session) State() PublicState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publicView()
}

// Saved returns a copy of the full state for persistence.
func (s *Session) Saved() SavedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state.clone()
	if s.snapshot != nil {
		st.Snapshot = s.snapshot.clone()
	}
	return *st
}

// PrivateWager returns the wager a participant has locked in for the current
// question, which stays hidden from the room until it is resolved.
func (s *Session) PrivateWager(participantID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.state.Wagers[participantID]
	return w, ok
}

// Close stops all timers and any running intro.
func (s *Session) Close() {
	s.mu.Lock()
	s.cancelAllTimers()
	s.mu.Unlock()
	s.cancel()
}

// Join registers a participant's score line and republishes.
func (s *Session) Join(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Public.Scores[participantID]; !ok {
		s.state.Public.Scores[participantID] = 0
	}
	s.publish()
}

// PickQuestion selects a board cell. Only the picker may pick while they are
// present; nobody may pick while a question is active.
func (s *Session) PickQuestion(participantID, cellID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pub := &s.state.Public
	q := &pub.QuestionState
	if pub.Picker != "" && pub.Picker != participantID && s.isPresent(pub.Picker) {
		return s.ignore("pick", participantID, "not the picker")
	}
	if q.CurrentQ != "" {
		return s.ignore("pick", participantID, "question already active")
	}
	cell, ok := pub.Board[cellID]
	if !ok {
		return s.ignore("pick", participantID, "no such cell")
	}

	q.CurrentQ = cellID
	q.CurrentValue = cell.Value

	if s.state.Board[cellID].DailyDouble && pub.Scoring != ScoringCoryat {
		q.CurrentDailyDouble = true
		q.DailyDoublePlayer = participantID
		q.WaitingForWager = map[string]bool{participantID: true}
		s.openWagerWindow(s.rules.DailyDoubleWagerWindow)

		now := s.nowMillis()
		s.recordBuzz(participantID, now)
		for _, p := range s.deps.Roster.Members(s.roomID) {
			if p.ID != participantID {
				q.Submitted[p.ID] = true
			}
		}
		s.emit(EventPlayDailyDouble, nil)
	} else {
		s.revealClueText()
		s.triggerPlayClue()
	}

	log.Info().
		Str("room_id", s.roomID).
		Str("participant_id", participantID).
		Str("question", cellID).
		Bool("daily_double", q.CurrentDailyDouble).
		Msg("question picked")
	s.publish()
	return true
}

// Buzz records the caller's buzz time while buzzing is open, once per question.
func (s *Session) Buzz(participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := &s.state.Public.QuestionState
	if !q.CanBuzz {
		return s.ignore("buzz", participantID, "buzzing closed")
	}
	if _, ok := q.Buzzes[participantID]; ok {
		return s.ignore("buzz", participantID, "already buzzed")
	}
	s.recordBuzz(participantID, s.nowMillis())
	s.publish()
	return true
}

// SubmitAnswer records an answer for the active question while the answer
// window is open. Outside the final round, the clue is revealed as soon as
// every present participant has submitted.
func (s *Session) SubmitAnswer(participantID, questionID, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pub := &s.state.Public
	q := &pub.QuestionState
	if questionID == "" || questionID != q.CurrentQ {
		return s.ignore("answer", participantID, "wrong question")
	}
	if q.QuestionDuration == 0 {
		return s.ignore("answer", participantID, "answer window closed")
	}
	if q.Submitted[participantID] {
		return s.ignore("answer", participantID, "already submitted")
	}
	if utf8.RuneCountInString(text) > s.rules.MaxAnswerLength {
		return s.ignore("answer", participantID, "answer too long")
	}

	if text != "" {
		s.state.Answers[participantID] = text
	}
	q.Submitted[participantID] = true
	log.Debug().
		Str("room_id", s.roomID).
		Str("participant_id", participantID).
		Str("question", questionID).
		Msg("answer submitted")
	s.publish()

	if pub.Round != RoundFinal && s.allPresentIn(q.Submitted) {
		s.reveal()
	}
	return true
}

// SubmitWager records a wager from a participant the engine is waiting on.
// raw is clamped into the round's bounds; non-numeric input becomes the minimum.
func (s *Session) SubmitWager(participantID, raw string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitWager(participantID, raw)
}

func (s *Session) submitWager(participantID, raw string) bool {
	pub := &s.state.Public
	q := &pub.QuestionState
	if q.CurrentQ == "" || !q.WaitingForWager[participantID] {
		return s.ignore("wager", participantID, "no wager expected")
	}
	if _, ok := s.state.Wagers[participantID]; ok {
		return s.ignore("wager", participantID, "wager already recorded")
	}

	lo, hi := WagerBounds(pub.Round, pub.Scores[participantID])
	amount := ClampWager(raw, lo, hi)
	log.Info().
		Str("room_id", s.roomID).
		Str("participant_id", participantID).
		Str("raw", raw).
		Int("wager", amount).
		Msg("wager recorded")

	switch {
	case q.CurrentDailyDouble && participantID == q.DailyDoublePlayer:
		s.state.Wagers[participantID] = amount
		q.Wagers[participantID] = amount
		q.WaitingForWager = nil
		s.revealClueText()
		s.triggerPlayClue()
	case pub.Round == RoundFinal:
		// Final wagers stay private until the answer is revealed.
		s.state.Wagers[participantID] = amount
		delete(q.WaitingForWager, participantID)
		if len(q.WaitingForWager) == 0 {
			q.WaitingForWager = nil
			s.revealClueText()
			s.triggerPlayClue()
		}
	default:
		return false
	}
	s.publish()
	return true
}

// SkipVote flags the caller's wish to move on. The question ends once every
// present participant has voted or judging has already finished.
func (s *Session) SkipVote(participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := &s.state.Public.QuestionState
	if q.CurrentQ == "" {
		return s.ignore("skip", participantID, "no active question")
	}
	q.Skips[participantID] = true
	if q.CanNextQ || s.allPresentIn(q.Skips) {
		s.nextQuestion()
	} else {
		s.publish()
	}
	return true
}

// SetScoring switches the scoring mode. Switching to coryat lifts the picker
// restriction; past scores are untouched.
func (s *Session) SetScoring(mode ScoringMode) bool {
	if !mode.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Public.Scoring = mode
	if mode == ScoringCoryat {
		s.state.Public.Picker = ""
	}
	s.publish()
	return true
}

// Undo restores the state captured when the last question finished judging.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return false
	}
	s.cancelAllTimers()
	s.state = s.snapshot.clone()
	log.Info().
		Str("room_id", s.roomID).
		Str("question", s.state.Public.CurrentQ).
		Msg("restored last snapshot")
	s.publish()
	return true
}

// Reconnect moves everything keyed by oldID over to newID.
func (s *Session) Reconnect(newID, oldID string) bool {
	if oldID == "" || newID == "" || oldID == newID {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pub := &s.state.Public
	q := &pub.QuestionState
	moveKey(pub.Scores, oldID, newID)
	moveKey(s.state.Wagers, oldID, newID)
	moveKey(s.state.Answers, oldID, newID)
	moveKey(q.Wagers, oldID, newID)
	moveKey(q.Answers, oldID, newID)
	moveKey(q.Buzzes, oldID, newID)
	moveKey(q.Submitted, oldID, newID)
	moveKey(q.Skips, oldID, newID)
	moveKey(q.Judges, oldID, newID)
	moveKey(q.WaitingForWager, oldID, newID)
	if i := slices.Index(q.BuzzOrder, oldID); i >= 0 {
		q.BuzzOrder[i] = newID
	}
	if q.DailyDoublePlayer == oldID {
		q.DailyDoublePlayer = newID
	}
	if q.CurrentJudgeAnswer == oldID {
		q.CurrentJudgeAnswer = newID
	}
	if pub.Picker == oldID {
		pub.Picker = newID
	}

	log.Info().
		Str("room_id", s.roomID).
		Str("participant_id", newID).
		Str("previous_id", oldID).
		Msg("participant reconnected")
	s.publish()
	return true
}

// Disconnect unblocks anything waiting on a participant who left: their
// pending manual judgment becomes a skip and a pending wager becomes zero.
func (s *Session) Disconnect(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := &s.state.Public.QuestionState
	if q.CurrentJudgeAnswer == participantID {
		s.applyVerdicts("", []Verdict{{QuestionID: q.CurrentQ, ParticipantID: participantID}})
	}
	if q.WaitingForWager[participantID] {
		s.submitWager(participantID, "0")
	}
}

// CommandIntro asks every viewer to play the client-side intro.
func (s *Session) CommandIntro() {
	s.deps.Out.PublishEvent(s.roomID, Event{Type: EventPlayIntro})
}

// revealClueText copies the prompt of the current cell into the public board.
func (s *Session) revealClueText() {
	q := &s.state.Public.QuestionState
	cell, ok := s.state.Public.Board[q.CurrentQ]
	if !ok {
		return
	}
	cell.Question = s.state.Board[q.CurrentQ].Question
	s.state.Public.Board[q.CurrentQ] = cell
}

func (s *Session) openWagerWindow(d time.Duration) {
	q := &s.state.Public.QuestionState
	q.WagerDuration = d.Milliseconds()
	q.WagerEndTS = s.nowMillis() + q.WagerDuration
	s.schedule(wagerTimer, d, s.wagerWindowExpired)
}

// wagerWindowExpired submits the minimum for everyone still outstanding.
func (s *Session) wagerWindowExpired() {
	q := &s.state.Public.QuestionState
	pending := make([]string, 0, len(q.WaitingForWager))
	for id := range q.WaitingForWager {
		pending = append(pending, id)
	}
	sort.Strings(pending)
	for _, id := range pending {
		s.submitWager(id, "0")
	}

	// Nobody was left to wager; play the clue anyway.
	if q.CurrentQ != "" && q.WaitingForWager != nil {
		q.WaitingForWager = nil
		s.revealClueText()
		s.triggerPlayClue()
		s.publish()
	}
}

// triggerPlayClue reads the clue aloud and schedules the answer window to open
// once the estimated read time has passed.
func (s *Session) triggerPlayClue() {
	s.cancelTimer(wagerTimer)
	q := &s.state.Public.QuestionState
	q.WagerDuration = 0
	q.WagerEndTS = 0

	text := s.state.Public.Board[q.CurrentQ].Question
	var readTime time.Duration
	if text != "" {
		spoken := SpeakableClue(text)
		audio := s.speak(spoken)
		s.emit(EventPlayClue, ClueData{QuestionID: q.CurrentQ, Text: text, Audio: audio})

		readTime = ClueReadTime(spoken, s.rules.SyllablesPerSecond, s.rules.MinClueTime)
		q.PlayClueDuration = readTime.Milliseconds()
		q.PlayClueEndTS = s.nowMillis() + q.PlayClueDuration
		log.Debug().
			Str("room_id", s.roomID).
			Str("question", q.CurrentQ).
			Dur("read_time", readTime).
			Msg("playing clue")
	} else {
		s.emit(EventPlayClue, ClueData{QuestionID: q.CurrentQ})
	}
	s.schedule(clueTimer, readTime, s.playClueDone)
}

// playClueDone opens the answer window. Buzzing only opens for regular clues.
func (s *Session) playClueDone() {
	s.cancelTimer(clueTimer)
	pub := &s.state.Public
	q := &pub.QuestionState
	q.PlayClueDuration = 0
	q.PlayClueEndTS = 0
	q.BuzzUnlockTS = s.nowMillis()

	switch {
	case q.CurrentDailyDouble:
		s.unlockAnswer(s.rules.AnswerWindow)
	case pub.Round == RoundFinal:
		s.unlockAnswer(s.rules.FinalAnswerWindow)
		s.emit(EventPlayFinalJeopardy, nil)
	default:
		q.CanBuzz = true
		s.unlockAnswer(s.rules.AnswerWindow)
	}
	s.publish()
}

func (s *Session) unlockAnswer(d time.Duration) {
	q := &s.state.Public.QuestionState
	q.QuestionDuration = d.Milliseconds()
	q.QuestionEndTS = s.nowMillis() + q.QuestionDuration
	s.schedule(answerTimer, d, s.answerWindowExpired)
}

func (s *Session) answerWindowExpired() {
	if s.state.Public.Round != RoundFinal {
		s.emit(EventPlayTimesUp, nil)
	}
	s.reveal()
}

func (s *Session) recordBuzz(participantID string, at int64) {
	q := &s.state.Public.QuestionState
	if _, ok := q.Buzzes[participantID]; ok {
		return
	}
	q.Buzzes[participantID] = at
	q.BuzzOrder = append(q.BuzzOrder, participantID)
}

// buzzOrder returns the buzzed participants by ascending buzz time, ties kept
// in the order the buzzes were recorded.
func (s *Session) buzzOrder() []string {
	q := &s.state.Public.QuestionState
	order := slices.Clone(q.BuzzOrder)
	sort.SliceStable(order, func(i, j int) bool {
		return q.Buzzes[order[i]] < q.Buzzes[order[j]]
	})
	return order
}

func (s *Session) resetQuestion() {
	s.cancelAllTimers()
	s.state.Answers = make(map[string]string)
	s.state.Wagers = make(map[string]int)
	s.state.Public.QuestionState = newQuestionState()
}

func (s *Session) takeSnapshot() {
	s.snapshot = s.state.clone()
}

func (s *Session) isPresent(participantID string) bool {
	for _, p := range s.deps.Roster.Members(s.roomID) {
		if p.ID == participantID {
			return true
		}
	}
	return false
}

// allPresentIn reports whether every present participant is flagged in set.
func (s *Session) allPresentIn(set map[string]bool) bool {
	for _, p := range s.deps.Roster.Members(s.roomID) {
		if !set[p.ID] {
			return false
		}
	}
	return true
}

func (s *Session) publicView() PublicState {
	view := s.state.Public.clone()
	view.Phase = s.state.Public.QuestionState.Phase()
	return view
}

func (s *Session) publish() {
	s.deps.Out.PublishState(s.roomID, s.publicView())
}

func (s *Session) emit(t EventType, data any) {
	s.deps.Out.PublishEvent(s.roomID, Event{Type: t, Data: data})
}

// speak synthesizes text, returning nil audio when the speech service fails.
func (s *Session) speak(text string) []byte {
	ctx, cancel := context.WithTimeout(s.ctx, s.rules.SpeechTimeout)
	defer cancel()
	audio, err := s.deps.Speaker.Speak(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("room_id", s.roomID).Msg("speech synthesis failed, continuing without audio")
		return nil
	}
	return audio
}

func (s *Session) publishDomainEvent(eventType string, payload any) {
	ctx, cancel := context.WithTimeout(s.ctx, s.rules.EventTimeout)
	defer cancel()
	if err := s.deps.Events.PublishDomainEvent(ctx, s.roomID, eventType, payload); err != nil {
		log.Error().Err(err).
			Str("room_id", s.roomID).
			Str("event_type", eventType).
			Msg("failed to publish domain event")
	}
}

func (s *Session) nowMillis() int64 {
	return s.deps.Clock.Now().UnixMilli()
}

func (s *Session) now() time.Time {
	return s.deps.Clock.Now().UTC()
}

func (s *Session) ignore(intent, participantID, reason string) bool {
	log.Debug().
		Str("room_id", s.roomID).
		Str("participant_id", participantID).
		Str("intent", intent).
		Str("reason", reason).
		Msg("ignoring intent")
	return false
}

func moveKey[V any](m map[string]V, from, to string) {
	if m == nil {
		return
	}
	if v, ok := m[from]; ok {
		m[to] = v
		delete(m, from)
	}
}
