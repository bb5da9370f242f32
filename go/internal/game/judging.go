package game

import (
	"context"
	"encoding/json"
	"maps"
	"sort"
	"strings"

	"github.com/mcdev12/jeopardy/go/internal/game/events"
	"github.com/rs/zerolog/log"
)

// Judge applies a manual verdict. It is accepted only while the judging
// cursor is active, for the current question, and for a buzzed participant
// who has not been judged yet.
func (s *Session) Judge(judgerID string, v Verdict) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyVerdicts(judgerID, []Verdict{v}) == 1
}

// BulkJudge applies verdicts in the given order and reports how many were
// accepted. Viewers see one state update for the whole batch.
func (s *Session) BulkJudge(judgerID string, verdicts []Verdict) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyVerdicts(judgerID, verdicts)
}

func (s *Session) applyVerdicts(judgerID string, verdicts []Verdict) int {
	applied := 0
	for _, v := range verdicts {
		if s.judge(judgerID, v) {
			applied++
		}
	}
	// A finished question has already been published by finishJudging.
	if applied > 0 && s.state.Public.QuestionState.CurrentJudgeAnswer != "" {
		s.publish()
	}
	return applied
}

// reveal closes the answer window, publishes every answer and the reference
// answer, then judges automatically or opens the manual judging cursor.
func (s *Session) reveal() {
	pub := &s.state.Public
	q := &pub.QuestionState
	if q.CurrentQ == "" || q.Revealed {
		return
	}
	s.cancelTimer(answerTimer)

	pub.NumTotal++
	q.Revealed = true
	q.QuestionDuration = 0
	q.QuestionEndTS = 0
	q.CanBuzz = false

	for id := range q.Buzzes {
		if _, ok := s.state.Answers[id]; !ok {
			s.state.Answers[id] = ""
		}
	}
	q.Answers = maps.Clone(s.state.Answers)
	q.CurrentAnswer = s.state.Board[q.CurrentQ].Answer

	log.Info().
		Str("room_id", s.roomID).
		Str("question", q.CurrentQ).
		Int("answers", len(q.Answers)).
		Msg("revealing answer")

	if s.rules.AutoJudge && s.deps.Judge != nil {
		s.autoJudge()
		return
	}

	q.ManualJudging = true
	s.advanceJudging()
	if q.CurrentJudgeAnswer == "" {
		s.finishJudging(false)
		return
	}
	s.publish()
}

// autoJudge runs every answer through the judging service one at a time, in
// buzz order. The order decides who counts as first correct, so the calls are
// never made concurrently.
func (s *Session) autoJudge() {
	pub := &s.state.Public
	q := &pub.QuestionState
	multi := s.multiCorrect()
	reference := strings.ToLower(q.CurrentAnswer)

	for i, id := range s.judgingOrder() {
		answer := s.state.Answers[id]
		correct := s.judgeAnswer(strings.ToLower(answer), reference)
		q.Judges[id] = &correct
		s.score(id, correct, multi)

		if i == 0 {
			s.playResponsePhrase(correct)
		}
		log.Info().
			Str("room_id", s.roomID).
			Str("participant_id", id).
			Bool("correct", correct).
			Int("score", pub.Scores[id]).
			Msg("answer judged")
	}

	maps.Copy(q.Wagers, s.state.Wagers)
	s.finishJudging(q.HasCorrect && !multi)
}

// judgingOrder lists buzzed participants by buzz time, then anyone who
// answered without buzzing, by id.
func (s *Session) judgingOrder() []string {
	q := &s.state.Public.QuestionState
	order := s.buzzOrder()
	var rest []string
	for id := range s.state.Answers {
		if _, buzzed := q.Buzzes[id]; !buzzed {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// judgeAnswer asks the judging service for a verdict. Any failure counts as incorrect.
func (s *Session) judgeAnswer(candidate, reference string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.rules.JudgeTimeout)
	defer cancel()

	correct, err := s.deps.Judge.JudgeAnswer(ctx, candidate, reference)
	if err != nil {
		log.Warn().Err(err).
			Str("room_id", s.roomID).
			Msg("judging service failed, treating answer as incorrect")
		return false
	}
	return correct
}

func (s *Session) judge(judgerID string, v Verdict) bool {
	pub := &s.state.Public
	q := &pub.QuestionState
	id := v.ParticipantID

	if q.CurrentQ == "" || v.QuestionID != q.CurrentQ {
		return s.ignore("judge", id, "wrong question")
	}
	if q.CurrentJudgeAnswer == "" {
		return s.ignore("judge", id, "not judging")
	}
	if _, judged := q.Judges[id]; judged {
		return s.ignore("judge", id, "already judged")
	}
	if _, buzzed := q.Buzzes[id]; !buzzed {
		return s.ignore("judge", id, "did not buzz")
	}

	multi := s.multiCorrect()
	q.Judges[id] = cloneVerdict(v.Correct)
	if v.Correct != nil {
		s.score(id, *v.Correct, multi)
		s.logJudgement(judgerID, id, *v.Correct)
	}
	log.Info().
		Str("room_id", s.roomID).
		Str("participant_id", id).
		Str("judged_by", judgerID).
		Interface("correct", v.Correct).
		Msg("manual verdict recorded")

	s.advanceJudging()
	if (!multi && v.Correct != nil && *v.Correct) || q.CurrentJudgeAnswer == "" {
		s.finishJudging(true)
	}
	return true
}

// advanceJudging moves the cursor forward to the next buzzed participant who
// is still present and not yet judged, publishing their answer and wager. The
// cursor clears when nobody is left.
func (s *Session) advanceJudging() {
	q := &s.state.Public.QuestionState
	order := s.buzzOrder()
	for ; q.JudgeIndex < len(order); q.JudgeIndex++ {
		id := order[q.JudgeIndex]
		if _, judged := q.Judges[id]; judged {
			continue
		}
		if !s.isPresent(id) {
			log.Debug().Str("room_id", s.roomID).Str("participant_id", id).Msg("buzzer left, skipping")
			continue
		}
		q.CurrentJudgeAnswer = id
		q.Answers[id] = s.state.Answers[id]
		if w, ok := s.state.Wagers[id]; ok {
			q.Wagers[id] = w
		}
		return
	}
	q.CurrentJudgeAnswer = ""
}

// score applies a verdict. Outside final and coryat only verdicts up to the
// first correct answer change scores.
func (s *Session) score(participantID string, correct, multi bool) {
	pub := &s.state.Public
	q := &pub.QuestionState
	counts := multi || !q.HasCorrect

	if correct {
		pub.NumCorrect++
		if counts {
			s.applyScore(participantID, 1)
		}
		if !q.HasCorrect && pub.Scoring != ScoringCoryat {
			pub.Picker = participantID
		}
		q.HasCorrect = true
		return
	}
	if counts {
		s.applyScore(participantID, -1)
	}
}

func (s *Session) applyScore(participantID string, sign int) {
	pub := &s.state.Public
	if pub.Scoring == ScoringCoop {
		return
	}
	delta := pub.CurrentValue
	if w, ok := s.state.Wagers[participantID]; ok {
		delta = w
	}
	pub.Scores[participantID] += sign * delta
}

func (s *Session) multiCorrect() bool {
	return s.state.Public.Round == RoundFinal || s.state.Public.Scoring == ScoringCoryat
}

// finishJudging marks the question resolved and captures the undo snapshot.
// When advancing, the next question or round publishes in its place.
func (s *Session) finishJudging(advance bool) {
	pub := &s.state.Public
	q := &pub.QuestionState
	q.CanNextQ = true
	q.CurrentJudgeAnswer = ""
	s.takeSnapshot()
	if !advance {
		s.publish()
	}

	verdicts := make(map[string]*bool, len(q.Judges))
	for id, v := range q.Judges {
		verdicts[id] = cloneVerdict(v)
	}
	s.publishDomainEvent(events.EventTypeQuestionResolved, events.QuestionResolvedPayload{
		RoomID:      s.roomID,
		Round:       string(pub.Round),
		QuestionID:  q.CurrentQ,
		Answer:      q.CurrentAnswer,
		Value:       q.CurrentValue,
		DailyDouble: q.CurrentDailyDouble,
		Verdicts:    verdicts,
		Scores:      maps.Clone(pub.Scores),
		ResolvedAt:  s.now(),
	})

	if advance {
		s.nextQuestion()
	}
}

func (s *Session) playResponsePhrase(correct bool) {
	phrases := incorrectPhrases
	if correct {
		phrases = correctPhrases
	}
	phrase := phrases[s.deps.Intn(len(phrases))]
	s.emit(EventPlayResponse, SpeechData{Text: phrase, Audio: s.speak(phrase)})
}

// logJudgement writes the manual verdict to the room log and records correct
// verdicts whose answer differs from the reference.
func (s *Session) logJudgement(judgerID, participantID string, correct bool) {
	q := &s.state.Public.QuestionState
	submitted := s.state.Answers[participantID]

	if judgerID != "" {
		msg, err := json.Marshal(struct {
			ID      string `json:"id"`
			Answer  string `json:"answer"`
			Correct bool   `json:"correct"`
		}{participantID, submitted, correct})
		if err == nil {
			s.deps.Chat.AddChatMessage(s.roomID, ChatMessage{ID: judgerID, Cmd: "judge", Msg: string(msg)})
		}
	}

	if correct && strings.ToLower(q.CurrentAnswer) != strings.ToLower(submitted) {
		ctx, cancel := context.WithTimeout(s.ctx, s.rules.EventTimeout)
		defer cancel()
		if err := s.deps.Results.RecordJudgement(ctx, q.CurrentAnswer, submitted); err != nil {
			log.Warn().Err(err).Str("room_id", s.roomID).Msg("failed to record judgement")
		}
	}
}
