package game

import (
	"context"
	"maps"
	"sort"
	"unicode/utf8"

	"github.com/mcdev12/jeopardy/go/internal/game/events"
	"github.com/rs/zerolog/log"
)

// Start loads a new game from the catalog, or from custom CSV data when custom
// is set, and replaces the session wholesale. The first round begins once the
// intro sequence finishes.
func (s *Session) Start(ref, filter, custom string) bool {
	if utf8.RuneCountInString(custom) > s.rules.MaxCustomDataLength {
		return s.ignore("start", "", "custom data too large")
	}

	var (
		ep  *Episode
		err error
	)
	if custom != "" {
		ep, err = s.deps.Episodes.Custom(custom)
	} else {
		ep, err = s.deps.Episodes.Episode(ref, filter)
	}
	if err != nil {
		log.Warn().Err(err).
			Str("room_id", s.roomID).
			Str("episode", ref).
			Str("filter", filter).
			Bool("custom", custom != "").
			Msg("failed to load episode")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAllTimers()
	s.state = newSavedState(*ep)
	s.snapshot = nil
	for _, p := range s.deps.Roster.Members(s.roomID) {
		s.state.Public.Scores[p.ID] = 0
	}
	if custom == "" && ref == FinalTestEpisode {
		s.state.Public.Round = RoundDouble
	}
	s.gameGen++
	gen := s.gameGen

	log.Info().
		Str("room_id", s.roomID).
		Str("ep_num", ep.EpNum).
		Str("air_date", ep.AirDate).
		Bool("custom", custom != "").
		Msg("episode loaded")

	s.emit(EventStartIntro, nil)
	s.publish()

	if custom != "" {
		s.incrementCounter("customGames")
	}
	s.incrementCounter("newGames")
	s.publishDomainEvent(events.EventTypeGameStarted, events.GameStartedPayload{
		RoomID:    s.roomID,
		EpNum:     ep.EpNum,
		AirDate:   ep.AirDate,
		Info:      ep.Info,
		Custom:    custom != "",
		StartedAt: s.now(),
	})

	go s.playIntro(gen)
	return true
}

// nextQuestion retires the current cell and moves on, advancing the round
// when the board is empty.
func (s *Session) nextQuestion() {
	pub := &s.state.Public
	q := &pub.QuestionState

	s.deps.Chat.AddChatMessage(s.roomID, ChatMessage{Cmd: "answer", Msg: s.state.Board[q.CurrentQ].Answer})
	s.emitRoster()

	delete(pub.Board, q.CurrentQ)
	s.resetQuestion()
	if len(pub.Board) == 0 {
		s.nextRound()
		return
	}
	s.publish()
	s.emit(EventPlayMakeSelection, nil)
}

// nextRound advances jeopardy, double, final, end. The end round is terminal;
// only a new Start leaves it.
func (s *Session) nextRound() {
	pub := &s.state.Public
	s.resetQuestion()

	switch pub.Round {
	case RoundJeopardy:
		pub.Round = RoundDouble
		if pub.Scoring != ScoringCoryat {
			pub.Picker = s.lowestScorer()
		}
	case RoundDouble:
		pub.Round = RoundFinal
		s.startFinal()
	case RoundFinal:
		pub.Round = RoundEnd
		s.state.Board = make(map[string]Clue)
		pub.Board = make(map[string]PublicCell)
		s.finishGame()
	case RoundEnd:
		s.publish()
		return
	default:
		pub.Round = RoundJeopardy
	}

	if pub.Round == RoundEnd {
		s.publish()
		return
	}

	clues := s.state.Episode.Clues(pub.Round)
	s.state.Board = buildBoard(clues)
	pub.Board = buildPublicBoard(clues)
	if len(pub.Board) == 0 {
		log.Debug().Str("room_id", s.roomID).Str("round", string(pub.Round)).Msg("round has no clues, skipping")
		s.nextRound()
		return
	}

	log.Info().
		Str("room_id", s.roomID).
		Str("round", string(pub.Round)).
		Int("clues", len(pub.Board)).
		Str("picker", pub.Picker).
		Msg("round started")
	s.publish()

	cats := categories(clues)
	s.publishDomainEvent(events.EventTypeRoundStarted, events.RoundStartedPayload{
		RoomID:     s.roomID,
		Round:      string(pub.Round),
		Categories: cats,
		Picker:     pub.Picker,
		StartedAt:  s.now(),
	})
	if pub.Round == RoundJeopardy || pub.Round == RoundDouble {
		go s.announceCategories(s.gameGen, pub.Round, cats)
	}
}

// startFinal opens the final wager window for everyone present and buzzes
// them all in at once, lowest score first, so they are judged in that order.
func (s *Session) startFinal() {
	pub := &s.state.Public
	q := &pub.QuestionState

	members := s.deps.Roster.Members(s.roomID)
	q.WaitingForWager = make(map[string]bool, len(members))
	ids := make([]string, 0, len(members))
	for _, p := range members {
		q.WaitingForWager[p.ID] = true
		ids = append(ids, p.ID)
	}
	q.CurrentQ = FinalQuestionID

	sort.SliceStable(ids, func(i, j int) bool {
		return pub.Scores[ids[i]] < pub.Scores[ids[j]]
	})
	now := s.nowMillis()
	for _, id := range ids {
		s.recordBuzz(id, now)
	}

	s.openWagerWindow(s.rules.FinalWagerWindow)
	s.emit(EventPlayRightAnswer, nil)
}

// finishGame exports the final standings.
func (s *Session) finishGame() {
	pub := &s.state.Public
	standings := s.standings()

	ctx, cancel := context.WithTimeout(s.ctx, s.rules.EventTimeout)
	defer cancel()
	if err := s.deps.Results.RecordResults(ctx, standings); err != nil {
		log.Error().Err(err).Str("room_id", s.roomID).Msg("failed to record results")
	}

	log.Info().
		Str("room_id", s.roomID).
		Int("players", len(standings)).
		Msg("game finished")

	s.publishDomainEvent(events.EventTypeGameEnded, events.GameEndedPayload{
		RoomID:     s.roomID,
		EpNum:      pub.EpNum,
		AirDate:    pub.AirDate,
		Scoring:    string(pub.Scoring),
		NumCorrect: pub.NumCorrect,
		NumTotal:   pub.NumTotal,
		Standings:  standings,
		EndedAt:    s.now(),
	})
}

// standings ranks every scored participant, highest first.
func (s *Session) standings() []events.Standing {
	scores := s.state.Public.Scores
	ids := make([]string, 0, len(scores))
	for id := range maps.Keys(scores) {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	out := make([]events.Standing, 0, len(ids))
	for _, id := range ids {
		out = append(out, events.Standing{
			ParticipantID: id,
			Name:          s.deps.Roster.DisplayName(s.roomID, id),
			Score:         scores[id],
		})
	}
	return out
}

func (s *Session) lowestScorer() string {
	members := s.deps.Roster.Members(s.roomID)
	if len(members) == 0 {
		return ""
	}
	lowest := members[0].ID
	for _, p := range members[1:] {
		if s.state.Public.Scores[p.ID] < s.state.Public.Scores[lowest] {
			lowest = p.ID
		}
	}
	return lowest
}

// emitRoster sends the present participants ordered by score, highest first.
func (s *Session) emitRoster() {
	members := s.deps.Roster.Members(s.roomID)
	scores := s.state.Public.Scores
	sort.SliceStable(members, func(i, j int) bool {
		return scores[members[i].ID] > scores[members[j].ID]
	})
	s.emit(EventRoster, RosterData{Participants: members})
}

func (s *Session) incrementCounter(name string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.rules.EventTimeout)
	defer cancel()
	if err := s.deps.Results.IncrementCounter(ctx, name); err != nil {
		log.Warn().Err(err).Str("counter", name).Msg("failed to increment counter")
	}
}
