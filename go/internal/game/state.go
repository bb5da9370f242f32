package game

import (
	"maps"
	"slices"
)

// QuestionState is the per-question working state. It is replaced wholesale
// whenever a question resolves or a round starts.
type QuestionState struct {
	CurrentQ           string `json:"current_q"`
	CurrentAnswer      string `json:"current_answer,omitempty"`
	CurrentValue       int    `json:"current_value"`
	CurrentDailyDouble bool   `json:"current_daily_double"`
	DailyDoublePlayer  string `json:"daily_double_player,omitempty"`

	// WaitingForWager is nil outside a wager phase. An empty, non-nil map means
	// the wager window is open with nobody left to wager.
	WaitingForWager map[string]bool `json:"waiting_for_wager"`

	// Durations in milliseconds, deadlines in unix milliseconds. Zero means unset.
	PlayClueDuration int64 `json:"play_clue_duration"`
	PlayClueEndTS    int64 `json:"play_clue_end_ts"`
	QuestionDuration int64 `json:"question_duration"`
	QuestionEndTS    int64 `json:"question_end_ts"`
	WagerDuration    int64 `json:"wager_duration"`
	WagerEndTS       int64 `json:"wager_end_ts"`
	BuzzUnlockTS     int64 `json:"buzz_unlock_ts"`

	Buzzes    map[string]int64  `json:"buzzes"`
	BuzzOrder []string          `json:"buzz_order"`
	Answers   map[string]string `json:"answers"`
	Submitted map[string]bool   `json:"submitted"`
	Skips     map[string]bool   `json:"skips"`
	Judges    map[string]*bool  `json:"judges"`
	Wagers    map[string]int    `json:"wagers"`

	ManualJudging      bool   `json:"manual_judging"`
	JudgeIndex         int    `json:"judge_index"`
	CurrentJudgeAnswer string `json:"current_judge_answer,omitempty"`

	CanBuzz    bool `json:"can_buzz"`
	CanNextQ   bool `json:"can_next_q"`
	Revealed   bool `json:"revealed"`
	HasCorrect bool `json:"has_correct"`
}

func newQuestionState() QuestionState {
	return QuestionState{
		Buzzes:    make(map[string]int64),
		Answers:   make(map[string]string),
		Submitted: make(map[string]bool),
		Skips:     make(map[string]bool),
		Judges:    make(map[string]*bool),
		Wagers:    make(map[string]int),
	}
}

// Phase derives the stage of the question from its fields.
func (q *QuestionState) Phase() Phase {
	switch {
	case q.CurrentQ == "":
		return PhaseIdle
	case q.WaitingForWager != nil:
		return PhaseAwaitingWager
	case q.CanNextQ:
		return PhaseResolved
	case q.Revealed:
		return PhaseJudging
	case q.QuestionDuration > 0:
		return PhaseAwaitingAnswers
	}
	return PhasePlayingClue
}

func (q QuestionState) clone() QuestionState {
	q.WaitingForWager = maps.Clone(q.WaitingForWager)
	q.Buzzes = maps.Clone(q.Buzzes)
	q.BuzzOrder = slices.Clone(q.BuzzOrder)
	q.Answers = maps.Clone(q.Answers)
	q.Submitted = maps.Clone(q.Submitted)
	q.Skips = maps.Clone(q.Skips)
	q.Wagers = maps.Clone(q.Wagers)
	judges := make(map[string]*bool, len(q.Judges))
	for id, v := range q.Judges {
		judges[id] = cloneVerdict(v)
	}
	q.Judges = judges
	return q
}

// PublicState is everything viewers may see. It never carries a prompt or
// reference answer for a clue that has not been revealed.
type PublicState struct {
	EpNum      string                `json:"ep_num,omitempty"`
	AirDate    string                `json:"air_date,omitempty"`
	Info       string                `json:"info,omitempty"`
	Scoring    ScoringMode           `json:"scoring"`
	NumCorrect int                   `json:"num_correct"`
	NumTotal   int                   `json:"num_total"`
	Board      map[string]PublicCell `json:"board"`
	Scores     map[string]int        `json:"scores"`
	Round      Round                 `json:"round"`
	Picker     string                `json:"picker,omitempty"`
	Phase      Phase                 `json:"phase"`

	QuestionState
}

func (p PublicState) clone() PublicState {
	p.Board = maps.Clone(p.Board)
	p.Scores = maps.Clone(p.Scores)
	p.QuestionState = p.QuestionState.clone()
	return p
}

// SavedState is the full session: private board, answers and wagers plus the
// public view. It is the unit of persistence and of undo snapshots.
type SavedState struct {
	Episode Episode           `json:"episode"`
	Board   map[string]Clue   `json:"board"`
	Answers map[string]string `json:"answers"`
	Wagers  map[string]int    `json:"wagers"`
	Public  PublicState       `json:"public"`

	// Snapshot is the undo point, set only on persisted copies.
	Snapshot *SavedState `json:"snapshot,omitempty"`
}

func newSavedState(ep Episode) *SavedState {
	return &SavedState{
		Episode: ep,
		Board:   make(map[string]Clue),
		Answers: make(map[string]string),
		Wagers:  make(map[string]int),
		Public: PublicState{
			EpNum:         ep.EpNum,
			AirDate:       ep.AirDate,
			Info:          ep.Info,
			Scoring:       ScoringStandard,
			Board:         make(map[string]PublicCell),
			Scores:        make(map[string]int),
			Round:         RoundNone,
			QuestionState: newQuestionState(),
		},
	}
}

func (s *SavedState) clone() *SavedState {
	return &SavedState{
		Episode: s.Episode,
		Board:   maps.Clone(s.Board),
		Answers: maps.Clone(s.Answers),
		Wagers:  maps.Clone(s.Wagers),
		Public:  s.Public.clone(),
	}
}

// normalize fills maps left nil by decoding.
func (s *SavedState) normalize() {
	if s.Board == nil {
		s.Board = make(map[string]Clue)
	}
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	if s.Wagers == nil {
		s.Wagers = make(map[string]int)
	}
	p := &s.Public
	if p.Scoring == "" {
		p.Scoring = ScoringStandard
	}
	if p.Board == nil {
		p.Board = make(map[string]PublicCell)
	}
	if p.Scores == nil {
		p.Scores = make(map[string]int)
	}
	q := &p.QuestionState
	if q.Buzzes == nil {
		q.Buzzes = make(map[string]int64)
	}
	if q.Answers == nil {
		q.Answers = make(map[string]string)
	}
	if q.Submitted == nil {
		q.Submitted = make(map[string]bool)
	}
	if q.Skips == nil {
		q.Skips = make(map[string]bool)
	}
	if q.Judges == nil {
		q.Judges = make(map[string]*bool)
	}
	if q.Wagers == nil {
		q.Wagers = make(map[string]int)
	}
}

func cloneVerdict(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
