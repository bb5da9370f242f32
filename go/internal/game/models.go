package game

// Round defines which board is in play.
type Round string

const (
	RoundNone     Round = ""
	RoundJeopardy Round = "jeopardy"
	RoundDouble   Round = "double"
	RoundFinal    Round = "final"
	RoundEnd      Round = "end"
)

// ScoringMode defines how verdicts affect scores.
type ScoringMode string

const (
	ScoringStandard ScoringMode = "standard"
	ScoringCoryat   ScoringMode = "coryat"
	ScoringCoop     ScoringMode = "coop"
)

// Valid reports whether m is a known scoring mode.
func (m ScoringMode) Valid() bool {
	switch m {
	case ScoringStandard, ScoringCoryat, ScoringCoop:
		return true
	}
	return false
}

// Phase is the per-question stage derived from the question state.
type Phase string

const (
	PhaseIdle            Phase = "IDLE"
	PhaseAwaitingWager   Phase = "AWAITING_WAGER"
	PhasePlayingClue     Phase = "PLAYING_CLUE"
	PhaseAwaitingAnswers Phase = "AWAITING_ANSWERS"
	PhaseJudging         Phase = "JUDGING"
	PhaseResolved        Phase = "RESOLVED"
)

// Episode reference values with special loading behavior.
const (
	DailyDoubleTestEpisode = "ddtest"
	FinalTestEpisode       = "finaltest"
)

// Clue is one board cell as stored in the episode catalog.
type Clue struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Question    string `json:"q"`
	Answer      string `json:"a"`
	Category    string `json:"cat"`
	DailyDouble bool   `json:"dd"`
	Value       int    `json:"val"`
}

// Episode is a full game: three boards plus catalog metadata.
type Episode struct {
	EpNum    string `json:"epNum"`
	AirDate  string `json:"airDate"`
	Info     string `json:"info,omitempty"`
	Jeopardy []Clue `json:"jeopardy"`
	Double   []Clue `json:"double"`
	Final    []Clue `json:"final"`
}

// Clues returns the clue list for a playable round.
func (e Episode) Clues(r Round) []Clue {
	switch r {
	case RoundJeopardy:
		return e.Jeopardy
	case RoundDouble:
		return e.Double
	case RoundFinal:
		return e.Final
	}
	return nil
}

// Participant is a present room member.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Verdict is a manual judgment. A nil Correct skips the participant without scoring.
type Verdict struct {
	QuestionID    string `json:"currentQ"`
	ParticipantID string `json:"id"`
	Correct       *bool  `json:"correct"`
}

// ChatMessage is a game-log entry handed to the room's chat.
type ChatMessage struct {
	ID  string `json:"id"`
	Cmd string `json:"cmd"`
	Msg string `json:"msg"`
}

// EventType names a one-shot cue sent to viewers alongside state updates.
type EventType string

const (
	EventPlayClue          EventType = "playClue"
	EventPlayCategories    EventType = "playCategories"
	EventPlayResponse      EventType = "playResponsePhrase"
	EventPlayTimesUp       EventType = "playTimesUp"
	EventPlayDailyDouble   EventType = "playDailyDouble"
	EventPlayFinalJeopardy EventType = "playFinalJeopardy"
	EventPlayRightAnswer   EventType = "playRightanswer"
	EventPlayMakeSelection EventType = "playMakeSelection"
	EventStartIntro        EventType = "startIntro"
	EventPlayIntro         EventType = "playIntro"
	EventPlayIntroPhrase   EventType = "playIntroPhrase"
	EventShowContestant    EventType = "showContestant"
	EventIntroComplete     EventType = "introComplete"
	EventRoster            EventType = "roster"
)

// Event is a cue with an optional payload.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// ClueData accompanies EventPlayClue.
type ClueData struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	Audio      []byte `json:"audio,omitempty"`
}

// SpeechData accompanies spoken cues. Audio is empty when synthesis failed.
type SpeechData struct {
	Text  string `json:"text"`
	Audio []byte `json:"audio,omitempty"`
}

// ContestantData accompanies EventShowContestant.
type ContestantData struct {
	ParticipantID string `json:"participant_id"`
}

// RosterData accompanies EventRoster.
type RosterData struct {
	Participants []Participant `json:"participants"`
}
