package game

import "time"

// Rules holds the tunable timing and limits of a session.
type Rules struct {
	DailyDoubleWagerWindow time.Duration
	FinalWagerWindow       time.Duration
	AnswerWindow           time.Duration
	FinalAnswerWindow      time.Duration
	SyllablesPerSecond     float64
	MinClueTime            time.Duration
	MaxAnswerLength        int
	MaxCustomDataLength    int
	JudgeTimeout           time.Duration
	SpeechTimeout          time.Duration
	EventTimeout           time.Duration
	IntroPhrasePause       time.Duration
	ContestantPause        time.Duration
	HostPause              time.Duration
	// AutoJudge runs the judging service over every answer at reveal. When off,
	// reveal opens the manual judging cursor instead.
	AutoJudge bool
}

// DefaultRules returns the standard game timing.
func DefaultRules() Rules {
	return Rules{
		DailyDoubleWagerWindow: 15 * time.Second,
		FinalWagerWindow:       30 * time.Second,
		AnswerWindow:           15 * time.Second,
		FinalAnswerWindow:      30 * time.Second,
		SyllablesPerSecond:     4,
		MinClueTime:            time.Second,
		MaxAnswerLength:        1024,
		MaxCustomDataLength:    1_000_000,
		JudgeTimeout:           10 * time.Second,
		SpeechTimeout:          10 * time.Second,
		EventTimeout:           2 * time.Second,
		IntroPhrasePause:       2 * time.Second,
		ContestantPause:        3 * time.Second,
		HostPause:              3 * time.Second,
		AutoJudge:              true,
	}
}
