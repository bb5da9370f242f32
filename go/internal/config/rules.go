package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/mcdev12/jeopardy/go/internal/game"
	"gopkg.in/yaml.v3"
)

// Rules is the YAML rules file. Omitted keys keep their defaults.
type Rules struct {
	DailyDoubleWagerWindow time.Duration `yaml:"daily_double_wager_window"`
	FinalWagerWindow       time.Duration `yaml:"final_wager_window"`
	AnswerWindow           time.Duration `yaml:"answer_window"`
	FinalAnswerWindow      time.Duration `yaml:"final_answer_window"`
	SyllablesPerSecond     float64       `yaml:"syllables_per_second"`
	MinClueTime            time.Duration `yaml:"min_clue_time"`
	MaxAnswerLength        int           `yaml:"max_answer_length"`
	MaxCustomDataLength    int           `yaml:"max_custom_data_length"`
	JudgeTimeout           time.Duration `yaml:"judge_timeout"`
	SpeechTimeout          time.Duration `yaml:"speech_timeout"`
	EventTimeout           time.Duration `yaml:"event_timeout"`
	IntroPhrasePause       time.Duration `yaml:"intro_phrase_pause"`
	ContestantPause        time.Duration `yaml:"contestant_pause"`
	HostPause              time.Duration `yaml:"host_pause"`
	AutoJudge              bool          `yaml:"auto_judge"`

	JudgeModel  string `yaml:"judge_model"`
	SpeechModel string `yaml:"speech_model"`
	SpeechVoice string `yaml:"speech_voice"`
}

// DefaultRules mirrors game.DefaultRules plus the model settings.
func DefaultRules() Rules {
	g := game.DefaultRules()
	return Rules{
		DailyDoubleWagerWindow: g.DailyDoubleWagerWindow,
		FinalWagerWindow:       g.FinalWagerWindow,
		AnswerWindow:           g.AnswerWindow,
		FinalAnswerWindow:      g.FinalAnswerWindow,
		SyllablesPerSecond:     g.SyllablesPerSecond,
		MinClueTime:            g.MinClueTime,
		MaxAnswerLength:        g.MaxAnswerLength,
		MaxCustomDataLength:    g.MaxCustomDataLength,
		JudgeTimeout:           g.JudgeTimeout,
		SpeechTimeout:          g.SpeechTimeout,
		EventTimeout:           g.EventTimeout,
		IntroPhrasePause:       g.IntroPhrasePause,
		ContestantPause:        g.ContestantPause,
		HostPause:              g.HostPause,
		AutoJudge:              g.AutoJudge,
		JudgeModel:             "gpt-4",
		SpeechModel:            "tts-1",
		SpeechVoice:            "onyx",
	}
}

// LoadRules reads a YAML rules file over the defaults. An empty path or a
// missing file yields the defaults.
func LoadRules(path string) (Rules, error) {
	r := DefaultRules()
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

// Validate rejects values the engine cannot run with.
func (r Rules) Validate() error {
	switch {
	case r.SyllablesPerSecond <= 0:
		return errors.New("syllables_per_second must be positive")
	case r.AnswerWindow <= 0 || r.FinalAnswerWindow <= 0:
		return errors.New("answer windows must be positive")
	case r.DailyDoubleWagerWindow <= 0 || r.FinalWagerWindow <= 0:
		return errors.New("wager windows must be positive")
	case r.MaxAnswerLength <= 0:
		return errors.New("max_answer_length must be positive")
	}
	return nil
}

// Game returns the engine rules.
func (r Rules) Game() game.Rules {
	return game.Rules{
		DailyDoubleWagerWindow: r.DailyDoubleWagerWindow,
		FinalWagerWindow:       r.FinalWagerWindow,
		AnswerWindow:           r.AnswerWindow,
		FinalAnswerWindow:      r.FinalAnswerWindow,
		SyllablesPerSecond:     r.SyllablesPerSecond,
		MinClueTime:            r.MinClueTime,
		MaxAnswerLength:        r.MaxAnswerLength,
		MaxCustomDataLength:    r.MaxCustomDataLength,
		JudgeTimeout:           r.JudgeTimeout,
		SpeechTimeout:          r.SpeechTimeout,
		EventTimeout:           r.EventTimeout,
		IntroPhrasePause:       r.IntroPhrasePause,
		ContestantPause:        r.ContestantPause,
		HostPause:              r.HostPause,
		AutoJudge:              r.AutoJudge,
	}
}
