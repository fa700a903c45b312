// Package question provides QuestionSource implementations for the duel
// engine. The generation pipeline itself lives outside this server; these
// sources only satisfy its contract.
package question

import (
	"context"
	"sync"

	"quizchase/internal/game"
)

// StaticSource cycles through a fixed set of questions. It is the default
// source when no external pipeline is configured and doubles as the test
// source.
type StaticSource struct {
	mu        sync.Mutex
	questions []game.Question
	next      int
}

// NewStaticSource builds a source over the given questions, or over the
// built-in set when none are given.
func NewStaticSource(questions ...game.Question) *StaticSource {
	if len(questions) == 0 {
		questions = builtinQuestions()
	}
	return &StaticSource{questions: questions}
}

// NextQuestion returns the next question in rotation.
func (s *StaticSource) NextQuestion(ctx context.Context) (game.Question, error) {
	if err := ctx.Err(); err != nil {
		return game.Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.questions[s.next%len(s.questions)]
	s.next++
	return q, nil
}

func builtinQuestions() []game.Question {
	return []game.Question{
		{
			Text:    "Which ocean is the deepest?",
			Options: []string{"Atlantic", "Indian", "Pacific"},
			Correct: 2,
		},
		{
			Text:    "What is the chemical symbol for gold?",
			Options: []string{"Au", "Ag", "Gd"},
			Correct: 0,
		},
		{
			Text:    "Which country has the most time zones?",
			Options: []string{"Russia", "France", "USA"},
			Correct: 1,
		},
		{
			Text:    "How many hearts does an octopus have?",
			Options: []string{"One", "Two", "Three"},
			Correct: 2,
		},
		{
			Text:    "In which year did the Berlin Wall fall?",
			Options: []string{"1987", "1989", "1991"},
			Correct: 1,
		},
		{
			Text:    "Which instrument has 47 strings?",
			Options: []string{"Harp", "Piano", "Sitar"},
			Correct: 0,
		},
	}
}
