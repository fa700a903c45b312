package game

import "context"

// OptionCount is the number of answer options every question carries.
const OptionCount = 3

// Question is opaque to the engine beyond its shape: three options and
// the index of the correct one.
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
}

// Valid reports whether the question satisfies the collaborator contract.
func (q Question) Valid() bool {
	return q.Text != "" && len(q.Options) == OptionCount && q.Correct >= 0 && q.Correct < OptionCount
}

// QuestionView is the client-facing shape of a question. The correct
// index is withheld until round_results.
type QuestionView struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

func (q Question) view() QuestionView {
	return QuestionView{Text: q.Text, Options: q.Options}
}

// QuestionSource supplies the next question on demand. Implementations
// live outside the engine; failures and timeouts are recovered locally
// with FallbackQuestion.
type QuestionSource interface {
	NextQuestion(ctx context.Context) (Question, error)
}

// FallbackQuestion is substituted when the question source fails or does
// not respond within the fetch timeout.
func FallbackQuestion() Question {
	return Question{
		Text:    "Which planet in the solar system has the shortest day?",
		Options: []string{"Mercury", "Jupiter", "Neptune"},
		Correct: 1,
	}
}
