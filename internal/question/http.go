package question

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"quizchase/internal/game"
)

// HTTPSource fetches questions from the external generation pipeline over
// HTTP. The endpoint must answer GET with a JSON body of the shape
// {"question": string, "options": [3]string, "correct": 0|1|2}.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource builds a source against the given endpoint. A nil client
// falls back to http.DefaultClient; per-request deadlines come from the
// caller's context.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{url: url, client: client}
}

// NextQuestion requests one question from the pipeline.
func (s *HTTPSource) NextQuestion(ctx context.Context) (game.Question, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return game.Question{}, fmt.Errorf("build question request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return game.Question{}, fmt.Errorf("fetch question: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return game.Question{}, fmt.Errorf("question source returned status %d", resp.StatusCode)
	}

	var q game.Question
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return game.Question{}, fmt.Errorf("decode question: %w", err)
	}
	if !q.Valid() {
		return game.Question{}, fmt.Errorf("question source returned malformed question")
	}
	return q, nil
}
