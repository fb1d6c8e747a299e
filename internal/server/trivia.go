package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/dr-harper/spotify-quiz-sub000/internal/config"
	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
	"github.com/dr-harper/spotify-quiz-sub000/internal/store"
)

type GeneratedQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// TriviaGenerator produces the mid-game quiz questions. The AI call is an
// external collaborator: only the data it returns matters to scoring.
type TriviaGenerator interface {
	Generate(ctx context.Context, subs []db.Submission, count int) ([]GeneratedQuestion, error)
}

func newTriviaGenerator(cfg config.Config) TriviaGenerator {
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		return &openAITriviaGenerator{cfg: cfg}
	}
	return &trackTriviaGenerator{}
}

// ensureTrivia materializes trivia questions for a room exactly once; a
// second call (or a losing concurrent caller) finds the existing rows and
// defers to them. The generating flag plays the same role as the creating
// flag in createRounds, and a duplicate insert from another process also
// resolves to the winner's rows.
func (s *Server) ensureTrivia(room *db.Room) error {
	s.triviaMu.Lock()
	if s.generating[room.ID] {
		s.triviaMu.Unlock()
		return s.waitForTrivia(room.ID)
	}
	s.generating[room.ID] = true
	s.triviaMu.Unlock()
	defer func() {
		s.triviaMu.Lock()
		delete(s.generating, room.ID)
		s.triviaMu.Unlock()
	}()

	existing, err := s.gateway.TriviaQuestions(room.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	subs, err := s.gateway.Submissions(room.ID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()
	generated, err := s.trivia.Generate(ctx, subs, s.cfg.TriviaQuestionCount)
	if err != nil || len(generated) == 0 {
		// Trivia is a bonus stage; fall back rather than blocking the game.
		generated, err = (&trackTriviaGenerator{}).Generate(ctx, subs, s.cfg.TriviaQuestionCount)
		if err != nil {
			return err
		}
	}
	questions := make([]db.TriviaQuestion, 0, len(generated))
	for i, question := range generated {
		options, correct := shuffleOptions(question.Options, question.CorrectIndex)
		data, err := json.Marshal(options)
		if err != nil {
			continue
		}
		questions = append(questions, db.TriviaQuestion{
			RoomID:       room.ID,
			Position:     i + 1,
			Question:     question.Question,
			Options:      data,
			CorrectIndex: correct,
			Explanation:  question.Explanation,
		})
	}
	if len(questions) == 0 {
		return errors.New("no usable trivia questions")
	}
	if err := s.gateway.CreateTriviaQuestions(questions); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return s.waitForTrivia(room.ID)
		}
		return err
	}
	return nil
}

// waitForTrivia polls with bounded backoff until another creator's question
// set is visible.
func (s *Server) waitForTrivia(roomID uint) error {
	delay := 50 * time.Millisecond
	for attempt := 0; attempt < 12; attempt++ {
		questions, err := s.gateway.TriviaQuestions(roomID)
		if err == nil && len(questions) > 0 {
			return nil
		}
		time.Sleep(delay)
		if delay < 400*time.Millisecond {
			delay *= 2
		}
	}
	return errors.New("trivia questions were not created in time")
}

// shuffleOptions randomizes display order while keeping the stored correct
// index pointing at the same option text.
func shuffleOptions(options []string, correct int) ([]string, int) {
	if correct < 0 || correct >= len(options) {
		return options, 0
	}
	shuffled := make([]string, len(options))
	copy(shuffled, options)
	answer := shuffled[correct]
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for i, option := range shuffled {
		if option == answer {
			return shuffled, i
		}
	}
	return options, correct
}

// sanitizeQuestions drops generated entries the game cannot use.
func sanitizeQuestions(questions []GeneratedQuestion) []GeneratedQuestion {
	out := make([]GeneratedQuestion, 0, len(questions))
	for _, question := range questions {
		question.Question = strings.TrimSpace(question.Question)
		if question.Question == "" {
			continue
		}
		if len(question.Options) < 2 || len(question.Options) > 6 {
			continue
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			continue
		}
		out = append(out, question)
	}
	return out
}

// trackTriviaGenerator builds artist-recognition questions from the
// submitted tracks themselves, used when no OpenAI key is configured or
// the API call fails.
type trackTriviaGenerator struct{}

func (g *trackTriviaGenerator) Generate(_ context.Context, subs []db.Submission, count int) ([]GeneratedQuestion, error) {
	artists := make([]string, 0, len(subs))
	seen := make(map[string]bool)
	for _, sub := range subs {
		if sub.Artist == "" || seen[sub.Artist] {
			continue
		}
		seen[sub.Artist] = true
		artists = append(artists, sub.Artist)
	}
	if len(artists) < 2 {
		return nil, errors.New("not enough distinct artists for trivia")
	}
	questions := make([]GeneratedQuestion, 0, count)
	for _, sub := range subs {
		if len(questions) >= count {
			break
		}
		if sub.Title == "" || sub.Artist == "" {
			continue
		}
		options := []string{sub.Artist}
		for _, artist := range artists {
			if len(options) >= 4 {
				break
			}
			if artist != sub.Artist {
				options = append(options, artist)
			}
		}
		questions = append(questions, GeneratedQuestion{
			Question:     fmt.Sprintf("Who recorded %q?", sub.Title),
			Options:      options,
			CorrectIndex: 0,
			Explanation:  fmt.Sprintf("%q is by %s.", sub.Title, sub.Artist),
		})
	}
	if len(questions) == 0 {
		return nil, errors.New("not enough track metadata for trivia")
	}
	return questions, nil
}

type openAITriviaGenerator struct {
	cfg config.Config
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const triviaSystemPrompt = "You write multiple-choice music trivia. " +
	"Respond with a JSON array of objects with keys question, options, correct_index, explanation. " +
	"Four options each, exactly one correct."

func (g *openAITriviaGenerator) Generate(ctx context.Context, subs []db.Submission, count int) ([]GeneratedQuestion, error) {
	var tracks strings.Builder
	for _, sub := range subs {
		fmt.Fprintf(&tracks, "- %s by %s\n", sub.Title, sub.Artist)
	}
	userPrompt := fmt.Sprintf("Write %d trivia questions about these songs and artists:\n%s", count, tracks.String())

	reqBody := openAIChatRequest{
		Model: g.cfg.OpenAIModel,
		Messages: []openAIChatMessage{
			{Role: "system", Content: triviaSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.8,
		MaxTokens:   900,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAI request")
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAI request")
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(g.cfg.OpenAIAPIKey))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach OpenAI")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAI response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("OpenAI request failed (%d)", resp.StatusCode)
	}
	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("OpenAI error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices")
	}
	return parseGeneratedQuestions(parsed.Choices[0].Message.Content)
}

// parseGeneratedQuestions extracts the JSON array from a model reply that
// may wrap it in prose or a code fence.
func parseGeneratedQuestions(content string) ([]GeneratedQuestion, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON array in OpenAI reply")
	}
	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(content[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("failed to parse generated questions")
	}
	questions = sanitizeQuestions(questions)
	if len(questions) == 0 {
		return nil, errors.New("no usable generated questions")
	}
	return questions, nil
}
