package server

import (
	"errors"
	"sort"
	"time"

	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
	"github.com/dr-harper/spotify-quiz-sub000/internal/scoring"
)

// scoringInput re-derives the engine's input entirely from durable rows.
// Broadcast traffic and the denormalized Participant.Score never feed it.
func (s *Server) scoringInput(roomID uint) (scoring.Input, error) {
	var input scoring.Input

	participants, err := s.gateway.Participants(roomID)
	if err != nil {
		return input, err
	}
	for _, participant := range participants {
		input.Participants = append(input.Participants, scoring.Participant{
			ID:        participant.ID,
			Name:      participant.DisplayName,
			Spectator: participant.IsSpectator,
		})
	}

	subs, err := s.gateway.Submissions(roomID)
	if err != nil {
		return input, err
	}
	for _, sub := range subs {
		input.Submissions = append(input.Submissions, scoring.Submission{
			ID:        sub.ID,
			OwnerID:   sub.ParticipantID,
			Title:     sub.Title,
			Artist:    sub.Artist,
			Chameleon: sub.IsChameleon,
		})
	}

	rounds, err := s.gateway.Rounds(roomID)
	if err != nil {
		return input, err
	}
	for _, round := range rounds {
		input.Rounds = append(input.Rounds, scoring.Round{
			ID:           round.ID,
			Number:       round.RoundNumber,
			SubmissionID: round.SubmissionID,
		})
	}

	votes, err := s.gateway.Votes(roomID)
	if err != nil {
		return input, err
	}
	for _, vote := range votes {
		input.Votes = append(input.Votes, mapVote(vote))
	}

	input.TriviaCorrect, err = s.triviaCorrectCounts(roomID)
	if err != nil {
		return input, err
	}

	favourites, err := s.gateway.Favourites(roomID)
	if err != nil {
		return input, err
	}
	for _, fav := range favourites {
		input.Favourites = append(input.Favourites, scoring.FavouriteBallot{
			SubmissionID: fav.SubmissionID,
			VoterID:      fav.VoterID,
		})
	}
	return input, nil
}

func mapVote(vote db.Vote) scoring.Vote {
	mapped := scoring.Vote{
		RoundID: vote.RoundID,
		VoterID: vote.VoterID,
		Correct: vote.IsCorrect,
	}
	if vote.GuessedParticipantID != nil {
		mapped.Guessed = *vote.GuessedParticipantID
	}
	switch vote.Kind {
	case voteKindDeclaration:
		mapped.Kind = scoring.KindDeclaration
	case voteKindNoGuess:
		mapped.Kind = scoring.KindNoGuess
	default:
		mapped.Kind = scoring.KindGuess
	}
	return mapped
}

func (s *Server) triviaCorrectCounts(roomID uint) (map[uint]int, error) {
	questions, err := s.gateway.TriviaQuestions(roomID)
	if err != nil {
		return nil, err
	}
	answers, err := s.gateway.TriviaAnswers(roomID)
	if err != nil {
		return nil, err
	}
	correctByQuestion := make(map[uint]int, len(questions))
	for _, question := range questions {
		correctByQuestion[question.ID] = question.CorrectIndex
	}
	counts := make(map[uint]int)
	for _, answer := range answers {
		if correct, ok := correctByQuestion[answer.QuestionID]; ok && answer.OptionIndex == correct {
			counts[answer.ParticipantID]++
		}
	}
	return counts, nil
}

func (s *Server) buildResults(room *db.Room) (map[string]any, error) {
	input, err := s.scoringInput(room.ID)
	if err != nil {
		return nil, err
	}
	finals := scoring.FinalScores(input)
	names := make(map[uint]string, len(input.Participants))
	for _, participant := range input.Participants {
		names[participant.ID] = participant.Name
	}

	leaderboard := make([]map[string]any, 0, len(input.Participants))
	for _, participant := range input.Participants {
		leaderboard = append(leaderboard, map[string]any{
			"participant_id": participant.ID,
			"name":           participant.Name,
			"score":          finals[participant.ID],
		})
	}
	sort.Slice(leaderboard, func(i, j int) bool {
		si := leaderboard[i]["score"].(int)
		sj := leaderboard[j]["score"].(int)
		if si != sj {
			return si > sj
		}
		return leaderboard[i]["participant_id"].(uint) < leaderboard[j]["participant_id"].(uint)
	})

	awards := make([]map[string]any, 0)
	for _, award := range scoring.ComputeAwards(input) {
		awards = append(awards, map[string]any{
			"id":             award.ID,
			"participant_id": award.ParticipantID,
			"name":           names[award.ParticipantID],
			"points":         award.Points,
			"detail":         award.Detail,
		})
	}

	steps := make([]map[string]any, 0)
	for index, step := range scoring.RevealSequence(input) {
		entry := map[string]any{
			"index":  index,
			"kind":   string(step.Kind),
			"delta":  step.Delta,
			"detail": step.Detail,
		}
		if step.RoundID != 0 {
			entry["round_id"] = step.RoundID
		}
		if step.Chameleon != nil {
			entry["chameleon"] = map[string]any{
				"owner_id":     step.Chameleon.OwnerID,
				"points":       step.Chameleon.Points,
				"match_count":  step.Chameleon.MatchCount,
				"caught_count": step.Chameleon.CaughtCount,
			}
		}
		if step.Award != nil {
			entry["award"] = step.Award.ID
		}
		steps = append(steps, entry)
	}

	return map[string]any{
		"room_id":     room.ID,
		"scores":      finals,
		"leaderboard": leaderboard,
		"awards":      awards,
		"reveal":      steps,
	}, nil
}

// persistFinalScores writes the engine's totals into the advisory
// Participant.Score column for display; the engine's recomputation stays
// authoritative.
func (s *Server) persistFinalScores(roomID uint) error {
	input, err := s.scoringInput(roomID)
	if err != nil {
		return err
	}
	finals := scoring.FinalScores(input)
	participants, err := s.gateway.Participants(roomID)
	if err != nil {
		return err
	}
	for i := range participants {
		participants[i].Score = finals[participants[i].ID]
		if err := s.gateway.UpdateParticipant(&participants[i]); err != nil {
			return err
		}
	}
	return nil
}

// startReveal walks the reveal sequence as a timed-transition state
// machine: each step's entry action is a broadcast, its exit is either the
// step duration elapsing or the host skipping to the end.
func (s *Server) startReveal(room *db.Room) error {
	if room.Status != phaseResults {
		return errors.New("room is not showing results")
	}
	input, err := s.scoringInput(room.ID)
	if err != nil {
		return err
	}
	steps := scoring.RevealSequence(input)
	ledger := scoring.NewLedger(input.Participants)
	stepDuration := time.Duration(s.cfg.RevealStepSeconds) * time.Second
	s.runRevealStep(room.ID, steps, ledger, 0, stepDuration)
	return nil
}

func (s *Server) runRevealStep(roomID uint, steps []scoring.RevealStep, ledger *scoring.Ledger, index int, d time.Duration) {
	if index >= len(steps) {
		s.cancelTimer(revealTimerKey(roomID))
		s.hub.Broadcast(roomID, channelReveal, map[string]any{
			"event":  "reveal_end",
			"totals": ledger.Totals(),
		})
		return
	}
	step := steps[index]
	ledger.Apply(step.Delta)
	payload := map[string]any{
		"event":  "reveal_step",
		"index":  index,
		"kind":   string(step.Kind),
		"delta":  step.Delta,
		"detail": step.Detail,
		"totals": ledger.Totals(),
	}
	if step.Award != nil {
		payload["award"] = step.Award.ID
	}
	s.hub.Broadcast(roomID, channelReveal, payload)
	s.setTimer(revealTimerKey(roomID), d, func() {
		s.runRevealStep(roomID, steps, ledger, index+1, d)
	})
}

// skipReveal is the "skip to end" shortcut; it must land on exactly the
// totals the animated walk would have reached.
func (s *Server) skipReveal(room *db.Room) (map[uint]int, error) {
	if room.Status != phaseResults {
		return nil, errors.New("room is not showing results")
	}
	s.cancelTimer(revealTimerKey(room.ID))
	input, err := s.scoringInput(room.ID)
	if err != nil {
		return nil, err
	}
	finals := scoring.FinalScores(input)
	s.hub.Broadcast(room.ID, channelReveal, map[string]any{
		"event":  "reveal_end",
		"totals": finals,
	})
	return finals, nil
}
