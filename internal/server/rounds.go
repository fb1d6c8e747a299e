package server

import (
	"errors"
	"math/rand"
	"time"

	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
	"github.com/dr-harper/spotify-quiz-sub000/internal/store"
)

var errNoEligibleSubmissions = errors.New("no eligible submissions")

// createRounds builds the shuffled round list for a room: clean-slate
// delete of any stale rounds (votes first), then one round per eligible
// submission with round numbers assigned from a uniform shuffle. An
// in-process flag makes concurrent invocations safe: the loser polls for
// the winner's rows instead of inserting a duplicate set.
func (s *Server) createRounds(roomID uint) ([]db.QuizRound, error) {
	s.roundsMu.Lock()
	if s.creating[roomID] {
		s.roundsMu.Unlock()
		return s.waitForRounds(roomID)
	}
	s.creating[roomID] = true
	s.roundsMu.Unlock()
	defer func() {
		s.roundsMu.Lock()
		delete(s.creating, roomID)
		s.roundsMu.Unlock()
	}()

	if err := s.gateway.DeleteVotes(roomID); err != nil {
		return nil, err
	}
	if err := s.gateway.DeleteRounds(roomID); err != nil {
		return nil, err
	}

	eligible, err := s.eligibleSubmissions(roomID)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, errNoEligibleSubmissions
	}

	rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	rounds := make([]db.QuizRound, len(eligible))
	for i, sub := range eligible {
		rounds[i] = db.QuizRound{
			RoomID:       roomID,
			SubmissionID: sub.ID,
			RoundNumber:  i + 1,
		}
	}
	if err := s.gateway.CreateRounds(rounds); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Another process inserted first; its set wins.
			return s.waitForRounds(roomID)
		}
		return nil, err
	}
	return rounds, nil
}

// eligibleSubmissions filters out spectator-owned submissions. Duplicate
// tracks are rejected earlier, at submission time.
func (s *Server) eligibleSubmissions(roomID uint) ([]db.Submission, error) {
	subs, err := s.gateway.Submissions(roomID)
	if err != nil {
		return nil, err
	}
	participants, err := s.gateway.Participants(roomID)
	if err != nil {
		return nil, err
	}
	spectators := make(map[uint]bool)
	for _, participant := range participants {
		if participant.IsSpectator {
			spectators[participant.ID] = true
		}
	}
	eligible := make([]db.Submission, 0, len(subs))
	for _, sub := range subs {
		if spectators[sub.ParticipantID] {
			continue
		}
		eligible = append(eligible, sub)
	}
	return eligible, nil
}

// waitForRounds polls with bounded backoff until the round set exists.
// Non-host clients and losing concurrent creators both end up here.
func (s *Server) waitForRounds(roomID uint) ([]db.QuizRound, error) {
	delay := 50 * time.Millisecond
	for attempt := 0; attempt < 12; attempt++ {
		rounds, err := s.gateway.Rounds(roomID)
		if err == nil && len(rounds) > 0 {
			return rounds, nil
		}
		time.Sleep(delay)
		if delay < 400*time.Millisecond {
			delay *= 2
		}
	}
	return nil, errors.New("rounds were not created in time")
}

// roundHalves splits the shuffled list into the two contiguous gameplay
// halves; the first half gets the extra round when the count is odd.
func roundHalves(rounds []db.QuizRound) ([]db.QuizRound, []db.QuizRound) {
	split := (len(rounds) + 1) / 2
	return rounds[:split], rounds[split:]
}
