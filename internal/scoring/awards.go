package scoring

import "fmt"

const (
	AwardBestGuesser    = "best_guesser"
	AwardCrowdPleaser   = "crowd_pleaser"
	AwardTriviaChampion = "trivia_champion"
)

type Award struct {
	ID            string
	ParticipantID uint
	Points        int
	Detail        string
}

// awardStats are the aggregates the pipeline picks winners from.
type awardStats struct {
	correctGuesses map[uint]int
	timesCaught    map[uint]int
	triviaCorrect  map[uint]int
}

type awardSpec struct {
	id     string
	points int
	// exclusive winners are removed from the candidate pool for later
	// awards; Trivia Champion deliberately ignores the pool so it can
	// stack with an earlier superlative.
	exclusive bool
	pick      func(in Input, stats awardStats, excluded map[uint]bool) (uint, string, bool)
}

// awardPipeline is evaluated in order. Adding a superlative means appending
// a spec here; nothing else in the engine changes.
var awardPipeline = []awardSpec{
	{
		id:        AwardBestGuesser,
		points:    150,
		exclusive: true,
		pick: func(in Input, stats awardStats, excluded map[uint]bool) (uint, string, bool) {
			winner, best := pickMax(in.Participants, stats.correctGuesses, excluded)
			if best < 1 {
				return 0, "", false
			}
			return winner, fmt.Sprintf("%d correct guesses", best), true
		},
	},
	{
		id:        AwardCrowdPleaser,
		points:    100,
		exclusive: true,
		pick: func(in Input, stats awardStats, excluded map[uint]bool) (uint, string, bool) {
			winner, best := pickMax(in.Participants, stats.timesCaught, excluded)
			if best < 1 {
				return 0, "", false
			}
			return winner, fmt.Sprintf("songs guessed correctly %d times", best), true
		},
	},
	{
		id:     AwardTriviaChampion,
		points: 75,
		pick: func(in Input, stats awardStats, _ map[uint]bool) (uint, string, bool) {
			winner, best := pickMax(in.Participants, stats.triviaCorrect, nil)
			if best < 1 {
				return 0, "", false
			}
			return winner, fmt.Sprintf("%d trivia questions right", best), true
		},
	},
}

// pickMax returns the participant with the highest stat, breaking ties by
// input order. Participants in excluded are skipped.
func pickMax(participants []Participant, stat map[uint]int, excluded map[uint]bool) (uint, int) {
	var winner uint
	best := 0
	for _, participant := range participants {
		if excluded[participant.ID] {
			continue
		}
		if value := stat[participant.ID]; value > best {
			winner = participant.ID
			best = value
		}
	}
	return winner, best
}

func buildAwardStats(in Input) awardStats {
	stats := awardStats{
		correctGuesses: make(map[uint]int),
		timesCaught:    make(map[uint]int),
		triviaCorrect:  make(map[uint]int),
	}
	for _, round := range in.Rounds {
		sub, ok := in.submission(round.SubmissionID)
		if !ok {
			continue
		}
		for _, vote := range in.Votes {
			if vote.RoundID != round.ID || vote.Kind != KindGuess || !vote.Correct {
				continue
			}
			stats.correctGuesses[vote.VoterID]++
			if vote.VoterID != sub.OwnerID {
				stats.timesCaught[sub.OwnerID]++
			}
		}
	}
	for id, count := range in.TriviaCorrect {
		stats.triviaCorrect[id] = count
	}
	return stats
}

// ComputeAwards runs the superlative pipeline. It is idempotent: two runs
// over the same input yield identical award lists.
func ComputeAwards(in Input) []Award {
	stats := buildAwardStats(in)
	excluded := make(map[uint]bool)
	awards := make([]Award, 0, len(awardPipeline))
	for _, spec := range awardPipeline {
		winner, detail, ok := spec.pick(in, stats, excluded)
		if !ok {
			continue
		}
		awards = append(awards, Award{
			ID:            spec.id,
			ParticipantID: winner,
			Points:        spec.points,
			Detail:        detail,
		})
		if spec.exclusive {
			excluded[winner] = true
		}
	}
	return awards
}
