package scoring

import (
	"fmt"
	"sort"
)

type StepKind string

const (
	StepRound      StepKind = "round"
	StepChameleon  StepKind = "chameleon"
	StepTrivia     StepKind = "trivia"
	StepFavourites StepKind = "favourites"
	StepAward      StepKind = "award"
)

// RevealStep is one beat of the animated results walk. Applying every
// step's Delta to a fresh Ledger, in any order, reaches exactly the totals
// FinalScores reports.
type RevealStep struct {
	Kind      StepKind
	RoundID   uint
	Award     *Award
	Chameleon *ChameleonResult
	Delta     map[uint]int
	Detail    string
}

// Ledger accumulates reveal deltas for the animated walk. Applying the full
// sequence is the incremental-fold twin of FinalScores.
type Ledger struct {
	totals map[uint]int
}

func NewLedger(participants []Participant) *Ledger {
	totals := make(map[uint]int, len(participants))
	for _, participant := range participants {
		totals[participant.ID] = 0
	}
	return &Ledger{totals: totals}
}

func (l *Ledger) Apply(delta map[uint]int) {
	for id, points := range delta {
		l.totals[id] += points
	}
}

// Totals returns a copy of the current standings.
func (l *Ledger) Totals() map[uint]int {
	out := make(map[uint]int, len(l.totals))
	for id, points := range l.totals {
		out[id] = points
	}
	return out
}

// RevealSequence builds the ordered reveal: one step per round in play
// order (with a chameleon step straight after when the round was a
// disguise), then trivia, favourites, and each award. Rounds with no
// backing submission are skipped entirely.
func RevealSequence(in Input) []RevealStep {
	rounds := make([]Round, len(in.Rounds))
	copy(rounds, in.Rounds)
	sort.Slice(rounds, func(i, j int) bool {
		return rounds[i].Number < rounds[j].Number
	})

	steps := make([]RevealStep, 0, len(rounds)+3)
	for _, round := range rounds {
		sub, ok := in.submission(round.SubmissionID)
		if !ok {
			continue
		}
		steps = append(steps, RevealStep{
			Kind:    StepRound,
			RoundID: round.ID,
			Delta:   RoundDelta(round, in.Votes),
			Detail:  fmt.Sprintf("%s by %s", sub.Title, sub.Artist),
		})
		if result := ChameleonDelta(round, sub, in.Votes); result != nil {
			steps = append(steps, RevealStep{
				Kind:      StepChameleon,
				RoundID:   round.ID,
				Chameleon: result,
				Delta:     map[uint]int{result.OwnerID: result.Points},
				Detail:    fmt.Sprintf("fooled %d, caught by %d", result.MatchCount, result.CaughtCount),
			})
		}
	}
	if delta := TriviaDelta(in.TriviaCorrect); len(delta) > 0 {
		steps = append(steps, RevealStep{Kind: StepTrivia, Delta: delta})
	}
	if delta := FavouriteDelta(in.Submissions, in.Favourites); len(delta) > 0 {
		steps = append(steps, RevealStep{Kind: StepFavourites, Delta: delta})
	}
	for _, award := range ComputeAwards(in) {
		award := award
		steps = append(steps, RevealStep{
			Kind:   StepAward,
			Award:  &award,
			Delta:  map[uint]int{award.ParticipantID: award.Points},
			Detail: award.Detail,
		})
	}
	return steps
}
