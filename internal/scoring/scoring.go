// Package scoring computes quiz scores from persisted game data. Every
// function is pure and deterministic: the same inputs always produce the
// same totals, and contributions are additive so they can be folded in any
// order.
package scoring

const (
	PointsCorrectGuess    = 100
	PointsChameleonMatch  = 100
	PointsChameleonCaught = 125
	PointsTriviaCorrect   = 100
	PointsFavouriteVote   = 50
)

type VoteKind int

const (
	// KindGuess is a normal "who picked this song" guess.
	KindGuess VoteKind = iota
	// KindDeclaration is the chameleon owner naming a decoy target on
	// their own round. It is never scored as a guess.
	KindDeclaration
	// KindNoGuess records that the voter's timer expired without a pick.
	KindNoGuess
)

type Participant struct {
	ID        uint
	Name      string
	Spectator bool
}

type Submission struct {
	ID        uint
	OwnerID   uint
	Title     string
	Artist    string
	Chameleon bool
}

type Round struct {
	ID           uint
	Number       int
	SubmissionID uint
}

type Vote struct {
	RoundID uint
	VoterID uint
	// Guessed is the participant the voter picked, or the declared decoy
	// target for KindDeclaration. Zero for KindNoGuess.
	Guessed uint
	Kind    VoteKind
	Correct bool
}

type FavouriteBallot struct {
	SubmissionID uint
	VoterID      uint
}

// Input is everything the engine needs, re-derived from durable rows.
// TriviaCorrect maps participant id to the number of trivia questions
// answered correctly.
type Input struct {
	Participants  []Participant
	Submissions   []Submission
	Rounds        []Round
	Votes         []Vote
	TriviaCorrect map[uint]int
	Favourites    []FavouriteBallot
}

type ChameleonResult struct {
	OwnerID     uint
	Points      int
	MatchCount  int
	CaughtCount int
}

func (in Input) submission(id uint) (Submission, bool) {
	for _, sub := range in.Submissions {
		if sub.ID == id {
			return sub, true
		}
	}
	return Submission{}, false
}

// RoundDelta returns the standard guess points for one round: +100 to every
// voter whose guess was correct. Declarations and expired timers contribute
// nothing.
func RoundDelta(round Round, votes []Vote) map[uint]int {
	delta := make(map[uint]int)
	for _, vote := range votes {
		if vote.RoundID != round.ID {
			continue
		}
		if vote.Kind != KindGuess || !vote.Correct {
			continue
		}
		delta[vote.VoterID] += PointsCorrectGuess
	}
	return delta
}

// ChameleonDelta computes the owner's chameleon payoff for a round, or nil
// when the round's submission is not a chameleon pick. The owner earns
// +100 per voter who fell for the declared decoy and loses 125 per voter
// who caught them.
func ChameleonDelta(round Round, sub Submission, votes []Vote) *ChameleonResult {
	if !sub.Chameleon || sub.ID != round.SubmissionID {
		return nil
	}
	var target uint
	for _, vote := range votes {
		if vote.RoundID == round.ID && vote.Kind == KindDeclaration && vote.VoterID == sub.OwnerID {
			target = vote.Guessed
			break
		}
	}
	result := &ChameleonResult{OwnerID: sub.OwnerID}
	for _, vote := range votes {
		if vote.RoundID != round.ID || vote.Kind != KindGuess || vote.VoterID == sub.OwnerID {
			continue
		}
		if vote.Correct {
			result.CaughtCount++
		}
		if target != 0 && vote.Guessed == target {
			result.MatchCount++
		}
	}
	result.Points = result.MatchCount*PointsChameleonMatch - result.CaughtCount*PointsChameleonCaught
	return result
}

// TriviaDelta converts per-participant correct-answer counts into points.
func TriviaDelta(correct map[uint]int) map[uint]int {
	delta := make(map[uint]int, len(correct))
	for id, count := range correct {
		if count > 0 {
			delta[id] = count * PointsTriviaCorrect
		}
	}
	return delta
}

// FavouriteDelta awards +50 to a submission's owner for every favourite
// ballot cast on it, uncapped. Ballots referencing unknown submissions are
// dropped.
func FavouriteDelta(subs []Submission, ballots []FavouriteBallot) map[uint]int {
	owners := make(map[uint]uint, len(subs))
	for _, sub := range subs {
		owners[sub.ID] = sub.OwnerID
	}
	delta := make(map[uint]int)
	for _, ballot := range ballots {
		owner, ok := owners[ballot.SubmissionID]
		if !ok {
			continue
		}
		delta[owner] += PointsFavouriteVote
	}
	return delta
}

// FinalScores computes the complete leaderboard in one pass. It must agree
// exactly with folding the reveal sequence; the batch path is computed
// independently so the two serve as checks on each other. Rounds without a
// backing submission contribute zero rather than failing the game.
func FinalScores(in Input) map[uint]int {
	totals := make(map[uint]int, len(in.Participants))
	for _, participant := range in.Participants {
		totals[participant.ID] = 0
	}
	for _, round := range in.Rounds {
		sub, ok := in.submission(round.SubmissionID)
		if !ok {
			continue
		}
		for id, points := range RoundDelta(round, in.Votes) {
			totals[id] += points
		}
		if result := ChameleonDelta(round, sub, in.Votes); result != nil {
			totals[result.OwnerID] += result.Points
		}
	}
	for id, points := range TriviaDelta(in.TriviaCorrect) {
		totals[id] += points
	}
	for id, points := range FavouriteDelta(in.Submissions, in.Favourites) {
		totals[id] += points
	}
	for _, award := range ComputeAwards(in) {
		totals[award.ParticipantID] += award.Points
	}
	return totals
}
