package scoring

import (
	"math/rand"
	"reflect"
	"testing"
)

func guess(roundID, voter, guessed uint, correct bool) Vote {
	return Vote{RoundID: roundID, VoterID: voter, Guessed: guessed, Kind: KindGuess, Correct: correct}
}

func TestRoundDeltaAwardsCorrectGuessers(t *testing.T) {
	// Round 3's song belongs to B (id 2). A and C guess B, D guesses C.
	round := Round{ID: 3, Number: 3, SubmissionID: 30}
	votes := []Vote{
		guess(3, 1, 2, true),
		guess(3, 3, 2, true),
		guess(3, 4, 3, false),
		guess(9, 4, 2, true), // different round, must be ignored
	}
	delta := RoundDelta(round, votes)
	want := map[uint]int{1: 100, 3: 100}
	if !reflect.DeepEqual(delta, want) {
		t.Fatalf("unexpected delta: got %v want %v", delta, want)
	}
}

func TestRoundDeltaIgnoresNoGuessAndDeclarations(t *testing.T) {
	round := Round{ID: 1, Number: 1, SubmissionID: 10}
	votes := []Vote{
		{RoundID: 1, VoterID: 2, Kind: KindNoGuess},
		{RoundID: 1, VoterID: 5, Guessed: 6, Kind: KindDeclaration},
	}
	if delta := RoundDelta(round, votes); len(delta) != 0 {
		t.Fatalf("expected empty delta, got %v", delta)
	}
}

func TestChameleonDeltaMatchAndCaught(t *testing.T) {
	// E (id 5) owns the chameleon round and declares F (id 6). G and H
	// also guess F; I guesses E correctly.
	round := Round{ID: 7, Number: 4, SubmissionID: 70}
	sub := Submission{ID: 70, OwnerID: 5, Chameleon: true}
	votes := []Vote{
		{RoundID: 7, VoterID: 5, Guessed: 6, Kind: KindDeclaration},
		guess(7, 7, 6, false),
		guess(7, 8, 6, false),
		guess(7, 9, 5, true),
	}
	result := ChameleonDelta(round, sub, votes)
	if result == nil {
		t.Fatal("expected chameleon result")
	}
	if result.MatchCount != 2 || result.CaughtCount != 1 {
		t.Fatalf("unexpected counts: match=%d caught=%d", result.MatchCount, result.CaughtCount)
	}
	if result.Points != 75 {
		t.Fatalf("expected owner delta 75, got %d", result.Points)
	}
	// The catcher still earns the standard +100 through RoundDelta.
	if delta := RoundDelta(round, votes); delta[9] != 100 {
		t.Fatalf("expected catcher to earn 100, got %d", delta[9])
	}
}

func TestChameleonDeltaNilForNormalRound(t *testing.T) {
	round := Round{ID: 1, Number: 1, SubmissionID: 10}
	sub := Submission{ID: 10, OwnerID: 2}
	if result := ChameleonDelta(round, sub, nil); result != nil {
		t.Fatalf("expected nil for non-chameleon round, got %#v", result)
	}
}

func TestChameleonDeltaWithoutDeclaration(t *testing.T) {
	// Owner never declared a target: no match points, but getting caught
	// still costs them.
	round := Round{ID: 2, Number: 2, SubmissionID: 20}
	sub := Submission{ID: 20, OwnerID: 1, Chameleon: true}
	votes := []Vote{
		guess(2, 2, 1, true),
		guess(2, 3, 4, false),
	}
	result := ChameleonDelta(round, sub, votes)
	if result == nil {
		t.Fatal("expected chameleon result")
	}
	if result.MatchCount != 0 || result.CaughtCount != 1 {
		t.Fatalf("unexpected counts: match=%d caught=%d", result.MatchCount, result.CaughtCount)
	}
	if result.Points != -125 {
		t.Fatalf("expected owner delta -125, got %d", result.Points)
	}
}

func TestFavouriteDeltaUncapped(t *testing.T) {
	subs := []Submission{
		{ID: 10, OwnerID: 1},
		{ID: 11, OwnerID: 1},
		{ID: 12, OwnerID: 2},
	}
	ballots := []FavouriteBallot{
		{SubmissionID: 10, VoterID: 2},
		{SubmissionID: 10, VoterID: 3},
		{SubmissionID: 11, VoterID: 4},
		{SubmissionID: 99, VoterID: 5}, // unknown submission dropped
	}
	delta := FavouriteDelta(subs, ballots)
	if delta[1] != 150 {
		t.Fatalf("expected owner 1 to earn 150, got %d", delta[1])
	}
	if _, ok := delta[2]; ok {
		t.Fatalf("expected no favourite points for owner 2, got %v", delta)
	}
}

func TestTriviaDelta(t *testing.T) {
	delta := TriviaDelta(map[uint]int{1: 3, 2: 0, 3: 1})
	want := map[uint]int{1: 300, 3: 100}
	if !reflect.DeepEqual(delta, want) {
		t.Fatalf("unexpected trivia delta: got %v want %v", delta, want)
	}
}

// fullGameInput builds a game with chameleon, trivia and favourites all in
// play so every contribution source is exercised at once.
func fullGameInput() Input {
	return Input{
		Participants: []Participant{
			{ID: 1, Name: "Ada"},
			{ID: 2, Name: "Ben"},
			{ID: 3, Name: "Cleo"},
			{ID: 4, Name: "Dev"},
		},
		Submissions: []Submission{
			{ID: 10, OwnerID: 1, Title: "One", Artist: "A"},
			{ID: 20, OwnerID: 2, Title: "Two", Artist: "B", Chameleon: true},
			{ID: 30, OwnerID: 3, Title: "Three", Artist: "C"},
			{ID: 40, OwnerID: 4, Title: "Four", Artist: "D"},
		},
		Rounds: []Round{
			{ID: 1, Number: 1, SubmissionID: 10},
			{ID: 2, Number: 2, SubmissionID: 20},
			{ID: 3, Number: 3, SubmissionID: 30},
			{ID: 4, Number: 4, SubmissionID: 40},
		},
		Votes: []Vote{
			// Round 1 (Ada's song): Ben correct, Cleo wrong, Dev timed out.
			guess(1, 2, 1, true),
			guess(1, 3, 4, false),
			{RoundID: 1, VoterID: 4, Kind: KindNoGuess},
			// Round 2 (Ben's chameleon): declares Cleo; Ada falls for it,
			// Dev catches Ben.
			{RoundID: 2, VoterID: 2, Guessed: 3, Kind: KindDeclaration},
			guess(2, 1, 3, false),
			guess(2, 4, 2, true),
			// Round 3 (Cleo's song): Ben correct again.
			guess(3, 2, 3, true),
			guess(3, 4, 1, false),
			// Round 4 (Dev's song): nobody got it.
			guess(4, 1, 2, false),
			guess(4, 2, 3, false),
		},
		TriviaCorrect: map[uint]int{2: 2, 3: 1},
		Favourites: []FavouriteBallot{
			{SubmissionID: 30, VoterID: 1},
			{SubmissionID: 30, VoterID: 2},
		},
	}
}

func TestFinalScoresFullGame(t *testing.T) {
	totals := FinalScores(fullGameInput())
	// Ben: 2 correct guesses (200), chameleon 1*100-1*125 (-25), trivia
	// 200, best guesser 150, trivia champion 75 (stacks despite the
	// earlier exclusive win).
	if totals[2] != 600 {
		t.Errorf("Ben: got %d want 600", totals[2])
	}
	// Ada: crowd pleaser 100. With Ben excluded she is the first
	// participant whose song was guessed once.
	if totals[1] != 100 {
		t.Errorf("Ada: got %d want 100", totals[1])
	}
	// Cleo: trivia 100 plus two favourite ballots at 50 each.
	if totals[3] != 200 {
		t.Errorf("Cleo: got %d want 200", totals[3])
	}
	// Dev: caught the chameleon.
	if totals[4] != 100 {
		t.Errorf("Dev: got %d want 100", totals[4])
	}
}

func TestFinalScoresEqualsFoldInAnyOrder(t *testing.T) {
	in := fullGameInput()
	want := FinalScores(in)

	steps := RevealSequence(in)
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]RevealStep, len(steps))
		copy(shuffled, steps)
		rng := rand.New(rand.NewSource(int64(trial)))
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		ledger := NewLedger(in.Participants)
		for _, step := range shuffled {
			ledger.Apply(step.Delta)
		}
		if got := ledger.Totals(); !reflect.DeepEqual(got, want) {
			t.Fatalf("fold order %d diverged: got %v want %v", trial, got, want)
		}
	}
}

func TestFinalScoresSkipsCorruptRound(t *testing.T) {
	in := fullGameInput()
	base := FinalScores(in)

	// A round pointing at a submission that no longer exists must
	// contribute nothing, even though votes reference it.
	in.Rounds = append(in.Rounds, Round{ID: 5, Number: 5, SubmissionID: 999})
	in.Votes = append(in.Votes, guess(5, 1, 2, true))

	if got := FinalScores(in); !reflect.DeepEqual(got, base) {
		t.Fatalf("corrupt round changed totals: got %v want %v", got, base)
	}
}

func TestRevealSequenceOrdersRoundsByNumber(t *testing.T) {
	in := fullGameInput()
	// Present rounds out of order; the reveal must follow play order.
	in.Rounds = []Round{in.Rounds[2], in.Rounds[0], in.Rounds[3], in.Rounds[1]}
	steps := RevealSequence(in)
	var roundSteps []uint
	for _, step := range steps {
		if step.Kind == StepRound {
			roundSteps = append(roundSteps, step.RoundID)
		}
	}
	want := []uint{1, 2, 3, 4}
	if !reflect.DeepEqual(roundSteps, want) {
		t.Fatalf("unexpected round order: got %v want %v", roundSteps, want)
	}
	// The chameleon step follows its round immediately.
	for i, step := range steps {
		if step.Kind == StepChameleon {
			if i == 0 || steps[i-1].Kind != StepRound || steps[i-1].RoundID != step.RoundID {
				t.Fatalf("chameleon step not adjacent to its round at index %d", i)
			}
		}
	}
}

func TestLedgerTotalsIsACopy(t *testing.T) {
	ledger := NewLedger([]Participant{{ID: 1}})
	totals := ledger.Totals()
	totals[1] = 999
	if ledger.Totals()[1] != 0 {
		t.Fatal("mutating the returned totals must not touch the ledger")
	}
}
