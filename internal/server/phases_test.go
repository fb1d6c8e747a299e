package server

import (
	"testing"

	"github.com/dr-harper/spotify-quiz-sub000/internal/config"
	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
)

func TestAdvancePhaseUnknownStatus(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Close)
	room := db.Room{Code: "ROOM01", Name: "Test", Status: "haunted", Settings: []byte(`{}`)}
	if err := srv.gateway.CreateRoom(&room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := srv.advancePhase(&room); err == nil {
		t.Fatal("expected an error for an unknown phase")
	}
}

func TestAdvancePhasePersistsStatus(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Close)
	room := db.Room{Code: "ROOM01", Name: "Test", Status: phaseLobby, Settings: encodeSettings(defaultSettings(srv.cfg))}
	if err := srv.gateway.CreateRoom(&room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	next, err := srv.advancePhase(&room)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if next != phaseSubmitting || room.Status != phaseSubmitting {
		t.Fatalf("expected submitting, got %s / %s", next, room.Status)
	}
	stored, err := srv.gateway.RoomByID(room.ID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if stored.Status != phaseSubmitting {
		t.Fatalf("status not persisted: %s", stored.Status)
	}
}

func TestAdvanceFromSubmittingFailsWithoutSongsAndKeepsPhase(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Close)
	room := db.Room{Code: "ROOM01", Name: "Test", Status: phaseSubmitting, Settings: encodeSettings(defaultSettings(srv.cfg))}
	if err := srv.gateway.CreateRoom(&room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := srv.advancePhase(&room); err != errNoEligibleSubmissions {
		t.Fatalf("expected errNoEligibleSubmissions, got %v", err)
	}
	// A failed side effect must not move the phase.
	stored, _ := srv.gateway.RoomByID(room.ID)
	if stored.Status != phaseSubmitting {
		t.Fatalf("phase moved despite failure: %s", stored.Status)
	}
}

func TestTriviaPhaseSkippedWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.SongsPerParticipant = 1
	_, ts := newGameServer(t, cfg)
	host := createRoom(t, ts, "Hana")
	ada := joinRoom(t, ts, host.RoomID, "Ada", false)

	advancePhase(t, ts, host)
	submitSong(t, ts, host, "t1", "One", "Artist A")
	submitSong(t, ts, ada, "t2", "Two", "Artist B")
	advancePhase(t, ts, host)

	if status := advancePhase(t, ts, host); status != phaseRound2 {
		t.Fatalf("expected round1 to skip to round2, got %s", status)
	}
}

func TestResetGamePurgesEverything(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Close)
	roomID := seedGame(t, srv, 3)
	rounds, err := srv.createRounds(roomID)
	if err != nil {
		t.Fatalf("create rounds: %v", err)
	}
	participants, _ := srv.gateway.Participants(roomID)
	if err := srv.gateway.InsertVote(&db.Vote{RoundID: rounds[0].ID, VoterID: participants[0].ID, Kind: voteKindNoGuess}); err != nil {
		t.Fatalf("insert vote: %v", err)
	}
	if err := srv.gateway.CreateTriviaQuestions([]db.TriviaQuestion{{RoomID: roomID, Position: 1, Question: "?", Options: []byte(`["a","b"]`)}}); err != nil {
		t.Fatalf("create questions: %v", err)
	}
	if err := srv.gateway.InsertFavourite(&db.FavouriteVote{RoomID: roomID, SubmissionID: rounds[0].SubmissionID, VoterID: participants[1].ID}); err != nil {
		t.Fatalf("insert favourite: %v", err)
	}

	if err := srv.resetGame(roomID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if got, _ := srv.gateway.Rounds(roomID); len(got) != 0 {
		t.Fatalf("rounds survived reset: %v", got)
	}
	if got, _ := srv.gateway.Votes(roomID); len(got) != 0 {
		t.Fatalf("votes survived reset: %v", got)
	}
	if got, _ := srv.gateway.Submissions(roomID); len(got) != 0 {
		t.Fatalf("submissions survived reset: %v", got)
	}
	if got, _ := srv.gateway.TriviaQuestions(roomID); len(got) != 0 {
		t.Fatalf("trivia survived reset: %v", got)
	}
	if got, _ := srv.gateway.Favourites(roomID); len(got) != 0 {
		t.Fatalf("favourites survived reset: %v", got)
	}
	participants, _ = srv.gateway.Participants(roomID)
	if len(participants) != 3 {
		t.Fatalf("participants must survive reset: %v", participants)
	}
}
