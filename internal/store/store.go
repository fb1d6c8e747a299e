// Package store is the data-store gateway: typed CRUD and query access to
// the game's durable rows, plus best-effort row-insert notifications used
// for live vote counts and round-availability polling. Two implementations
// share the contract: a Postgres-backed gateway for production and an
// in-memory gateway for tests and DB-less development.
package store

import (
	"errors"

	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate reports that an insert hit a uniqueness rule, e.g. a
	// second vote for the same (round, voter). Callers surface it rather
	// than retrying: the original write may have succeeded.
	ErrDuplicate = errors.New("duplicate record")
)

type Gateway interface {
	CreateRoom(room *db.Room) error
	RoomByID(id uint) (db.Room, error)
	RoomByCode(code string) (db.Room, error)
	UpdateRoomStatus(roomID uint, status string) error
	UpdateRoomSettings(roomID uint, settings []byte) error

	AddParticipant(participant *db.Participant) error
	Participants(roomID uint) ([]db.Participant, error)
	UpdateParticipant(participant *db.Participant) error
	ResetParticipants(roomID uint) error

	AddSubmission(sub *db.Submission) error
	Submissions(roomID uint) ([]db.Submission, error)
	DeleteSubmissions(roomID uint) error

	CreateRounds(rounds []db.QuizRound) error
	Rounds(roomID uint) ([]db.QuizRound, error)
	DeleteRounds(roomID uint) error

	InsertVote(vote *db.Vote) error
	Votes(roomID uint) ([]db.Vote, error)
	CountVotes(roundID uint) (int, error)
	DeleteVotes(roomID uint) error

	CreateTriviaQuestions(questions []db.TriviaQuestion) error
	TriviaQuestions(roomID uint) ([]db.TriviaQuestion, error)
	InsertTriviaAnswer(answer *db.TriviaAnswer) error
	TriviaAnswers(roomID uint) ([]db.TriviaAnswer, error)
	DeleteTrivia(roomID uint) error

	InsertFavourite(fav *db.FavouriteVote) error
	Favourites(roomID uint) ([]db.FavouriteVote, error)
	DeleteFavourites(roomID uint) error

	Notifier() *Notifier
}
