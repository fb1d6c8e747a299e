package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID           uint           `gorm:"primaryKey"`
	Code         string         `gorm:"size:12;uniqueIndex;not null"`
	Name         string         `gorm:"size:64;not null"`
	Status       string         `gorm:"size:32;not null"`
	Settings     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
	Participants []Participant
	Rounds       []QuizRound
}

type Participant struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       uint      `gorm:"index;not null;uniqueIndex:idx_participants_room_name"`
	DisplayName  string    `gorm:"size:64;not null;uniqueIndex:idx_participants_room_name"`
	Score        int       `gorm:"not null;default:0"`
	IsHost       bool      `gorm:"not null;default:false"`
	IsSpectator  bool      `gorm:"not null;default:false"`
	HasSubmitted bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Submissions  []Submission
}

type Submission struct {
	ID            uint      `gorm:"primaryKey"`
	RoomID        uint      `gorm:"index;not null"`
	ParticipantID uint      `gorm:"index;not null"`
	TrackID       string    `gorm:"size:64;not null"`
	Title         string    `gorm:"size:256;not null"`
	Artist        string    `gorm:"size:256;not null"`
	Album         string    `gorm:"size:256"`
	CoverURL      string    `gorm:"size:512"`
	PreviewURL    string    `gorm:"size:512"`
	DurationMs    int       `gorm:"not null;default:0"`
	IsChameleon   bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type QuizRound struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       uint      `gorm:"index;not null;uniqueIndex:idx_rounds_room_number;uniqueIndex:idx_rounds_room_submission"`
	SubmissionID uint      `gorm:"not null;uniqueIndex:idx_rounds_room_submission"`
	RoundNumber  int       `gorm:"not null;uniqueIndex:idx_rounds_room_number"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Votes        []Vote    `gorm:"foreignKey:RoundID"`
}

type Vote struct {
	ID                   uint      `gorm:"primaryKey"`
	RoundID              uint      `gorm:"index;not null;uniqueIndex:idx_votes_round_voter"`
	VoterID              uint      `gorm:"index;not null;uniqueIndex:idx_votes_round_voter"`
	GuessedParticipantID *uint     `gorm:"index"`
	Kind                 string    `gorm:"size:16;not null"`
	IsCorrect            bool      `gorm:"not null;default:false"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

type TriviaQuestion struct {
	ID           uint           `gorm:"primaryKey"`
	RoomID       uint           `gorm:"index;not null;uniqueIndex:idx_trivia_room_position"`
	Position     int            `gorm:"not null;uniqueIndex:idx_trivia_room_position"`
	Question     string         `gorm:"size:512;not null"`
	Options      datatypes.JSON `gorm:"type:jsonb;not null"`
	CorrectIndex int            `gorm:"not null"`
	Explanation  string         `gorm:"size:512"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
	Answers      []TriviaAnswer `gorm:"foreignKey:QuestionID"`
}

type TriviaAnswer struct {
	ID            uint      `gorm:"primaryKey"`
	QuestionID    uint      `gorm:"index;not null;uniqueIndex:idx_trivia_answers_question_participant"`
	ParticipantID uint      `gorm:"index;not null;uniqueIndex:idx_trivia_answers_question_participant"`
	OptionIndex   int       `gorm:"not null"`
	PointsAwarded int       `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type FavouriteVote struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       uint      `gorm:"index;not null;uniqueIndex:idx_favourites_room_voter"`
	SubmissionID uint      `gorm:"index;not null"`
	VoterID      uint      `gorm:"not null;uniqueIndex:idx_favourites_room_voter"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
