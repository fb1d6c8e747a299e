package server

import (
	"encoding/json"

	"github.com/dr-harper/spotify-quiz-sub000/internal/config"
	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
)

// Room phases. The persisted Room.Status is the durable source of truth for
// late joiners and reconnects; websocket traffic only shortens the latency.
const (
	phaseLobby      = "lobby"
	phaseSubmitting = "submitting"
	phaseRound1     = "round1"
	phaseTrivia     = "trivia"
	phaseRound2     = "round2"
	phaseResults    = "results"
)

// Logical broadcast channels, named per quiz half and game stage so stale
// cross-phase messages land in groups nobody is watching.
const (
	channelRoom        = "room"
	channelQuizRound1  = "quiz-sync:round1"
	channelQuizRound2  = "quiz-sync:round2"
	channelTrivia      = "trivia-sync"
	channelReveal      = "reveal"
	channelVotesPrefix = "votes:"
)

// Host-published event taxonomy. Fire-and-forget, at-most-once, never
// persisted.
const (
	eventNextRound    = "next_round"
	eventRoundEnd     = "round_end"
	eventNextQuestion = "next_question"
	eventShowResult   = "show_result"
	eventTriviaEnd    = "trivia_end"
)

const (
	voteKindGuess       = "guess"
	voteKindDeclaration = "declaration"
	voteKindNoGuess     = "no_guess"
)

// RoomSettings is the JSON document stored on the Room record. Only the
// host may change it, and only in the lobby.
type RoomSettings struct {
	SongsPerParticipant int  `json:"songsPerParticipant"`
	VoteSeconds         int  `json:"voteSeconds"`
	TriviaSeconds       int  `json:"triviaSeconds"`
	AllowDuplicateSongs bool `json:"allowDuplicateSongs"`
	ChameleonEnabled    bool `json:"chameleonEnabled"`
	TriviaEnabled       bool `json:"triviaEnabled"`
}

func defaultSettings(cfg config.Config) RoomSettings {
	return RoomSettings{
		SongsPerParticipant: cfg.SongsPerParticipant,
		VoteSeconds:         cfg.VoteDurationSeconds,
		TriviaSeconds:       cfg.TriviaDurationSeconds,
		AllowDuplicateSongs: cfg.AllowDuplicateSongs,
		ChameleonEnabled:    cfg.ChameleonEnabled,
		TriviaEnabled:       cfg.TriviaEnabled,
	}
}

// roomSettings decodes the persisted settings document, falling back to
// the server defaults when the blob is missing or malformed.
func (s *Server) roomSettings(room *db.Room) RoomSettings {
	settings := defaultSettings(s.cfg)
	if len(room.Settings) == 0 {
		return settings
	}
	_ = json.Unmarshal(room.Settings, &settings)
	return settings
}

func encodeSettings(settings RoomSettings) []byte {
	data, err := json.Marshal(settings)
	if err != nil {
		return []byte("{}")
	}
	return data
}
