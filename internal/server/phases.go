package server

import (
	"fmt"
	"log"

	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
)

type phaseTransition struct {
	next func(s *Server, room *db.Room, settings RoomSettings) (string, error)
}

// phaseTransitions is the host-initiated state machine:
// lobby -> submitting -> round1 -> [trivia] -> round2 -> results -> lobby.
// Each transition runs its side effects before the status flip so a client
// polling Room.Status never observes a phase whose data is missing.
var phaseTransitions = map[string]phaseTransition{
	phaseLobby: {
		next: func(s *Server, room *db.Room, settings RoomSettings) (string, error) {
			return phaseSubmitting, nil
		},
	},
	phaseSubmitting: {
		next: func(s *Server, room *db.Room, settings RoomSettings) (string, error) {
			// Purge order matters: stale votes, then their rounds,
			// then a fresh shuffle. createRounds owns all three.
			if _, err := s.createRounds(room.ID); err != nil {
				return "", err
			}
			return phaseRound1, nil
		},
	},
	phaseRound1: {
		next: func(s *Server, room *db.Room, settings RoomSettings) (string, error) {
			if settings.TriviaEnabled {
				if err := s.ensureTrivia(room); err != nil {
					return "", err
				}
				return phaseTrivia, nil
			}
			return phaseRound2, nil
		},
	},
	phaseTrivia: {
		next: func(s *Server, room *db.Room, settings RoomSettings) (string, error) {
			return phaseRound2, nil
		},
	},
	phaseRound2: {
		next: func(s *Server, room *db.Room, settings RoomSettings) (string, error) {
			if err := s.persistFinalScores(room.ID); err != nil {
				return "", err
			}
			return phaseResults, nil
		},
	},
	phaseResults: {
		next: func(s *Server, room *db.Room, settings RoomSettings) (string, error) {
			if err := s.resetGame(room.ID); err != nil {
				return "", err
			}
			return phaseLobby, nil
		},
	},
}

// advancePhase moves the room to its next phase. Callers must have
// authenticated the host; non-hosts only ever observe transitions.
func (s *Server) advancePhase(room *db.Room) (string, error) {
	transition, ok := phaseTransitions[room.Status]
	if !ok {
		return "", fmt.Errorf("no transition from phase %q", room.Status)
	}
	settings := s.roomSettings(room)
	next, err := transition.next(s, room, settings)
	if err != nil {
		return "", err
	}
	if err := s.gateway.UpdateRoomStatus(room.ID, next); err != nil {
		return "", err
	}
	previous := room.Status
	room.Status = next
	log.Printf("phase advanced room_id=%d from=%s to=%s", room.ID, previous, next)
	s.hub.Broadcast(room.ID, channelRoom, s.snapshot(room))
	return next, nil
}

// resetGame is "play again": all gameplay rows go, the room and its
// participants stay, scores and submission flags reset.
func (s *Server) resetGame(roomID uint) error {
	if err := s.gateway.DeleteVotes(roomID); err != nil {
		return err
	}
	if err := s.gateway.DeleteRounds(roomID); err != nil {
		return err
	}
	if err := s.gateway.DeleteTrivia(roomID); err != nil {
		return err
	}
	if err := s.gateway.DeleteFavourites(roomID); err != nil {
		return err
	}
	if err := s.gateway.DeleteSubmissions(roomID); err != nil {
		return err
	}
	s.cancelTimer(revealTimerKey(roomID))
	return s.gateway.ResetParticipants(roomID)
}
