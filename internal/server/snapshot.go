package server

import (
	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
)

// snapshot is the durable room view sent on websocket connect and returned
// by GET /api/rooms/{id}. Everything in it is re-derivable from persisted
// rows; reconnecting clients trust this, not broadcast frames.
func (s *Server) snapshot(room *db.Room) map[string]any {
	participants, _ := s.gateway.Participants(room.ID)
	rounds, _ := s.gateway.Rounds(room.ID)
	round1, round2 := roundHalves(rounds)

	submitted := 0
	list := make([]map[string]any, 0, len(participants))
	for _, participant := range participants {
		if participant.HasSubmitted {
			submitted++
		}
		list = append(list, map[string]any{
			"id":            participant.ID,
			"name":          participant.DisplayName,
			"is_host":       participant.IsHost,
			"is_spectator":  participant.IsSpectator,
			"has_submitted": participant.HasSubmitted,
			"score":         participant.Score,
		})
	}
	return map[string]any{
		"room_id":         room.ID,
		"code":            room.Code,
		"name":            room.Name,
		"status":          room.Status,
		"settings":        s.roomSettings(room),
		"participants":    list,
		"submitted_count": submitted,
		"round_count":     len(rounds),
		"round1_count":    len(round1),
		"round2_count":    len(round2),
	}
}

// roundsPayload lists the shuffled rounds with their track metadata for
// playback. Ownership and chameleon flags are deliberately absent: that is
// the secret the game is about.
func (s *Server) roundsPayload(roomID uint) ([]map[string]any, error) {
	rounds, err := s.gateway.Rounds(roomID)
	if err != nil {
		return nil, err
	}
	subs, err := s.gateway.Submissions(roomID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]db.Submission, len(subs))
	for _, sub := range subs {
		byID[sub.ID] = sub
	}
	firstHalf, _ := roundHalves(rounds)
	payload := make([]map[string]any, 0, len(rounds))
	for _, round := range rounds {
		entry := map[string]any{
			"id":           round.ID,
			"round_number": round.RoundNumber,
			"half":         2,
		}
		if round.RoundNumber <= len(firstHalf) {
			entry["half"] = 1
		}
		if sub, ok := byID[round.SubmissionID]; ok {
			entry["track"] = map[string]any{
				"track_id":    sub.TrackID,
				"title":       sub.Title,
				"artist":      sub.Artist,
				"album":       sub.Album,
				"cover_url":   sub.CoverURL,
				"preview_url": sub.PreviewURL,
				"duration_ms": sub.DurationMs,
			}
		}
		payload = append(payload, entry)
	}
	return payload, nil
}
