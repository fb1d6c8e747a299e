package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
	"github.com/dr-harper/spotify-quiz-sub000/internal/scoring"
	"github.com/dr-harper/spotify-quiz-sub000/internal/store"
)

type createRoomRequest struct {
	Name     string `json:"name"`
	HostName string `json:"host_name"`
}

type joinRequest struct {
	Name      string `json:"name"`
	Spectator bool   `json:"spectator"`
}

type settingsRequest struct {
	ParticipantID       uint   `json:"participant_id"`
	Token               string `json:"token"`
	SongsPerParticipant int    `json:"songs_per_participant"`
	VoteSeconds         int    `json:"vote_seconds"`
	TriviaSeconds       int    `json:"trivia_seconds"`
	AllowDuplicateSongs *bool  `json:"allow_duplicate_songs"`
	ChameleonEnabled    *bool  `json:"chameleon_enabled"`
	TriviaEnabled       *bool  `json:"trivia_enabled"`
}

type hostRequest struct {
	ParticipantID uint   `json:"participant_id"`
	Token         string `json:"token"`
}

type submitRequest struct {
	ParticipantID uint   `json:"participant_id"`
	Token         string `json:"token"`
	TrackID       string `json:"track_id"`
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	Album         string `json:"album"`
	CoverURL      string `json:"cover_url"`
	PreviewURL    string `json:"preview_url"`
	DurationMs    int    `json:"duration_ms"`
	IsChameleon   bool   `json:"is_chameleon"`
}

type voteRequest struct {
	ParticipantID uint   `json:"participant_id"`
	Token         string `json:"token"`
	RoundID       uint   `json:"round_id"`
	Kind          string `json:"kind"`
	GuessedID     uint   `json:"guessed_participant_id"`
}

type answerRequest struct {
	ParticipantID uint   `json:"participant_id"`
	Token         string `json:"token"`
	QuestionID    uint   `json:"question_id"`
	OptionIndex   int    `json:"option_index"`
}

type favouriteRequest struct {
	ParticipantID uint   `json:"participant_id"`
	Token         string `json:"token"`
	SubmissionID  uint   `json:"submission_id"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hostName := normalizeName(req.HostName)
	if hostName == "" {
		writeError(w, http.StatusBadRequest, "host_name is required")
		return
	}
	room := db.Room{
		Name:     normalizeName(req.Name),
		Status:   phaseLobby,
		Settings: encodeSettings(defaultSettings(s.cfg)),
	}
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		room.Code = newRoomCode()
		if err = s.gateway.CreateRoom(&room); !errors.Is(err, store.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	host := db.Participant{RoomID: room.ID, DisplayName: hostName, IsHost: true}
	if err := s.gateway.AddParticipant(&host); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create host")
		return
	}
	log.Printf("room created room_id=%d code=%s", room.ID, room.Code)
	writeJSON(w, http.StatusCreated, map[string]any{
		"room_id":        room.ID,
		"code":           room.Code,
		"participant_id": host.ID,
		"token":          s.issueToken(host.ID),
		"settings":       s.roomSettings(&room),
	})
}

func (s *Server) handleLookupRoom(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	room, err := s.gateway.RoomByCode(code)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id": room.ID,
		"code":    room.Code,
		"name":    room.Name,
		"status":  room.Status,
	})
}

func (s *Server) handleRoomSnapshot(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(&room))
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := normalizeName(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	// Players join in the lobby; spectators may slip in at any point
	// since they never affect play.
	if room.Status != phaseLobby && !req.Spectator {
		writeError(w, http.StatusConflict, "game already started")
		return
	}
	participant := db.Participant{
		RoomID:      room.ID,
		DisplayName: name,
		IsSpectator: req.Spectator,
	}
	if err := s.gateway.AddParticipant(&participant); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "name already taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to join room")
		return
	}
	log.Printf("participant joined room_id=%d participant_id=%d spectator=%v", room.ID, participant.ID, req.Spectator)
	s.hub.Broadcast(room.ID, channelRoom, s.snapshot(&room))
	writeJSON(w, http.StatusCreated, map[string]any{
		"room_id":        room.ID,
		"participant_id": participant.ID,
		"token":          s.issueToken(participant.ID),
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.authenticateHost(room.ID, req.ParticipantID, req.Token); err != nil {
		writeAuthError(w, err)
		return
	}
	if room.Status != phaseLobby {
		writeError(w, http.StatusConflict, "settings can only change in the lobby")
		return
	}
	settings := s.roomSettings(&room)
	if req.SongsPerParticipant > 0 {
		settings.SongsPerParticipant = req.SongsPerParticipant
	}
	if req.VoteSeconds > 0 {
		settings.VoteSeconds = req.VoteSeconds
	}
	if req.TriviaSeconds > 0 {
		settings.TriviaSeconds = req.TriviaSeconds
	}
	if req.AllowDuplicateSongs != nil {
		settings.AllowDuplicateSongs = *req.AllowDuplicateSongs
	}
	if req.ChameleonEnabled != nil {
		settings.ChameleonEnabled = *req.ChameleonEnabled
	}
	if req.TriviaEnabled != nil {
		settings.TriviaEnabled = *req.TriviaEnabled
	}
	if err := s.gateway.UpdateRoomSettings(room.ID, encodeSettings(settings)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	room.Settings = encodeSettings(settings)
	s.hub.Broadcast(room.ID, channelRoom, s.snapshot(&room))
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var req hostRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.authenticateHost(room.ID, req.ParticipantID, req.Token); err != nil {
		writeAuthError(w, err)
		return
	}
	next, err := s.advancePhase(&room)
	if err != nil {
		if errors.Is(err, errNoEligibleSubmissions) {
			writeError(w, http.StatusConflict, "no eligible submissions yet")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": next})
}

func (s *Server) handleSubmitSong(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	participant, err := s.authenticateParticipant(room.ID, req.ParticipantID, req.Token)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if room.Status != phaseSubmitting {
		writeError(w, http.StatusConflict, "room is not accepting submissions")
		return
	}
	if participant.IsSpectator {
		writeError(w, http.StatusForbidden, "spectators cannot submit songs")
		return
	}
	if req.TrackID == "" || req.Title == "" || req.Artist == "" {
		writeError(w, http.StatusBadRequest, "track_id, title and artist are required")
		return
	}
	settings := s.roomSettings(&room)
	subs, err := s.gateway.Submissions(room.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read submissions")
		return
	}
	mine := 0
	for _, sub := range subs {
		if sub.ParticipantID == participant.ID {
			mine++
			if req.IsChameleon && sub.IsChameleon {
				writeError(w, http.StatusConflict, "you already have a chameleon song")
				return
			}
		}
		if !settings.AllowDuplicateSongs && sub.TrackID == req.TrackID {
			writeError(w, http.StatusConflict, "that song was already submitted")
			return
		}
	}
	if mine >= settings.SongsPerParticipant {
		writeError(w, http.StatusConflict, "submission limit reached")
		return
	}
	if req.IsChameleon && !settings.ChameleonEnabled {
		writeError(w, http.StatusConflict, "chameleon mode is disabled")
		return
	}
	sub := db.Submission{
		RoomID:        room.ID,
		ParticipantID: participant.ID,
		TrackID:       req.TrackID,
		Title:         req.Title,
		Artist:        req.Artist,
		Album:         req.Album,
		CoverURL:      req.CoverURL,
		PreviewURL:    req.PreviewURL,
		DurationMs:    req.DurationMs,
		IsChameleon:   req.IsChameleon,
	}
	if err := s.gateway.AddSubmission(&sub); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save submission")
		return
	}
	if mine+1 >= settings.SongsPerParticipant && !participant.HasSubmitted {
		participant.HasSubmitted = true
		if err := s.gateway.UpdateParticipant(participant); err != nil {
			log.Printf("failed to flag submission complete participant_id=%d error=%v", participant.ID, err)
		}
	}
	s.hub.Broadcast(room.ID, channelRoom, s.snapshot(&room))
	writeJSON(w, http.StatusCreated, map[string]any{"submission_id": sub.ID})
}

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	switch room.Status {
	case phaseRound1, phaseTrivia, phaseRound2, phaseResults:
	default:
		writeError(w, http.StatusConflict, "quiz has not started")
		return
	}
	payload, err := s.roundsPayload(room.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read rounds")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rounds": payload})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var req voteRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	participant, err := s.authenticateParticipant(room.ID, req.ParticipantID, req.Token)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if room.Status != phaseRound1 && room.Status != phaseRound2 {
		writeError(w, http.StatusConflict, "voting is closed")
		return
	}
	if participant.IsSpectator {
		writeError(w, http.StatusForbidden, "spectators cannot vote")
		return
	}
	round, sub, err := s.roundWithSubmission(room.ID, req.RoundID)
	if err != nil {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}

	vote := db.Vote{RoundID: round.ID, VoterID: participant.ID, Kind: req.Kind}
	switch req.Kind {
	case voteKindGuess:
		if req.GuessedID == 0 {
			writeError(w, http.StatusBadRequest, "guessed_participant_id is required")
			return
		}
		if participant.ID == sub.ParticipantID {
			writeError(w, http.StatusForbidden, "you cannot guess on your own song")
			return
		}
		guessed := req.GuessedID
		vote.GuessedParticipantID = &guessed
		vote.IsCorrect = guessed == sub.ParticipantID
	case voteKindDeclaration:
		if !sub.IsChameleon || participant.ID != sub.ParticipantID {
			writeError(w, http.StatusForbidden, "only the chameleon owner can declare a target")
			return
		}
		if req.GuessedID == 0 || req.GuessedID == participant.ID {
			writeError(w, http.StatusBadRequest, "a decoy target is required")
			return
		}
		target := req.GuessedID
		vote.GuessedParticipantID = &target
	case voteKindNoGuess:
		if participant.ID == sub.ParticipantID {
			writeError(w, http.StatusForbidden, "you cannot guess on your own song")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown vote kind")
		return
	}

	if err := s.gateway.InsertVote(&vote); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A timed-out client racing its own earlier vote is
			// expected; anything else is a real double vote.
			if req.Kind == voteKindNoGuess {
				writeJSON(w, http.StatusOK, map[string]any{"recorded": false})
				return
			}
			writeError(w, http.StatusConflict, "you already voted on this round")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record vote, try again")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"recorded": true, "correct": vote.IsCorrect})
}

func (s *Server) handleVoteCount(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	roundID, ok := parseID(r.PathValue("roundID"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	count, err := s.gateway.CountVotes(roundID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count votes")
		return
	}
	participants, err := s.gateway.Participants(room.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list participants")
		return
	}
	eligible := 0
	for _, participant := range participants {
		if !participant.IsSpectator {
			eligible++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count, "eligible": eligible})
}

func (s *Server) handleTriviaQuestions(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	questions, err := s.gateway.TriviaQuestions(room.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read questions")
		return
	}
	payload := make([]map[string]any, 0, len(questions))
	for _, question := range questions {
		entry := map[string]any{
			"id":       question.ID,
			"position": question.Position,
			"question": question.Question,
			"options":  question.Options,
		}
		// The answer key only ships once the game is over.
		if room.Status == phaseResults {
			entry["correct_index"] = question.CorrectIndex
			entry["explanation"] = question.Explanation
		}
		payload = append(payload, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": payload})
}

func (s *Server) handleTriviaAnswer(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	participant, err := s.authenticateParticipant(room.ID, req.ParticipantID, req.Token)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if room.Status != phaseTrivia {
		writeError(w, http.StatusConflict, "trivia is not running")
		return
	}
	if participant.IsSpectator {
		writeError(w, http.StatusForbidden, "spectators cannot answer")
		return
	}
	questions, err := s.gateway.TriviaQuestions(room.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read questions")
		return
	}
	var question *db.TriviaQuestion
	for i := range questions {
		if questions[i].ID == req.QuestionID {
			question = &questions[i]
			break
		}
	}
	if question == nil {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	answer := db.TriviaAnswer{
		QuestionID:    question.ID,
		ParticipantID: participant.ID,
		OptionIndex:   req.OptionIndex,
	}
	if req.OptionIndex == question.CorrectIndex {
		answer.PointsAwarded = scoring.PointsTriviaCorrect
	}
	if err := s.gateway.InsertTriviaAnswer(&answer); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "you already answered this question")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record answer, try again")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"correct": answer.PointsAwarded > 0})
}

func (s *Server) handleFavourite(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var req favouriteRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	participant, err := s.authenticateParticipant(room.ID, req.ParticipantID, req.Token)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	switch room.Status {
	case phaseRound1, phaseTrivia, phaseRound2, phaseResults:
	default:
		writeError(w, http.StatusConflict, "favourite voting is closed")
		return
	}
	if participant.IsSpectator {
		writeError(w, http.StatusForbidden, "spectators cannot vote")
		return
	}
	subs, err := s.gateway.Submissions(room.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read submissions")
		return
	}
	var target *db.Submission
	for i := range subs {
		if subs[i].ID == req.SubmissionID {
			target = &subs[i]
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}
	if target.ParticipantID == participant.ID {
		writeError(w, http.StatusForbidden, "you cannot pick your own song")
		return
	}
	fav := db.FavouriteVote{RoomID: room.ID, SubmissionID: target.ID, VoterID: participant.ID}
	if err := s.gateway.InsertFavourite(&fav); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "you already cast a favourite vote")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record favourite, try again")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"recorded": true})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	if room.Status != phaseResults {
		writeError(w, http.StatusConflict, "results are not ready")
		return
	}
	payload, err := s.buildResults(&room)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute results")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRevealStart(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var req hostRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.authenticateHost(room.ID, req.ParticipantID, req.Token); err != nil {
		writeAuthError(w, err)
		return
	}
	if err := s.startReveal(&room); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"started": true})
}

func (s *Server) handleRevealSkip(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	var req hostRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.authenticateHost(room.ID, req.ParticipantID, req.Token); err != nil {
		writeAuthError(w, err)
		return
	}
	totals, err := s.skipReveal(&room)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

func (s *Server) roomFromPath(w http.ResponseWriter, r *http.Request) (db.Room, bool) {
	roomID, ok := parseID(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return db.Room{}, false
	}
	room, err := s.gateway.RoomByID(roomID)
	if err != nil {
		http.NotFound(w, r)
		return db.Room{}, false
	}
	return room, true
}

func (s *Server) roundWithSubmission(roomID, roundID uint) (db.QuizRound, db.Submission, error) {
	rounds, err := s.gateway.Rounds(roomID)
	if err != nil {
		return db.QuizRound{}, db.Submission{}, err
	}
	for _, round := range rounds {
		if round.ID != roundID {
			continue
		}
		subs, err := s.gateway.Submissions(roomID)
		if err != nil {
			return db.QuizRound{}, db.Submission{}, err
		}
		for _, sub := range subs {
			if sub.ID == round.SubmissionID {
				return round, sub, nil
			}
		}
		return db.QuizRound{}, db.Submission{}, errors.New("round has no submission")
	}
	return db.QuizRound{}, db.Submission{}, store.ErrNotFound
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, errHostOnly) {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	writeError(w, http.StatusUnauthorized, "authentication required")
}
