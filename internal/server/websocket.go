package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// hostEvent is the frame a host publishes to advance followers. Anything
// that fails to parse, or arrives from a non-host, is dropped: clients
// always recover by polling the durable room state.
type hostEvent struct {
	Event         string `json:"event"`
	RoundIndex    int    `json:"roundIndex"`
	QuestionIndex int    `json:"questionIndex"`
}

// allowedEvents maps each publishable channel to its event taxonomy.
var allowedEvents = map[string]map[string]bool{
	channelQuizRound1: {eventNextRound: true, eventRoundEnd: true, eventShowResult: true},
	channelQuizRound2: {eventNextRound: true, eventRoundEnd: true, eventShowResult: true},
	channelTrivia:     {eventNextQuestion: true, eventShowResult: true, eventTriviaEnd: true},
}

func validChannel(channel string) bool {
	switch channel {
	case channelRoom, channelQuizRound1, channelQuizRound2, channelTrivia, channelReveal:
		return true
	}
	return strings.HasPrefix(channel, channelVotesPrefix)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseID(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	room, err := s.gateway.RoomByID(roomID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = channelRoom
	}
	if !validChannel(channel) {
		writeError(w, http.StatusBadRequest, "unknown channel")
		return
	}
	participant, authErr := s.authenticateQuery(r, roomID)
	isHost := authErr == nil && participant.IsHost

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room_id=%d channel=%s host=%v remote=%s", roomID, channel, isHost, r.RemoteAddr)
	s.hub.Add(roomID, channel, conn)
	// Reconcile on connect: the durable snapshot, not replayed broadcast
	// frames, tells a late joiner where the game is.
	s.hub.Send(conn, s.snapshot(&room))
	go s.readWS(roomID, channel, conn, isHost)
}

func (s *Server) readWS(roomID uint, channel string, conn *websocket.Conn, isHost bool) {
	defer s.hub.Remove(roomID, channel, conn)
	taxonomy := allowedEvents[channel]
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected room_id=%d channel=%s error=%v", roomID, channel, err)
			return
		}
		if !isHost || taxonomy == nil {
			continue
		}
		var event hostEvent
		if err := json.Unmarshal(data, &event); err != nil || !taxonomy[event.Event] {
			continue
		}
		payload := map[string]any{"event": event.Event}
		switch event.Event {
		case eventNextRound:
			payload["roundIndex"] = event.RoundIndex
		case eventNextQuestion:
			payload["questionIndex"] = event.QuestionIndex
		}
		s.hub.Broadcast(roomID, channel, payload)
	}
}
