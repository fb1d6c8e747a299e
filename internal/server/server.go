package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dr-harper/spotify-quiz-sub000/internal/config"
	"github.com/dr-harper/spotify-quiz-sub000/internal/store"
)

type Server struct {
	gateway store.Gateway
	cfg     config.Config
	hub     *hub
	trivia  TriviaGenerator

	tokensMu sync.Mutex
	tokens   map[uint]string

	roundsMu sync.Mutex
	creating map[uint]bool

	triviaMu   sync.Mutex
	generating map[uint]bool

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	stopVoteFeed func()
}

func New(gateway store.Gateway, cfg config.Config) *Server {
	if gateway == nil {
		gateway = store.NewMemory()
	}
	s := &Server{
		gateway:    gateway,
		cfg:        cfg,
		hub:        newHub(),
		tokens:     make(map[uint]string),
		creating:   make(map[uint]bool),
		generating: make(map[uint]bool),
		timers:     make(map[string]*time.Timer),
	}
	s.trivia = newTriviaGenerator(cfg)
	s.startVoteFeed()
	return s
}

// Close stops the background vote-count feed and any pending reveal
// timers.
func (s *Server) Close() {
	if s.stopVoteFeed != nil {
		s.stopVoteFeed()
	}
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms/lookup", s.handleLookupRoom)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleRoomSnapshot)
	mux.HandleFunc("POST /api/rooms/{id}/join", s.handleJoinRoom)
	mux.HandleFunc("POST /api/rooms/{id}/settings", s.handleSettings)
	mux.HandleFunc("POST /api/rooms/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /api/rooms/{id}/submissions", s.handleSubmitSong)
	mux.HandleFunc("GET /api/rooms/{id}/rounds", s.handleRounds)
	mux.HandleFunc("POST /api/rooms/{id}/votes", s.handleVote)
	mux.HandleFunc("GET /api/rooms/{id}/rounds/{roundID}/votes/count", s.handleVoteCount)
	mux.HandleFunc("GET /api/rooms/{id}/trivia", s.handleTriviaQuestions)
	mux.HandleFunc("POST /api/rooms/{id}/trivia/answers", s.handleTriviaAnswer)
	mux.HandleFunc("POST /api/rooms/{id}/favourites", s.handleFavourite)
	mux.HandleFunc("GET /api/rooms/{id}/results", s.handleResults)
	mux.HandleFunc("POST /api/rooms/{id}/reveal", s.handleRevealStart)
	mux.HandleFunc("POST /api/rooms/{id}/reveal/skip", s.handleRevealSkip)
	mux.HandleFunc("GET /ws/rooms/{id}", s.handleWebsocket)
	return mux
}

// startVoteFeed bridges store insert notifications onto the per-round vote
// websocket channels so clients can render a live "N voted" counter. The
// counter is presentation only; scoring always re-reads the vote table.
func (s *Server) startVoteFeed() {
	events, cancel := s.gateway.Notifier().Subscribe(func(event store.Insert) bool {
		return event.Table == store.TableVotes || event.Table == store.TableQuizRounds
	})
	s.stopVoteFeed = cancel
	go func() {
		for event := range events {
			switch event.Table {
			case store.TableVotes:
				count, err := s.gateway.CountVotes(event.RoundID)
				if err != nil {
					continue
				}
				s.hub.Broadcast(event.RoomID, channelVotesPrefix+fmt.Sprint(event.RoundID), map[string]any{
					"event":    "vote_recorded",
					"round_id": event.RoundID,
					"count":    count,
				})
			case store.TableQuizRounds:
				s.hub.Broadcast(event.RoomID, channelRoom, map[string]any{
					"event":    "round_created",
					"round_id": event.RoundID,
				})
			}
		}
	}()
}
