package store

import (
	"sort"
	"sync"

	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
)

// memoryGateway keeps all rows in mutex-guarded maps. It mirrors the
// Postgres gateway's semantics exactly, including which inserts are
// rejected as duplicates, so the server and its tests can run without a
// database.
type memoryGateway struct {
	mu     sync.Mutex
	nextID uint
	notify *Notifier

	rooms        map[uint]*db.Room
	participants map[uint]*db.Participant
	submissions  map[uint]*db.Submission
	rounds       map[uint]*db.QuizRound
	votes        map[uint]*db.Vote
	questions    map[uint]*db.TriviaQuestion
	answers      map[uint]*db.TriviaAnswer
	favourites   map[uint]*db.FavouriteVote
}

func NewMemory() Gateway {
	return &memoryGateway{
		nextID:       1,
		notify:       NewNotifier(),
		rooms:        make(map[uint]*db.Room),
		participants: make(map[uint]*db.Participant),
		submissions:  make(map[uint]*db.Submission),
		rounds:       make(map[uint]*db.QuizRound),
		votes:        make(map[uint]*db.Vote),
		questions:    make(map[uint]*db.TriviaQuestion),
		answers:      make(map[uint]*db.TriviaAnswer),
		favourites:   make(map[uint]*db.FavouriteVote),
	}
}

func (m *memoryGateway) Notifier() *Notifier { return m.notify }

func (m *memoryGateway) allocate() uint {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memoryGateway) CreateRoom(room *db.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rooms {
		if existing.Code == room.Code {
			return ErrDuplicate
		}
	}
	room.ID = m.allocate()
	clone := *room
	m.rooms[room.ID] = &clone
	return nil
}

func (m *memoryGateway) RoomByID(id uint) (db.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return db.Room{}, ErrNotFound
	}
	return *room, nil
}

func (m *memoryGateway) RoomByCode(code string) (db.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range m.rooms {
		if room.Code == code {
			return *room, nil
		}
	}
	return db.Room{}, ErrNotFound
}

func (m *memoryGateway) UpdateRoomStatus(roomID uint, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	room.Status = status
	return nil
}

func (m *memoryGateway) UpdateRoomSettings(roomID uint, settings []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	room.Settings = append([]byte(nil), settings...)
	return nil
}

func (m *memoryGateway) AddParticipant(participant *db.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.participants {
		if existing.RoomID == participant.RoomID && existing.DisplayName == participant.DisplayName {
			return ErrDuplicate
		}
	}
	participant.ID = m.allocate()
	clone := *participant
	m.participants[participant.ID] = &clone
	return nil
}

func (m *memoryGateway) Participants(roomID uint) ([]db.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Participant, 0)
	for _, participant := range m.participants {
		if participant.RoomID == roomID {
			out = append(out, *participant)
		}
	}
	sortByID(out, func(p db.Participant) uint { return p.ID })
	return out, nil
}

func (m *memoryGateway) UpdateParticipant(participant *db.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[participant.ID]; !ok {
		return ErrNotFound
	}
	clone := *participant
	m.participants[participant.ID] = &clone
	return nil
}

func (m *memoryGateway) ResetParticipants(roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, participant := range m.participants {
		if participant.RoomID == roomID {
			participant.Score = 0
			participant.HasSubmitted = false
		}
	}
	return nil
}

func (m *memoryGateway) AddSubmission(sub *db.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.ID = m.allocate()
	clone := *sub
	m.submissions[sub.ID] = &clone
	return nil
}

func (m *memoryGateway) Submissions(roomID uint) ([]db.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Submission, 0)
	for _, sub := range m.submissions {
		if sub.RoomID == roomID {
			out = append(out, *sub)
		}
	}
	sortByID(out, func(s db.Submission) uint { return s.ID })
	return out, nil
}

func (m *memoryGateway) DeleteSubmissions(roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.submissions {
		if sub.RoomID == roomID {
			delete(m.submissions, id)
		}
	}
	return nil
}

func (m *memoryGateway) CreateRounds(rounds []db.QuizRound) error {
	m.mu.Lock()
	for i := range rounds {
		for _, existing := range m.rounds {
			if existing.RoomID == rounds[i].RoomID && existing.RoundNumber == rounds[i].RoundNumber {
				m.mu.Unlock()
				return ErrDuplicate
			}
		}
		rounds[i].ID = m.allocate()
		clone := rounds[i]
		m.rounds[rounds[i].ID] = &clone
	}
	m.mu.Unlock()
	for _, round := range rounds {
		m.notify.Publish(Insert{Table: TableQuizRounds, RoomID: round.RoomID, RoundID: round.ID, RowID: round.ID})
	}
	return nil
}

func (m *memoryGateway) Rounds(roomID uint) ([]db.QuizRound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.QuizRound, 0)
	for _, round := range m.rounds {
		if round.RoomID == roomID {
			out = append(out, *round)
		}
	}
	sortByID(out, func(r db.QuizRound) uint { return uint(r.RoundNumber) })
	return out, nil
}

func (m *memoryGateway) DeleteRounds(roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, round := range m.rounds {
		if round.RoomID == roomID {
			delete(m.rounds, id)
		}
	}
	return nil
}

func (m *memoryGateway) InsertVote(vote *db.Vote) error {
	m.mu.Lock()
	for _, existing := range m.votes {
		if existing.RoundID == vote.RoundID && existing.VoterID == vote.VoterID {
			m.mu.Unlock()
			return ErrDuplicate
		}
	}
	vote.ID = m.allocate()
	clone := *vote
	m.votes[vote.ID] = &clone
	var roomID uint
	if round, ok := m.rounds[vote.RoundID]; ok {
		roomID = round.RoomID
	}
	m.mu.Unlock()
	m.notify.Publish(Insert{Table: TableVotes, RoomID: roomID, RoundID: vote.RoundID, RowID: vote.ID})
	return nil
}

func (m *memoryGateway) Votes(roomID uint) ([]db.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roundIDs := make(map[uint]bool)
	for _, round := range m.rounds {
		if round.RoomID == roomID {
			roundIDs[round.ID] = true
		}
	}
	out := make([]db.Vote, 0)
	for _, vote := range m.votes {
		if roundIDs[vote.RoundID] {
			out = append(out, *vote)
		}
	}
	sortByID(out, func(v db.Vote) uint { return v.ID })
	return out, nil
}

func (m *memoryGateway) CountVotes(roundID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, vote := range m.votes {
		if vote.RoundID == roundID {
			count++
		}
	}
	return count, nil
}

func (m *memoryGateway) DeleteVotes(roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roundIDs := make(map[uint]bool)
	for _, round := range m.rounds {
		if round.RoomID == roomID {
			roundIDs[round.ID] = true
		}
	}
	for id, vote := range m.votes {
		if roundIDs[vote.RoundID] {
			delete(m.votes, id)
		}
	}
	return nil
}

func (m *memoryGateway) CreateTriviaQuestions(questions []db.TriviaQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range questions {
		for _, existing := range m.questions {
			if existing.RoomID == questions[i].RoomID && existing.Position == questions[i].Position {
				return ErrDuplicate
			}
		}
		questions[i].ID = m.allocate()
		clone := questions[i]
		m.questions[questions[i].ID] = &clone
	}
	return nil
}

func (m *memoryGateway) TriviaQuestions(roomID uint) ([]db.TriviaQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.TriviaQuestion, 0)
	for _, question := range m.questions {
		if question.RoomID == roomID {
			out = append(out, *question)
		}
	}
	sortByID(out, func(q db.TriviaQuestion) uint { return uint(q.Position) })
	return out, nil
}

func (m *memoryGateway) InsertTriviaAnswer(answer *db.TriviaAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.answers {
		if existing.QuestionID == answer.QuestionID && existing.ParticipantID == answer.ParticipantID {
			return ErrDuplicate
		}
	}
	answer.ID = m.allocate()
	clone := *answer
	m.answers[answer.ID] = &clone
	return nil
}

func (m *memoryGateway) TriviaAnswers(roomID uint) ([]db.TriviaAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	questionIDs := make(map[uint]bool)
	for _, question := range m.questions {
		if question.RoomID == roomID {
			questionIDs[question.ID] = true
		}
	}
	out := make([]db.TriviaAnswer, 0)
	for _, answer := range m.answers {
		if questionIDs[answer.QuestionID] {
			out = append(out, *answer)
		}
	}
	sortByID(out, func(a db.TriviaAnswer) uint { return a.ID })
	return out, nil
}

func (m *memoryGateway) DeleteTrivia(roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	questionIDs := make(map[uint]bool)
	for id, question := range m.questions {
		if question.RoomID == roomID {
			questionIDs[id] = true
			delete(m.questions, id)
		}
	}
	for id, answer := range m.answers {
		if questionIDs[answer.QuestionID] {
			delete(m.answers, id)
		}
	}
	return nil
}

func (m *memoryGateway) InsertFavourite(fav *db.FavouriteVote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.favourites {
		if existing.RoomID == fav.RoomID && existing.VoterID == fav.VoterID {
			return ErrDuplicate
		}
	}
	fav.ID = m.allocate()
	clone := *fav
	m.favourites[fav.ID] = &clone
	return nil
}

func (m *memoryGateway) Favourites(roomID uint) ([]db.FavouriteVote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.FavouriteVote, 0)
	for _, fav := range m.favourites {
		if fav.RoomID == roomID {
			out = append(out, *fav)
		}
	}
	sortByID(out, func(f db.FavouriteVote) uint { return f.ID })
	return out, nil
}

func (m *memoryGateway) DeleteFavourites(roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, fav := range m.favourites {
		if fav.RoomID == roomID {
			delete(m.favourites, id)
		}
	}
	return nil
}

func sortByID[T any](items []T, key func(T) uint) {
	sort.Slice(items, func(i, j int) bool {
		return key(items[i]) < key(items[j])
	})
}
