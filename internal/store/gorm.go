package store

import (
	"errors"

	"github.com/dr-harper/spotify-quiz-sub000/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

type gormGateway struct {
	conn   *gorm.DB
	notify *Notifier
}

// NewGorm wraps a GORM connection in the Gateway contract. Uniqueness is
// enforced by the schema's unique indexes; violations surface as
// ErrDuplicate.
func NewGorm(conn *gorm.DB) Gateway {
	return &gormGateway{conn: conn, notify: NewNotifier()}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}

func (g *gormGateway) Notifier() *Notifier { return g.notify }

func (g *gormGateway) CreateRoom(room *db.Room) error {
	return translate(g.conn.Create(room).Error)
}

func (g *gormGateway) RoomByID(id uint) (db.Room, error) {
	var room db.Room
	err := g.conn.First(&room, id).Error
	return room, translate(err)
}

func (g *gormGateway) RoomByCode(code string) (db.Room, error) {
	var room db.Room
	err := g.conn.Where("code = ?", code).First(&room).Error
	return room, translate(err)
}

func (g *gormGateway) UpdateRoomStatus(roomID uint, status string) error {
	return translate(g.conn.Model(&db.Room{}).Where("id = ?", roomID).Update("status", status).Error)
}

func (g *gormGateway) UpdateRoomSettings(roomID uint, settings []byte) error {
	return translate(g.conn.Model(&db.Room{}).Where("id = ?", roomID).Update("settings", settings).Error)
}

func (g *gormGateway) AddParticipant(participant *db.Participant) error {
	return translate(g.conn.Create(participant).Error)
}

func (g *gormGateway) Participants(roomID uint) ([]db.Participant, error) {
	var participants []db.Participant
	err := g.conn.Where("room_id = ?", roomID).Order("id").Find(&participants).Error
	return participants, translate(err)
}

func (g *gormGateway) UpdateParticipant(participant *db.Participant) error {
	return translate(g.conn.Save(participant).Error)
}

func (g *gormGateway) ResetParticipants(roomID uint) error {
	return translate(g.conn.Model(&db.Participant{}).
		Where("room_id = ?", roomID).
		Updates(map[string]any{"score": 0, "has_submitted": false}).Error)
}

func (g *gormGateway) AddSubmission(sub *db.Submission) error {
	return translate(g.conn.Create(sub).Error)
}

func (g *gormGateway) Submissions(roomID uint) ([]db.Submission, error) {
	var subs []db.Submission
	err := g.conn.Where("room_id = ?", roomID).Order("id").Find(&subs).Error
	return subs, translate(err)
}

func (g *gormGateway) DeleteSubmissions(roomID uint) error {
	return translate(g.conn.Where("room_id = ?", roomID).Delete(&db.Submission{}).Error)
}

func (g *gormGateway) CreateRounds(rounds []db.QuizRound) error {
	if len(rounds) == 0 {
		return nil
	}
	if err := translate(g.conn.Create(&rounds).Error); err != nil {
		return err
	}
	for _, round := range rounds {
		g.notify.Publish(Insert{Table: TableQuizRounds, RoomID: round.RoomID, RoundID: round.ID, RowID: round.ID})
	}
	return nil
}

func (g *gormGateway) Rounds(roomID uint) ([]db.QuizRound, error) {
	var rounds []db.QuizRound
	err := g.conn.Where("room_id = ?", roomID).Order("round_number").Find(&rounds).Error
	return rounds, translate(err)
}

func (g *gormGateway) DeleteRounds(roomID uint) error {
	return translate(g.conn.Where("room_id = ?", roomID).Delete(&db.QuizRound{}).Error)
}

func (g *gormGateway) roundIDs(roomID uint) *gorm.DB {
	return g.conn.Model(&db.QuizRound{}).Select("id").Where("room_id = ?", roomID)
}

func (g *gormGateway) InsertVote(vote *db.Vote) error {
	if err := translate(g.conn.Create(vote).Error); err != nil {
		return err
	}
	var round db.QuizRound
	if err := g.conn.First(&round, vote.RoundID).Error; err == nil {
		g.notify.Publish(Insert{Table: TableVotes, RoomID: round.RoomID, RoundID: vote.RoundID, RowID: vote.ID})
	}
	return nil
}

func (g *gormGateway) Votes(roomID uint) ([]db.Vote, error) {
	var votes []db.Vote
	err := g.conn.Where("round_id IN (?)", g.roundIDs(roomID)).Order("id").Find(&votes).Error
	return votes, translate(err)
}

func (g *gormGateway) CountVotes(roundID uint) (int, error) {
	var count int64
	err := g.conn.Model(&db.Vote{}).Where("round_id = ?", roundID).Count(&count).Error
	return int(count), translate(err)
}

func (g *gormGateway) DeleteVotes(roomID uint) error {
	return translate(g.conn.Where("round_id IN (?)", g.roundIDs(roomID)).Delete(&db.Vote{}).Error)
}

func (g *gormGateway) CreateTriviaQuestions(questions []db.TriviaQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return translate(g.conn.Create(&questions).Error)
}

func (g *gormGateway) TriviaQuestions(roomID uint) ([]db.TriviaQuestion, error) {
	var questions []db.TriviaQuestion
	err := g.conn.Where("room_id = ?", roomID).Order("position").Find(&questions).Error
	return questions, translate(err)
}

func (g *gormGateway) InsertTriviaAnswer(answer *db.TriviaAnswer) error {
	return translate(g.conn.Create(answer).Error)
}

func (g *gormGateway) TriviaAnswers(roomID uint) ([]db.TriviaAnswer, error) {
	var answers []db.TriviaAnswer
	questionIDs := g.conn.Model(&db.TriviaQuestion{}).Select("id").Where("room_id = ?", roomID)
	err := g.conn.Where("question_id IN (?)", questionIDs).Order("id").Find(&answers).Error
	return answers, translate(err)
}

func (g *gormGateway) DeleteTrivia(roomID uint) error {
	questionIDs := g.conn.Model(&db.TriviaQuestion{}).Select("id").Where("room_id = ?", roomID)
	if err := translate(g.conn.Where("question_id IN (?)", questionIDs).Delete(&db.TriviaAnswer{}).Error); err != nil {
		return err
	}
	return translate(g.conn.Where("room_id = ?", roomID).Delete(&db.TriviaQuestion{}).Error)
}

func (g *gormGateway) InsertFavourite(fav *db.FavouriteVote) error {
	return translate(g.conn.Create(fav).Error)
}

func (g *gormGateway) Favourites(roomID uint) ([]db.FavouriteVote, error) {
	var favs []db.FavouriteVote
	err := g.conn.Where("room_id = ?", roomID).Order("id").Find(&favs).Error
	return favs, translate(err)
}

func (g *gormGateway) DeleteFavourites(roomID uint) error {
	return translate(g.conn.Where("room_id = ?", roomID).Delete(&db.FavouriteVote{}).Error)
}
