package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgconn"
	"gitlab.com/ranfdev/kupolls/internal/models"
)

const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var selectQuestion = psql.
	Select("id", "text", "publication_time", "end_time").
	From("questions")

// PollRepo stores questions, choices and votes in postgres.
type PollRepo struct {
	db DBTX
}

func NewPollRepo(db DBTX) *PollRepo {
	return &PollRepo{db}
}

func (r *PollRepo) ListPublished(ctx context.Context, now time.Time, limit int) ([]models.Question, error) {
	sql, args, _ := selectQuestion.
		Where(sq.LtOrEq{"publication_time": now}).
		OrderBy("publication_time DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()

	questions := []models.Question{}
	err := pgxscan.Select(ctx, r.db, &questions, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing published questions: %w", err)
	}
	return questions, nil
}

func (r *PollRepo) FindQuestion(ctx context.Context, questionID int) (*models.Question, error) {
	sql, args, _ := selectQuestion.
		Where(sq.Eq{"id": questionID}).
		ToSql()

	q := &models.Question{}
	err := pgxscan.Get(ctx, r.db, q, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, models.ErrQuestionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("reading question %d: %w", questionID, err)
	}
	return q, nil
}

func (r *PollRepo) ListChoices(ctx context.Context, questionID int) ([]models.Choice, error) {
	sql, args, _ := psql.
		Select("id", "question_id", "text").
		From("choices").
		Where(sq.Eq{"question_id": questionID}).
		OrderBy("id").
		ToSql()

	choices := []models.Choice{}
	err := pgxscan.Select(ctx, r.db, &choices, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing choices of %d: %w", questionID, err)
	}
	return choices, nil
}

func (r *PollRepo) FindUserVote(ctx context.Context, questionID int, userID int) (*models.Vote, error) {
	sql, args, _ := psql.
		Select("id", "question_id", "choice_id", "user_id").
		From("votes").
		Where(sq.Eq{"question_id": questionID, "user_id": userID}).
		ToSql()

	vote := &models.Vote{}
	err := pgxscan.Get(ctx, r.db, vote, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading vote: %w", err)
	}
	return vote, nil
}

// UpsertVote inserts the vote or, if the user already voted on the question,
// moves the existing row to the new choice.
func (r *PollRepo) UpsertVote(ctx context.Context, vote *models.Vote) error {
	sql, args, _ := psql.
		Insert("votes").
		Columns("question_id", "choice_id", "user_id").
		Values(vote.QuestionID, vote.ChoiceID, vote.UserID).
		Suffix("ON CONFLICT (user_id, question_id) DO UPDATE SET choice_id = EXCLUDED.choice_id RETURNING id").
		ToSql()

	err := r.db.QueryRow(ctx, sql, args...).Scan(&vote.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation && pgErr.ConstraintName == "votes_choice_fk" {
		return models.ErrInvalidChoice
	} else if err != nil {
		return fmt.Errorf("saving vote: %w", err)
	}
	return nil
}

func (r *PollRepo) Tally(ctx context.Context, questionID int) ([]models.ChoiceTally, error) {
	sql, args, _ := psql.
		Select("choices.id", "choices.question_id", "choices.text", "COUNT(votes.id) AS votes").
		From("choices").
		LeftJoin("votes ON votes.choice_id = choices.id").
		Where(sq.Eq{"choices.question_id": questionID}).
		GroupBy("choices.id").
		OrderBy("choices.id").
		ToSql()

	tallies := []models.ChoiceTally{}
	err := pgxscan.Select(ctx, r.db, &tallies, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("counting votes of %d: %w", questionID, err)
	}
	return tallies, nil
}

func (r *PollRepo) CreateQuestion(ctx context.Context, q *models.Question, choices []string) error {
	return execTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		sql, args, _ := psql.
			Insert("questions").
			Columns("text", "publication_time", "end_time").
			Values(q.Text, q.PublicationTime, q.EndTime).
			Suffix("RETURNING id").
			ToSql()

		err := tx.QueryRow(ctx, sql, args...).Scan(&q.ID)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return models.ErrInvalidWindow
		} else if err != nil {
			return fmt.Errorf("inserting question: %w", err)
		}

		if len(choices) == 0 {
			return nil
		}
		insert := psql.Insert("choices").Columns("question_id", "text")
		for _, c := range choices {
			insert = insert.Values(q.ID, c)
		}
		sql, args, _ = insert.ToSql()
		_, err = tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("inserting choices: %w", err)
		}
		return nil
	})
}

func (r *PollRepo) DeleteQuestion(ctx context.Context, questionID int) error {
	sql, args, _ := psql.
		Delete("questions").
		Where(sq.Eq{"id": questionID}).
		ToSql()

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("deleting question %d: %w", questionID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrQuestionNotFound
	}
	return nil
}
