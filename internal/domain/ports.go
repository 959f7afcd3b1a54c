package domain

import (
	"context"
	"time"

	"gitlab.com/ranfdev/kupolls/internal/models"
)

type PollRepo interface {
	ListPublished(ctx context.Context, now time.Time, limit int) ([]models.Question, error)
	FindQuestion(ctx context.Context, questionID int) (*models.Question, error)
	ListChoices(ctx context.Context, questionID int) ([]models.Choice, error)
	FindUserVote(ctx context.Context, questionID int, userID int) (*models.Vote, error)
	UpsertVote(ctx context.Context, vote *models.Vote) error
	Tally(ctx context.Context, questionID int) ([]models.ChoiceTally, error)
	CreateQuestion(ctx context.Context, q *models.Question, choices []string) error
	DeleteQuestion(ctx context.Context, questionID int) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
