package adapters

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/ranfdev/kupolls/internal/models"
)

func TestMemUpsertVote(t *testing.T) {
	ctx := context.Background()
	require := require.New(t)
	repo := NewMemPollRepo()

	q := &models.Question{Text: "Banana?", PublicationTime: time.Now()}
	require.NoError(repo.CreateQuestion(ctx, q, []string{"yes", "no"}))
	other := &models.Question{Text: "Apple?", PublicationTime: time.Now()}
	require.NoError(repo.CreateQuestion(ctx, other, []string{"red", "green"}))

	choices, err := repo.ListChoices(ctx, q.ID)
	require.NoError(err)
	require.Len(choices, 2)
	otherChoices, err := repo.ListChoices(ctx, other.ID)
	require.NoError(err)

	vote := &models.Vote{QuestionID: q.ID, ChoiceID: choices[0].ID, UserID: 1}
	require.NoError(repo.UpsertVote(ctx, vote))
	firstID := vote.ID

	vote = &models.Vote{QuestionID: q.ID, ChoiceID: choices[1].ID, UserID: 1}
	require.NoError(repo.UpsertVote(ctx, vote))
	require.Equal(firstID, vote.ID)
	require.Equal(1, repo.CountVotes(q.ID))

	err = repo.UpsertVote(ctx, &models.Vote{QuestionID: q.ID, ChoiceID: otherChoices[0].ID, UserID: 1})
	require.ErrorIs(err, models.ErrInvalidChoice)

	tally, err := repo.Tally(ctx, q.ID)
	require.NoError(err)
	require.Equal(0, tally[0].Votes)
	require.Equal(1, tally[1].Votes)

	found, err := repo.FindUserVote(ctx, q.ID, 2)
	require.NoError(err)
	require.Nil(found)
}

func TestMemDeleteQuestion(t *testing.T) {
	ctx := context.Background()
	require := require.New(t)
	repo := NewMemPollRepo()

	q := &models.Question{Text: "Banana?", PublicationTime: time.Now()}
	require.NoError(repo.CreateQuestion(ctx, q, []string{"yes", "no"}))
	choices, err := repo.ListChoices(ctx, q.ID)
	require.NoError(err)
	require.NoError(repo.UpsertVote(ctx, &models.Vote{QuestionID: q.ID, ChoiceID: choices[0].ID, UserID: 1}))

	require.NoError(repo.DeleteQuestion(ctx, q.ID))
	require.Equal(0, repo.CountVotes(q.ID))
	choices, err = repo.ListChoices(ctx, q.ID)
	require.NoError(err)
	require.Empty(choices)
	_, err = repo.FindQuestion(ctx, q.ID)
	require.ErrorIs(err, models.ErrQuestionNotFound)
	require.ErrorIs(repo.DeleteQuestion(ctx, q.ID), models.ErrQuestionNotFound)
}

func TestMemListPublished(t *testing.T) {
	ctx := context.Background()
	require := require.New(t)
	repo := NewMemPollRepo()
	now := time.Now()

	bad := &models.Question{
		Text:            "Backwards",
		PublicationTime: now,
		EndTime:         sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
	}
	require.ErrorIs(repo.CreateQuestion(ctx, bad, []string{"a", "b"}), models.ErrInvalidWindow)

	same := now.Add(-time.Hour)
	first := &models.Question{Text: "First", PublicationTime: same}
	second := &models.Question{Text: "Second", PublicationTime: same}
	future := &models.Question{Text: "Future", PublicationTime: now.Add(time.Hour)}
	for _, q := range []*models.Question{first, second, future} {
		require.NoError(repo.CreateQuestion(ctx, q, []string{"a", "b"}))
	}

	list, err := repo.ListPublished(ctx, now, 5)
	require.NoError(err)
	require.Len(list, 2)
	// Ties on publication time go to the newest id.
	require.Equal(second.ID, list[0].ID)
	require.Equal(first.ID, list[1].ID)

	list, err = repo.ListPublished(ctx, now, 1)
	require.NoError(err)
	require.Len(list, 1)
}
