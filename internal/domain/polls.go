package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/ranfdev/kupolls/internal/models"
)

// IndexLimit caps how many questions the index lists.
const IndexLimit = 5

type PollService struct {
	repo   PollRepo
	clock  Clock
	logger zerolog.Logger
}

func NewPollService(repo PollRepo, clock Clock, logger zerolog.Logger) *PollService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &PollService{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// LatestPublished lists the most recently published questions, newest first.
func (s *PollService) LatestPublished(ctx context.Context) ([]models.QuestionView, error) {
	now := s.clock.Now()
	questions, err := s.repo.ListPublished(ctx, now, IndexLimit)
	if err != nil {
		return nil, err
	}
	views := make([]models.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, models.QuestionView{
			Question: q,
			Recent:   q.WasPublishedRecently(now),
		})
	}
	return views, nil
}

// Detail returns the question with its choices, if it's open for voting.
func (s *PollService) Detail(ctx context.Context, questionID int) (*models.Detail, error) {
	q, err := s.repo.FindQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !q.IsPublished(now) {
		return nil, models.ErrNotPublished
	}
	if !q.CanVote(now) {
		return nil, models.ErrVotingClosed
	}
	choices, err := s.repo.ListChoices(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return &models.Detail{Question: q, Choices: choices}, nil
}

// VotedChoice returns the id of the choice userID currently holds, or 0.
func (s *PollService) VotedChoice(ctx context.Context, questionID int, userID int) (int, error) {
	if userID == 0 {
		return 0, nil
	}
	vote, err := s.repo.FindUserVote(ctx, questionID, userID)
	if err != nil {
		return 0, err
	}
	if vote == nil {
		return 0, nil
	}
	return vote.ChoiceID, nil
}

func (s *PollService) Results(ctx context.Context, questionID int) (*models.Results, error) {
	q, err := s.repo.FindQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !q.IsPublished(s.clock.Now()) {
		return nil, models.ErrNotPublished
	}
	return s.results(ctx, q)
}

func (s *PollService) results(ctx context.Context, q *models.Question) (*models.Results, error) {
	tallies, err := s.repo.Tally(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	res := &models.Results{Question: q, Choices: tallies}
	for _, t := range tallies {
		res.Total += t.Votes
	}
	return res, nil
}

// CastVote records userID's choice for the question, replacing any earlier
// choice, and returns the updated results.
func (s *PollService) CastVote(ctx context.Context, questionID int, userID int, choiceID int) (*models.Results, error) {
	if userID == 0 {
		return nil, models.ErrUnauthenticated
	}
	q, err := s.repo.FindQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	choices, err := s.repo.ListChoices(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if !containsChoice(choices, choiceID) {
		return nil, models.ErrInvalidChoice
	}
	if !q.CanVote(s.clock.Now()) {
		return nil, models.ErrVotingClosed
	}

	vote := &models.Vote{QuestionID: q.ID, ChoiceID: choiceID, UserID: userID}
	if err := s.repo.UpsertVote(ctx, vote); err != nil {
		return nil, err
	}
	s.logger.Debug().
		Int("question_id", q.ID).
		Int("choice_id", choiceID).
		Int("user_id", userID).
		Msg("Vote recorded")

	return s.results(ctx, q)
}

func (s *PollService) Choices(ctx context.Context, questionID int) ([]models.Choice, error) {
	return s.repo.ListChoices(ctx, questionID)
}

// CreatePoll stores a new question together with its choices.
func (s *PollService) CreatePoll(ctx context.Context, q *models.Question, choices []string) error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return models.ErrEmptyText
	}
	if !q.ValidWindow() {
		return models.ErrInvalidWindow
	}
	cleaned := make([]string, 0, len(choices))
	for _, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" {
			return fmt.Errorf("choice %d: %w", len(cleaned)+1, models.ErrEmptyText)
		}
		cleaned = append(cleaned, c)
	}
	if len(cleaned) < 2 {
		return models.ErrTooFewChoices
	}
	if err := s.repo.CreateQuestion(ctx, q, cleaned); err != nil {
		return err
	}
	s.logger.Info().Int("question_id", q.ID).Int("choices", len(cleaned)).Msg("Poll created")
	return nil
}

func containsChoice(choices []models.Choice, choiceID int) bool {
	for _, c := range choices {
		if c.ID == choiceID {
			return true
		}
	}
	return false
}
