package adapters

import (
	"context"
	"sort"
	"sync"
	"time"

	"gitlab.com/ranfdev/kupolls/internal/models"
)

type voteKey struct {
	userID     int
	questionID int
}

// MemPollRepo keeps polls in memory. It follows the same rules as the
// postgres schema: one vote per (user, question), cascading deletes.
type MemPollRepo struct {
	mu        sync.Mutex
	questions map[int]models.Question
	choices   map[int]models.Choice
	votes     map[voteKey]models.Vote
	nextID    int
}

func NewMemPollRepo() *MemPollRepo {
	return &MemPollRepo{
		questions: map[int]models.Question{},
		choices:   map[int]models.Choice{},
		votes:     map[voteKey]models.Vote{},
	}
}

func (r *MemPollRepo) genID() int {
	r.nextID++
	return r.nextID
}

func (r *MemPollRepo) ListPublished(ctx context.Context, now time.Time, limit int) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	questions := []models.Question{}
	for _, q := range r.questions {
		if q.IsPublished(now) {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		if a.PublicationTime.Equal(b.PublicationTime) {
			return a.ID > b.ID
		}
		return a.PublicationTime.After(b.PublicationTime)
	})
	if len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}

func (r *MemPollRepo) FindQuestion(ctx context.Context, questionID int) (*models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.questions[questionID]
	if !ok {
		return nil, models.ErrQuestionNotFound
	}
	return &q, nil
}

func (r *MemPollRepo) ListChoices(ctx context.Context, questionID int) ([]models.Choice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listChoices(questionID), nil
}

func (r *MemPollRepo) listChoices(questionID int) []models.Choice {
	choices := []models.Choice{}
	for _, c := range r.choices {
		if c.QuestionID == questionID {
			choices = append(choices, c)
		}
	}
	sort.Slice(choices, func(i, j int) bool { return choices[i].ID < choices[j].ID })
	return choices
}

func (r *MemPollRepo) FindUserVote(ctx context.Context, questionID int, userID int) (*models.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.votes[voteKey{userID, questionID}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *MemPollRepo) UpsertVote(ctx context.Context, vote *models.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.choices[vote.ChoiceID]
	if !ok || c.QuestionID != vote.QuestionID {
		return models.ErrInvalidChoice
	}
	key := voteKey{vote.UserID, vote.QuestionID}
	if existing, ok := r.votes[key]; ok {
		vote.ID = existing.ID
	} else {
		vote.ID = r.genID()
	}
	r.votes[key] = *vote
	return nil
}

func (r *MemPollRepo) Tally(ctx context.Context, questionID int) ([]models.ChoiceTally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := map[int]int{}
	for _, v := range r.votes {
		counts[v.ChoiceID]++
	}
	tallies := []models.ChoiceTally{}
	for _, c := range r.listChoices(questionID) {
		tallies = append(tallies, models.ChoiceTally{Choice: c, Votes: counts[c.ID]})
	}
	return tallies, nil
}

func (r *MemPollRepo) CreateQuestion(ctx context.Context, q *models.Question, choices []string) error {
	if !q.ValidWindow() {
		return models.ErrInvalidWindow
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	q.ID = r.genID()
	r.questions[q.ID] = *q
	for _, text := range choices {
		c := models.Choice{ID: r.genID(), QuestionID: q.ID, Text: text}
		r.choices[c.ID] = c
	}
	return nil
}

func (r *MemPollRepo) DeleteQuestion(ctx context.Context, questionID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.questions[questionID]; !ok {
		return models.ErrQuestionNotFound
	}
	delete(r.questions, questionID)
	for id, c := range r.choices {
		if c.QuestionID == questionID {
			delete(r.choices, id)
		}
	}
	for k := range r.votes {
		if k.questionID == questionID {
			delete(r.votes, k)
		}
	}
	return nil
}

// CountVotes returns how many vote rows exist for the question.
func (r *MemPollRepo) CountVotes(questionID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.votes {
		if k.questionID == questionID {
			n++
		}
	}
	return n
}
