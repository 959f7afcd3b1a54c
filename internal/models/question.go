package models

import (
	"database/sql"
	"time"
)

// RecentWindow is how far back a publication still counts as recent.
const RecentWindow = 24 * time.Hour

type Question struct {
	ID              int
	Text            string
	PublicationTime time.Time    `db:"publication_time"`
	EndTime         sql.NullTime `db:"end_time"`
}

// IsPublished reports whether the question is visible at now.
func (q Question) IsPublished(now time.Time) bool {
	return !q.PublicationTime.After(now)
}

// CanVote reports whether votes are accepted at now.
// The end time is exclusive: at exactly EndTime the poll is closed.
func (q Question) CanVote(now time.Time) bool {
	if !q.IsPublished(now) {
		return false
	}
	if q.EndTime.Valid {
		return now.Before(q.EndTime.Time)
	}
	return true
}

func (q Question) WasPublishedRecently(now time.Time) bool {
	return q.IsPublished(now) && !q.PublicationTime.Before(now.Add(-RecentWindow))
}

// ValidWindow checks that the end time, when set, doesn't precede publication.
func (q Question) ValidWindow() bool {
	return !q.EndTime.Valid || !q.EndTime.Time.Before(q.PublicationTime)
}

type Choice struct {
	ID         int
	QuestionID int `db:"question_id"`
	Text       string
}

// QuestionView is a question as shown in the index listing.
type QuestionView struct {
	Question
	Recent bool
}
