package models

type Vote struct {
	ID         int
	QuestionID int `db:"question_id"`
	ChoiceID   int `db:"choice_id"`
	UserID     int `db:"user_id"`
}

type ChoiceTally struct {
	Choice
	Votes int
}

type Results struct {
	Question *Question
	Choices  []ChoiceTally
	Total    int
}

// Detail is what a voter sees before casting a vote.
type Detail struct {
	Question *Question
	Choices  []Choice
}
