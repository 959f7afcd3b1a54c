package models

import "errors"

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrNotPublished     = errors.New("question not published yet")
	ErrVotingClosed     = errors.New("voting is closed")
	ErrInvalidChoice    = errors.New("invalid choice")
	ErrUnauthenticated  = errors.New("authentication required")
)

var (
	ErrInvalidWindow = errors.New("end time must not precede publication time")
	ErrTooFewChoices = errors.New("a question needs at least two choices")
	ErrEmptyText     = errors.New("text must not be empty")
)

var (
	ErrEmailAlreadyUsed = errors.New("email already used")
	ErrInvalidFormat    = errors.New("invalid email format")
	ErrWeakPasswd       = errors.New("weak password")
	ErrBadCredentials   = errors.New("wrong email or password")
)
