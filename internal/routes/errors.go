package routes

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/ranfdev/kupolls/internal/models"
)

type AppError interface {
	error
	Status() int
	PublicMsg() string
}

type ErrInternal struct {
	Message string
	Cause   error
}

func (e *ErrInternal) Error() string {
	return fmt.Sprintf("internal: %s: %v", e.Message, e.Cause)
}
func (e *ErrInternal) Unwrap() error { return e.Cause }
func (e *ErrInternal) Status() int   { return http.StatusInternalServerError }
func (e *ErrInternal) PublicMsg() string {
	if e.Message == "" {
		return "Internal server error"
	}
	return e.Message
}

type ErrBadRequest struct {
	Cause      error
	Motivation string
}

func (e *ErrBadRequest) Error() string {
	return fmt.Sprintf("bad request: %s: %v", e.Motivation, e.Cause)
}
func (e *ErrBadRequest) Unwrap() error { return e.Cause }
func (e *ErrBadRequest) Status() int   { return http.StatusBadRequest }
func (e *ErrBadRequest) PublicMsg() string {
	if e.Motivation == "" {
		return "Bad request"
	}
	return e.Motivation
}

type ErrNotFound struct {
	Cause error
	Thing string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Thing, e.Cause)
}
func (e *ErrNotFound) Unwrap() error { return e.Cause }
func (e *ErrNotFound) Status() int   { return http.StatusNotFound }
func (e *ErrNotFound) PublicMsg() string {
	return fmt.Sprintf("Can't find %s", e.Thing)
}

// ErrRedirect sends the user elsewhere, showing Message there.
type ErrRedirect struct {
	To      string
	Message string
	Cause   error
}

func (e *ErrRedirect) Error() string {
	return fmt.Sprintf("redirect to %s: %s: %v", e.To, e.Message, e.Cause)
}
func (e *ErrRedirect) Unwrap() error     { return e.Cause }
func (e *ErrRedirect) Status() int       { return http.StatusFound }
func (e *ErrRedirect) PublicMsg() string { return e.Message }

func (routes *Routes) AppHandler(handler func(w http.ResponseWriter, r *http.Request) AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			return
		}
		routes.HandleErr(w, r, err)
	}
}

// toAppError maps domain errors to what the user should see.
func toAppError(r *http.Request, err error) AppError {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrQuestionNotFound):
		return &ErrRedirect{To: "/polls/", Message: "This poll does not exist.", Cause: err}
	case errors.Is(err, models.ErrNotPublished):
		return &ErrRedirect{To: "/polls/", Message: "This poll is not published yet.", Cause: err}
	case errors.Is(err, models.ErrVotingClosed):
		return &ErrRedirect{To: "/polls/", Message: "This poll is over.", Cause: err}
	case errors.Is(err, models.ErrUnauthenticated):
		return &ErrRedirect{
			To:      "/login?next=" + url.QueryEscape(nextPath(r)),
			Message: "Please log in to vote.",
			Cause:   err,
		}
	}
	return &ErrInternal{Cause: err}
}

// nextPath is where to come back after logging in. Form posts return to
// the page containing the form.
func nextPath(r *http.Request) string {
	p := r.URL.Path
	if r.Method == http.MethodGet {
		return p
	}
	return path.Dir(strings.TrimSuffix(p, "/")) + "/"
}

func (routes *Routes) HandleErr(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(r, err)

	if redirect, ok := appErr.(*ErrRedirect); ok {
		hlog.FromRequest(r).
			Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Err(redirect.Cause).
			Str("to", redirect.To).
			Msg(redirect.Message)
		if redirect.Message != "" {
			routes.addFlash(w, redirect.Message)
		}
		http.Redirect(w, r, redirect.To, http.StatusFound)
		return
	}

	level := zerolog.WarnLevel
	if appErr.Status() >= 500 {
		level = zerolog.ErrorLevel
	}
	hlog.FromRequest(r).
		WithLevel(level).
		Str("request_id", middleware.GetReqID(r.Context())).
		Err(appErr).
		Msg(appErr.PublicMsg())
	http.Error(w, appErr.PublicMsg(), appErr.Status())
}
