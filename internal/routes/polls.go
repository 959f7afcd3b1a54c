package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/ranfdev/kupolls/internal/models"
)

const noChoiceMsg = "You didn't select a choice."

type indexData struct {
	Questions []models.QuestionView
}

type detailData struct {
	*models.Detail
	VotedChoice  int
	ErrorMessage string
}

func (routes *Routes) PollsRouter(r chi.Router) {
	r.Get("/", routes.AppHandler(routes.GetIndex))

	specific := r.With(routes.QuestionCtx)
	specific.Get("/{questionID}", routes.AppHandler(routes.GetDetail))
	specific.Get("/{questionID}/results", routes.AppHandler(routes.GetResults))
	specific.With(routes.EnforceCtx(UserCtxKey)).Post("/{questionID}/vote", routes.AppHandler(routes.PostVote))
}

// QuestionCtx parses the question id from the url.
func (routes *Routes) QuestionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		questionID, err := strconv.Atoi(chi.URLParam(r, "questionID"))
		if err != nil {
			routes.HandleErr(w, r, fmt.Errorf("%w: %v", models.ErrQuestionNotFound, err))
			return
		}
		ctx := context.WithValue(r.Context(), QuestionIDCtxKey, questionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetQuestionID(r *http.Request) int {
	id, _ := r.Context().Value(QuestionIDCtxKey).(int)
	return id
}

func (routes *Routes) GetIndex(w http.ResponseWriter, r *http.Request) AppError {
	questions, err := routes.polls.LatestPublished(r.Context())
	if err != nil {
		return &ErrInternal{Message: "Error listing polls", Cause: err}
	}
	routes.render(w, r, http.StatusOK, "index", indexData{Questions: questions})
	return nil
}

func (routes *Routes) GetDetail(w http.ResponseWriter, r *http.Request) AppError {
	return routes.renderDetail(w, r, "")
}

// renderDetail checks the poll can be voted before asking for a login.
func (routes *Routes) renderDetail(w http.ResponseWriter, r *http.Request, errMsg string) AppError {
	questionID := GetQuestionID(r)
	detail, err := routes.polls.Detail(r.Context(), questionID)
	if err != nil {
		return toAppError(r, err)
	}
	user := GetUser(r)
	if user == nil {
		return toAppError(r, models.ErrUnauthenticated)
	}
	voted, err := routes.polls.VotedChoice(r.Context(), questionID, user.ID)
	if err != nil {
		return &ErrInternal{Cause: err}
	}
	routes.render(w, r, http.StatusOK, "detail", detailData{
		Detail:       detail,
		VotedChoice:  voted,
		ErrorMessage: errMsg,
	})
	return nil
}

func (routes *Routes) GetResults(w http.ResponseWriter, r *http.Request) AppError {
	res, err := routes.polls.Results(r.Context(), GetQuestionID(r))
	if errors.Is(err, models.ErrNotPublished) {
		return &ErrRedirect{To: "/polls/", Message: "This poll result is not available.", Cause: err}
	} else if err != nil {
		return toAppError(r, err)
	}
	routes.render(w, r, http.StatusOK, "results", res)
	return nil
}

func (routes *Routes) PostVote(w http.ResponseWriter, r *http.Request) AppError {
	questionID := GetQuestionID(r)
	// A missing or malformed choice is never a valid choice id.
	choiceID, _ := strconv.Atoi(r.FormValue("choice"))

	_, err := routes.polls.CastVote(r.Context(), questionID, userID(r), choiceID)
	if errors.Is(err, models.ErrInvalidChoice) {
		hlog.FromRequest(r).Debug().Int("question_id", questionID).Str("choice", r.FormValue("choice")).Msg("Invalid choice")
		return routes.renderDetail(w, r, noChoiceMsg)
	} else if err != nil {
		return toAppError(r, err)
	}
	http.Redirect(w, r, fmt.Sprintf("/polls/%d/results/", questionID), http.StatusSeeOther)
	return nil
}
