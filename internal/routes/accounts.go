package routes

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"
	"gitlab.com/ranfdev/kupolls/internal/models"
)

type loginData struct {
	Next         string
	Email        string
	ErrorMessage string
}

type signupData struct {
	Name         string
	Email        string
	ErrorMessage string
}

func (routes *Routes) GetLogin(w http.ResponseWriter, r *http.Request) {
	routes.render(w, r, http.StatusOK, "login", loginData{Next: r.URL.Query().Get("next")})
}

func (routes *Routes) PostLogin(w http.ResponseWriter, r *http.Request) AppError {
	email := r.FormValue("email")
	next := safeNext(r.FormValue("next"))

	token, err := routes.accounts.Login(r.Context(), email, r.FormValue("passwd"))
	if errors.Is(err, models.ErrBadCredentials) {
		routes.render(w, r, http.StatusUnauthorized, "login", loginData{
			Next:         next,
			Email:        email,
			ErrorMessage: "Wrong email or password.",
		})
		return nil
	} else if err != nil {
		return &ErrInternal{Message: "Error logging in", Cause: err}
	}
	routes.setSession(w, token)
	http.Redirect(w, r, next, http.StatusSeeOther)
	return nil
}

func (routes *Routes) GetSignup(w http.ResponseWriter, r *http.Request) {
	routes.render(w, r, http.StatusOK, "signup", signupData{})
}

func (routes *Routes) PostSignup(w http.ResponseWriter, r *http.Request) AppError {
	user := &models.User{
		Name:  r.FormValue("name"),
		Email: r.FormValue("email"),
	}
	passwd := r.FormValue("passwd")

	err := routes.accounts.CreateUser(r.Context(), user, passwd)
	var msg string
	switch {
	case errors.Is(err, models.ErrEmailAlreadyUsed):
		msg = "This email is already used."
	case errors.Is(err, models.ErrInvalidFormat):
		msg = "Check the name and email you wrote."
	case errors.Is(err, models.ErrWeakPasswd):
		msg = "The password is too weak."
	case err != nil:
		return &ErrInternal{Message: "Error creating the account", Cause: err}
	}
	if msg != "" {
		routes.render(w, r, http.StatusBadRequest, "signup", signupData{
			Name:         user.Name,
			Email:        user.Email,
			ErrorMessage: msg,
		})
		return nil
	}
	hlog.FromRequest(r).Info().Int("user_id", user.ID).Msg("User signed up")

	token, err := routes.accounts.Login(r.Context(), user.Email, passwd)
	if err != nil {
		return &ErrInternal{Message: "Error logging in", Cause: err}
	}
	routes.setSession(w, token)
	http.Redirect(w, r, "/polls/", http.StatusSeeOther)
	return nil
}

func (routes *Routes) PostSignout(w http.ResponseWriter, r *http.Request) AppError {
	cookie, err := r.Cookie(tokenCookie)
	if err == nil && cookie.Value != "" {
		if err := routes.accounts.Signout(r.Context(), cookie.Value); err != nil {
			return &ErrInternal{Message: "Error signing out", Cause: err}
		}
	}
	routes.clearSession(w)
	http.Redirect(w, r, "/polls/", http.StatusSeeOther)
	return nil
}
