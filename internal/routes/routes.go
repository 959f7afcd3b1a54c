package routes

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/ranfdev/kupolls/internal/domain"
	"gitlab.com/ranfdev/kupolls/internal/models"
	"gitlab.com/ranfdev/kupolls/internal/render"
)

type ContextKey int

const (
	UserCtxKey ContextKey = iota
	QuestionIDCtxKey
)

const tokenCookie = "kupolls_token"

// Accounts is what the routes need from the user store.
type Accounts interface {
	CreateUser(ctx context.Context, user *models.User, passwd string) error
	Login(ctx context.Context, email string, passwd string) (string, error)
	Signout(ctx context.Context, token string) error
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
}

type Routes struct {
	envConfig *models.EnvConfig
	polls     *domain.PollService
	accounts  Accounts
	tmpls     *render.Templates
	log       zerolog.Logger
}

// page is what every template receives.
type page struct {
	User     *models.User
	Messages []string
	Data     interface{}
}

func NewRouter(
	config *models.EnvConfig,
	polls *domain.PollService,
	accounts Accounts,
	log zerolog.Logger,
	tmpls *render.Templates,
	static fs.FS,
) chi.Router {
	r := chi.NewRouter()
	routes := &Routes{
		envConfig: config,
		polls:     polls,
		accounts:  accounts,
		tmpls:     tmpls,
		log:       log,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(20 * time.Second))
	r.Use(middleware.StripSlashes)
	r.Use(routes.UserCtx)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/polls/", http.StatusFound)
	})
	r.Route("/polls", routes.PollsRouter)

	r.Get("/login", routes.GetLogin)
	r.Post("/login", routes.AppHandler(routes.PostLogin))
	r.Get("/signup", routes.GetSignup)
	r.Post("/signup", routes.AppHandler(routes.PostSignup))
	r.Post("/signout", routes.AppHandler(routes.PostSignout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		routes.render(w, r, http.StatusNotFound, "404", nil)
	})
	return r
}

func (routes *Routes) render(w http.ResponseWriter, r *http.Request, status int, tmpl string, data interface{}) {
	routes.tmpls.RenderHTMLStatus(w, status, tmpl, page{
		User:     GetUser(r),
		Messages: routes.popFlashes(w, r),
		Data:     data,
	})
}

// UserCtx loads the user owning the session cookie, if any.
func (routes *Routes) UserCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(tokenCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := routes.accounts.GetUserByToken(r.Context(), cookie.Value)
		if errors.Is(err, models.ErrUnauthenticated) {
			routes.clearSession(w)
			next.ServeHTTP(w, r)
			return
		} else if err != nil {
			routes.HandleErr(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), UserCtxKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EnforceCtx sends the request to the login page when ctxKey is missing.
func (routes *Routes) EnforceCtx(ctxKey ContextKey) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Context().Value(ctxKey) == nil {
				routes.HandleErr(w, r, models.ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(UserCtxKey).(*models.User)
	return user
}

func userID(r *http.Request) int {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

func (routes *Routes) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   routes.envConfig.SessionDays * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   routes.envConfig.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (routes *Routes) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   routes.envConfig.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext only allows local paths as redirect targets.
func safeNext(next string) string {
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/polls/"
	}
	return next
}
