package routes

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gitlab.com/ranfdev/kupolls/internal/adapters"
	"gitlab.com/ranfdev/kupolls/internal/domain"
	"gitlab.com/ranfdev/kupolls/internal/models"
	"gitlab.com/ranfdev/kupolls/internal/render"
	"gitlab.com/ranfdev/kupolls/web"
)

const day = 24 * time.Hour

type fakeAccounts struct {
	users  map[string]*models.User
	tokens map[string]*models.User
	nextID int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: map[string]*models.User{}, tokens: map[string]*models.User{}}
}

func (a *fakeAccounts) CreateUser(ctx context.Context, user *models.User, passwd string) error {
	if _, ok := a.users[user.Email]; ok {
		return models.ErrEmailAlreadyUsed
	}
	if len(passwd) < 8 {
		return models.ErrWeakPasswd
	}
	a.nextID++
	user.ID = a.nextID
	a.users[user.Email] = user
	return nil
}

func (a *fakeAccounts) Login(ctx context.Context, email string, passwd string) (string, error) {
	user, ok := a.users[email]
	if !ok || passwd != "banana-1234!" {
		return "", models.ErrBadCredentials
	}
	token := fmt.Sprintf("token-%d", user.ID)
	a.tokens[token] = user
	return token, nil
}

func (a *fakeAccounts) Signout(ctx context.Context, token string) error {
	delete(a.tokens, token)
	return nil
}

func (a *fakeAccounts) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	user, ok := a.tokens[token]
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	return user, nil
}

type testEnv struct {
	router   chi.Router
	repo     *adapters.MemPollRepo
	polls    *domain.PollService
	accounts *fakeAccounts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	config := &models.EnvConfig{SessionDays: 1}
	log := zerolog.Nop()
	tmpls, err := render.GetTemplates(config, web.FS, log)
	require.NoError(t, err)
	static, err := fs.Sub(web.FS, "static")
	require.NoError(t, err)

	repo := adapters.NewMemPollRepo()
	polls := domain.NewPollService(repo, nil, log)
	accounts := newFakeAccounts()
	return &testEnv{
		router:   NewRouter(config, polls, accounts, log, &tmpls, static),
		repo:     repo,
		polls:    polls,
		accounts: accounts,
	}
}

func (env *testEnv) createPoll(t *testing.T, text string, start, end time.Duration) (*models.Question, []models.Choice) {
	t.Helper()
	now := time.Now()
	q := &models.Question{
		Text:            text,
		PublicationTime: now.Add(start),
		EndTime:         sql.NullTime{Time: now.Add(end), Valid: true},
	}
	require.NoError(t, env.polls.CreatePoll(context.Background(), q, []string{"yes", "no"}))
	choices, err := env.polls.Choices(context.Background(), q.ID)
	require.NoError(t, err)
	return q, choices
}

// login returns the session cookie of a fresh user.
func (env *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	user := &models.User{Name: "Pippo", Email: fmt.Sprintf("pippo%d@strana.com", env.accounts.nextID+1)}
	require.NoError(t, env.accounts.CreateUser(context.Background(), user, "banana-1234!"))
	token, err := env.accounts.Login(context.Background(), user.Email, "banana-1234!")
	require.NoError(t, err)
	return &http.Cookie{Name: tokenCookie, Value: token}
}

func (env *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return env.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (env *testEnv) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return env.do(req, cookies...)
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t)
	require := require.New(t)

	rec := env.get("/")
	require.Equal(http.StatusFound, rec.Code)
	require.Equal("/polls/", rec.Header().Get("Location"))

	rec = env.get("/polls/")
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "No polls are available.")

	env.createPoll(t, "Future question.", 30*day, 40*day)
	past, _ := env.createPoll(t, "Past question.", -30*day, day)
	rec = env.get("/polls/")
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "Past question.")
	require.Contains(rec.Body.String(), fmt.Sprintf("/polls/%d/", past.ID))
	require.NotContains(rec.Body.String(), "Future question.")
	require.NotContains(rec.Body.String(), "No polls are available.")
}

func TestDetailFuture(t *testing.T) {
	env := newTestEnv(t)
	require := require.New(t)
	future, _ := env.createPoll(t, "Future question.", 30*day, 40*day)
	path := fmt.Sprintf("/polls/%d/", future.ID)

	for _, cookies := range [][]*http.Cookie{nil, {env.login(t)}} {
		rec := env.get(path, cookies...)
		require.Equal(http.StatusFound, rec.Code)
		require.Equal("/polls/", rec.Header().Get("Location"))
		require.NotNil(findCookie(rec, flashCookie))
	}
}

func TestDetail(t *testing.T) {
	env := newTestEnv(t)
	require := require.New(t)
	past, _ := env.createPoll(t, "Past question.", -day, day)
	path := fmt.Sprintf("/polls/%d/", past.ID)

	rec := env.get(path)
	require.Equal(http.StatusFound, rec.Code)
	require.Equal("/login?next="+url.QueryEscape(path), rec.Header().Get("Location"))

	rec = env.get(path, env.login(t))
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "Past question.")
	require.Contains(rec.Body.String(), "yes")

	rec = env.get("/polls/999/", env.login(t))
	require.Equal(http.StatusFound, rec.Code)
	require.Equal("/polls/", rec.Header().Get("Location"))

	rec = env.get("/polls/banana/")
	require.Equal(http.StatusFound, rec.Code)
	require.Equal("/polls/", rec.Header().Get("Location"))
}

func TestVote(t *testing.T) {
	env := newTestEnv(t)
	require := require.New(t)
	q, choices := env.createPoll(t, "Banana is the best fruit?", -5*day, 10*day)
	yes, no := choices[0], choices[1]
	session := env.login(t)
	path := fmt.Sprintf("/polls/%d/vote/", q.ID)

	rec := env.post(path, url.Values{"choice": {fmt.Sprint(yes.ID)}}, session)
	require.Equal(http.StatusSeeOther, rec.Code)
	require.Equal(fmt.Sprintf("/polls/%d/results/", q.ID), rec.Header().Get("Location"))

	res, err := env.polls.Results(context.Background(), q.ID)
	require.NoError(err)
	require.Equal(1, res.Choices[0].Votes)
	require.Equal(0, res.Choices[1].Votes)

	rec = env.post(path, url.Values{"choice": {fmt.Sprint(no.ID)}}, session)
	require.Equal(http.StatusSeeOther, rec.Code)

	res, err = env.polls.Results(context.Background(), q.ID)
	require.NoError(err)
	require.Equal(0, res.Choices[0].Votes)
	require.Equal(1, res.Choices[1].Votes)
	require.Equal(1, env.repo.CountVotes(q.ID))

	// The detail page preselects the current vote.
	rec = env.get(fmt.Sprintf("/polls/%d/", q.ID), session)
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), fmt.Sprintf(`value="%d" checked`, no.ID))
}

func TestVoteInvalidChoice(t *testing.T) {
	env := newTestEnv(t)
	require := require.New(t)
	q, _ := env.createPoll(t, "Open question.", -day, day)
	_, otherChoices := env.createPoll(t, "Other question.", -day, day)
	session := env.login(t)
	path := fmt.Sprintf("/polls/%d/vote/", q.ID)

	for _, form := range []url.Values{
		{},
		{"choice": {"banana"}},
		{"choice": {fmt.Sprint(otherChoices[0].ID)}},
	} {
		rec := env.post(path, form, session)
		require.Equal(http.StatusOK, rec.Code)
		require.Contains(rec.Body.String(), "select a choice.")
		require.Contains(rec.Body.String(), "Open question.")
	}
	require.Equal(0, env.repo.CountVotes(q.ID))
}

func TestVoteRejected(t *testing.T) {
	env := newTestEnv(t)
	require := require.New(t)
	closed, choices := env.createPoll(t, "Closed question.", -30*day, -day)
	path := fmt.Sprintf("/polls/%d/vote/", closed.ID)
	form := url.Values{"choice": {fmt.Sprint(choices[0].ID)}}

	rec := env.post(path, form)
	require.Equal(http.StatusFound, rec.Code)
	require.Equal("/login?next="+url.QueryEscape(fmt.Sprintf("/polls/%d/", closed.ID)), rec.Header().Get("Location"))

	session := env.login(t)
	rec = env.post(path, form, session)
	require.Equal(http.StatusFound, rec.Code)
	require.Equal("/polls/", rec.Header().Get("Location"))
	flash := findCookie(rec, flashCookie)
	require.NotNil(flash)
	require.Equal(0, env.repo.CountVotes(closed.ID))

	// The message shows up on the next page, once.
	rec = env.get("/polls/", session, flash)
	require.Contains(rec.Body.String(), "This poll is over.")
	cleared := findCookie(rec, flashCookie)
	require.NotNil(cleared)
	require.True(cleared.MaxAge < 0)

	rec = env.post("/polls/999/vote/", form, session)
	require.Equal(http.StatusFound, rec.Code)
	require.Equal("/polls/", rec.Header().Get("Location"))
}

func TestResults(t *testing.T) {
	env := newTestEnv(t)
	require := require.New(t)
	closed, _ := env.createPoll(t, "Closed question.", -30*day, -day)
	future, _ := env.createPoll(t, "Future question.", 30*day, 40*day)

	rec := env.get(fmt.Sprintf("/polls/%d/results/", closed.ID))
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "Closed question.")

	rec = env.get(fmt.Sprintf("/polls/%d/results/", future.ID))
	require.Equal(http.StatusFound, rec.Code)
	require.Equal("/polls/", rec.Header().Get("Location"))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	require := require.New(t)
	user := &models.User{Name: "Pippo", Email: "pippo@strana.com"}
	require.NoError(env.accounts.CreateUser(context.Background(), user, "banana-1234!"))

	rec := env.get("/login?next=/polls/3/")
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), `value="/polls/3/"`)

	rec = env.post("/login", url.Values{"email": {user.Email}, "passwd": {"wrong"}, "next": {"/polls/3/"}})
	require.Equal(http.StatusUnauthorized, rec.Code)
	require.Nil(findCookie(rec, tokenCookie))

	rec = env.post("/login", url.Values{"email": {user.Email}, "passwd": {"banana-1234!"}, "next": {"/polls/3/"}})
	require.Equal(http.StatusSeeOther, rec.Code)
	require.Equal("/polls/3/", rec.Header().Get("Location"))
	session := findCookie(rec, tokenCookie)
	require.NotNil(session)

	rec = env.get("/polls/", session)
	require.Contains(rec.Body.String(), "Welcome back, Pippo")

	rec = env.post("/signout", url.Values{}, session)
	require.Equal(http.StatusSeeOther, rec.Code)
	_, err := env.accounts.GetUserByToken(context.Background(), session.Value)
	require.ErrorIs(err, models.ErrUnauthenticated)

	// Stale sessions are treated as anonymous.
	rec = env.get("/polls/", session)
	require.Equal(http.StatusOK, rec.Code)
	require.NotContains(rec.Body.String(), "Welcome back")
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	require := require.New(t)

	form := url.Values{"name": {"Pippo"}, "email": {"pippo@strana.com"}, "passwd": {"banana-1234!"}}
	rec := env.post("/signup", form)
	require.Equal(http.StatusSeeOther, rec.Code)
	require.NotNil(findCookie(rec, tokenCookie))

	rec = env.post("/signup", form)
	require.Equal(http.StatusBadRequest, rec.Code)
	require.Contains(rec.Body.String(), "This email is already used.")
}

func TestSafeNext(t *testing.T) {
	entries := []struct {
		next   string
		expect string
	}{
		{"/polls/3/", "/polls/3/"},
		{"", "/polls/"},
		{"//evil.com/", "/polls/"},
		{"https://evil.com/", "/polls/"},
		{"polls", "/polls/"},
	}
	for _, e := range entries {
		require.Equal(t, e.expect, safeNext(e.next), e.next)
	}
}

func TestStatic(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/static/style.css")
	require.Equal(t, http.StatusOK, rec.Code)
}
