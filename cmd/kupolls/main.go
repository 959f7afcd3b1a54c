package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gitlab.com/ranfdev/kupolls/internal/db"
	"gitlab.com/ranfdev/kupolls/internal/domain"
	"gitlab.com/ranfdev/kupolls/internal/models"
	"gitlab.com/ranfdev/kupolls/internal/render"
	"gitlab.com/ranfdev/kupolls/internal/routes"
	"gitlab.com/ranfdev/kupolls/web"
)

const usage = `Usage:
	- start
	- migrate [up/down/drop]
	- poll -q <text> -choice <text> -choice <text> [-pub <time>] [-end <time>]
`

func main() {
	if len(os.Args) == 1 {
		fmt.Print(usage + "\n")
		return
	}
	envConfig := models.ReadEnvConfig()
	switch os.Args[1] {
	case "start":
		server := KupollsServer{EnvConfig: envConfig}
		server.Setup()
		server.Run()
	case "migrate":
		if len(os.Args) < 3 {
			fmt.Print(usage + "\n")
			return
		}
		var err error
		switch os.Args[2] {
		case "up":
			err = db.MigrateUp(envConfig.DatabaseURL)
		case "down":
			err = db.MigrateDown(envConfig.DatabaseURL)
		case "drop":
			err = db.Drop(envConfig.DatabaseURL)
		default:
			fmt.Print(usage + "\n")
			return
		}
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Println("Done")
	case "poll":
		if err := createPoll(envConfig, os.Args[2:]); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	default:
		fmt.Print(usage + "\n")
	}
}

type choiceList []string

func (c *choiceList) String() string {
	return strings.Join(*c, ", ")
}
func (c *choiceList) Set(v string) error {
	*c = append(*c, v)
	return nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseTime(v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("can't parse time %q", v)
}

func createPoll(envConfig models.EnvConfig, args []string) error {
	flags := flag.NewFlagSet("poll", flag.ContinueOnError)
	text := flags.String("q", "", "question text")
	pub := flags.String("pub", "", "publication time, defaults to now")
	end := flags.String("end", "", "end of voting, empty for never")
	var choices choiceList
	flags.Var(&choices, "choice", "a choice, repeat for each one")
	if err := flags.Parse(args); err != nil {
		return err
	}

	q := &models.Question{Text: *text, PublicationTime: time.Now()}
	if *pub != "" {
		t, err := parseTime(*pub)
		if err != nil {
			return err
		}
		q.PublicationTime = t
	}
	if *end != "" {
		t, err := parseTime(*end)
		if err != nil {
			return err
		}
		q.EndTime = sql.NullTime{Time: t, Valid: true}
	}

	ctx := context.Background()
	logger := newLogger(envConfig.Debug)
	database, err := db.Connect(ctx, &envConfig)
	if err != nil {
		return err
	}
	defer database.Close()

	polls := domain.NewPollService(database.PollRepo(), domain.SystemClock{}, logger)
	err = polls.CreatePoll(ctx, q, choices)
	switch {
	case errors.Is(err, models.ErrEmptyText):
		return fmt.Errorf("question and choices need some text: %w", err)
	case errors.Is(err, models.ErrTooFewChoices):
		return fmt.Errorf("a poll needs at least two -choice: %w", err)
	case errors.Is(err, models.ErrInvalidWindow):
		return fmt.Errorf("-end can't come before -pub: %w", err)
	case err != nil:
		return err
	}
	fmt.Printf("Created poll %d\n", q.ID)
	return nil
}

func newLogger(debug bool) zerolog.Logger {
	var writer io.Writer
	if debug {
		writer = zerolog.ConsoleWriter{Out: os.Stdout}
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		writer = os.Stdout
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return zerolog.New(writer).With().Timestamp().Logger()
}

type KupollsServer struct {
	models.EnvConfig
	addr       string
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	database   db.SharedDB
	templates  render.Templates
}

func (server *KupollsServer) setupLogger() {
	server.logger = newLogger(server.Debug)
}
func (server *KupollsServer) setupTemplates() {
	tmpls, err := render.GetTemplates(&server.EnvConfig, web.FS, server.logger)
	if err != nil {
		server.logger.Fatal().Err(err).Msg("Parsing templates")
	}
	server.templates = tmpls
}
func (server *KupollsServer) setupDB() {
	err := db.MigrateUp(server.DatabaseURL)
	if err != nil {
		server.logger.Fatal().Err(err).Msg("Migrating db")
	}
	database, err := db.Connect(context.Background(), &server.EnvConfig)
	if err != nil {
		server.logger.Fatal().Err(err).Msg("Connecting to db")
	}
	server.database = database
}
func (server *KupollsServer) setupRouter() {
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		server.logger.Fatal().Err(err).Send()
	}
	polls := domain.NewPollService(server.database.PollRepo(), domain.SystemClock{}, server.logger)
	server.router = routes.NewRouter(&server.EnvConfig, polls, &server.database, server.logger, &server.templates, static)
}
func (server *KupollsServer) setupHttpServer() {
	server.addr = fmt.Sprintf(":%s", server.Port)
	server.httpServer = &http.Server{
		Addr:         server.addr,
		Handler:      server.router,
		ReadTimeout:  1 * time.Minute,
		WriteTimeout: 1 * time.Minute,
	}
}
func (server *KupollsServer) Setup() {
	server.setupLogger()
	server.setupTemplates()
	server.setupDB()
	server.setupRouter()
	server.setupHttpServer()
}
func (server *KupollsServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.httpServer.Shutdown(ctx); err != nil {
		server.logger.Error().
			Err(err).
			Msg("Error shutting down")
	}
	server.database.Close()
}
func (server *KupollsServer) Run() {
	server.logger.Info().Str("server_address", server.addr).Msg("Server is starting")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		err := server.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.logger.Fatal().Err(err).Msg("Listening")
		}
	}()
	server.logger.Info().Msg("Ready")

	<-ctx.Done()
	stop() // Stop listening for signals
	server.logger.Info().Msg("Shutting down gracefully")
	server.Shutdown()
}
