package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"gitlab.com/ranfdev/kupolls/internal/adapters"
	"gitlab.com/ranfdev/kupolls/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenLen          = 64 // 64 bytes
	pgUniqueViolation = "23505"
)

type SharedDB struct {
	db         *pgxpool.Pool
	config     *models.EnvConfig
	bcryptCost int
}

func Connect(ctx context.Context, config *models.EnvConfig) (SharedDB, error) {
	db, err := pgxpool.Connect(ctx, config.DatabaseURL)
	if err != nil {
		err = fmt.Errorf("Failed to connect to postgres: %w", err)
	}
	bcryptCost := bcrypt.DefaultCost + 2
	if config.Debug {
		bcryptCost = bcrypt.MinCost
	}

	return SharedDB{
		db,
		config,
		bcryptCost,
	}, err
}

func (sdb *SharedDB) PollRepo() *adapters.PollRepo {
	return adapters.NewPollRepo(sdb.db)
}

func (sdb *SharedDB) Close() {
	if sdb.db != nil {
		sdb.db.Close()
	}
}
