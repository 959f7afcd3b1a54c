package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"gitlab.com/ranfdev/kupolls/internal/models"
)

// GetUserByToken resolves a session token. Tokens older than the configured
// session length are ignored.
func (sdb *SharedDB) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	maxAge := time.Duration(sdb.config.SessionDays) * 24 * time.Hour
	sql, args, _ := psql.
		Select("users.id", "users.name", "users.email", "users.created_at").
		From("tokens").
		Join("users ON users.id = tokens.user_id").
		Where(sq.Eq{"tokens.token": token}).
		Where(sq.Gt{"tokens.created_at": time.Now().Add(-maxAge)}).
		ToSql()

	user := &models.User{}
	err := pgxscan.Get(ctx, sdb.db, user, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, models.ErrUnauthenticated
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

func (sdb *SharedDB) DeleteUser(ctx context.Context, userID int) error {
	sql, args, _ := psql.Delete("users").Where(sq.Eq{"id": userID}).ToSql()
	_, err := sdb.db.Exec(ctx, sql, args...)
	return err
}
