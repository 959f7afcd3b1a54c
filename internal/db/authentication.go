package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgconn"
	"gitlab.com/ranfdev/kupolls/internal/models"
	"gitlab.com/ranfdev/kupolls/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (sdb *SharedDB) CreateUser(ctx context.Context, user *models.User, passwd string) error {
	user.Email = strings.TrimSpace(user.Email)
	user.Name = strings.TrimSpace(user.Name)
	if !utils.ValidateEmail(user.Email) || user.Name == "" {
		return models.ErrInvalidFormat
	}

	if !validatePasswd(passwd, []string{user.Email, user.Name}) {
		return models.ErrWeakPasswd
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passwd), sdb.bcryptCost)
	if err != nil {
		return err
	}

	sql, args, _ := psql.
		Insert("users").
		Columns("name", "email", "passwd_hash").
		Values(user.Name, user.Email, hash).
		Suffix("RETURNING id, created_at").
		ToSql()

	err = sdb.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "users_email_key" {
		return models.ErrEmailAlreadyUsed
	} else if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// Login checks the credentials and opens a new session, returning its token.
func (sdb *SharedDB) Login(ctx context.Context, email string, passwd string) (string, error) {
	query, args, _ := psql.
		Select("id", "passwd_hash").
		From("users").
		Where(sq.Eq{"email": strings.TrimSpace(email)}).
		ToSql()

	var creds struct {
		ID         int
		PasswdHash []byte
	}
	err := pgxscan.Get(ctx, sdb.db, &creds, query, args...)
	if pgxscan.NotFound(err) {
		return "", models.ErrBadCredentials
	} else if err != nil {
		return "", fmt.Errorf("reading credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword(creds.PasswdHash, []byte(passwd)) != nil {
		return "", models.ErrBadCredentials
	}

	token := utils.GenToken(TokenLen)
	query, args, _ = psql.
		Insert("tokens").
		SetMap(map[string]interface{}{"user_id": creds.ID, "token": token}).
		ToSql()
	if _, err := sdb.db.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("saving token: %w", err)
	}
	return token, nil
}

func (sdb *SharedDB) Signout(ctx context.Context, token string) error {
	query, args, _ := psql.Delete("tokens").Where(sq.Eq{"token": token}).ToSql()
	if _, err := sdb.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}

// validatePasswd requires 8 to 64 printable characters with at least a
// letter, a digit and a symbol. It must not contain any of userInputs.
func validatePasswd(passwd string, userInputs []string) bool {
	if len(passwd) < 8 || len(passwd) > 64 {
		return false
	}
	lower := strings.ToLower(passwd)
	for _, in := range userInputs {
		if in != "" && strings.Contains(lower, strings.ToLower(in)) {
			return false
		}
	}

	var letters, digits, symbols int
	for _, r := range passwd {
		switch {
		case !unicode.IsPrint(r):
			return false
		case unicode.IsLetter(r):
			letters++
		case unicode.IsNumber(r):
			digits++
		default:
			symbols++
		}
	}
	return letters > 0 && digits > 0 && symbols > 0
}
