package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/user"
)

const userColumns = `id, name, username, email, is_active, role, password_hash, created_at, updated_at, last_login`

var userOrderings = map[string]string{
	"id":         "id",
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"is_active":  "is_active",
	"role":       "role",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           int            `db:"id"`
	Name         string         `db:"name"`
	Username     sql.NullString `db:"username"`
	Email        sql.NullString `db:"email"`
	IsActive     bool           `db:"is_active"`
	Role         string         `db:"role"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// dbTime is the precision kept by every supported engine.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (repo userRepository) toRow(usr user.User) userRow {
	r := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     nullString(usr.Username),
		Email:        nullString(usr.Email),
		IsActive:     usr.IsActive,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    dbTime(usr.CreatedAt),
		UpdatedAt:    dbTime(usr.UpdatedAt),
	}
	if usr.LastLogin != nil {
		r.LastLogin = sql.NullTime{Time: dbTime(*usr.LastLogin), Valid: true}
	}
	return r
}

func (repo userRepository) fromRow(r userRow) user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		ll := r.LastLogin.Time.UTC()
		usr.LastLogin = &ll
	}
	return usr
}

// trapNoRowsErr maps "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...int) error {
	check := func(column, value string, errExists error) error {
		if value == "" {
			return nil
		}
		q, args, err := sqlx.In(`SELECT COUNT(*) FROM "user" WHERE `+column+` = ?`, value)
		if len(excludedIDs) > 0 {
			q, args, err = sqlx.In(`SELECT COUNT(*) FROM "user" WHERE `+column+` = ? AND id NOT IN (?)`, value, excludedIDs)
		}
		if err != nil {
			return err
		}

		var count int
		if err = repo.db.GetContext(ctx, &count, repo.db.Rebind(q), args...); err != nil {
			return err
		}
		if count > 0 {
			return errExists
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	r := repo.toRow(usr)
	q := repo.db.Rebind(`
		INSERT INTO "user" (name, username, email, is_active, role, password_hash, created_at, updated_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := repo.db.QueryRowxContext(ctx, q,
		r.Name, r.Username, r.Email, r.IsActive, r.Role, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	).Scan(&r.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.fromRow(r), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var where []string
	var args []interface{}

	// users with Name, Username or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ?)")
		args = append(args, val, val, val)
	}
	if filter.Role != "" {
		where = append(where, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	q := `SELECT ` + userColumns + ` FROM "user"`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.OrderByClause(ordering, userOrderings, "created_at DESC") + ", id DESC"

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.fromRow(r))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := `SELECT ` + userColumns + ` FROM "user" WHERE `
	var args []interface{}

	switch {
	case filter.ID != 0:
		q += "id = ?"
		args = append(args, filter.ID)
	case filter.Username != "":
		q += "username = ?"
		args = append(args, filter.Username)
	case filter.Email != "":
		q += "email = ?"
		args = append(args, filter.Email)
	case filter.UsernameOrEmail != "":
		q += "(username = ? OR email = ?)"
		args = append(args, filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	if err := repo.db.GetContext(ctx, &r, repo.db.Rebind(q+" LIMIT 1"), args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.fromRow(r), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	r := repo.toRow(usr)
	q := repo.db.Rebind(`
		UPDATE "user"
		SET name = ?, username = ?, email = ?, is_active = ?, role = ?, password_hash = ?, updated_at = ?, last_login = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		r.Name, r.Username, r.Email, r.IsActive, r.Role, r.PasswordHash, r.UpdatedAt, r.LastLogin, r.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if _, err := checkAffected(res, 1, user.ErrNotFound); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return repo.fromRow(r), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := checkAffected(res, len(ids), nil)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return n, nil
}
