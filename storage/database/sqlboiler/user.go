package boiledrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/strmangle"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/user"
)

const userColumns = "id, username, email, role, password_hash, created_at, updated_at, last_login"

type userRow struct {
	ID           string      `boil:"id"`
	Username     string      `boil:"username"`
	Email        null.String `boil:"email"`
	Role         string      `boil:"role"`
	PasswordHash []byte      `boil:"password_hash"`
	CreatedAt    time.Time   `boil:"created_at"`
	UpdatedAt    time.Time   `boil:"updated_at"`
	LastLogin    null.Time   `boil:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email.String,
		Role:         row.Role,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

func (repo userRepository) unboilSlice(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.unboil(r))
	}
	return users
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	q := "SELECT username, email FROM users WHERE (username = $1 OR (email IS NOT NULL AND email = $2))"
	args := []interface{}{username, email}
	if len(excludedIDs) > 0 {
		q += fmt.Sprintf(" AND id NOT IN (%s)", strmangle.Placeholders(true, len(excludedIDs), 3, 1))
		for _, id := range excludedIDs {
			args = append(args, id)
		}
	}

	var found []struct {
		Username string      `boil:"username"`
		Email    null.String `boil:"email"`
	}
	if err := queries.Raw(q+" LIMIT 2", args...).Bind(ctx, repo.exec, &found); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, f := range found {
		if f.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(found) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

// usersEmailKey is the name postgres gives the email UNIQUE column.
const usersEmailKey = "users_email_key"

// userConflict maps a users unique violation to the field it hit.
func userConflict(err error) error {
	constraint, ok := uniqueViolation(err)
	switch {
	case !ok:
		return nil
	case constraint == usersEmailKey:
		return user.ErrEmailExists
	default:
		return user.ErrUsernameExists
	}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	r := repo.boil(usr)
	q := fmt.Sprintf("INSERT INTO users (%s) VALUES (%s)", userColumns, strmangle.Placeholders(true, 8, 1, 1))
	_, err := queries.Raw(q, r.ID, r.Username, r.Email, r.Role, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin).
		ExecContext(ctx, repo.exec)
	if err != nil {
		if cerr := userConflict(err); cerr != nil {
			return user.User{}, cerr
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unboil(r), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE TRUE"
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// users with Username or Email matching the search keyword
		if filter.Search != "" {
			val := arg("%" + filter.Search + "%")
			q += fmt.Sprintf(" AND (username ILIKE %s OR email ILIKE %s)", val, val)
		}
		if len(filter.Roles) > 0 {
			q += fmt.Sprintf(" AND role IN (%s)", strmangle.Placeholders(true, len(filter.Roles), len(args)+1, 1))
			for _, role := range filter.Roles {
				args = append(args, role)
			}
		}
		if filter.ExcludeAdmins {
			q += " AND role <> " + arg(user.RoleAdmin)
		}
	}
	q += orderBy(ordering)

	var rows []userRow
	if err := queries.Raw(q, args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unboilSlice(rows), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE "
	var arg string
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		q, arg = q+"id = $1", filter.ID
	case filter.Username != "":
		q, arg = q+"username = $1", filter.Username
	case filter.Email != "":
		q, arg = q+"email = $1", filter.Email
	case filter.UsernameOrEmail != "":
		q, arg = q+"(username = $1 OR email = $1)", filter.UsernameOrEmail
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := queries.Raw(q+" LIMIT 1", arg).Bind(ctx, repo.exec, &row); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	r := repo.boil(usr)
	res, err := queries.Raw(
		"UPDATE users SET username = $2, email = $3, role = $4, password_hash = $5, updated_at = $6, last_login = $7 WHERE id = $1",
		r.ID, r.Username, r.Email, r.Role, r.PasswordHash, r.UpdatedAt, r.LastLogin,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		if cerr := userConflict(err); cerr != nil {
			return user.User{}, cerr
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.unboil(r), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	valid := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	q := fmt.Sprintf("DELETE FROM users WHERE id IN (%s)", strmangle.Placeholders(true, len(valid), 1, 1))
	res, err := queries.Raw(q, valid...).ExecContext(ctx, repo.exec)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
