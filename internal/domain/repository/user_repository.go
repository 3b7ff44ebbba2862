package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"taskhub/internal/common"
	"taskhub/internal/domain/model"

	"github.com/jmoiron/sqlx"
)

type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Role         model.Role
}

// UserCredentials pairs a user with its password hash. Only FindByEmail returns it.
type UserCredentials struct {
	model.User
	PasswordHash string `db:"password_hash"`
}

type UserRepository interface {
	Create(ctx context.Context, user NewUser) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*UserCredentials, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error)
	Update(ctx context.Context, id int64, update model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type pgUserRepository struct {
	db *sqlx.DB
}

func NewPgUserRepository(db *sqlx.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, role, created_at, updated_at`

func (r *pgUserRepository) Create(ctx context.Context, nu NewUser) (*model.User, error) {
	query := `INSERT INTO users (username, email, password_hash, role)
	          VALUES ($1, $2, $3, $4)
	          RETURNING ` + userColumns
	user := &model.User{}
	err := r.db.GetContext(ctx, user, query, nu.Username, nu.Email, nu.PasswordHash, nu.Role)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user with given username or email already exists: %w", common.ErrDuplicateIdentity)
		}
		return nil, fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*UserCredentials, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE email = $1`
	creds := &UserCredentials{}
	if err := r.db.GetContext(ctx, creds, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return creds, nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByUsername", `username = $1`, username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, "FindByID", `id = $1`, id)
}

func (r *pgUserRepository) findOne(ctx context.Context, op, where string, arg interface{}) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user := &model.User{}
	if err := r.db.GetContext(ctx, user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepository) List(ctx context.Context, f model.UserFilter) ([]model.User, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Role != "" {
		args = append(args, f.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, containsPattern(s))
		conds = append(conds, fmt.Sprintf(`(username ILIKE $%d ESCAPE '\' OR email ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List count: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))
	users := []model.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List: %w", err)
	}
	return users, total, nil
}

// Update writes every set field of the update in one statement. A row that no
// longer exists yields common.ErrNotFound.
func (r *pgUserRepository) Update(ctx context.Context, id int64, u model.UserUpdate) (*model.User, error) {
	if u.Empty() {
		return nil, common.ErrNoFieldsToUpdate
	}
	var (
		sets []string
		args []interface{}
	)
	if u.Username.Set {
		args = append(args, u.Username.Value)
		sets = append(sets, fmt.Sprintf("username = $%d", len(args)))
	}
	if u.Email.Set {
		args = append(args, u.Email.Value)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if u.Role.Set {
		args = append(args, u.Role.Value)
		sets = append(sets, fmt.Sprintf("role = $%d", len(args)))
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	user := &model.User{}
	if err := r.db.GetContext(ctx, user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		if common.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user with given username or email already exists: %w", common.ErrDuplicateIdentity)
		}
		return nil, fmt.Errorf("pgUserRepository.Update: %w", err)
	}
	return user, nil
}

// Delete removes the user; tasks go with it through ON DELETE CASCADE.
func (r *pgUserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	return affected > 0, nil
}
