package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// UserRepository defines persistence access for accounts and their roles.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, name, email, passwordHash string) (int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userSelect = `
        SELECT u.id, u.name, u.email, u.password_hash, u.department_id, u.active,
               r.id, r.name, r.perm_tickets, r.perm_users, r.perm_departments, r.perm_admin
        FROM users u JOIN roles r ON r.id = u.role_id`

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE LOWER(u.email)=LOWER($1)`, email))
}

// Create inserts an active account under the default role, creating that
// role on first use. A duplicate email surfaces as a unique violation.
func (r *userRepository) Create(ctx context.Context, name, email, passwordHash string) (int64, error) {
	const query = `
        WITH default_role AS (
            INSERT INTO roles (name, description, perm_tickets)
            VALUES ($4, 'Usuario normal del sistema', 2)
            ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
            RETURNING id
        )
        INSERT INTO users (name, email, password_hash, role_id, active)
        SELECT $1, LOWER($2), $3, default_role.id, TRUE FROM default_role
        RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, name, email, passwordHash, domain.DefaultRoleName).Scan(&id)
	return id, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.DepartmentID,
		&user.Active,
		&user.Role.ID,
		&user.Role.Name,
		&user.Role.PermTickets,
		&user.Role.PermUsers,
		&user.Role.PermDepartments,
		&user.Role.PermAdmin,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
