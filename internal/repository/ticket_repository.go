package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, ticket *domain.Ticket) error
	ListByStatus(ctx context.Context, status domain.TicketStatus, limit, offset int) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
	CountByUser(ctx context.Context) ([]domain.UserTicketCount, error)
	CountByDepartment(ctx context.Context) ([]domain.DepartmentTicketCount, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, user_id, assignee_id, name, description, failure_details,
               status, priority, created_by, created_at, updated_at`

// Create inserts ticket and fills in the id and database timestamps.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (user_id, assignee_id, name, description, failure_details, status, priority, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.UserID,
		ticket.AssigneeID,
		ticket.Name,
		ticket.Description,
		ticket.FailureDetails,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

// UpdateStatus stores ticket.Status and refreshes ticket.UpdatedAt from the
// database clock.
func (r *ticketRepository) UpdateStatus(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, ticket.Status, ticket.ID).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + ticketColumns + `
             FROM tickets WHERE status=$1
             ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status ORDER BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusCount
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

// CountByUser tallies, for each active user with at least one ticket, the
// tickets they created and the ones assigned to them, busiest first.
func (r *ticketRepository) CountByUser(ctx context.Context) ([]domain.UserTicketCount, error) {
	const query = `
        SELECT id, name, created, assigned FROM (
            SELECT u.id, u.name,
                   COUNT(*) FILTER (WHERE t.user_id = u.id)     AS created,
                   COUNT(*) FILTER (WHERE t.assignee_id = u.id) AS assigned
            FROM users u
            JOIN tickets t ON t.user_id = u.id OR t.assignee_id = u.id
            WHERE u.active
            GROUP BY u.id, u.name
        ) tallies
        ORDER BY created + assigned DESC, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserTicketCount
	for rows.Next() {
		var uc domain.UserTicketCount
		if err := rows.Scan(&uc.UserID, &uc.Name, &uc.Created, &uc.Assigned); err != nil {
			return nil, err
		}
		result = append(result, uc)
	}
	return result, rows.Err()
}

// CountByDepartment tallies tickets by the creator's department. Creators
// without one are grouped under domain.NoDepartment.
func (r *ticketRepository) CountByDepartment(ctx context.Context) ([]domain.DepartmentTicketCount, error) {
	const query = `
        SELECT COALESCE(d.name, $1) AS department, COUNT(*)
        FROM tickets t
        JOIN users u ON u.id = t.user_id
        LEFT JOIN departments d ON d.id = u.department_id
        GROUP BY 1
        ORDER BY 2 DESC, 1`
	rows, err := r.pool.Query(ctx, query, domain.NoDepartment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DepartmentTicketCount
	for rows.Next() {
		var dc domain.DepartmentTicketCount
		if err := rows.Scan(&dc.Department, &dc.Count); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.AssigneeID,
		&ticket.Name,
		&ticket.Description,
		&ticket.FailureDetails,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
