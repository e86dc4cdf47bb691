package repository

import (
	"classtix/internal/model"
	apperrors "classtix/pkg/app_errors"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketColumns = `id, ticket_number, qr_code, enrollment_id, session_id, user_id,
		price, status, expires_at, created_at, updated_at`

type TicketRepository interface {
	// Create 票號撞到 unique constraint 時回傳 ErrTicketNumberTaken，由發行端重試
	Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error)
	FindByID(ctx context.Context, id int) (*model.Ticket, error)
	FindByEnrollmentID(ctx context.Context, enrollmentID int) (*model.Ticket, error)
	FindByTicketNumber(ctx context.Context, ticketNumber string) (*model.Ticket, error)
	ListByUserID(ctx context.Context, userID int) ([]*model.Ticket, error)
	// UpdateStatus 只接受 active 起點的狀態轉換；票已不是 active 時回傳 ErrTicketNotActive
	UpdateStatus(ctx context.Context, id int, status model.TicketStatus) (*model.Ticket, error)

	// Transaction methods
	CancelByEnrollmentID(ctx context.Context, tx pgx.Tx, enrollmentID int) error
}

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var ticket model.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.QRCode,
		&ticket.EnrollmentID,
		&ticket.SessionID,
		&ticket.UserID,
		&ticket.Price,
		&ticket.Status,
		&ticket.ExpiresAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error) {
	query := fmt.Sprintf(`
		INSERT INTO tickets (
			ticket_number, qr_code, enrollment_id, session_id, user_id,
			price, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s
	`, ticketColumns)

	created, err := scanTicket(r.pool.QueryRow(ctx, query,
		ticket.TicketNumber, ticket.QRCode, ticket.EnrollmentID,
		ticket.SessionID, ticket.UserID,
		ticket.Price, ticket.Status, ticket.ExpiresAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.ErrTicketNumberTaken
		}
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	return created, nil
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Ticket, error) {
	return r.findBy(ctx, "id", id)
}

func (r *TicketRepositoryImpl) FindByEnrollmentID(ctx context.Context, enrollmentID int) (*model.Ticket, error) {
	return r.findBy(ctx, "enrollment_id", enrollmentID)
}

func (r *TicketRepositoryImpl) FindByTicketNumber(ctx context.Context, ticketNumber string) (*model.Ticket, error) {
	return r.findBy(ctx, "ticket_number", ticketNumber)
}

func (r *TicketRepositoryImpl) findBy(ctx context.Context, column string, value interface{}) (*model.Ticket, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM tickets
		WHERE %s = $1
	`, ticketColumns, column)

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}

	return ticket, nil
}

func (r *TicketRepositoryImpl) ListByUserID(ctx context.Context, userID int) ([]*model.Ticket, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM tickets
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, ticketColumns)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*model.Ticket, 0)

	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (r *TicketRepositoryImpl) UpdateStatus(ctx context.Context, id int, status model.TicketStatus) (*model.Ticket, error) {
	if !model.TicketStatusActive.CanTransitionTo(status) {
		return nil, apperrors.ErrInvalidInput
	}

	// 條件式 UPDATE：兩個並發核銷只有一個能把 active 改走，另一個拿到 0 列
	query := fmt.Sprintf(`
		UPDATE tickets
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING %s
	`, ticketColumns)

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query,
		status, time.Now().UTC(), id, model.TicketStatusActive,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketNotActive
		}
		return nil, fmt.Errorf("failed to update ticket status: %w", err)
	}

	return ticket, nil
}

func (r *TicketRepositoryImpl) CancelByEnrollmentID(ctx context.Context, tx pgx.Tx, enrollmentID int) error {
	// 只有 active 票需要連動取消，used/expired 保持原狀
	query := `
		UPDATE tickets
		SET status = $1, updated_at = $2
		WHERE enrollment_id = $3 AND status = $4
	`

	_, err := tx.Exec(ctx, query,
		model.TicketStatusCancelled, time.Now().UTC(),
		enrollmentID, model.TicketStatusActive,
	)
	return err
}
