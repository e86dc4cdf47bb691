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

const enrollmentColumns = `id, session_id, user_id, status, created_at, updated_at`

type EnrollmentRepository interface {
	FindByID(ctx context.Context, id int) (*model.Enrollment, error)
	FindActive(ctx context.Context, sessionID int, userID int) (*model.Enrollment, error)
	CountActiveBySession(ctx context.Context, sessionID int) (int, error)
	ListByUserID(ctx context.Context, userID int) ([]*model.Enrollment, error)
	ListBySessionID(ctx context.Context, sessionID int) ([]*model.Enrollment, error)

	// Transaction methods：報名的查重、計數、寫入必須在持有課程列鎖的交易內執行
	Create(ctx context.Context, tx pgx.Tx, enrollment *model.Enrollment) (*model.Enrollment, error)
	FindActiveTx(ctx context.Context, tx pgx.Tx, sessionID int, userID int) (*model.Enrollment, error)
	ExistsActive(ctx context.Context, tx pgx.Tx, sessionID int, userID int) (bool, error)
	CountActive(ctx context.Context, tx pgx.Tx, sessionID int) (int, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int, status model.EnrollmentStatus) (*model.Enrollment, error)
}

type EnrollmentRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEnrollmentRepository(pool *pgxpool.Pool) EnrollmentRepository {
	return &EnrollmentRepositoryImpl{
		pool: pool,
	}
}

func scanEnrollment(row pgx.Row) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := row.Scan(
		&enrollment.ID,
		&enrollment.SessionID,
		&enrollment.UserID,
		&enrollment.Status,
		&enrollment.CreatedAt,
		&enrollment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, enrollment *model.Enrollment) (*model.Enrollment, error) {
	query := fmt.Sprintf(`
		INSERT INTO enrollments (session_id, user_id, status)
		VALUES ($1, $2, $3)
		RETURNING %s
	`, enrollmentColumns)

	created, err := scanEnrollment(tx.QueryRow(ctx, query,
		enrollment.SessionID, enrollment.UserID, enrollment.Status,
	))
	if err != nil {
		// partial unique index 擋下同課程同用戶的重複有效報名
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	return created, nil
}

func (r *EnrollmentRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Enrollment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM enrollments
		WHERE id = $1
	`, enrollmentColumns)

	enrollment, err := scanEnrollment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEnrollmentNotFound
		}
		return nil, err
	}

	return enrollment, nil
}

func (r *EnrollmentRepositoryImpl) FindActive(ctx context.Context, sessionID int, userID int) (*model.Enrollment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM enrollments
		WHERE session_id = $1 AND user_id = $2 AND status = $3
	`, enrollmentColumns)

	enrollment, err := scanEnrollment(r.pool.QueryRow(ctx, query, sessionID, userID, model.EnrollmentStatusEnrolled))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEnrollmentNotFound
		}
		return nil, err
	}

	return enrollment, nil
}

func (r *EnrollmentRepositoryImpl) FindActiveTx(ctx context.Context, tx pgx.Tx, sessionID int, userID int) (*model.Enrollment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM enrollments
		WHERE session_id = $1 AND user_id = $2 AND status = $3
	`, enrollmentColumns)

	enrollment, err := scanEnrollment(tx.QueryRow(ctx, query, sessionID, userID, model.EnrollmentStatusEnrolled))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEnrollmentNotFound
		}
		return nil, err
	}

	return enrollment, nil
}

func (r *EnrollmentRepositoryImpl) CountActiveBySession(ctx context.Context, sessionID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM enrollments
		WHERE session_id = $1 AND status = $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, sessionID, model.EnrollmentStatusEnrolled).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *EnrollmentRepositoryImpl) ExistsActive(ctx context.Context, tx pgx.Tx, sessionID int, userID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM enrollments
			WHERE session_id = $1 AND user_id = $2 AND status = $3
		)
	`

	var exists bool
	err := tx.QueryRow(ctx, query, sessionID, userID, model.EnrollmentStatusEnrolled).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *EnrollmentRepositoryImpl) CountActive(ctx context.Context, tx pgx.Tx, sessionID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM enrollments
		WHERE session_id = $1 AND status = $2
	`

	var count int
	err := tx.QueryRow(ctx, query, sessionID, model.EnrollmentStatusEnrolled).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *EnrollmentRepositoryImpl) ListByUserID(ctx context.Context, userID int) ([]*model.Enrollment, error) {
	return r.list(ctx, "user_id", userID)
}

func (r *EnrollmentRepositoryImpl) ListBySessionID(ctx context.Context, sessionID int) ([]*model.Enrollment, error) {
	return r.list(ctx, "session_id", sessionID)
}

func (r *EnrollmentRepositoryImpl) list(ctx context.Context, column string, value int) ([]*model.Enrollment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM enrollments
		WHERE %s = $1
		ORDER BY created_at DESC
	`, enrollmentColumns, column)

	rows, err := r.pool.Query(ctx, query, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := make([]*model.Enrollment, 0)

	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enrollment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *EnrollmentRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, id int, status model.EnrollmentStatus) (*model.Enrollment, error) {
	query := fmt.Sprintf(`
		UPDATE enrollments
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING %s
	`, enrollmentColumns)

	enrollment, err := scanEnrollment(tx.QueryRow(ctx, query, status, time.Now().UTC(), id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to update enrollment status: %w", err)
	}

	return enrollment, nil
}
