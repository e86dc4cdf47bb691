package repository

import (
	"classtix/internal/geo"
	"classtix/internal/model"
	apperrors "classtix/pkg/app_errors"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, session_id, title, description, creator_id, status,
		start_time, end_time, max_students, price,
		venue_id, latitude, longitude,
		created_at, updated_at, deleted_at`

type SessionRepository interface {
	Create(ctx context.Context, session *model.ClassSession) (*model.ClassSession, error)
	List(ctx context.Context) ([]*model.ClassSession, error)
	FindByID(ctx context.Context, id int) (*model.ClassSession, error)
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.ClassSession, error)
	Update(ctx context.Context, id int, params model.UpdateSessionParams) (*model.ClassSession, error)
	Delete(ctx context.Context, id int) error

	// ListWithinBox 粗篩：只用包圍盒過濾有座標的開放課程，精確距離由呼叫端計算
	ListWithinBox(ctx context.Context, box geo.Box) ([]*model.ClassSession, error)

	// Transaction methods
	FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.ClassSession, error)
}

type SessionRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &SessionRepositoryImpl{
		pool: pool,
	}
}

func scanSession(row pgx.Row) (*model.ClassSession, error) {
	var session model.ClassSession
	err := row.Scan(
		&session.ID,
		&session.SessionID,
		&session.Title,
		&session.Description,
		&session.CreatorID,
		&session.Status,
		&session.StartTime,
		&session.EndTime,
		&session.MaxStudents,
		&session.Price,
		&session.VenueID,
		&session.Latitude,
		&session.Longitude,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *model.ClassSession) (*model.ClassSession, error) {
	query := fmt.Sprintf(`
		INSERT INTO class_sessions (
			session_id, title, description, creator_id, status,
			start_time, end_time, max_students, price,
			venue_id, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s
	`, sessionColumns)

	created, err := scanSession(r.pool.QueryRow(ctx, query,
		session.SessionID, session.Title, session.Description,
		session.CreatorID, session.Status,
		session.StartTime, session.EndTime, session.MaxStudents, session.Price,
		session.VenueID, session.Latitude, session.Longitude,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return created, nil
}

func (r *SessionRepositoryImpl) List(ctx context.Context) ([]*model.ClassSession, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM class_sessions
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`, sessionColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*model.ClassSession, 0)

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *SessionRepositoryImpl) FindByID(ctx context.Context, id int) (*model.ClassSession, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM class_sessions
		WHERE id = $1 AND deleted_at IS NULL
	`, sessionColumns)

	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}

	return session, nil
}

func (r *SessionRepositoryImpl) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.ClassSession, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM class_sessions
		WHERE session_id = $1 AND deleted_at IS NULL
	`, sessionColumns)

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}

	return session, nil
}

func (r *SessionRepositoryImpl) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.ClassSession, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM class_sessions
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, sessionColumns)

	session, err := scanSession(tx.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}

	return session, nil
}

func (r *SessionRepositoryImpl) ListWithinBox(ctx context.Context, box geo.Box) ([]*model.ClassSession, error) {
	// 跨 ±180 經線的包圍盒是兩段區間，BETWEEN 會整段漏掉，要改用 OR
	lonFilter := "longitude BETWEEN $5 AND $6"
	if box.WrapsAntimeridian() {
		lonFilter = "(longitude >= $5 OR longitude <= $6)"
	}

	// created_at ASC 讓同距離的課程維持建立順序（stable sort 的前提）
	query := fmt.Sprintf(`
		SELECT %s
		FROM class_sessions
		WHERE deleted_at IS NULL
		  AND status IN ($1, $2)
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND latitude BETWEEN $3 AND $4
		  AND %s
		ORDER BY created_at ASC
	`, sessionColumns, lonFilter)

	rows, err := r.pool.Query(ctx, query,
		model.SessionStatusUpcoming, model.SessionStatusOngoing,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*model.ClassSession, 0)

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *SessionRepositoryImpl) Update(ctx context.Context, id int, params model.UpdateSessionParams) (*model.ClassSession, error) {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	if params.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", argPos))
		args = append(args, *params.Title)
		argPos++
	}
	if params.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argPos))
		args = append(args, *params.Description)
		argPos++
	}
	if params.Status != nil {
		if !params.Status.IsValid() {
			return nil, apperrors.ErrInvalidInput
		}
		sets = append(sets, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}

	if len(sets) == 0 {
		return nil, apperrors.ErrInvalidInput
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE class_sessions
		SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, strings.Join(sets, ", "), argPos, sessionColumns)

	session, err := scanSession(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}

	return session, nil
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, id int) error {
	query := `
		UPDATE class_sessions
		SET deleted_at = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	result, err := r.pool.Exec(ctx, query, now, now, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrSessionNotFound
	}

	return nil
}
