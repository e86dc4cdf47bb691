package service

import (
	"classtix/internal/cache"
	"classtix/internal/model"
	"classtix/internal/queue"
	"classtix/internal/repository"
	apperrors "classtix/pkg/app_errors"
	"classtix/pkg/logger"
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type EnrollmentService interface {
	// Enroll 報名：同一課程同一用戶最多一筆有效報名，名額不得超賣
	// 報名成功但發票失敗時回傳 TicketPending=true，票券交給補發隊列
	Enroll(ctx context.Context, sessionID uuid.UUID, userID int) (*model.EnrollResponse, error)
	// Cancel 取消報名：軟刪除（狀態轉 cancelled），並連動取消票券
	Cancel(ctx context.Context, sessionID uuid.UUID, userID int) error
	ListByUserID(ctx context.Context, userID int) ([]*model.Enrollment, error)
}

type EnrollmentServiceImpl struct {
	pool          *pgxpool.Pool
	repository    repository.EnrollmentRepository
	sessionRepo   repository.SessionRepository
	ticketRepo    repository.TicketRepository
	ticketService TicketService
	seatGuard     cache.SessionSeatGuard
	issueQueue    queue.TicketIssueQueue
}

func NewEnrollmentService(
	pool *pgxpool.Pool,
	enrollmentRepository repository.EnrollmentRepository,
	sessionRepository repository.SessionRepository,
	ticketRepository repository.TicketRepository,
	ticketService TicketService,
	seatGuard cache.SessionSeatGuard,
	issueQueue queue.TicketIssueQueue,
) EnrollmentService {
	return &EnrollmentServiceImpl{
		pool:          pool,
		repository:    enrollmentRepository,
		sessionRepo:   sessionRepository,
		ticketRepo:    ticketRepository,
		ticketService: ticketService,
		seatGuard:     seatGuard,
		issueQueue:    issueQueue,
	}
}

func (s *EnrollmentServiceImpl) Enroll(ctx context.Context, sessionID uuid.UUID, userID int) (*model.EnrollResponse, error) {
	session, err := s.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.IsOpenForEnrollment() {
		return nil, apperrors.ErrSessionNotOpen
	}

	// 1. Redis 閘門快速擋掉爆量請求（有預熱才生效）
	reserved, err := s.reserveSeat(ctx, session)
	if err != nil {
		return nil, err
	}

	// 2. 資料庫交易是最終權威：課程列鎖 + 查重 + 計數 + 寫入
	enrollment, err := s.admit(ctx, session, userID)
	if err != nil {
		if reserved {
			// 閘門已佔的名額一定要還，使用 context.Background() 確保回滾會執行
			s.releaseSeat(context.Background(), session.ID)
		}
		return nil, err
	}

	logger.WithComponent("enrollment").Info("user enrolled",
		zap.Int("session_id", session.ID),
		zap.Int("user_id", userID),
		zap.Int("enrollment_id", enrollment.ID),
	)

	// 3. 票券發行是 best-effort：失敗不回滾報名，丟進補發隊列
	response := &model.EnrollResponse{Enrollment: enrollment}
	if session.IsPhysical() {
		ticket, err := s.ticketService.IssueIfPhysical(ctx, session, enrollment)
		if err != nil {
			logger.WithComponent("enrollment").Warn("ticket issuance failed, queueing retry",
				zap.Int("enrollment_id", enrollment.ID),
				zap.Error(err),
			)
			response.TicketPending = true
			s.queueIssueRetry(enrollment, session.ID)
		} else {
			response.Ticket = ticket
		}
	}

	return response, nil
}

// admit 步驟 3-5 的序列化點：FOR UPDATE 鎖住課程列直到 commit
func (s *EnrollmentServiceImpl) admit(ctx context.Context, session *model.ClassSession, userID int) (*model.Enrollment, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	locked, err := s.sessionRepo.FindByIDWithLock(ctx, tx, session.ID)
	if err != nil {
		return nil, err
	}

	// 鎖內重新檢查：狀態可能在取得鎖之前就變了
	if !locked.IsOpenForEnrollment() {
		return nil, apperrors.ErrSessionNotOpen
	}

	exists, err := s.repository.ExistsActive(ctx, tx, locked.ID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrAlreadyEnrolled
	}

	if locked.MaxStudents != nil {
		count, err := s.repository.CountActive(ctx, tx, locked.ID)
		if err != nil {
			return nil, err
		}
		if count >= *locked.MaxStudents {
			return nil, apperrors.ErrSessionFull
		}
	}

	enrollment, err := s.repository.Create(ctx, tx, &model.Enrollment{
		SessionID: locked.ID,
		UserID:    userID,
		Status:    model.EnrollmentStatusEnrolled,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return enrollment, nil
}

func (s *EnrollmentServiceImpl) Cancel(ctx context.Context, sessionID uuid.UUID, userID int) error {
	session, err := s.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// 與報名共用同一把課程列鎖，取消和報名不會交錯
	if _, err := s.sessionRepo.FindByIDWithLock(ctx, tx, session.ID); err != nil {
		return err
	}

	enrollment, err := s.repository.FindActiveTx(ctx, tx, session.ID, userID)
	if err != nil {
		return err
	}

	if _, err := s.repository.UpdateStatus(ctx, tx, enrollment.ID, model.EnrollmentStatusCancelled); err != nil {
		return err
	}

	if err := s.ticketRepo.CancelByEnrollmentID(ctx, tx, enrollment.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.WithComponent("enrollment").Info("enrollment cancelled",
		zap.Int("session_id", session.ID),
		zap.Int("user_id", userID),
		zap.Int("enrollment_id", enrollment.ID),
	)

	if session.MaxStudents != nil {
		s.releaseSeat(context.Background(), session.ID)
	}

	return nil
}

func (s *EnrollmentServiceImpl) ListByUserID(ctx context.Context, userID int) ([]*model.Enrollment, error) {
	return s.repository.ListByUserID(ctx, userID)
}

// reserveSeat 回傳是否佔用了閘門名額；閘門未預熱或 Redis 故障時放行，由交易把關
func (s *EnrollmentServiceImpl) reserveSeat(ctx context.Context, session *model.ClassSession) (bool, error) {
	if session.MaxStudents == nil {
		return false, nil
	}

	err := s.seatGuard.Reserve(ctx, session.ID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperrors.ErrSessionFull):
		return false, err
	case errors.Is(err, cache.ErrGuardNotWarmed):
		return false, nil
	default:
		logger.WithComponent("enrollment").Warn("seat guard unavailable, falling back to db",
			zap.Int("session_id", session.ID),
			zap.Error(err),
		)
		return false, nil
	}
}

func (s *EnrollmentServiceImpl) releaseSeat(ctx context.Context, sessionID int) {
	if err := s.seatGuard.Release(ctx, sessionID); err != nil {
		logger.WithComponent("enrollment").Warn("seat guard release failed",
			zap.Int("session_id", sessionID),
			zap.Error(err),
		)
	}
}

func (s *EnrollmentServiceImpl) queueIssueRetry(enrollment *model.Enrollment, sessionID int) {
	req := &model.IssueTicketRequest{
		EnrollmentID: enrollment.ID,
		SessionID:    sessionID,
		UserID:       enrollment.UserID,
	}
	// 用 context.Background()：用戶斷線不該讓補發請求消失
	if err := s.issueQueue.PublishIssueRequest(context.Background(), req); err != nil {
		logger.WithComponent("enrollment").Error("failed to queue ticket issue retry",
			zap.Int("enrollment_id", enrollment.ID),
			zap.Error(err),
		)
	}
}
