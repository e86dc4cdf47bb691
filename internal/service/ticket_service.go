package service

import (
	"classtix/internal/model"
	"classtix/internal/repository"
	"classtix/internal/ticketsign"
	apperrors "classtix/pkg/app_errors"
	"classtix/pkg/logger"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// maxNumberAttempts 票號碰撞時的重試上限
const maxNumberAttempts = 5

type TicketService interface {
	// IssueIfPhysical 實體課程才發票；同一筆報名重複呼叫回傳既有票券（冪等）
	IssueIfPhysical(ctx context.Context, session *model.ClassSession, enrollment *model.Enrollment) (*model.Ticket, error)
	// IssueForRequest 補發入口（worker 用）：報名已取消或不存在時靜默跳過
	IssueForRequest(ctx context.Context, req *model.IssueTicketRequest) (*model.Ticket, error)
	GetByTicketNumber(ctx context.Context, ticketNumber string) (*model.Ticket, error)
	ListByUserID(ctx context.Context, userID int) ([]*model.Ticket, error)
	// Verify 驗章不丟錯誤：格式或簽章問題、票券過期或已失效都回傳 valid=false
	Verify(ctx context.Context, qrCode string) *model.VerifyTicketResponse
	// Redeem 核銷：驗章通過且票券有效才轉為 used
	Redeem(ctx context.Context, ticketNumber string, qrCode string) (*model.Ticket, error)
}

type TicketServiceImpl struct {
	repository     repository.TicketRepository
	sessionRepo    repository.SessionRepository
	enrollmentRepo repository.EnrollmentRepository
	signer         *ticketsign.Signer
}

func NewTicketService(
	ticketRepository repository.TicketRepository,
	sessionRepository repository.SessionRepository,
	enrollmentRepository repository.EnrollmentRepository,
	signer *ticketsign.Signer,
) TicketService {
	return &TicketServiceImpl{
		repository:     ticketRepository,
		sessionRepo:    sessionRepository,
		enrollmentRepo: enrollmentRepository,
		signer:         signer,
	}
}

func (s *TicketServiceImpl) IssueIfPhysical(ctx context.Context, session *model.ClassSession, enrollment *model.Enrollment) (*model.Ticket, error) {
	if !session.IsPhysical() {
		return nil, nil
	}

	// 每筆報名最多一張票
	existing, err := s.repository.FindByEnrollmentID(ctx, enrollment.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrTicketNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	qrCode := s.signer.Sign(ticketsign.NewEnrollmentPayload(enrollment.ID, session.ID, enrollment.UserID, now))

	ticket := &model.Ticket{
		QRCode:       qrCode,
		EnrollmentID: enrollment.ID,
		SessionID:    session.ID,
		UserID:       enrollment.UserID,
		Price:        session.Price,
		Status:       model.TicketStatusActive,
		ExpiresAt:    model.TicketExpiry(session.EndTime, now),
	}

	// 票號是隨機的，碰撞交給 unique constraint 把關後重試
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := ticketsign.NewTicketNumber(now)
		if err != nil {
			return nil, err
		}
		ticket.TicketNumber = number

		created, err := s.repository.Create(ctx, ticket)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, apperrors.ErrTicketNumberTaken) {
			return nil, err
		}

		// enrollment_id 也有 unique constraint：並發補發時另一個發行者可能剛好成功
		if existing, findErr := s.repository.FindByEnrollmentID(ctx, enrollment.ID); findErr == nil {
			return existing, nil
		}

		logger.WithComponent("ticket").Warn("ticket number collision, retrying",
			zap.String("ticket_number", number),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, apperrors.ErrTicketNumberTaken
}

func (s *TicketServiceImpl) IssueForRequest(ctx context.Context, req *model.IssueTicketRequest) (*model.Ticket, error) {
	enrollment, err := s.enrollmentRepo.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrEnrollmentNotFound) {
			// 報名已不存在，補發沒有意義
			return nil, nil
		}
		return nil, err
	}
	if !enrollment.IsActive() {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, enrollment.SessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return s.IssueIfPhysical(ctx, session, enrollment)
}

func (s *TicketServiceImpl) GetByTicketNumber(ctx context.Context, ticketNumber string) (*model.Ticket, error) {
	return s.repository.FindByTicketNumber(ctx, ticketNumber)
}

func (s *TicketServiceImpl) ListByUserID(ctx context.Context, userID int) ([]*model.Ticket, error) {
	return s.repository.ListByUserID(ctx, userID)
}

func (s *TicketServiceImpl) Verify(ctx context.Context, qrCode string) *model.VerifyTicketResponse {
	payload, valid := s.signer.Verify(qrCode)
	if !valid {
		return &model.VerifyTicketResponse{Valid: false}
	}

	response := &model.VerifyTicketResponse{
		Valid:        true,
		EnrollmentID: payload.EnrollmentID,
		SessionID:    payload.ClassID,
		UserID:       payload.UserID,
	}

	// 簽章有效不等於票券可用：過期、已核銷或已取消的票也要回 valid=false
	if payload.EnrollmentID != nil {
		ticket, err := s.repository.FindByEnrollmentID(ctx, *payload.EnrollmentID)
		if err == nil && ticket.EffectiveStatus(time.Now().UTC()) != model.TicketStatusActive {
			response.Valid = false
		}
	}

	return response
}

func (s *TicketServiceImpl) Redeem(ctx context.Context, ticketNumber string, qrCode string) (*model.Ticket, error) {
	ticket, err := s.repository.FindByTicketNumber(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}

	payload, valid := s.signer.Verify(qrCode)
	if !valid || payload.EnrollmentID == nil || *payload.EnrollmentID != ticket.EnrollmentID {
		return nil, apperrors.ErrInvalidTicket
	}

	switch ticket.EffectiveStatus(time.Now().UTC()) {
	case model.TicketStatusActive:
		// fallthrough to redeem
	case model.TicketStatusExpired:
		return nil, apperrors.ErrTicketExpired
	default:
		return nil, apperrors.ErrTicketNotActive
	}

	redeemed, err := s.repository.UpdateStatus(ctx, ticket.ID, model.TicketStatusUsed)
	if err != nil {
		return nil, err
	}

	logger.WithComponent("ticket").Info("ticket redeemed",
		zap.String("ticket_number", redeemed.TicketNumber),
		zap.Int("enrollment_id", redeemed.EnrollmentID),
	)

	return redeemed, nil
}
