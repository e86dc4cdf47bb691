package handler

import (
	"classtix/internal/model"
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, req *model.CreateSessionRequest) (*model.ClassSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClassSession), args.Error(1)
}

func (m *MockSessionService) List(ctx context.Context) ([]*model.ClassSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ClassSession), args.Error(1)
}

func (m *MockSessionService) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.ClassSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClassSession), args.Error(1)
}

func (m *MockSessionService) UpdateBySessionID(ctx context.Context, sessionID uuid.UUID, params model.UpdateSessionParams) (*model.ClassSession, error) {
	args := m.Called(ctx, sessionID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClassSession), args.Error(1)
}

func (m *MockSessionService) DeleteBySessionID(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionService) OpenForEnrollment(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionService) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]*model.NearbySessionResponse, error) {
	args := m.Called(ctx, lat, lon, radiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.NearbySessionResponse), args.Error(1)
}

type MockEnrollmentService struct {
	mock.Mock
}

func (m *MockEnrollmentService) Enroll(ctx context.Context, sessionID uuid.UUID, userID int) (*model.EnrollResponse, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EnrollResponse), args.Error(1)
}

func (m *MockEnrollmentService) Cancel(ctx context.Context, sessionID uuid.UUID, userID int) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *MockEnrollmentService) ListByUserID(ctx context.Context, userID int) ([]*model.Enrollment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Enrollment), args.Error(1)
}

type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) IssueIfPhysical(ctx context.Context, session *model.ClassSession, enrollment *model.Enrollment) (*model.Ticket, error) {
	args := m.Called(ctx, session, enrollment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketService) IssueForRequest(ctx context.Context, req *model.IssueTicketRequest) (*model.Ticket, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketService) GetByTicketNumber(ctx context.Context, ticketNumber string) (*model.Ticket, error) {
	args := m.Called(ctx, ticketNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketService) ListByUserID(ctx context.Context, userID int) ([]*model.Ticket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *MockTicketService) Verify(ctx context.Context, qrCode string) *model.VerifyTicketResponse {
	args := m.Called(ctx, qrCode)
	return args.Get(0).(*model.VerifyTicketResponse)
}

func (m *MockTicketService) Redeem(ctx context.Context, ticketNumber string, qrCode string) (*model.Ticket, error) {
	args := m.Called(ctx, ticketNumber, qrCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}
