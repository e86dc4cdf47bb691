package service

import (
	"classtix/internal/cache"
	"classtix/internal/geo"
	"classtix/internal/model"
	"classtix/internal/repository"
	apperrors "classtix/pkg/app_errors"
	"classtix/pkg/logger"
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionService interface {
	Create(ctx context.Context, req *model.CreateSessionRequest) (*model.ClassSession, error)
	List(ctx context.Context) ([]*model.ClassSession, error)
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.ClassSession, error)
	UpdateBySessionID(ctx context.Context, sessionID uuid.UUID, params model.UpdateSessionParams) (*model.ClassSession, error)
	DeleteBySessionID(ctx context.Context, sessionID uuid.UUID) error
	// OpenForEnrollment 熱門課程開搶前：預熱 Redis 名額閘門
	OpenForEnrollment(ctx context.Context, sessionID uuid.UUID) error
	// Nearby 附近課程：包圍盒粗篩 + haversine 精篩，距離由近到遠
	Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]*model.NearbySessionResponse, error)
}

type SessionServiceImpl struct {
	repo           repository.SessionRepository
	enrollmentRepo repository.EnrollmentRepository
	seatGuard      cache.SessionSeatGuard
}

func NewSessionService(
	repo repository.SessionRepository,
	enrollmentRepo repository.EnrollmentRepository,
	seatGuard cache.SessionSeatGuard,
) SessionService {
	return &SessionServiceImpl{
		repo:           repo,
		enrollmentRepo: enrollmentRepo,
		seatGuard:      seatGuard,
	}
}

func (s *SessionServiceImpl) Create(ctx context.Context, req *model.CreateSessionRequest) (*model.ClassSession, error) {
	// 座標必須成對出現，且要通過範圍驗證
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, apperrors.ErrInvalidCoordinates
	}
	if req.Latitude != nil {
		if _, err := geo.NewPoint(*req.Latitude, *req.Longitude); err != nil {
			return nil, err
		}
	}
	if req.EndTime != nil && req.EndTime.Before(req.StartTime) {
		return nil, apperrors.ErrInvalidInput
	}
	if req.MaxStudents != nil && *req.MaxStudents <= 0 {
		return nil, apperrors.ErrInvalidInput
	}

	session := &model.ClassSession{
		SessionID:   uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   req.CreatorID,
		Status:      model.SessionStatusUpcoming,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxStudents: req.MaxStudents,
		Price:       req.Price,
		VenueID:     req.VenueID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}

	return s.repo.Create(ctx, session)
}

func (s *SessionServiceImpl) List(ctx context.Context) ([]*model.ClassSession, error) {
	return s.repo.List(ctx)
}

func (s *SessionServiceImpl) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.ClassSession, error) {
	return s.repo.FindBySessionID(ctx, sessionID)
}

func (s *SessionServiceImpl) UpdateBySessionID(ctx context.Context, sessionID uuid.UUID, params model.UpdateSessionParams) (*model.ClassSession, error) {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, session.ID, params)
}

func (s *SessionServiceImpl) DeleteBySessionID(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, session.ID); err != nil {
		return err
	}
	// 閘門一起清掉，避免殘留名額
	if err := s.seatGuard.Evict(ctx, session.ID); err != nil {
		logger.WithComponent("session").Warn("seat guard evict failed",
			zap.Int("session_id", session.ID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *SessionServiceImpl) OpenForEnrollment(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.IsOpenForEnrollment() {
		return apperrors.ErrSessionNotOpen
	}
	if session.MaxStudents == nil {
		// 沒有名額上限就沒有閘門可預熱
		return nil
	}

	count, err := s.enrollmentRepo.CountActiveBySession(ctx, session.ID)
	if err != nil {
		return err
	}

	remaining := *session.MaxStudents - count
	if err := s.seatGuard.WarmUp(ctx, session.ID, remaining); err != nil {
		return err
	}

	logger.WithComponent("session").Info("seat guard warmed",
		zap.Int("session_id", session.ID),
		zap.Int("remaining_seats", remaining),
	)

	return nil
}

func (s *SessionServiceImpl) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]*model.NearbySessionResponse, error) {
	origin, err := geo.NewPoint(lat, lon)
	if err != nil {
		return nil, err
	}

	results := make([]*model.NearbySessionResponse, 0)
	if radiusKm <= 0 {
		return results, nil
	}

	// 粗篩是 superset：角落的誤判由下面的精確距離剔除
	candidates, err := s.repo.ListWithinBox(ctx, geo.BoundingBox(origin, radiusKm))
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		if !candidate.HasCoordinates() {
			continue
		}
		distance := geo.Haversine(origin, geo.Point{Lat: *candidate.Latitude, Lon: *candidate.Longitude})
		if distance > radiusKm {
			continue
		}
		results = append(results, &model.NearbySessionResponse{
			Session:    candidate,
			DistanceKm: distance,
		})
	}

	// stable sort：同距離維持建立順序（repository 以 created_at ASC 回傳）
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})

	return results, nil
}
