package handler

import (
	"bytes"
	"classtix/internal/model"
	apperrors "classtix/pkg/app_errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupSessionRouter(svc *MockSessionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewSessionHandler(svc).RegisterRoutes(r)
	return r
}

func getRequest(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateSessionHandler(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		svc.On("Create", mock.Anything, mock.AnythingOfType("*model.CreateSessionRequest")).Return(&model.ClassSession{
			ID:        1,
			SessionID: uuid.New(),
			Title:     "Yoga Basics",
			Status:    model.SessionStatusUpcoming,
		}, nil)

		w := postJSON(t, router, "/api/v1/sessions", gin.H{
			"title":      "Yoga Basics",
			"creator_id": 1,
			"start_time": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("InvalidCoordinates", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		svc.On("Create", mock.Anything, mock.Anything).Return(nil, apperrors.ErrInvalidCoordinates)

		w := postJSON(t, router, "/api/v1/sessions", gin.H{
			"title":      "Broken",
			"creator_id": 1,
			"start_time": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
			"latitude":   95.0,
			"longitude":  0.0,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid coordinates")
	})
}

func TestGetSessionHandler(t *testing.T) {
	sessionID := uuid.New()

	t.Run("OK", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		svc.On("GetBySessionID", mock.Anything, sessionID).Return(&model.ClassSession{
			ID: 1, SessionID: sessionID, Title: "Yoga Basics",
		}, nil)

		w := getRequest(router, "/api/v1/sessions/"+sessionID.String())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), sessionID.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		svc.On("GetBySessionID", mock.Anything, sessionID).Return(nil, apperrors.ErrSessionNotFound)

		w := getRequest(router, "/api/v1/sessions/"+sessionID.String())

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidUUID", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		w := getRequest(router, "/api/v1/sessions/not-a-uuid")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "GetBySessionID")
	})
}

func TestNearbyHandler(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		svc.On("Nearby", mock.Anything, 25.0, 121.5, 5.0).Return([]*model.NearbySessionResponse{
			{Session: &model.ClassSession{ID: 1}, DistanceKm: 0.4},
			{Session: &model.ClassSession{ID: 2}, DistanceKm: 3.2},
		}, nil)

		w := getRequest(router, "/api/v1/sessions/nearby?lat=25.0&lon=121.5&radius_km=5")

		assert.Equal(t, http.StatusOK, w.Code)

		var results []*model.NearbySessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
		require.Len(t, results, 2)
		assert.Less(t, results[0].DistanceKm, results[1].DistanceKm)
	})

	t.Run("ZeroLatitudeIsValid", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		svc.On("Nearby", mock.Anything, 0.0, 121.5, 5.0).Return([]*model.NearbySessionResponse{}, nil)

		w := getRequest(router, "/api/v1/sessions/nearby?lat=0&lon=121.5&radius_km=5")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("MissingCoordinates", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		w := getRequest(router, "/api/v1/sessions/nearby?radius_km=5")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Nearby")
	})

	t.Run("InvalidOrigin", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		svc.On("Nearby", mock.Anything, 95.0, 121.5, 5.0).Return(nil, apperrors.ErrInvalidCoordinates)

		w := getRequest(router, "/api/v1/sessions/nearby?lat=95.0&lon=121.5&radius_km=5")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateSessionHandler(t *testing.T) {
	sessionID := uuid.New()

	t.Run("OK", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		newTitle := "Advanced Yoga"
		svc.On("UpdateBySessionID", mock.Anything, sessionID, model.UpdateSessionParams{Title: &newTitle}).
			Return(&model.ClassSession{ID: 1, SessionID: sessionID, Title: newTitle}, nil)

		raw, _ := json.Marshal(gin.H{"title": newTitle})
		req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/"+sessionID.String(), bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), newTitle)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		raw, _ := json.Marshal(gin.H{})
		req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/"+sessionID.String(), bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "UpdateBySessionID")
	})
}

func TestDeleteSessionHandler(t *testing.T) {
	sessionID := uuid.New()

	svc := new(MockSessionService)
	router := setupSessionRouter(svc)

	svc.On("DeleteBySessionID", mock.Anything, sessionID).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+sessionID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestOpenForEnrollmentHandler(t *testing.T) {
	sessionID := uuid.New()

	t.Run("OK", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		svc.On("OpenForEnrollment", mock.Anything, sessionID).Return(nil)

		w := postJSON(t, router, "/api/v1/sessions/"+sessionID.String()+"/open", gin.H{})

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("NotOpen", func(t *testing.T) {
		svc := new(MockSessionService)
		router := setupSessionRouter(svc)

		svc.On("OpenForEnrollment", mock.Anything, sessionID).Return(apperrors.ErrSessionNotOpen)

		w := postJSON(t, router, "/api/v1/sessions/"+sessionID.String()+"/open", gin.H{})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
