package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus 課程狀態類型
type SessionStatus string

const (
	SessionStatusUpcoming  SessionStatus = "upcoming"
	SessionStatusOngoing   SessionStatus = "ongoing"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// IsValid 驗證狀態是否有效
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusUpcoming, SessionStatusOngoing, SessionStatusCompleted, SessionStatusCancelled:
		return true
	}
	return false
}

// ClassSession 課程模型：沒有座標也沒有場地視為線上課程
type ClassSession struct {
	ID          int           `json:"id" db:"id"`
	SessionID   uuid.UUID     `json:"session_id" db:"session_id"`
	Title       string        `json:"title" db:"title"`
	Description *string       `json:"description,omitempty" db:"description"`
	CreatorID   int           `json:"creator_id" db:"creator_id"`
	Status      SessionStatus `json:"status" db:"status"`
	StartTime   time.Time     `json:"start_time" db:"start_time"`
	EndTime     *time.Time    `json:"end_time,omitempty" db:"end_time"`
	MaxStudents *int          `json:"max_students,omitempty" db:"max_students"`
	Price       float64       `json:"price" db:"price"`
	VenueID     *int          `json:"venue_id,omitempty" db:"venue_id"`
	Latitude    *float64      `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64      `json:"longitude,omitempty" db:"longitude"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted 檢查課程是否已刪除
func (s *ClassSession) IsDeleted() bool {
	return s.DeletedAt != nil
}

// IsOpenForEnrollment 檢查課程是否開放報名
func (s *ClassSession) IsOpenForEnrollment() bool {
	return !s.IsDeleted() && (s.Status == SessionStatusUpcoming || s.Status == SessionStatusOngoing)
}

// HasCoordinates 檢查課程是否有明確座標
func (s *ClassSession) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// IsPhysical 有場地或有座標即為實體課程，需要發行入場票券
func (s *ClassSession) IsPhysical() bool {
	return s.VenueID != nil || s.HasCoordinates()
}

type UpdateSessionParams struct {
	Title       *string
	Description *string
	Status      *SessionStatus
}

// CreateSessionRequest 建立課程請求
type CreateSessionRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description"`
	CreatorID   int        `json:"creator_id" binding:"required"`
	StartTime   time.Time  `json:"start_time" binding:"required"`
	EndTime     *time.Time `json:"end_time"`
	MaxStudents *int       `json:"max_students"`
	Price       float64    `json:"price"`
	VenueID     *int       `json:"venue_id"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
}

// NearbySessionResponse 附近課程響應（含距離）
type NearbySessionResponse struct {
	Session    *ClassSession `json:"session"`
	DistanceKm float64       `json:"distance_km"`
}
