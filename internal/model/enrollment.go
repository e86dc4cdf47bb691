package model

import "time"

// EnrollmentStatus 報名狀態類型
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// IsValid 驗證狀態是否有效
func (s EnrollmentStatus) IsValid() bool {
	switch s {
	case EnrollmentStatusEnrolled, EnrollmentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s EnrollmentStatus) CanTransitionTo(target EnrollmentStatus) bool {
	switch s {
	case EnrollmentStatusEnrolled:
		return target == EnrollmentStatusCancelled
	}
	return false
}

// Enrollment 報名模型：取消採軟刪除（狀態轉換），保留 created_at 供退款窗口判斷
type Enrollment struct {
	ID        int              `json:"id" db:"id"`
	SessionID int              `json:"session_id" db:"session_id"`
	UserID    int              `json:"user_id" db:"user_id"`
	Status    EnrollmentStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// IsActive 檢查報名是否有效（未取消）
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentStatusEnrolled
}

// EnrollRequest 報名請求
type EnrollRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

// EnrollResponse 報名響應：TicketPending 為 true 表示已報名但票券尚未發行成功
type EnrollResponse struct {
	Enrollment    *Enrollment `json:"enrollment"`
	Ticket        *Ticket     `json:"ticket,omitempty"`
	TicketPending bool        `json:"ticket_pending"`
}
