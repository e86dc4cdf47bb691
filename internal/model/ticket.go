package model

import "time"

// TicketStatus 票券狀態類型
type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusExpired   TicketStatus = "expired"
)

// IsValid 驗證狀態是否有效
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusActive, TicketStatusUsed, TicketStatusCancelled, TicketStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	transitions := map[TicketStatus][]TicketStatus{
		TicketStatusActive:    {TicketStatusUsed, TicketStatusCancelled, TicketStatusExpired},
		TicketStatusUsed:      {},
		TicketStatusCancelled: {},
		TicketStatusExpired:   {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

const (
	// TicketExpiryAfterEnd 課程有結束時間時，票券於結束後 24 小時過期
	TicketExpiryAfterEnd = 24 * time.Hour
	// TicketExpiryDefault 課程沒有結束時間時，票券於發行後 30 天過期
	TicketExpiryDefault = 30 * 24 * time.Hour
)

// Ticket 票券模型：每筆報名最多一張，僅實體課程發行
type Ticket struct {
	ID           int          `json:"id" db:"id"`
	TicketNumber string       `json:"ticket_number" db:"ticket_number"`
	QRCode       string       `json:"qr_code" db:"qr_code"`
	EnrollmentID int          `json:"enrollment_id" db:"enrollment_id"`
	SessionID    int          `json:"session_id" db:"session_id"`
	UserID       int          `json:"user_id" db:"user_id"`
	Price        float64      `json:"price" db:"price"`
	Status       TicketStatus `json:"status" db:"status"`
	ExpiresAt    time.Time    `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// TicketExpiry 計算票券過期時間
func TicketExpiry(sessionEnd *time.Time, issuedAt time.Time) time.Time {
	if sessionEnd != nil {
		return sessionEnd.Add(TicketExpiryAfterEnd)
	}
	return issuedAt.Add(TicketExpiryDefault)
}

// IsExpired 檢查票券於 now 是否已過期
func (t *Ticket) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// EffectiveStatus 過期是計算出來的狀態，不一定寫回資料庫
func (t *Ticket) EffectiveStatus(now time.Time) TicketStatus {
	if t.Status == TicketStatusActive && t.IsExpired(now) {
		return TicketStatusExpired
	}
	return t.Status
}

// VerifyTicketRequest 驗票請求
type VerifyTicketRequest struct {
	QRCode string `json:"qr_code" binding:"required"`
}

// VerifyTicketResponse 驗票響應
type VerifyTicketResponse struct {
	Valid        bool `json:"valid"`
	EnrollmentID *int `json:"enrollment_id,omitempty"`
	SessionID    *int `json:"session_id,omitempty"`
	UserID       int  `json:"user_id,omitempty"`
}

// IssueTicketRequest 票券補發請求（queue 重試用）
type IssueTicketRequest struct {
	EnrollmentID int `json:"enrollment_id"`
	SessionID    int `json:"session_id"`
	UserID       int `json:"user_id"`
}
