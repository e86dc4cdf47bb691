package ticketsign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payload 票券簽章內容：僅防竄改，不加密，欄位對持有者可見
// EnrollmentID/ClassID 供課程票券使用；MembershipID/EventID 供非課程的活動票券使用
type Payload struct {
	EnrollmentID *int
	MembershipID *int
	ClassID      *int
	EventID      *int
	UserID       int
	IssuedAt     int64
}

type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// serialize 以固定欄位順序序列化，確保簽章與驗章產生相同的位元組
func serialize(p Payload) string {
	fields := []string{
		"enrollment=" + formatOptionalInt(p.EnrollmentID),
		"membership=" + formatOptionalInt(p.MembershipID),
		"class=" + formatOptionalInt(p.ClassID),
		"event=" + formatOptionalInt(p.EventID),
		"user=" + strconv.Itoa(p.UserID),
		"ts=" + strconv.FormatInt(p.IssuedAt, 10),
	}
	return strings.Join(fields, "|")
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// Sign 序列化欄位並附上 HMAC-SHA256 十六進位摘要，組成不透明字串
func (s *Signer) Sign(p Payload) string {
	plain := serialize(p)
	digest := s.digest(plain)
	return base64.RawURLEncoding.EncodeToString([]byte(plain)) + "." + digest
}

// Verify 解析不透明字串並以常數時間比對重新計算的摘要
// 格式錯誤、欄位不合法、摘要不符一律回傳 valid=false，不會 panic
func (s *Signer) Verify(opaque string) (Payload, bool) {
	idx := strings.LastIndex(opaque, ".")
	if idx <= 0 || idx == len(opaque)-1 {
		return Payload{}, false
	}

	// Strict：尾端 padding bits 不為零也要視為竄改
	raw, err := base64.RawURLEncoding.Strict().DecodeString(opaque[:idx])
	if err != nil {
		return Payload{}, false
	}

	payload, err := parse(string(raw))
	if err != nil {
		return Payload{}, false
	}

	expected := s.digest(serialize(payload))
	if !hmac.Equal([]byte(expected), []byte(opaque[idx+1:])) {
		return Payload{}, false
	}

	return payload, true
}

func (s *Signer) digest(plain string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(plain))
	return hex.EncodeToString(mac.Sum(nil))
}

func parse(plain string) (Payload, error) {
	parts := strings.Split(plain, "|")
	if len(parts) != 6 {
		return Payload{}, fmt.Errorf("unexpected field count: %d", len(parts))
	}

	var p Payload
	for i, key := range []string{"enrollment", "membership", "class", "event", "user", "ts"} {
		value, ok := strings.CutPrefix(parts[i], key+"=")
		if !ok {
			return Payload{}, fmt.Errorf("missing field %q", key)
		}

		switch key {
		case "enrollment", "membership", "class", "event":
			v, err := parseOptionalInt(value)
			if err != nil {
				return Payload{}, err
			}
			switch key {
			case "enrollment":
				p.EnrollmentID = v
			case "membership":
				p.MembershipID = v
			case "class":
				p.ClassID = v
			case "event":
				p.EventID = v
			}
		case "user":
			v, err := strconv.Atoi(value)
			if err != nil {
				return Payload{}, err
			}
			p.UserID = v
		case "ts":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Payload{}, err
			}
			p.IssuedAt = v
		}
	}

	return p, nil
}

func parseOptionalInt(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// NewEnrollmentPayload 課程報名票券的標準 payload
func NewEnrollmentPayload(enrollmentID, classID, userID int, issuedAt time.Time) Payload {
	return Payload{
		EnrollmentID: &enrollmentID,
		ClassID:      &classID,
		UserID:       userID,
		IssuedAt:     issuedAt.Unix(),
	}
}
