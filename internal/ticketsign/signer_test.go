package ticketsign

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSignVerifyRoundTrip(t *testing.T) {
	signer := NewSigner([]byte("test-signing-secret"))

	payload := Payload{
		EnrollmentID: intPtr(42),
		ClassID:      intPtr(7),
		UserID:       1001,
		IssuedAt:     1735689600,
	}

	opaque := signer.Sign(payload)
	require.NotEmpty(t, opaque)

	got, valid := signer.Verify(opaque)
	assert.True(t, valid)
	assert.Equal(t, payload, got)
}

func TestSignVerifyNilFields(t *testing.T) {
	signer := NewSigner([]byte("test-signing-secret"))

	// membership/event payload without enrollment or class
	payload := Payload{
		MembershipID: intPtr(9),
		EventID:      intPtr(3),
		UserID:       55,
		IssuedAt:     time.Now().Unix(),
	}

	got, valid := signer.Verify(signer.Sign(payload))
	assert.True(t, valid)
	assert.Equal(t, payload, got)
	assert.Nil(t, got.EnrollmentID)
	assert.Nil(t, got.ClassID)
}

func TestSignDeterministic(t *testing.T) {
	signer := NewSigner([]byte("test-signing-secret"))
	payload := Payload{EnrollmentID: intPtr(1), ClassID: intPtr(2), UserID: 3, IssuedAt: 4}

	assert.Equal(t, signer.Sign(payload), signer.Sign(payload))
}

// Any single-character mutation of the opaque string must fail verification.
func TestVerifyTamperDetection(t *testing.T) {
	signer := NewSigner([]byte("test-signing-secret"))

	payload := Payload{
		EnrollmentID: intPtr(42),
		ClassID:      intPtr(7),
		UserID:       1001,
		IssuedAt:     1735689600,
	}
	opaque := signer.Sign(payload)

	for i := 0; i < len(opaque); i++ {
		mutated := []byte(opaque)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}

		_, valid := signer.Verify(string(mutated))
		assert.False(t, valid, "mutation at index %d must invalidate the signature", i)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	opaque := NewSigner([]byte("secret-a")).Sign(Payload{UserID: 1, IssuedAt: 2})

	_, valid := NewSigner([]byte("secret-b")).Verify(opaque)
	assert.False(t, valid)
}

func TestVerifyMalformedInput(t *testing.T) {
	signer := NewSigner([]byte("test-signing-secret"))

	cases := []string{
		"",
		".",
		"no-dot-at-all",
		"onlyhead.",
		".onlytail",
		"not!base64.abcdef",
		"YWJj.deadbeef", // valid base64 but not a payload
	}

	for _, c := range cases {
		_, valid := signer.Verify(c)
		assert.False(t, valid, "input %q must be invalid", c)
	}
}

func TestNewTicketNumber(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	number, err := NewTicketNumber(now)
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TKT-2026-\d{6}$`), number)
}
