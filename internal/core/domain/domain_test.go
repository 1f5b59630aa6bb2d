package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFormatters(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"card pads to four", FormatCardNr(42), "0042"},
		{"card keeps width", FormatCardNr(1234), "1234"},
		{"pin pads to four", FormatPIN(7), "0007"},
		{"otp pads to two", FormatOTP(3), "03"},
		{"successor adds two", SuccessorOTP(3), "05"},
		{"successor grows past width", SuccessorOTP(99), "101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestSessionToken_Expired(t *testing.T) {
	now := time.Now()
	tok := SessionToken{Value: 1, ExpiresAt: now.Add(time.Hour)}

	assert.False(t, tok.Expired(now))
	assert.False(t, tok.Expired(now.Add(time.Hour-time.Nanosecond)))
	assert.True(t, tok.Expired(now.Add(time.Hour)))
	assert.True(t, tok.Expired(now.Add(2*time.Hour)))
}

func TestTokenKey(t *testing.T) {
	assert.Equal(t, "ff", TokenKey(255))
	assert.Equal(t, "ffffffffffffffff", SessionToken{Value: ^uint64(0)}.Key())
}

func TestNewAuditLog(t *testing.T) {
	entry := NewAuditLog("0001", AuditActionDeposit, 50)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, "0001", entry.CardNr)
	assert.Equal(t, AuditActionDeposit, entry.Action)
	assert.Equal(t, int64(50), entry.Amount)
	assert.WithinDuration(t, time.Now().UTC(), entry.CreatedAt, time.Second)
}
