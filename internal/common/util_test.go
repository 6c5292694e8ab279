package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- MakeRandHexString ----------

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

// ---------- NewUIID ----------

func TestNewUIID_Length(t *testing.T) {
	a, err := NewUIID()
	require.NoError(t, err)
	b, err := NewUIID()
	require.NoError(t, err)

	assert.Len(t, a, UIIDSize*2)
	if a == b {
		t.Logf("warning: two NewUIID results are identical; extremely unlikely")
	}
}

// ---------- errors ----------

func TestInvariantError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("deleting task: %w", NewInvariantError("task", "t1", "equipment e1 missing"))

	require.ErrorIs(t, err, ErrInvariantViolation)

	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "task", ie.Entity)
	assert.Equal(t, "t1", ie.ID)
	assert.Contains(t, err.Error(), "equipment e1 missing")
}

func TestValidationf(t *testing.T) {
	err := Validationf("period %d must be positive", -3)
	require.ErrorIs(t, err, ErrorValidation)
	assert.Contains(t, err.Error(), "period -3 must be positive")
	assert.False(t, errors.Is(err, ErrorNotFound))
}
