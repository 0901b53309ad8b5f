package perrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationfSetsKindAndWrapsFormattedError(t *testing.T) {
	err := Validationf("bad-seat", "seat %d is out of range", 9)
	require.Equal(t, Validation, err.Kind)
	require.Equal(t, "bad-seat", err.Code)
	require.Contains(t, err.Error(), "seat 9 is out of range")
}

func TestErrorUnwrapsToUnderlyingCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(Protocol, "some-code", cause)
	require.ErrorIs(t, err, cause)
}

func TestErrorWithNilCauseOmitsColonSuffix(t *testing.T) {
	err := New(Invariant, "stack-negative", nil)
	require.Equal(t, "invariant: stack-negative", err.Error())
}

func TestEachConstructorAssignsExpectedKind(t *testing.T) {
	require.Equal(t, Validation, Validationf("c", "msg").Kind)
	require.Equal(t, Protocol, Protocolf("c", "msg").Kind)
	require.Equal(t, Transient, Transientf("c", "msg").Kind)
	require.Equal(t, Invariant, Invariantf("c", "msg").Kind)
}
