package exchange

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection reset")

	testCases := []struct {
		name          string
		err           error
		expectedKind  ErrorKind
		wantTransient bool
		wantFatal     bool
	}{
		{
			name:          "Transient",
			err:           NewTransientError("GetMarketOrders", cause),
			expectedKind:  KindTransient,
			wantTransient: true,
		},
		{
			name:         "Fatal",
			err:          NewFatalError("CreateOrder", cause),
			expectedKind: KindFatal,
			wantFatal:    true,
		},
		{
			name:          "Wrapped transient keeps its kind",
			err:           fmt.Errorf("sending buy order: %w", NewTransientError("CreateOrder", cause)),
			expectedKind:  KindTransient,
			wantTransient: true,
		},
		{
			name:         "Plain error is treated as fatal",
			err:          cause,
			expectedKind: KindUnknown,
			wantFatal:    true,
		},
		{
			name:         "Nil error",
			err:          nil,
			expectedKind: KindUnknown,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedKind, KindOf(tc.err))
			assert.Equal(t, tc.wantTransient, IsTransient(tc.err))
			assert.Equal(t, tc.wantFatal, IsFatal(tc.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("insufficient funds")
	err := NewFatalError("CreateOrder", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "CreateOrder")
	assert.Contains(t, err.Error(), "fatal")
	assert.Contains(t, err.Error(), "insufficient funds")
}
