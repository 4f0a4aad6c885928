package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/portfolio-tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Categorize(nil))
	})

	t.Run("categorized error passes through wrapping", func(t *testing.T) {
		orig := NewSnapshotExistsError("2026-02", 1234.5)
		wrapped := fmt.Errorf("capture: %w", orig)

		got := Categorize(wrapped)
		require.NotNil(t, got)
		assert.Same(t, orig, got)
		assert.Equal(t, CategoryConflict, got.Category)
		assert.Equal(t, "2026-02", got.Details["month"])
	})

	t.Run("service error is mapped by code", func(t *testing.T) {
		got := Categorize(&types.ServiceError{Code: CodeInvalidHolding, Message: "bad"})
		assert.Equal(t, http.StatusBadRequest, got.StatusCode)
		assert.Equal(t, CategoryValidation, got.Category)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		cause := stderrors.New("boom")
		got := Categorize(cause)
		assert.Equal(t, CodeInternalError, got.Code)
		assert.ErrorIs(t, got, cause)
	})
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		conflict bool
		user     bool
		system   bool
	}{
		{"snapshot exists", NewSnapshotExistsError("2026-01", 0), http.StatusConflict, true, true, false},
		{"invalid holding", NewInvalidHoldingError(2, "PEPE", "bad contract"), http.StatusBadRequest, false, true, false},
		{"provider", NewProviderError("coingecko", stderrors.New("timeout")), http.StatusBadGateway, false, false, true},
		{"storage", NewStorageError("write snapshots", stderrors.New("disk full")), http.StatusInternalServerError, false, false, true},
		{"rate limit", NewRateLimitError(5), http.StatusTooManyRequests, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatusCode(tt.err))
			assert.Equal(t, tt.conflict, IsConflict(tt.err))
			assert.Equal(t, tt.user, IsUserError(tt.err))
			assert.Equal(t, tt.system, IsSystemError(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NewNoMatchingPairError("0xabc", "base"))
	assert.True(t, HasCode(err, CodeNoMatchingPair))
	assert.False(t, HasCode(err, CodeProviderStatus))
	assert.False(t, HasCode(nil, CodeNoMatchingPair))
}

func TestErrorMessage(t *testing.T) {
	err := NewProviderError("dexscreener", stderrors.New("connection refused"))
	assert.Equal(t, "PROVIDER_ERROR: price provider error: dexscreener (caused by: connection refused)", err.Error())
	assert.Equal(t, "PROVIDER_BAD_STATUS: price provider coingecko returned status 429", NewProviderStatusError("coingecko", 429).Error())
}
