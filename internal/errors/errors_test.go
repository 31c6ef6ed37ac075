package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CategoryValidation, SeverityError, "bad input")
	assert.Equal(t, "validation (error): bad input", err.Error())

	cause := stderrors.New("disk full")
	wrapped := Wrap(cause, CategoryPersistence, SeverityWarning, "failed to persist value")
	assert.Equal(t, "persistence (warning): failed to persist value: disk full", wrapped.Error())
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := SendFailed(cause)
	assert.True(t, stderrors.Is(err, cause))
}

func TestCategoryClassification(t *testing.T) {
	assert.True(t, IsCategory(NoPeer(), CategorySession))
	assert.False(t, IsCategory(NoPeer(), CategoryTransport))
	assert.False(t, IsCategory(stderrors.New("plain"), CategorySession))

	assert.Equal(t, CategoryValidation, GetCategory(ValidationFailed("status", "unknown")))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestConstructorsCarryContext(t *testing.T) {
	err := ShopPaused("SHOP-1234")
	require.NotNil(t, err.Context)
	assert.Equal(t, "SHOP-1234", err.Context["shop_id"])
	assert.Equal(t, SeverityError, err.Severity)

	err = JobConflict("job-1")
	assert.Equal(t, "job-1", err.Context["active_job_id"])

	err = CacheOpenFailed("/tmp/x.db", stderrors.New("locked"))
	assert.Equal(t, SeverityFatal, err.Severity)
	assert.Equal(t, "/tmp/x.db", err.Context["path"])
}
