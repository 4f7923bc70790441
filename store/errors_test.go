package store

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	err := Failure("insert comment", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "insert comment failed", err.Error())
}

func TestErrorMessageStaysCallerSafe(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:27017: connection refused")
	err := Upstream("upload", cause)
	assert.ErrorIs(t, err, ErrUpstreamFailure)
	assert.NotContains(t, err.Error(), "10.0.0.1")
}

func TestDomainConstructors(t *testing.T) {
	require.ErrorIs(t, NotFound("post not found"), ErrNotFound)
	require.ErrorIs(t, InvalidInput("bad id"), ErrInvalidInput)
	require.ErrorIs(t, Forbidden("nope"), ErrForbidden)
	assert.Equal(t, "post not found", NotFound("post not found").Error())
}
