package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom_PassesThroughAndWraps(t *testing.T) {
	orig := Conflict(CodeInsufficientStock, "short")
	assert.Same(t, orig, From(orig))

	wrapped := From(errors.New("pq: connection reset"))
	require.NotNil(t, wrapped)
	assert.Equal(t, KindInternal, wrapped.Kind)
	// The cause survives for logging but never reaches the client.
	assert.Contains(t, wrapped.Error(), "connection reset")
	assert.Equal(t, "internal server error", wrapped.Envelope().Detail)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, Validation("bad").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFound("missing").HTTPStatus())
	assert.Equal(t, http.StatusConflict, Conflict(CodeAlreadyFinalized, "done").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Internal(errors.New("boom")).HTTPStatus())
}

func TestEnvelope_CarriesCode(t *testing.T) {
	env := Conflict(CodeLockTimeout, "transaction conflicted, retry").Envelope()
	assert.Equal(t, CodeLockTimeout, env.Code)
	assert.Equal(t, "transaction conflicted, retry", env.Detail)
}

func TestKindAndCodeHelpers(t *testing.T) {
	err := ValidationCode(CodePaymentMismatch, "payments total 10 does not match net 12")
	assert.True(t, IsKind(err, KindValidation))
	assert.True(t, HasCode(err, CodePaymentMismatch))
	assert.False(t, HasCode(err, CodeDuplicateKey))
	assert.False(t, IsKind(errors.New("plain"), KindValidation))
}
