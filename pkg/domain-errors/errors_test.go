package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("generate: %w", Wrap(cause, CodeDependencyUnavailable, "registry unavailable"))

	assert.True(t, HasCode(err, CodeDependencyUnavailable))
	assert.False(t, HasCode(err, CodeBusy))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependencyUnavailable, CodeOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "lock held", New(CodeBusy, "lock held").Error())
	assert.Equal(t, "store down: eof", Wrap(errors.New("eof"), CodeDependencyUnavailable, "store down").Error())
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:            http.StatusBadRequest,
		CodeValidation:            http.StatusBadRequest,
		CodeNotFound:              http.StatusNotFound,
		CodeBusy:                  http.StatusServiceUnavailable,
		CodeDependencyUnavailable: http.StatusBadGateway,
		CodeAllocationFailed:      http.StatusInternalServerError,
		CodeInternal:              http.StatusInternalServerError,
		Code("unknown"):           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
