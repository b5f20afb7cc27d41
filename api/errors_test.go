package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/momentics/hioload-frame/api"
	"github.com/stretchr/testify/assert"
)

func TestFramingErrorUnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("chain: %w", api.FramingError(2, "length 70000 exceeds 65535"))

	assert.ErrorIs(t, err, api.ErrFraming)
	assert.NotErrorIs(t, err, api.ErrFilterRejected)

	var structured *api.Error
	assert.True(t, errors.As(err, &structured))
	assert.Equal(t, api.ErrCodeFraming, structured.Code)
	assert.Equal(t, 2, structured.Context["stage"])
	assert.Contains(t, err.Error(), "length 70000 exceeds 65535: framing error")
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "framing", api.ErrCodeFraming.String())
	assert.Equal(t, "transport", api.ErrCodeTransport.String())
	assert.Equal(t, "internal", api.ErrorCode(99).String())
}

func TestErrorWithoutContext(t *testing.T) {
	e := &api.Error{Code: api.ErrCodeInternal, Message: "boom"}
	assert.Equal(t, "boom", e.Error())
	e.WithContext("fd", 7)
	assert.Equal(t, "boom (context: map[fd:7])", e.Error())
}
