package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCustomError_WrapAndIs(t *testing.T) {
	cause := errors.New("upstream timeout")
	err := ErrGenerationFailed.Wrap(cause)

	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "upstream timeout", err.Error())
	assert.Equal(t, ErrGenerationFailed.Message, ErrGenerationFailed.Error())

	wrapped := fmt.Errorf("cache: %w", ErrCacheMiss)
	assert.ErrorIs(t, wrapped, ErrCacheMiss)

	var ce *CustomError
	assert.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "CACHE_MISS", ce.Code)
}

func TestFilterFields(t *testing.T) {
	fields := filterFields([]zap.Field{
		zap.String("prompt", "### Instruction"),
		zap.String("generator_api_key", "sk"),
		zap.String("client_secret", "s"),
		zap.String("model", "qwen"),
	})
	if assert.Len(t, fields, 1) {
		assert.Equal(t, "model", fields[0].Key)
	}
}

func TestGenerateUUID(t *testing.T) {
	id := GenerateUUID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, GenerateUUID())
}
