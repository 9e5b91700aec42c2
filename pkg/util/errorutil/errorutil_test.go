package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewForbidden("nope"))
		de := ToDomainError(err)
		assert.Equal(t, "FORBIDDEN", de.Code)
		assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	})

	t.Run("maps sentinels", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, StatusOf(fmt.Errorf("get: %w", ErrNotFound)))
		assert.Equal(t, http.StatusConflict, StatusOf(ErrDuplicate))
	})

	t.Run("maps fiber errors", func(t *testing.T) {
		de := ToDomainError(fiber.NewError(fiber.StatusBadRequest, "unexpected end of JSON input"))
		assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
		assert.Equal(t, "BAD_REQUEST", de.Code)
		assert.Equal(t, http.StatusNotFound, StatusOf(fiber.ErrNotFound))
	})

	t.Run("hides unknown causes", func(t *testing.T) {
		de := ToDomainError(errors.New("dial tcp 10.0.0.1:5432: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
		assert.Equal(t, "internal server error", de.Message)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
		assert.NoError(t, MapError(nil))
	})
}
