package jwt_parse

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSubjectFromClaims(t *testing.T) {
	id := uuid.New()

	t.Run("user_id claim", func(t *testing.T) {
		got, err := subjectFromClaims(jwt.MapClaims{"user_id": id.String()})
		assert.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("falls back to sub", func(t *testing.T) {
		got, err := subjectFromClaims(jwt.MapClaims{"sub": id.String()})
		assert.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("user_id preferred over sub", func(t *testing.T) {
		other := uuid.New()
		got, err := subjectFromClaims(jwt.MapClaims{"user_id": id.String(), "sub": other.String()})
		assert.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("non-string claim", func(t *testing.T) {
		_, err := subjectFromClaims(jwt.MapClaims{"user_id": 42})
		assert.Error(t, err)
	})

	t.Run("non-uuid claim", func(t *testing.T) {
		_, err := subjectFromClaims(jwt.MapClaims{"user_id": "not-a-uuid"})
		assert.Error(t, err)
	})

	t.Run("missing claims", func(t *testing.T) {
		_, err := subjectFromClaims(jwt.MapClaims{})
		assert.Error(t, err)
	})
}
