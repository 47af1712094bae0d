package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSessionHandler_Handle(t *testing.T) {
	t.Run("returns session without token", func(t *testing.T) {
		f := newFixture(t)
		s := f.login(t, bob.ID)
		h := NewUserSessionHandler(f.lookup, testCookies)

		rec := f.serve(newRequest(http.MethodGet, "/api/users/session", "", s.Token), h.Handle)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), s.Token)

		var body userSessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, bob.ID, body.User.ID)
		assert.Equal(t, s.ID, body.Session.ID)
		assert.Equal(t, bob.ID, body.Session.UserID)
		assert.WithinDuration(t, s.ExpiresAt, body.Session.ExpiresAt, 0)
	})

	t.Run("no session is unauthorized", func(t *testing.T) {
		f := newFixture(t)
		h := NewUserSessionHandler(f.lookup, testCookies)

		rec := f.serve(newRequest(http.MethodGet, "/api/users/session", "", ""), h.Handle)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
