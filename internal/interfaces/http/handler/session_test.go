package handler

import (
	"net/http"
	"testing"

	"github.com/erp/labelstation/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRouter(st *testStation) http.Handler {
	h := NewSessionHandler(st.sessions)
	router := newTestRouter()
	router.POST("/session/login", h.Login)
	router.POST("/session/logout", h.Logout)
	router.GET("/session", h.Current)
	return router
}

func TestSessionHandler_Login(t *testing.T) {
	st := newTestStation(t)
	router := sessionRouter(st)

	w := doJSON(router, http.MethodPost, "/session/login", map[string]string{
		"username": " receiver01 ",
		"password": "s3cret",
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, decodeResponse(t, w))
	assert.Equal(t, "receiver01", data["user"])
	assert.Equal(t, true, data["active"])
	assert.True(t, st.sessions.IsActive())
}

func TestSessionHandler_LoginErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		status   int
		code     string
		detailOn string
	}{
		{"wrong password", map[string]string{"username": "receiver01", "password": "nope"},
			http.StatusUnauthorized, dto.ErrCodeInvalidCredentials, ""},
		{"missing password", map[string]string{"username": "receiver01"},
			http.StatusBadRequest, dto.ErrCodeValidation, "password"},
		{"blank username", map[string]string{"username": "   ", "password": "s3cret"},
			http.StatusBadRequest, dto.ErrCodeValidation, "username"},
		{"malformed json", `{"username":`,
			http.StatusBadRequest, dto.ErrCodeInvalidJSON, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStation(t)
			w := doJSON(sessionRouter(st), http.MethodPost, "/session/login", tt.body)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
			if tt.detailOn != "" {
				require.Len(t, resp.Error.Details, 1)
				assert.Equal(t, tt.detailOn, resp.Error.Details[0].Field)
			}
			assert.False(t, st.sessions.IsActive())
		})
	}
}

func TestSessionHandler_LogoutAndCurrent(t *testing.T) {
	st := newTestStation(t)
	st.login()
	router := sessionRouter(st)

	w := doJSON(router, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "receiver01", dataMap(t, decodeResponse(t, w))["user"])

	w = doJSON(router, http.MethodPost, "/session/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, decodeResponse(t, w))
	assert.Equal(t, false, data["active"])
	assert.False(t, st.sessions.IsActive())
}
