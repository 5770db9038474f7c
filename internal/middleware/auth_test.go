package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	m, err := session.NewManager(config.AuthConfig{
		JWTSecret: "middleware-test-secret-0123456789abcdef",
		JWTIssuer: "storefront-test",
		TokenTTL:  time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestAuthenticate(t *testing.T) {
	manager := newTestManager(t)
	token, err := manager.Mint(model.Actor{UserID: 42, Role: model.RoleCustomer})
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectActor    bool
	}{
		{name: "Valid bearer token", header: "Bearer " + token, expectedStatus: http.StatusOK, expectActor: true},
		{name: "Lowercase scheme", header: "bearer " + token, expectedStatus: http.StatusOK, expectActor: true},
		{name: "Missing header", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "Scheme without token", header: "Bearer ", expectedStatus: http.StatusUnauthorized},
		{name: "Garbage token", header: "Bearer not-a-jwt", expectedStatus: http.StatusUnauthorized},
		{name: "Tampered token", header: "Bearer " + token + "x", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actor model.Actor
			var found bool
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actor, found = ActorFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			handler := Authenticate(manager, zerolog.Nop())(testHandler)

			req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectActor, found)
			if tt.expectActor {
				assert.Equal(t, int64(42), actor.UserID)
				assert.Equal(t, model.RoleCustomer, actor.Role)
				return
			}

			var body model.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, model.ErrCodeUnauthorised, body.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		actor          *model.Actor
		expectedStatus int
	}{
		{name: "Admin allowed", actor: &model.Actor{UserID: 1, Role: model.RoleAdmin}, expectedStatus: http.StatusOK},
		{name: "Customer forbidden", actor: &model.Actor{UserID: 2, Role: model.RoleCustomer}, expectedStatus: http.StatusForbidden},
		{name: "Unauthenticated", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			})

			handler := RequireRole(model.RoleAdmin)(testHandler)

			req := httptest.NewRequest(http.MethodPatch, "/api/admin/orders/1/status", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), *tt.actor))
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, handlerCalled)
		})
	}
}
