package provision

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/permission"
	"github.com/pulseboard/pulseboard/internal/shared"
)

type handlerFixture struct {
	*fixture
	router chi.Router
}

// newHandlerFixture mounts the setup routes openly and the user routes behind
// an injected identity, mirroring the production router layout.
func newHandlerFixture(authedAs *uuid.UUID) *handlerFixture {
	f := newFixture()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	permService := permission.NewService(f.grants, permission.NewCache(nil, 0), logger)
	guard := permission.Middleware{Service: permService, Logger: logger}
	handler := NewHandler(logger, f.service, guard)

	router := chi.NewRouter()
	router.Route("/setup", handler.MountSetupRoutes)
	router.Route("/users", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if authedAs != nil {
					req = req.WithContext(shared.ContextWithIdentity(req.Context(), *authedAs))
				}
				next.ServeHTTP(w, req)
			})
		})
		handler.MountUserRoutes(r)
	})
	return &handlerFixture{fixture: f, router: router}
}

func (h *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestSetupStatusReflectsAdminRows(t *testing.T) {
	f := newHandlerFixture(nil)

	rec := f.do(t, http.MethodGet, "/setup/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["admin_exists"])

	f.grants.roles[uuid.New()] = permission.RoleAdmin

	rec = f.do(t, http.MethodGet, "/setup/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["admin_exists"])
}

func TestCreateFirstAdminStatuses(t *testing.T) {
	in := map[string]string{"email": "admin@example.com", "password": "secret1", "full_name": "Admin"}

	t.Run("fresh install creates", func(t *testing.T) {
		f := newHandlerFixture(nil)
		rec := f.do(t, http.MethodPost, "/setup/admin", in)
		require.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.NotEmpty(t, body["identity_id"])
	})

	t.Run("orphan recovery responds ok", func(t *testing.T) {
		f := newHandlerFixture(nil)
		f.directory.identities = []identity.Identity{{ID: uuid.New(), Email: "lost@example.com"}}
		rec := f.do(t, http.MethodPost, "/setup/admin", in)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, true, body["recovered"])
		assert.Equal(t, float64(1), body["recovered_count"])
	})

	t.Run("second admin conflicts", func(t *testing.T) {
		f := newHandlerFixture(nil)
		f.grants.roles[uuid.New()] = permission.RoleAdmin
		rec := f.do(t, http.MethodPost, "/setup/admin", in)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid payload unprocessable", func(t *testing.T) {
		f := newHandlerFixture(nil)
		rec := f.do(t, http.MethodPost, "/setup/admin", map[string]string{"email": "not-an-email"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestCreateUserPartialFailureRespondsWithWarning(t *testing.T) {
	admin := uuid.New()
	f := newHandlerFixture(&admin)
	f.grants.roles[admin] = permission.RoleAdmin
	f.profiles.upsertErr = errors.New("disk full")

	rec := f.do(t, http.MethodPost, "/users/", map[string]any{
		"email": "stranded@example.com", "password": "secret1", "full_name": "Stranded",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["identity_id"])
	assert.NotEmpty(t, body["warning"])
}

func TestUserRoutesRequireAuthentication(t *testing.T) {
	f := newHandlerFixture(nil)

	rec := f.do(t, http.MethodGet, "/users/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/users/", map[string]any{
		"email": "x@example.com", "password": "secret1", "full_name": "X",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.directory.createCalls)
}

func TestUserMutationsRequireAdminRole(t *testing.T) {
	caller := uuid.New()
	f := newHandlerFixture(&caller)
	f.grants.roles[caller] = permission.RoleBusinessManager

	rec := f.do(t, http.MethodPost, "/users/", map[string]any{
		"email": "x@example.com", "password": "secret1", "full_name": "X",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.directory.createCalls, "a denied request must not create anything")

	rec = f.do(t, http.MethodDelete, "/users/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListUsersFollowsPageGrant(t *testing.T) {
	caller := uuid.New()
	f := newHandlerFixture(&caller)

	rec := f.do(t, http.MethodGet, "/users/", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "no grant row denies")

	f.grants.pages[caller] = []permission.PageGrant{
		{IdentityID: caller, Page: permission.PageUsers, Allowed: true},
	}
	rec = f.do(t, http.MethodGet, "/users/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAdminLifecycleOverHTTP(t *testing.T) {
	admin := uuid.New()
	f := newHandlerFixture(&admin)
	f.grants.roles[admin] = permission.RoleAdmin

	rec := f.do(t, http.MethodPost, "/users/", map[string]any{
		"email":     "member@example.com",
		"password":  "secret1",
		"full_name": "Member",
		"page_permissions": map[string]bool{
			"sales": true,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	id := created["identity_id"].(string)

	rec = f.do(t, http.MethodPost, "/users/"+id+"/password", map[string]string{"new_password": "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/users/"+id+"/password", map[string]string{"new_password": "longenough"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/users/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.profiles.rows)
}
