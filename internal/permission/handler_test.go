package permission

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/pulseboard/internal/shared"
)

func permissionsRequest(t *testing.T, store *mockStore, identityID *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewHandler(discardLogger(), NewService(store, NewCache(nil, 0), discardLogger()))
	router := chi.NewRouter()
	handler.MountRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/permissions", nil)
	if identityID != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), *identityID))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMyPermissions(t *testing.T) {
	id := uuid.New()
	store := newMockStore()
	store.roles[id] = RoleBusinessManager
	store.pages[id] = []PageGrant{{IdentityID: id, Page: PageSales, Allowed: true}}

	rec := permissionsRequest(t, store, &id)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Role   Role         `json:"role"`
		Pages  []PageGrant  `json:"pages"`
		Charts []ChartGrant `json:"charts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, RoleBusinessManager, resp.Role)
	require.Len(t, resp.Pages, 1)
	assert.Equal(t, PageSales, resp.Pages[0].Page)
	assert.NotNil(t, resp.Charts)
}

func TestMyPermissionsDenyAllPayloadOnLoadFailure(t *testing.T) {
	id := uuid.New()
	store := newMockStore()
	store.roleErr = errors.New("connection refused")

	rec := permissionsRequest(t, store, &id)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Pages  []PageGrant  `json:"pages"`
		Charts []ChartGrant `json:"charts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Pages)
	assert.Empty(t, resp.Charts)
}

func TestMyPermissionsRequiresIdentity(t *testing.T) {
	rec := permissionsRequest(t, newMockStore(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
