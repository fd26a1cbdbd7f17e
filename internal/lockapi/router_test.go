package lockapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/condlock/condlock/pkg/lockcoordinator"
	"github.com/condlock/condlock/pkg/lockstore"
	"github.com/condlock/condlock/pkg/lockstore/memory"
)

func newTestRouter(t *testing.T) (http.Handler, *lockcoordinator.Coordinator) {
	t.Helper()
	backend := memory.New()
	coord, err := lockcoordinator.New(backend, lockstore.DefaultTableDescriptor(), lockcoordinator.WithOwnerName("test-owner"))
	require.NoError(t, err)
	return NewRouter(coord, backend, "", nil), coord
}

func TestLivenessReturnsHealthy(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAcquireThenPeekThenRelease(t *testing.T) {
	router, _ := newTestRouter(t)

	acquireReq := httptest.NewRequest(http.MethodPost, "/v1/locks/orders/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, acquireReq)
	require.Equal(t, http.StatusOK, w.Code)

	var acquired lockResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&acquired))
	require.Equal(t, "orders", acquired.Group)
	require.Equal(t, "42", acquired.ID)

	peekReq := httptest.NewRequest(http.MethodGet, "/v1/locks/orders/42", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, peekReq)
	require.Equal(t, http.StatusOK, w.Code)

	releaseReq := httptest.NewRequest(http.MethodDelete, "/v1/locks/orders/42", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, releaseReq)
	require.Equal(t, http.StatusNoContent, w.Code)

	peekAfterRelease := httptest.NewRequest(http.MethodGet, "/v1/locks/orders/42", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, peekAfterRelease)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReleaseOfUnheldLockReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodDelete, "/v1/locks/orders/never-locked", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSecondAcquireOfHeldLockWithoutWaitIsConflict(t *testing.T) {
	backend := memory.New()
	coord, err := lockcoordinator.New(backend, lockstore.DefaultTableDescriptor())
	require.NoError(t, err)
	router := NewRouter(coord, backend, "", nil)

	first := httptest.NewRequest(http.MethodPost, "/v1/locks/orders/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, first)
	require.Equal(t, http.StatusOK, w.Code)

	body, err := json.Marshal(acquireRequest{MaxRetryCount: intPtr(0)})
	require.NoError(t, err)
	second := httptest.NewRequest(http.MethodPost, "/v1/locks/orders/99", bytes.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, second)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAcquireRejectsMalformedJSON(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/locks/orders/1", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJWTAuthRejectsMissingBearerToken(t *testing.T) {
	backend := memory.New()
	coord, err := lockcoordinator.New(backend, lockstore.DefaultTableDescriptor())
	require.NoError(t, err)
	router := NewRouter(coord, backend, "a-signing-key-at-least-32-bytes-long", nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/locks/orders/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func intPtr(n int) *int { return &n }
