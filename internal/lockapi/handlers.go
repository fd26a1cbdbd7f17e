package lockapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/condlock/condlock/pkg/lock"
	"github.com/condlock/condlock/pkg/lockcoordinator"
	"github.com/condlock/condlock/pkg/lockstore"
)

// lockHandler serves /v1/locks: acquire, peek, release, release-all.
type lockHandler struct {
	coordinator *lockcoordinator.Coordinator
	backend     lockstore.Backend
	startTime   time.Time
}

func newLockHandler(c *lockcoordinator.Coordinator, backend lockstore.Backend) *lockHandler {
	return &lockHandler{coordinator: c, backend: backend, startTime: time.Now()}
}

// acquireRequest is the JSON body accepted by POST /v1/locks/{group}/{id}.
// Every field is optional; omitted fields keep pkg/lock's own defaults.
type acquireRequest struct {
	LeaseDurationInMs    *int64         `json:"leaseDurationInMs,omitempty"`
	ProlongLeaseEnabled  *bool          `json:"prolongLeaseEnabled,omitempty"`
	ProlongEveryMs       *int64         `json:"prolongEveryMs,omitempty"`
	TrustLocalTime       bool           `json:"trustLocalTime,omitempty"`
	WaitDurationInMs     *int64         `json:"waitDurationInMs,omitempty"`
	MaxRetryCount        *int           `json:"maxRetryCount,omitempty"`
	AdditionalAttributes map[string]any `json:"additionalAttributes,omitempty"`
}

func (req acquireRequest) toOptions() lock.Options {
	opts := lock.DefaultOptions()
	if req.LeaseDurationInMs != nil {
		opts = opts.WithLeaseDurationInMs(*req.LeaseDurationInMs)
	}
	if req.ProlongLeaseEnabled != nil {
		opts = opts.WithProlongLeaseEnabled(*req.ProlongLeaseEnabled)
	}
	if req.ProlongEveryMs != nil {
		opts = opts.WithProlongEveryMs(*req.ProlongEveryMs)
	}
	opts = opts.WithTrustLocalTime(req.TrustLocalTime)
	if req.WaitDurationInMs != nil {
		opts = opts.WithWaitDurationInMs(*req.WaitDurationInMs)
	}
	if req.MaxRetryCount != nil {
		opts = opts.WithMaxRetryCount(*req.MaxRetryCount)
	}
	if req.AdditionalAttributes != nil {
		opts = opts.WithAdditionalAttributes(req.AdditionalAttributes)
	}
	return opts
}

// lockResponse is the JSON shape returned for a held or observed lock.
type lockResponse struct {
	Group               string         `json:"group"`
	ID                   string         `json:"id"`
	OwnerName            string         `json:"ownerName"`
	RecordVersionNumber  string         `json:"recordVersionNumber"`
	LeaseDurationInMs    int64          `json:"leaseDurationInMs"`
	LastUpdatedTimeInMs  int64          `json:"lastUpdatedTimeInMs"`
	AdditionalAttributes map[string]any `json:"additionalAttributes,omitempty"`
}

func handleToResponse(h *lock.Lock) lockResponse {
	return lockResponse{
		Group:                h.Group,
		ID:                   h.ID,
		OwnerName:            h.OwnerName,
		RecordVersionNumber:  h.RecordVersionNumber,
		LeaseDurationInMs:    h.LeaseDurationInMs,
		LastUpdatedTimeInMs:  h.LastUpdatedTimeInMs,
		AdditionalAttributes: h.AdditionalAttributes,
	}
}

func recordToResponse(r *lockstore.Record) lockResponse {
	return lockResponse{
		Group:                r.Group,
		ID:                   r.ID,
		OwnerName:            r.OwnerName,
		RecordVersionNumber:  r.RecordVersionNumber,
		LeaseDurationInMs:    r.LeaseDurationInMs,
		LastUpdatedTimeInMs:  r.LastUpdatedTimeInMs,
		AdditionalAttributes: r.AdditionalAttributes,
	}
}

// Acquire handles POST /v1/locks/{group}/{id}. Blocks for the duration of
// the acquisition state machine (bounded by the request context's
// deadline, if any, or by MaxRetryCount) and returns 200 with the held
// lock's identity on success.
func (h *lockHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	id := chi.URLParam(r, "id")

	var req acquireRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body: "+err.Error())
			return
		}
	}

	handle, err := h.coordinator.Lock(r.Context(), group, id, req.toOptions())
	if err != nil {
		writeLockError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, handleToResponse(handle))
}

// Peek handles GET /v1/locks/{group}/{id}: a read-only observation of the
// persisted record, independent of whether this coordinator instance holds
// it. Returns 404 if no record exists.
func (h *lockHandler) Peek(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	id := chi.URLParam(r, "id")

	rec, err := h.backend.GetLockByGroupAndID(r.Context(), group, id)
	if err != nil {
		BadGateway(w, err.Error())
		return
	}
	if rec == nil {
		NotFound(w, "no lock held for "+group+"/"+id)
		return
	}
	WriteJSON(w, http.StatusOK, recordToResponse(rec))
}

// Release handles DELETE /v1/locks/{group}/{id}. Only releases a lock this
// coordinator instance itself acquired; a group/id this process never
// locked (or already released) is reported as 404, not as a no-op success,
// so a caller can tell a mistaken double-release from a real one.
func (h *lockHandler) Release(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	id := chi.URLParam(r, "id")

	handle, ok := h.coordinator.Lookup(group, id)
	if !ok {
		NotFound(w, "no lock held by this coordinator for "+group+"/"+id)
		return
	}

	if err := h.coordinator.ReleaseLock(r.Context(), handle); err != nil {
		writeLockError(w, err)
		return
	}
	WriteNoContent(w)
}

// ReleaseAll handles POST /v1/locks/release-all: releases every lock this
// coordinator instance currently holds, e.g. ahead of a planned shutdown.
func (h *lockHandler) ReleaseAll(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.ReleaseAllLocks(r.Context()); err != nil {
		writeLockError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

// healthHandler serves the liveness/readiness probes.
type healthHandler struct {
	startTime time.Time
}

func newHealthHandler() *healthHandler {
	return &healthHandler{startTime: time.Now()}
}

func (h *healthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"service":    "condlockd",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
	})
}

func (h *healthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
