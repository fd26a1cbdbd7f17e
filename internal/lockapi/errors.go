package lockapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/condlock/condlock/pkg/lock"
)

// writeLockError maps an error returned by pkg/lockcoordinator to an HTTP
// problem response. lock.Error carries an explicit ErrorCode for the
// acquisition-domain failures; anything else is a backend transport error,
// which is reported as 502 rather than 500 since the failure lives on the
// far side of the Store Adapter, not in this process.
func writeLockError(w http.ResponseWriter, err error) {
	var lockErr *lock.Error
	if errors.As(err, &lockErr) {
		switch lockErr.Code {
		case lock.ErrOptionsValidation, lock.ErrTableConfigValidation:
			BadRequest(w, lockErr.Error())
		case lock.ErrNotGranted:
			Conflict(w, lockErr.Error())
		default:
			InternalServerError(w, lockErr.Error())
		}
		return
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		Conflict(w, "acquisition did not complete before the request was cancelled")
		return
	}

	BadGateway(w, err.Error())
}
