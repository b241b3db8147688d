package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const idempotencyHeader = "Idempotency-Key"

type idempotencyManager interface {
	Begin(ctx context.Context, scope, key, requestHash string) (*idempotency.Response, error)
	Complete(ctx context.Context, scope, key string, resp idempotency.Response) error
	Release(ctx context.Context, scope, key string) error
}

// Idempotency replays the stored response when a client retries with the
// same Idempotency-Key. Requests without the header pass through. Outcomes a
// retry could change (server errors, conflicts, unconfirmed prices) release
// the key so the retry runs again.
func Idempotency(manager idempotencyManager, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if manager == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			scope, digest := buildScope(r), hashBody(body)
			stored, err := manager.Begin(ctx, scope, key, digest)
			if err != nil {
				responses.WriteError(ctx, logg, w, beginFailure(err))
				return
			}
			if stored != nil {
				writeStoredResponse(w, stored)
				return
			}

			rec := &replayRecorder{ResponseWriter: w}
			settled := false
			defer func() {
				// a panicking handler never settles; free the key and let the panic continue
				if !settled {
					logError(ctx, logg, "release idempotency key", manager.Release(ctx, scope, key))
				}
			}()
			next.ServeHTTP(rec, r)
			settled = true

			if pkgerrors.RetryableStatus(rec.statusOrOK()) {
				logError(ctx, logg, "release idempotency key", manager.Release(ctx, scope, key))
				return
			}
			logError(ctx, logg, "persist idempotency record", manager.Complete(ctx, scope, key, idempotency.Response{
				Status:      rec.statusOrOK(),
				ContentType: rec.Header().Get("Content-Type"),
				Body:        bytes.Clone(rec.body.Bytes()),
				RequestHash: digest,
			}))
		})
	}
}

func beginFailure(err error) error {
	switch {
	case errors.Is(err, idempotency.ErrInvalidKey):
		return pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header is invalid")
	case errors.Is(err, idempotency.ErrKeyReused):
		return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	case errors.Is(err, idempotency.ErrInProgress):
		return pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is in progress")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
}

func buildScope(r *http.Request) string {
	caller := "anonymous"
	if p, ok := PrincipalFrom(r.Context()); ok {
		caller = p.UserID.String()
	}
	return caller + "|" + r.Method + "|" + r.URL.Path
}

func writeStoredResponse(w http.ResponseWriter, resp *idempotency.Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// replayRecorder tees the response body so it can be stored for replay.
type replayRecorder struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *replayRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *replayRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *replayRecorder) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
