package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// credentialBodyLimit bounds how much of a login or register body is
// buffered to find the email.
const credentialBodyLimit = 64 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy is a fixed window with separate budgets per client IP
// and per submitted email. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// bucket is one counter checked for a request. value is the client IP or
// the sha256 of the normalized email, never the raw address.
type bucket struct {
	kind  string
	value string
	limit int
}

func (p AuthRateLimitPolicy) scope(b bucket) string {
	return b.kind + ":" + p.name + ":" + b.value
}

// buckets lists the counters for r, restoring the body it had to read.
func (p AuthRateLimitPolicy) buckets(r *http.Request) ([]bucket, error) {
	var out []bucket
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			out = append(out, bucket{kind: "ip", value: ip, limit: p.ipLimit})
		}
	}
	if p.emailLimit <= 0 || r.Body == nil {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, credentialBodyLimit))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &creds) == nil {
		if email := strings.ToLower(strings.TrimSpace(creds.Email)); email != "" {
			sum := sha256.Sum256([]byte(email))
			out = append(out, bucket{kind: "email", value: hex.EncodeToString(sum[:]), limit: p.emailLimit})
		}
	}
	return out, nil
}

// AuthRateLimit throttles credential endpoints. Every bucket is counted on
// each attempt, so an IP spraying many emails still exhausts its own budget.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			buckets, err := policy.buckets(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			for _, b := range buckets {
				count, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.scope(b)), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(b.limit) {
					rejectAttempt(ctx, logg, w, policy, b, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectAttempt(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, b bucket, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":   policy.name,
			"bucket":   b.kind,
			"key":      b.value,
			"attempts": count,
			"limit":    b.limit,
		}), "auth attempt throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many attempts. Please try again later."))
}

// clientIP prefers the left-most X-Forwarded-For hop, then X-Real-IP, then
// the socket peer. Header values that are not IPs are ignored.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); first != "" {
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
