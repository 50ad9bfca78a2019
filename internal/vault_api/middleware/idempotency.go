package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	redisstore "github.com/microcredit-pool-ledger/internal/data/redis"
)

const (
	// IdempotencyKeyHeader carries the client-chosen request key
	IdempotencyKeyHeader = "Idempotency-Key"

	// IdempotentReplayHeader is set on responses served from the store
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
	// MaxIdempotentBodyBytes bounds the body hashed and buffered for replay.
	MaxIdempotentBodyBytes int64 = 1 << 20
	storeTimeout         = 2 * time.Second
)

// IdempotencyStore is the subset of the Redis store the middleware needs
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, bodyHash string) (*redisstore.Record, bool, error)
	Complete(ctx context.Context, key string, rec redisstore.Record) error
	Release(ctx context.Context, key string) error
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response when a mutating request repeats an
// Idempotency-Key. Keys are scoped by caller and route. Requests without the
// header pass through, and 5xx responses release the key for retry.
func Idempotency(logger *slog.Logger, store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		clientKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if clientKey == "" {
			c.Next()
			return
		}
		if len(clientKey) > maxIdempotencyKeyLen {
			abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", IdempotencyKeyHeader+" is too long")
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxIdempotentBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					abortWithError(c, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "request body is too large")
					return
				}
				abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", "failed to read request body")
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		bodyHash := hex.EncodeToString(sum[:])

		key := strings.Join([]string{c.Request.Method, c.FullPath(), GetCaller(c), clientKey}, "|")

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		existing, reserved, err := store.Reserve(ctx, key, bodyHash)
		cancel()
		if err != nil {
			logger.Error("Idempotency store unavailable", "error", err, "correlation_id", GetCorrelationID(c))
			abortWithError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "idempotency store unavailable")
			return
		}

		if !reserved {
			switch {
			case existing == nil:
				abortWithError(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "request is already in progress")
			case existing.BodyHash != bodyHash:
				abortWithError(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", IdempotencyKeyHeader+" reused with a different body")
			case existing.InProgress:
				abortWithError(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "request is already in progress")
			default:
				c.Header(IdempotentReplayHeader, "true")
				c.Data(existing.Status, "application/json; charset=utf-8", existing.Body)
				c.Abort()
			}
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// The request context may already be canceled once the handler returns.
		ctx, cancel = context.WithTimeout(context.WithoutCancel(c.Request.Context()), storeTimeout)
		defer cancel()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, key); err != nil {
				logger.Warn("Failed to release idempotency key", "error", err)
			}
			return
		}
		if err := store.Complete(ctx, key, redisstore.Record{
			Status:    status,
			Body:      rec.buf.Bytes(),
			BodyHash:  bodyHash,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			logger.Warn("Failed to store idempotent response", "error", err)
		}
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
