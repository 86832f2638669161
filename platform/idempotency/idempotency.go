// Package idempotency replays the stored response of a mutating request when a
// client retries it with the same Idempotency-Key header. Records live in
// Redis and are scoped to the caller's workspace.
package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crm_backend/platform/config"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// HeaderKey is the request header carrying the client's key.
	HeaderKey = "Idempotency-Key"
	// HeaderReplayed is set on responses served from a stored record.
	HeaderReplayed = "Idempotent-Replayed"

	keyPrefix    = "idem:"
	maxKeyLength = 255
	pendingTTL   = time.Minute
)

// Record is a stored response.
type Record struct {
	Fingerprint string `json:"fingerprint"`
	Pending     bool   `json:"pending"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Store persists records.
type Store interface {
	// Reserve stores a pending record unless one exists. It returns the existing
	// record when the key is taken.
	Reserve(ctx context.Context, key string, pending Record) (*Record, error)
	Save(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// NewRedisClient connects to REDIS_URL.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisStore is a Store on go-redis.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, pending Record) (*Record, error) {
	raw, err := json.Marshal(pending)
	if err != nil {
		return nil, err
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+key, raw, pendingTTL).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	stored, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET.
		return nil, errors.New("idempotency record vanished")
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(stored, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+key, raw, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

// Middleware replays completed requests that carry a known key. It must run
// after authentication. Requests without the header pass through.
//
// A key reused with a different body, or while the first request is still
// running, gets 409. 5xx responses release the key so the client can retry.
func Middleware(store Store, ttl time.Duration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := strings.TrimSpace(c.GetHeader(HeaderKey))
		if clientKey == "" || (c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPatch) {
			c.Next()
			return
		}
		if len(clientKey) > maxKeyLength {
			httpkit.Error(c, http.StatusBadRequest, "idempotency key too long", nil)
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		key := scopedKey(c, clientKey)
		fingerprint := fingerprintOf(c.Request.Method, c.Request.URL.Path, body)

		existing, err := store.Reserve(ctx, key, Record{Fingerprint: fingerprint, Pending: true})
		if err != nil {
			// Without the store the request still runs, just without replay.
			log.WithContext(ctx).Warn("idempotency store unavailable", "error", err)
			c.Next()
			return
		}
		if existing != nil {
			switch {
			case existing.Fingerprint != fingerprint:
				httpkit.Error(c, http.StatusConflict, "idempotency key reused with a different request", nil)
			case existing.Pending:
				httpkit.Error(c, http.StatusConflict, "request with this idempotency key is in progress", nil)
			default:
				c.Header(HeaderReplayed, "true")
				c.Data(existing.Status, existing.ContentType, existing.Body)
			}
			c.Abort()
			return
		}

		recorder := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
				log.WithContext(ctx).Warn("failed to release idempotency key", "error", err)
			}
			return
		}

		rec := Record{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		}
		if err := store.Save(context.WithoutCancel(ctx), key, rec, ttl); err != nil {
			log.WithContext(ctx).Warn("failed to store idempotent response", "error", err)
		}
	}
}

func scopedKey(c *gin.Context, clientKey string) string {
	workspace := "anonymous"
	if value, ok := c.Get(httpkit.ContextWorkspaceIDKey); ok {
		if id, ok := value.(uuid.UUID); ok {
			workspace = id.String()
		}
	}
	return workspace + ":" + clientKey
}

func fingerprintOf(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// responseRecorder tees the response body.
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
