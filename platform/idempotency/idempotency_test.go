package idempotency

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestRouter(t *testing.T, status int) (*gin.Engine, *int32, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls int32
	workspaceID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextWorkspaceIDKey, workspaceID)
		c.Next()
	})
	r.Use(Middleware(NewRedisStore(client), time.Hour, logger.Discard()))
	r.POST("/followups", func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		c.JSON(status, gin.H{"data": gin.H{"call": n}})
	})
	return r, &calls, mr
}

func do(r http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/followups", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReplaysCompletedRequest(t *testing.T) {
	r, calls, _ := newTestRouter(t, http.StatusCreated)

	first := do(r, "abc", `{"title":"Call"}`)
	second := do(r, "abc", `{"title":"Call"}`)

	if atomic.LoadInt32(calls) != 1 {
		t.Fatalf("expected handler to run once, ran %d times", *calls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get(HeaderReplayed) != "true" {
		t.Fatal("expected replay header")
	}
}

func TestRejectsKeyReuseWithDifferentBody(t *testing.T) {
	r, calls, _ := newTestRouter(t, http.StatusCreated)

	do(r, "abc", `{"title":"Call"}`)
	w := do(r, "abc", `{"title":"Visit"}`)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Fatalf("expected handler to run once, ran %d times", *calls)
	}
}

func TestRequestsWithoutKeyPassThrough(t *testing.T) {
	r, calls, _ := newTestRouter(t, http.StatusCreated)

	do(r, "", `{}`)
	do(r, "", `{}`)

	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", *calls)
	}
}

func TestServerErrorsReleaseKey(t *testing.T) {
	r, calls, mr := newTestRouter(t, http.StatusInternalServerError)

	do(r, "retry-me", `{}`)
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected key released, found %v", mr.Keys())
	}
	do(r, "retry-me", `{}`)

	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected retry to reach handler, got %d calls", *calls)
	}
}

func TestStoredRecordExpires(t *testing.T) {
	r, calls, mr := newTestRouter(t, http.StatusCreated)

	do(r, "abc", `{}`)
	mr.FastForward(2 * time.Hour)
	do(r, "abc", `{}`)

	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected expired key to run again, got %d calls", *calls)
	}
}
