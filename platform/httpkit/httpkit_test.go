package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crm_backend/platform/apperr"
	"crm_backend/platform/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims(userID, workspaceID uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":          userID.String(),
		"workspace_id": workspaceID.String(),
		"type":         "access",
		"exp":          time.Now().Add(time.Hour).Unix(),
	}
}

func newAuthEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(AuthRequired(&config.Config{JWTAccessSecret: testSecret}))
	engine.GET("/me", func(c *gin.Context) {
		identity := MustGetIdentity(c)
		if identity == nil {
			return
		}
		OK(c, gin.H{"user": identity.UserID(), "workspace": identity.WorkspaceID()})
	})
	return engine
}

func TestAuthRequired(t *testing.T) {
	userID, workspaceID := uuid.New(), uuid.New()

	expired := validClaims(userID, workspaceID)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	refresh := validClaims(userID, workspaceID)
	refresh["type"] = "refresh"
	noWorkspace := validClaims(userID, workspaceID)
	delete(noWorkspace, "workspace_id")
	nilWorkspace := validClaims(userID, workspaceID)
	nilWorkspace["workspace_id"] = uuid.Nil.String()
	extraClaims := validClaims(userID, workspaceID)
	extraClaims["roles"] = []string{"admin"}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", validClaims(userID, workspaceID)), want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, expired), want: http.StatusUnauthorized},
		{name: "refresh token", header: "Bearer " + signToken(t, testSecret, refresh), want: http.StatusUnauthorized},
		{name: "no workspace", header: "Bearer " + signToken(t, testSecret, noWorkspace), want: http.StatusUnauthorized},
		{name: "nil workspace", header: "Bearer " + signToken(t, testSecret, nilWorkspace), want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + signToken(t, testSecret, validClaims(userID, workspaceID)), want: http.StatusOK},
		{name: "unknown claims ignored", header: "Bearer " + signToken(t, testSecret, extraClaims), want: http.StatusOK},
	}

	engine := newAuthEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthRequiredExposesIdentity(t *testing.T) {
	userID, workspaceID := uuid.New(), uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(userID, workspaceID)))
	rec := httptest.NewRecorder()
	newAuthEngine().ServeHTTP(rec, req)

	var body struct {
		Data struct {
			User      uuid.UUID `json:"user"`
			Workspace uuid.UUID `json:"workspace"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.User != userID || body.Data.Workspace != workspaceID {
		t.Fatalf("unexpected identity: %+v", body.Data)
	}
}

func TestGetIdentity(t *testing.T) {
	userID, workspaceID := uuid.New(), uuid.New()

	tests := []struct {
		name     string
		keys     map[string]any
		wantAuth bool
	}{
		{name: "empty context", keys: map[string]any{}, wantAuth: false},
		{name: "user only", keys: map[string]any{ContextUserIDKey: userID}, wantAuth: false},
		{name: "wrong user type", keys: map[string]any{ContextUserIDKey: userID.String(), ContextWorkspaceIDKey: workspaceID}, wantAuth: false},
		{name: "nil workspace", keys: map[string]any{ContextUserIDKey: userID, ContextWorkspaceIDKey: uuid.Nil}, wantAuth: false},
		{name: "user and workspace", keys: map[string]any{ContextUserIDKey: userID, ContextWorkspaceIDKey: workspaceID}, wantAuth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			for k, v := range tt.keys {
				c.Set(k, v)
			}
			id := GetIdentity(c)
			if id.IsAuthenticated() != tt.wantAuth {
				t.Fatalf("expected authenticated=%v, got %v", tt.wantAuth, id.IsAuthenticated())
			}
			if tt.wantAuth && (id.UserID() != userID || id.WorkspaceID() != workspaceID) {
				t.Fatalf("unexpected identity: %s %s", id.UserID(), id.WorkspaceID())
			}
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "not found", err: apperr.NotFound("lead not found"), status: http.StatusNotFound, message: "lead not found"},
		{name: "validation", err: apperr.Validation("title is required"), status: http.StatusBadRequest, message: "title is required"},
		{name: "conflict", err: apperr.Conflict("already done"), status: http.StatusConflict, message: "already done"},
		{name: "wrapped typed", err: errors.Join(errors.New("ctx"), apperr.NotFound("gone")), status: http.StatusNotFound, message: "gone"},
		{name: "internal hides cause", err: apperr.Internal("follow-up operation failed", errors.New("pq: boom")), status: http.StatusInternalServerError, message: "follow-up operation failed"},
		{name: "untyped", err: errors.New("pq: boom"), status: http.StatusInternalServerError, message: msgInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			if !HandleError(c, tt.err) {
				t.Fatal("expected error to be handled")
			}
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.message {
				t.Fatalf("expected %q, got %q", tt.message, body.Error)
			}
		})
	}
}

func TestHandleErrorNil(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if HandleError(c, nil) {
		t.Fatal("nil error must not be handled")
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(rec.Header().Get(HeaderRequestID)); err != nil {
		t.Fatalf("expected generated uuid, got %q", rec.Header().Get(HeaderRequestID))
	}
}
