package httpkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadflow_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtCfg struct{ secret string }

func (c jwtCfg) GetJWTAccessSecret() string { return c.secret }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func newAuthEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/me", AuthRequired(jwtCfg{secret: secret}), func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.UserID().String(), "role": id.Role()})
	})
	engine.GET("/managers", AuthRequired(jwtCfg{secret: secret}), RequireRole("manager"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return engine
}

func TestAuthRequired(t *testing.T) {
	userID := uuid.New()
	valid := signToken(t, "s3cret", jwt.MapClaims{
		"sub":   userID.String(),
		"type":  "access",
		"roles": []string{"worker"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	refresh := signToken(t, "s3cret", jwt.MapClaims{
		"sub":   userID.String(),
		"type":  "refresh",
		"roles": []string{"worker"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	wrongKey := signToken(t, "other", jwt.MapClaims{
		"sub":   userID.String(),
		"type":  "access",
		"roles": []string{"worker"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		target string
		header string
		status int
	}{
		{"bearer", "/me", "Bearer " + valid, http.StatusOK},
		{"query token", "/me?token=" + valid, "", http.StatusOK},
		{"missing", "/me", "", http.StatusUnauthorized},
		{"refresh token rejected", "/me", "Bearer " + refresh, http.StatusUnauthorized},
		{"wrong key", "/me", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"worker on manager route", "/managers", "Bearer " + valid, http.StatusForbidden},
	}

	engine := newAuthEngine("s3cret")
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"conflict", apperr.Conflict("email taken"), http.StatusConflict, "CONFLICT"},
		{"wrapped not found", fmt.Errorf("ctx: %w", apperr.NotFound("lead not found")), http.StatusNotFound, "NOT_FOUND"},
		{"untyped", errors.New("pq: broken"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			if !HandleError(c, tc.err) {
				t.Fatal("expected error to be handled")
			}
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tc.code {
				t.Errorf("code = %q, want %q", body.Code, tc.code)
			}
			if tc.code == "INTERNAL_ERROR" && body.Error == "pq: broken" {
				t.Error("internal error message leaked to client")
			}
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}
