package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"study_companion_backend/internal/config"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(cfg), func(c *gin.Context) {
		util.Success(c, gin.H{"learnerId": LearnerID(c)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "middleware-secret"}}
	r := testRouter(cfg)

	user := &model.User{Email: "a@example.com"}
	user.ID = 12
	valid, err := util.GenerateJWT(user, cfg.JWT.Secret, time.Hour)
	require.NoError(t, err)
	expired, err := util.GenerateJWT(user, cfg.JWT.Secret, -time.Minute)
	require.NoError(t, err)
	foreign, err := util.GenerateJWT(user, "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer " + valid, want: http.StatusOK},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not-a-jwt", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"code":200,"message":"success","data":{"learnerId":12}}`, w.Body.String())
			}
		})
	}
}

type touchRecorder struct {
	mu    sync.Mutex
	calls []uint
	done  chan struct{}
}

func (r *touchRecorder) TouchLastSeen(ctx context.Context, userID uint) error {
	r.mu.Lock()
	r.calls = append(r.calls, userID)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func TestActivityMiddleware_Throttles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &touchRecorder{done: make(chan struct{}, 4)}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user", &util.Claims{UserID: 5})
	}, ActivityMiddleware(rec, time.Hour))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("last seen was never recorded")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []uint{5}, rec.calls)
}
