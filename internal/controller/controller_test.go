package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"study_companion_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user", &util.Claims{UserID: 1})
	})
	return r
}

func TestReviewCard_RejectsBeforeReachingService(t *testing.T) {
	r := newTestRouter(t)
	fc := &FlashcardController{}
	r.POST("/flashcards/:id/review", fc.ReviewCard)

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "non numeric id", path: "/flashcards/abc/review", body: `{"outcome":"easy"}`},
		{name: "zero id", path: "/flashcards/0/review", body: `{"outcome":"easy"}`},
		{name: "unknown outcome", path: "/flashcards/3/review", body: `{"outcome":"medium"}`},
		{name: "missing outcome", path: "/flashcards/3/review", body: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestIngest_RequiresEvents(t *testing.T) {
	r := newTestRouter(t)
	ec := &EventController{}
	r.POST("/events", ec.Ingest)

	for _, body := range []string{`{}`, `{"events":[]}`, `not json`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestStartSession_RequiresSubject(t *testing.T) {
	r := newTestRouter(t)
	sc := &SessionController{}
	r.POST("/sessions", sc.StartSession)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"subject":""}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
