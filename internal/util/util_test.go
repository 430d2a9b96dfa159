package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "conflict", err: errors.Wrap(ErrConflict, "open session"), want: http.StatusConflict},
		{name: "invalid state", err: errors.Wrapf(ErrInvalidState, "session %d", 3), want: http.StatusConflict},
		{name: "not found", err: fmt.Errorf("quiz: %w", ErrNotFound), want: http.StatusNotFound},
		{name: "user not found", err: ErrUserNotFound, want: http.StatusNotFound},
		{name: "validation", err: errors.Wrap(ErrValidation, "answers"), want: http.StatusBadRequest},
		{name: "generation", err: errors.Wrap(ErrGenerationFailed, "timeout"), want: http.StatusBadGateway},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestHandleError_WritesKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, errors.Wrap(ErrConflict, "learner 1 already has an open session"))

	require.Equal(t, http.StatusConflict, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conflict", resp.Kind)
	assert.Contains(t, resp.Message, "open session")
}

func TestValidateMimeType(t *testing.T) {
	mime, err := ValidateMimeType(strings.NewReader("%PDF-1.4\n..."), AllowedDocumentTypes)
	require.NoError(t, err)
	assert.Equal(t, "pdf", DocumentType(mime))

	_, err = ValidateMimeType(strings.NewReader("\x00\x01\x02\x03binary"), []string{MimePDF})
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestParseProbeOutput(t *testing.T) {
	out := `{"streams":[{"codec_type":"audio"},{"codec_type":"video","width":1280,"height":720}],
		"format":{"duration":"61.6","format_name":"mov,mp4,m4a"}}`

	info, err := parseProbeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, 62, info.DurationSeconds)
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, "mov", info.Format)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, ParseLimit(""))
	assert.Equal(t, DefaultPageSize, ParseLimit("-3"))
	assert.Equal(t, 5, ParseLimit("5"))
	assert.Equal(t, MaxPageSize, ParseLimit("1000"))
}
