package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"study_companion_backend/internal/config"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDocuments struct{ memDocuments }

func (f *failingDocuments) Create(ctx context.Context, d *model.Document) error {
	return errors.New("disk full")
}

func newDocumentFixture(t *testing.T, docs DocumentStore) (*DocumentService, *testEngine, *LocalStorageProvider) {
	t.Helper()
	e := newTestEngine(t)
	storage := &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: t.TempDir()}}
	e.badgeSvc.Metrics.(*LearnerMetrics).Documents = docs
	svc := NewDocumentService(docs, storage, e.badgeSvc, NewNotificationDispatcher(0, e.notifier))
	svc.now = e.clock.Now
	return svc, e, storage
}

func TestUpload_StoresDocument(t *testing.T) {
	docs := &memDocuments{}
	svc, _, storage := newDocumentFixture(t, docs)
	ctx := context.Background()

	content := "%PDF-1.4\n" + strings.Repeat("x", 2048)
	result, err := svc.Upload(ctx, 1, UploadInput{
		Filename: "Cell Biology.PDF",
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	})
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "pdf", doc.Type)
	assert.Equal(t, "Cell Biology", doc.Title)
	assert.True(t, strings.HasPrefix(doc.ObjectKey, "documents/202503/"))
	assert.True(t, strings.HasSuffix(doc.ObjectKey, ".pdf"))
	assert.Equal(t, "/uploads/"+doc.ObjectKey, doc.URL)

	stored, err := os.ReadFile(storage.Path(doc.ObjectKey))
	require.NoError(t, err)
	assert.Equal(t, content, string(stored))
}

func TestDocumentTitle(t *testing.T) {
	tests := []struct {
		title, filename, want string
	}{
		{"", "Cell Biology.PDF", "Cell Biology"},
		{"", "lecture.01.MP4", "lecture.01"},
		{"", "uploads/notes.txt", "notes"},
		{"", "README", "README"},
		{"  Week 3  ", "w3.pdf", "Week 3"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, documentTitle(tt.title, tt.filename))
		})
	}
}

func TestUpload_FifthDocumentEarnsLibrarian(t *testing.T) {
	docs := &memDocuments{}
	svc, e, _ := newDocumentFixture(t, docs)
	ctx := context.Background()

	var last *UploadResult
	for i := 0; i < 5; i++ {
		var err error
		last, err = svc.Upload(ctx, 1, UploadInput{Title: "notes", Filename: "notes.txt", Content: strings.NewReader("chapter notes")})
		require.NoError(t, err)
	}
	require.Len(t, last.EarnedBadges, 1)
	assert.Equal(t, "librarian", last.EarnedBadges[0].Code)
	assert.Contains(t, e.notifier.kinds(), model.EventDocumentUploaded)
}

func TestUpload_RejectsUnsupportedContent(t *testing.T) {
	svc, _, _ := newDocumentFixture(t, &memDocuments{})

	_, err := svc.Upload(context.Background(), 1, UploadInput{
		Filename: "blob.bin",
		Content:  bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03, 0xfe}),
	})
	assert.ErrorIs(t, err, util.ErrUnsupportedDocument)
	assert.Equal(t, "validation", util.ErrorKind(err))
}

func TestUpload_RemovesObjectWhenRecordFails(t *testing.T) {
	svc, _, storage := newDocumentFixture(t, &failingDocuments{})

	_, err := svc.Upload(context.Background(), 1, UploadInput{Filename: "a.txt", Content: strings.NewReader("hello")})
	require.Error(t, err)

	entries, err := os.ReadDir(storage.Config.LocalPath + "/documents/202503")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_ReadsLocalVideoMetadata(t *testing.T) {
	svc, _, _ := newDocumentFixture(t, &memDocuments{})
	var inspectedPath string
	svc.Probe = func(path string) (*util.VideoInfo, error) {
		inspectedPath = path
		return &util.VideoInfo{DurationSeconds: 62, Format: "mov"}, nil
	}

	// ftyp 头会被识别为 video/mp4
	header := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}
	result, err := svc.Upload(context.Background(), 1, UploadInput{
		Filename: "lecture.mp4",
		Content:  io.MultiReader(bytes.NewReader(header), strings.NewReader(strings.Repeat("\x00", 64))),
	})
	require.NoError(t, err)
	assert.Equal(t, "video", result.Document.Type)
	assert.Equal(t, 62, result.Document.Duration)
	assert.NotEmpty(t, inspectedPath)
}
