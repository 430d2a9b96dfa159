package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"
	"study_companion_backend/pkg/logger"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// VideoProber 读取视频元数据
type VideoProber func(path string) (*util.VideoInfo, error)

type DocumentService struct {
	Documents  DocumentStore
	Storage    StorageProvider
	Badges     *BadgeService
	Dispatcher *NotificationDispatcher
	Probe      VideoProber
	now        Clock
}

func NewDocumentService(documents DocumentStore, storage StorageProvider, badges *BadgeService, dispatcher *NotificationDispatcher) *DocumentService {
	return &DocumentService{
		Documents:  documents,
		Storage:    storage,
		Badges:     badges,
		Dispatcher: dispatcher,
		Probe:      util.ProbeVideo,
		now:        time.Now,
	}
}

type UploadInput struct {
	Title    string
	Filename string
	Size     int64
	Content  io.Reader
}

type UploadResult struct {
	Document     model.Document `json:"document"`
	EarnedBadges []model.Badge  `json:"earnedBadges"`
}

func (s *DocumentService) Upload(ctx context.Context, learnerID uint, in UploadInput) (*UploadResult, error) {
	// 读取文件头判断类型，之后拼回完整内容
	head := make([]byte, 512)
	n, err := io.ReadFull(in.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "read upload")
	}
	head = head[:n]

	mime, err := util.ValidateMimeType(bytes.NewReader(head), util.AllowedDocumentTypes)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	objectKey := filepath.ToSlash(filepath.Join("documents", s.now().Format("200601"), uuid.New().String()+ext))
	body := io.MultiReader(bytes.NewReader(head), in.Content)

	url, err := s.Storage.Upload(ctx, objectKey, body, in.Size, mime)
	if err != nil {
		return nil, errors.Wrap(err, "store document")
	}

	doc := &model.Document{
		UserID:    learnerID,
		Title:     documentTitle(in.Title, in.Filename),
		Type:      util.DocumentType(mime),
		MimeType:  mime,
		URL:       url,
		ObjectKey: objectKey,
		Size:      in.Size,
	}
	if doc.Type == "video" {
		s.fillVideoMeta(doc)
	}

	if err := s.Documents.Create(ctx, doc); err != nil {
		if delErr := s.Storage.Delete(ctx, objectKey); delErr != nil {
			logger.Log.Warn("Failed to remove orphaned upload", zap.String("key", objectKey), zap.Error(delErr))
		}
		return nil, err
	}

	// 徽章评估失败不影响上传结果
	earned, err := s.Badges.Evaluate(ctx, learnerID, model.EventDocumentUploaded)
	if err != nil {
		logger.Log.Error("Failed to evaluate badges", zap.Uint("learnerID", learnerID), zap.Error(err))
	}
	s.Dispatcher.Dispatch(ctx, model.Notification{
		UserID:     learnerID,
		Kind:       model.EventDocumentUploaded,
		OccurredAt: s.now(),
		Data: map[string]interface{}{
			"documentId": doc.ID,
			"type":       doc.Type,
		},
	})

	return &UploadResult{Document: *doc, EarnedBadges: earned}, nil
}

// fillVideoMeta 只有本地存储能直接探测，失败时保留空元数据
func (s *DocumentService) fillVideoMeta(doc *model.Document) {
	local, ok := s.Storage.(*LocalStorageProvider)
	if !ok || s.Probe == nil {
		return
	}
	path := local.Path(doc.ObjectKey)
	if _, err := os.Stat(path); err != nil {
		return
	}
	info, err := s.Probe(path)
	if err != nil {
		logger.Log.Warn("Failed to probe video", zap.String("path", path), zap.Error(err))
		return
	}
	doc.Duration = info.DurationSeconds
	doc.Format = info.Format
}

func (s *DocumentService) ListDocuments(ctx context.Context, learnerID uint, limit int) ([]model.Document, error) {
	return s.Documents.ListByUser(ctx, learnerID, limit)
}

// documentTitle 未填写标题时使用去掉扩展名的原始文件名
func documentTitle(title, filename string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
