package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 文件上传相关常量
const (
	MimeVideo = "video/"
	MimeImage = "image/"
	MimePDF   = "application/pdf"
	MimeText  = "text/plain"
)

// AllowedDocumentTypes 学习资料允许的 MIME 前缀
var AllowedDocumentTypes = []string{MimePDF, MimeImage, MimeVideo, MimeText}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
