package model

// Document 学习者上传的学习资料
// swagger:model Document
type Document struct {
	BaseModel
	UserID    uint   `gorm:"index;not null" json:"userId"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Type      string `gorm:"size:20;index;not null" json:"type"` // pdf/image/video/text/other
	MimeType  string `gorm:"size:100" json:"mimeType"`
	URL       string `gorm:"size:255;not null" json:"url"`
	ObjectKey string `gorm:"size:255" json:"-"`
	Size      int64  `gorm:"default:0" json:"size"`     // 文件大小（字节）
	Duration  int    `gorm:"default:0" json:"duration"` // 视频时长（秒）
	Format    string `gorm:"size:50" json:"format,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}
