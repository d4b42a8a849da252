package models

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// Document 是一份已上传文件在关系库中的记录，原始字节保存在对象存储里。
// 单文档模式下始终复用同一条记录（Slot = "current"）。
type Document struct {
	ID          uint              `gorm:"primaryKey" json:"file_id"`
	Slot        string            `gorm:"size:64;index" json:"-"`
	Filename    string            `gorm:"not null;size:512" json:"filename"`
	ObjectKey   string            `gorm:"not null;size:255" json:"-"`
	ContentType string            `gorm:"size:255" json:"content_type,omitempty"`
	Size        int64             `json:"size"`
	Attributes  datatypes.JSONMap `json:"attributes,omitempty"` // 例如 chunks、ingest_status
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// DocumentID 返回写入向量元数据时使用的字符串形式的 ID。
func (d *Document) DocumentID() string {
	return FormatDocumentID(d.ID)
}

// FormatDocumentID 把数据库 ID 转成向量元数据里的 document_id。
func FormatDocumentID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
