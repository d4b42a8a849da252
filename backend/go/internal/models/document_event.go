package models

import "time"

// DocumentEventType 文档生命周期事件类型。
type DocumentEventType string

const (
	EventDocumentStored       DocumentEventType = "document.stored"
	EventDocumentIngested     DocumentEventType = "document.ingested"
	EventIngestionFailed      DocumentEventType = "document.ingestion_failed"
	EventDocumentDeleted      DocumentEventType = "document.deleted"
	EventVectorCleanupFailed  DocumentEventType = "document.vector_cleanup_failed"
	EventStorageIndexDiverged DocumentEventType = "document.storage_index_diverged"
)

// DocumentEvent 发布到 Kafka 的事件消息体。
type DocumentEvent struct {
	Type       DocumentEventType `json:"type"`
	DocumentID string            `json:"document_id"`
	Filename   string            `json:"filename,omitempty"`
	Chunks     int               `json:"chunks,omitempty"`
	Error      string            `json:"error,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
