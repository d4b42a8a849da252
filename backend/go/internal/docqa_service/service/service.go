package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/docqa_service/events"
	"DocQA/backend/go/internal/docqa_service/history"
	"DocQA/backend/go/internal/docqa_service/lock"
	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/pipeline"
	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Upload stages reported in *UploadError.
const (
	StageCleanup  = "cleanup"  // deleting the replaced document's vectors
	StageStorage  = "storage"  // writing the blob and its row
	StageIndexing = "indexing" // ingestion after the blob was stored
)

// ErrEmptyQuery is returned when the question is blank.
var ErrEmptyQuery = errors.New("query must not be empty")

// UploadError tells which half of an upload failed. When Stage is StageIndexing the
// document is stored but its vectors are missing or incomplete. Previous is set when
// the replaced document already lost its vectors before the failure.
type UploadError struct {
	Stage    string
	Document *models.Document
	Previous *models.Document
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed at %s: %v", e.Stage, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// FormatChecker reports whether a file name has a loader.
type FormatChecker interface {
	Supports(filename string) bool
}

// Options 是服务层的行为开关，来自 rag 配置段。
type Options struct {
	PreDeletePolicy  string
	DocumentMode     string
	IngestTimeout    time.Duration
	SerializeUploads bool
}

// OptionsFromConfig converts the rag section of the config.
func OptionsFromConfig(cfg config.RAGConfig) Options {
	return Options{
		PreDeletePolicy:  cfg.PreDeletePolicy,
		DocumentMode:     cfg.DocumentMode,
		IngestTimeout:    config.Duration(cfg.IngestTimeout, 2*time.Minute),
		SerializeUploads: !cfg.ConcurrentUploads,
	}
}

// Dependencies 是服务需要的全部协作者，在 main 中构造后注入。
// Locker、Events、History 为空时使用不做任何事的实现。
type Dependencies struct {
	Blobs     interfaces.BlobStore
	Formats   FormatChecker
	Ingestion *pipeline.IngestionPipeline
	Answers   *pipeline.AnswerPipeline
	Locker    lock.Locker
	Events    events.Publisher
	History   history.Store
	Log       *logger.Logger
}

// Service 编排上传替换、删除、问答与当前文件查询。
type Service struct {
	blobs     interfaces.BlobStore
	formats   FormatChecker
	ingestion *pipeline.IngestionPipeline
	answers   *pipeline.AnswerPipeline
	locker    lock.Locker
	events    events.Publisher
	history   history.Store
	opts      Options
	log       *logger.Logger
	now       func() time.Time

	background sync.WaitGroup
}

// New creates a Service.
func New(deps Dependencies, opts Options) *Service {
	s := &Service{
		blobs:     deps.Blobs,
		formats:   deps.Formats,
		ingestion: deps.Ingestion,
		answers:   deps.Answers,
		locker:    deps.Locker,
		events:    deps.Events,
		history:   deps.History,
		opts:      opts,
		log:       deps.Log,
		now:       time.Now,
	}
	if s.locker == nil {
		s.locker = lock.NopLocker{}
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.history == nil {
		s.history = history.NewMemoryStore(0)
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.opts.PreDeletePolicy == "" {
		s.opts.PreDeletePolicy = config.PreDeleteContinue
	}
	if s.opts.DocumentMode == "" {
		s.opts.DocumentMode = config.DocumentModeSingle
	}
	return s
}

// UploadResult 是一次成功上传的结果。
type UploadResult struct {
	Document *models.Document
	Chunks   int
}

// Upload stores the file and indexes it. In single-document mode it replaces the
// current document: the old vectors are deleted first, then the blob is overwritten
// (reusing its ID), then the new content is ingested.
func (s *Service) Upload(ctx context.Context, filename string, raw []byte) (*UploadResult, error) {
	if !s.formats.Supports(filename) {
		return nil, &schema.UnsupportedFormatError{Extension: strings.ToLower(filepath.Ext(filename))}
	}
	log := s.log.WithField("filename", filename)

	single := s.opts.DocumentMode == config.DocumentModeSingle
	if single && s.opts.SerializeUploads {
		unlock, err := s.locker.Lock(ctx, "upload:slot")
		if err != nil {
			return nil, &UploadError{Stage: StageStorage, Err: err}
		}
		defer unlock()
	}

	// 1. 删除被替换文档的旧向量
	var dropped *models.Document
	if single {
		var err error
		if dropped, err = s.dropReplacedVectors(ctx, log); err != nil {
			return nil, err
		}
	}

	// 2. 写入对象存储
	doc, err := s.blobs.Put(ctx, filename, raw)
	if err != nil {
		log.WithError(err).Error("Failed to store document")
		if dropped != nil {
			// 旧文档仍在存储中，但向量已删除
			log.WithField("replaced_document_id", dropped.DocumentID()).
				Error("Replaced document kept its blob but lost its vectors")
			s.annotate(ctx, dropped, map[string]interface{}{"ingest_status": "vectors_deleted", "ingest_error": err.Error()})
			s.publish(ctx, models.DocumentEvent{Type: models.EventStorageIndexDiverged, DocumentID: dropped.DocumentID(), Filename: dropped.Filename, Error: err.Error()})
		}
		return nil, &UploadError{Stage: StageStorage, Previous: dropped, Err: err}
	}
	log = log.WithField("document_id", doc.DocumentID())
	s.publish(ctx, models.DocumentEvent{Type: models.EventDocumentStored, DocumentID: doc.DocumentID(), Filename: filename})
	s.annotate(ctx, doc, map[string]interface{}{"ingest_status": "pending"})

	// 3. 导入向量库
	ingestCtx := ctx
	if s.opts.IngestTimeout > 0 {
		var cancel context.CancelFunc
		ingestCtx, cancel = context.WithTimeout(ctx, s.opts.IngestTimeout)
		defer cancel()
	}
	chunks, err := s.ingestion.Ingest(ingestCtx, raw, doc.DocumentID(), filename)
	if err != nil {
		log.WithError(err).Error("Document stored but indexing failed, blob store and vector index are inconsistent")
		s.annotate(ctx, doc, map[string]interface{}{"ingest_status": "failed", "ingest_error": err.Error()})
		s.publish(ctx, models.DocumentEvent{Type: models.EventStorageIndexDiverged, DocumentID: doc.DocumentID(), Filename: filename, Error: err.Error()})
		return nil, &UploadError{Stage: StageIndexing, Document: doc, Err: err}
	}

	s.annotate(ctx, doc, map[string]interface{}{"ingest_status": "indexed", "chunks": chunks})
	s.publish(ctx, models.DocumentEvent{Type: models.EventDocumentIngested, DocumentID: doc.DocumentID(), Filename: filename, Chunks: chunks})
	log.WithField("chunks", chunks).Info("Document uploaded")
	return &UploadResult{Document: doc, Chunks: chunks}, nil
}

// dropReplacedVectors 删除当前槽位文档的向量，返回向量已被删除的文档。
// 失败时根据 preDeletePolicy 决定继续还是中止。
func (s *Service) dropReplacedVectors(ctx context.Context, log *logger.Logger) (*models.Document, error) {
	prev, err := s.blobs.Current(ctx)
	if err != nil {
		return nil, &UploadError{Stage: StageStorage, Err: err}
	}
	if prev == nil {
		return nil, nil
	}
	err = s.ingestion.Delete(ctx, prev.DocumentID())
	if err == nil {
		return prev, nil
	}

	log.WithError(err).WithField("replaced_document_id", prev.DocumentID()).
		WithField("policy", s.opts.PreDeletePolicy).Warn("Failed to delete vectors of replaced document")
	s.publish(ctx, models.DocumentEvent{Type: models.EventVectorCleanupFailed, DocumentID: prev.DocumentID(), Filename: prev.Filename, Error: err.Error()})
	if s.opts.PreDeletePolicy == config.PreDeleteAbort {
		return nil, &UploadError{Stage: StageCleanup, Document: prev, Err: err}
	}
	return nil, nil
}

// Delete removes the document's blob and vectors. Both deletions are attempted even if one fails.
func (s *Service) Delete(ctx context.Context, id uint) error {
	documentID := models.FormatDocumentID(id)
	var blobErr, vecErr error

	var g errgroup.Group
	g.Go(func() error {
		blobErr = s.blobs.Delete(ctx, id)
		return blobErr
	})
	g.Go(func() error {
		vecErr = s.ingestion.Delete(ctx, documentID)
		return vecErr
	})
	_ = g.Wait()

	log := s.log.WithField("document_id", documentID)
	if blobErr != nil {
		if !errors.Is(blobErr, schema.ErrNotFound) {
			log.WithError(blobErr).Error("Failed to delete document blob")
		}
		return blobErr
	}
	if vecErr != nil {
		log.WithError(vecErr).Error("Document blob deleted but its vectors remain")
		s.publish(ctx, models.DocumentEvent{Type: models.EventVectorCleanupFailed, DocumentID: documentID, Error: vecErr.Error()})
		return vecErr
	}

	s.publish(ctx, models.DocumentEvent{Type: models.EventDocumentDeleted, DocumentID: documentID})
	log.Info("Document deleted")
	return nil
}

// Query opens an answer stream. fileID nil searches the whole index.
// The finished answer is recorded in the query history in the background.
func (s *Service) Query(ctx context.Context, query string, fileID *uint) (*pipeline.AnswerStream, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	var documentID *string
	rec := &models.QueryRecord{ID: uuid.NewString(), Query: query, StartedAt: s.now().UTC()}
	if fileID != nil {
		id := models.FormatDocumentID(*fileID)
		documentID = &id
		rec.DocumentID = id
	}

	return s.answers.Answer(ctx, query, documentID, pipeline.WithOnFinish(func(sum pipeline.Summary) {
		rec.Answer = sum.Text
		rec.Fragments = sum.Fragments
		rec.Retrieved = sum.Retrieved
		rec.FellBack = sum.FellBack
		rec.Cancelled = sum.Cancelled
		rec.FinishedAt = s.now().UTC()
		s.record(rec)
	}))
}

// CurrentFile returns the most recently uploaded document, or nil.
func (s *Service) CurrentFile(ctx context.Context) (*models.Document, error) {
	return s.blobs.Current(ctx)
}

// History returns recent questions, newest first.
func (s *Service) History(ctx context.Context, fileID *uint, limit int) ([]*models.QueryRecord, error) {
	documentID := ""
	if fileID != nil {
		documentID = models.FormatDocumentID(*fileID)
	}
	return s.history.Recent(ctx, documentID, limit)
}

// Wait blocks until background history writes have finished.
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) record(rec *models.QueryRecord) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.history.Record(ctx, rec); err != nil {
			s.log.WithError(err).WithField("query_id", rec.ID).Warn("Failed to record query history")
		}
	}()
}

// publish 发送事件，失败只记录日志，不影响主流程。
func (s *Service) publish(ctx context.Context, event models.DocumentEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithField("event_type", event.Type).Warn("Failed to publish document event")
	}
}

func (s *Service) annotate(ctx context.Context, doc *models.Document, attrs map[string]interface{}) {
	if err := s.blobs.Annotate(context.WithoutCancel(ctx), doc.ID, attrs); err != nil {
		s.log.WithError(err).WithField("document_id", doc.DocumentID()).Warn("Failed to update document attributes")
	}
}
