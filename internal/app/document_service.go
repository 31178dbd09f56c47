package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"gopherai-docchat/internal/model"
	"gopherai-docchat/internal/storage"
	"gopherai-docchat/internal/vector"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrDocumentAccess = errors.New("you do not have access to this document")
	ErrFileNotFound   = errors.New("file not found")
)

type DocumentStore interface {
	Create(doc *model.Document) error
	GetByID(id uint) (*model.Document, error)
	ListByTokenIdentifier(tokenIdentifier string) ([]model.Document, error)
	UpdateDescription(id uint, description string, embedding []float32) (bool, error)
	// Delete removes the document and its chat records atomically.
	Delete(id uint) error
}

type FileStore interface {
	GenerateUploadURL(ctx context.Context) (*storage.UploadTicket, error)
	Put(ctx context.Context, fileID string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, fileID string) (*storage.File, error)
	Exists(ctx context.Context, fileID string) (bool, error)
	URL(ctx context.Context, fileID string) (string, error)
	Delete(ctx context.Context, fileID string) error
}

type DescriptionScheduler interface {
	Schedule(ctx context.Context, job model.DescriptionJob) error
}

type VectorIndex interface {
	Upsert(ctx context.Context, e vector.Entry) error
	Delete(ctx context.Context, documentID uint) error
	Search(ctx context.Context, tokenIdentifier string, query []float32, limit int) ([]vector.Match, error)
}

type SearchLimits struct {
	Default int
	Max     int
}

type DocumentService struct {
	docs      DocumentStore
	files     FileStore
	scheduler DescriptionScheduler
	index     VectorIndex
	history   ChatHistoryCache
	llm       LLM
	llmConfig LLMConfig
	budget    TokenBudget
	limits    SearchLimits
	logger    zerolog.Logger
}

type DocumentServiceDeps struct {
	Documents DocumentStore
	Files     FileStore
	Scheduler DescriptionScheduler
	Index     VectorIndex
	History   ChatHistoryCache
	LLM       LLM
	LLMConfig LLMConfig
	Budget    TokenBudget
	Limits    SearchLimits
	Logger    zerolog.Logger
}

func NewDocumentService(deps DocumentServiceDeps) *DocumentService {
	limits := deps.Limits
	if limits.Default <= 0 {
		limits.Default = 5
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &DocumentService{
		docs:      deps.Documents,
		files:     deps.Files,
		scheduler: deps.Scheduler,
		index:     deps.Index,
		history:   deps.History,
		llm:       deps.LLM,
		llmConfig: deps.LLMConfig,
		budget:    deps.Budget,
		limits:    limits,
		logger:    deps.Logger.With().Str("component", "document_service").Logger(),
	}
}

type CreateDocumentInput struct {
	TokenIdentifier string
	Title           string
	FileID          string
	// Filename is the original file name, used to detect the format when the
	// title carries no extension.
	Filename string
}

type UploadDocumentInput struct {
	TokenIdentifier string
	Title           string
	Filename        string
	ContentType     string
	Reader          io.Reader
	Size            int64
}

type DocumentView struct {
	*model.Document
	DocumentURL string `json:"document_url"`
}

type DocumentMatch struct {
	Document   model.Document `json:"document"`
	Similarity float32        `json:"similarity"`
}

func (s *DocumentService) GenerateUploadURL(ctx context.Context, tokenIdentifier string) (*storage.UploadTicket, error) {
	if tokenIdentifier == "" {
		return nil, ErrUnauthorized
	}
	return s.files.GenerateUploadURL(ctx)
}

// CreateDocument registers a file that is already in storage and schedules
// its description job.
func (s *DocumentService) CreateDocument(ctx context.Context, input CreateDocumentInput) (*model.Document, error) {
	return s.createDocument(ctx, input, "")
}

func (s *DocumentService) createDocument(ctx context.Context, input CreateDocumentInput, contentType string) (*model.Document, error) {
	if input.TokenIdentifier == "" {
		return nil, ErrUnauthorized
	}
	title := strings.TrimSpace(input.Title)
	fileID := strings.TrimSpace(input.FileID)
	if title == "" || fileID == "" {
		return nil, ErrInvalidInput
	}

	exists, err := s.files.Exists(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrFileNotFound
	}

	doc := &model.Document{
		Title:           title,
		TokenIdentifier: input.TokenIdentifier,
		FileID:          fileID,
		ContentType:     contentType,
		Filename:        strings.TrimSpace(input.Filename),
		Description:     "",
	}
	if err := s.docs.Create(doc); err != nil {
		return nil, err
	}

	job := model.DescriptionJob{DocumentID: doc.ID, FileID: doc.FileID}
	if err := s.scheduler.Schedule(ctx, job); err != nil {
		// The document stays usable; only its description is missing.
		s.logger.Error().Err(err).
			Uint("document_id", doc.ID).
			Str("file_id", doc.FileID).
			Msg("schedule description job failed")
	}
	return doc, nil
}

// UploadDocument stores the file server side and then creates the document.
// The stored file is removed again when the document cannot be created.
func (s *DocumentService) UploadDocument(ctx context.Context, input UploadDocumentInput) (*model.Document, error) {
	if input.TokenIdentifier == "" {
		return nil, ErrUnauthorized
	}
	if input.Reader == nil || input.Size <= 0 {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSpace(input.Filename)
	}
	if title == "" {
		return nil, ErrInvalidInput
	}

	fileID := storage.NewFileID()
	if err := s.files.Put(ctx, fileID, input.Reader, input.Size, input.ContentType); err != nil {
		return nil, err
	}

	doc, err := s.createDocument(ctx, CreateDocumentInput{
		TokenIdentifier: input.TokenIdentifier,
		Title:           title,
		FileID:          fileID,
		Filename:        input.Filename,
	}, input.ContentType)
	if err != nil {
		if delErr := s.files.Delete(ctx, fileID); delErr != nil {
			s.logger.Warn().Err(delErr).Str("file_id", fileID).Msg("remove orphaned upload failed")
		}
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, tokenIdentifier string) ([]model.Document, error) {
	if tokenIdentifier == "" {
		return []model.Document{}, nil
	}
	return s.docs.ListByTokenIdentifier(tokenIdentifier)
}

func (s *DocumentService) GetDocument(ctx context.Context, tokenIdentifier string, id uint) (*DocumentView, error) {
	doc, err := accessibleDocument(s.docs, tokenIdentifier, id)
	if err != nil {
		return nil, err
	}
	url, err := s.files.URL(ctx, doc.FileID)
	if err != nil {
		return nil, err
	}
	return &DocumentView{Document: doc, DocumentURL: url}, nil
}

// DeleteDocument removes the stored file first and then the record together
// with its chat records, followed by the derived index and cache entries.
func (s *DocumentService) DeleteDocument(ctx context.Context, tokenIdentifier string, id uint) error {
	doc, err := accessibleDocument(s.docs, tokenIdentifier, id)
	if err != nil {
		return err
	}

	if err := s.files.Delete(ctx, doc.FileID); err != nil && !errors.Is(err, storage.ErrInvalidFileID) {
		return err
	}
	if err := s.docs.Delete(doc.ID); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, doc.ID); err != nil {
			s.logger.Warn().Err(err).Uint("document_id", doc.ID).Msg("remove vector entry failed")
		}
	}
	if s.history != nil {
		if err := s.history.Invalidate(ctx, doc.ID, doc.TokenIdentifier); err != nil {
			s.logger.Warn().Err(err).Uint("document_id", doc.ID).Msg("invalidate chat history failed")
		}
	}
	return nil
}

// GenerateDescription runs one description job: a single LLM call for the
// description and one embedding call, with no retries.
func (s *DocumentService) GenerateDescription(ctx context.Context, job model.DescriptionJob) error {
	doc, err := s.docs.GetByID(job.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		s.logger.Info().Uint("document_id", job.DocumentID).Msg("document deleted before description job ran")
		return nil
	}

	text, err := loadDocumentText(ctx, s.files, s.budget, job.FileID, doc.ContentType, doc.SourceName())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	content, err := s.llm.Complete(ctx, s.llmConfig.Chat, descriptionPrompt(text))
	if err != nil {
		s.logger.Error().Err(err).Object("llm", s.llmConfig).Uint("document_id", doc.ID).Msg("description completion failed")
		return fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	description := firstOr(content, descriptionFallback)

	embedding, err := s.llm.Embed(ctx, s.llmConfig.Embedding, description)
	if err != nil {
		s.logger.Error().Err(err).Object("llm", s.llmConfig).Uint("document_id", doc.ID).Msg("description embedding failed")
		return fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	return s.UpdateDescription(ctx, doc.ID, description, embedding)
}

// UpdateDescription patches description and embedding. It is a no-op for a
// document that no longer exists.
func (s *DocumentService) UpdateDescription(ctx context.Context, id uint, description string, embedding []float32) error {
	updated, err := s.docs.UpdateDescription(id, description, embedding)
	if err != nil {
		return err
	}
	if !updated || s.index == nil {
		return nil
	}

	doc, err := s.docs.GetByID(id)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	return s.index.Upsert(ctx, vector.Entry{
		DocumentID:      doc.ID,
		TokenIdentifier: doc.TokenIdentifier,
		Title:           doc.Title,
		Description:     description,
		Embedding:       embedding,
	})
}

// SearchDocuments ranks the caller's documents by similarity between the query
// and their descriptions.
func (s *DocumentService) SearchDocuments(ctx context.Context, tokenIdentifier, query string, limit int) ([]DocumentMatch, error) {
	if tokenIdentifier == "" {
		return []DocumentMatch{}, nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = s.limits.Default
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}

	embedding, err := s.llm.Embed(ctx, s.llmConfig.Embedding, query)
	if err != nil {
		s.logger.Error().Err(err).Object("llm", s.llmConfig).Msg("query embedding failed")
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	matches, err := s.index.Search(ctx, tokenIdentifier, embedding, limit)
	if err != nil {
		return nil, err
	}

	results := make([]DocumentMatch, 0, len(matches))
	for _, m := range matches {
		doc, err := s.docs.GetByID(m.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc == nil || doc.TokenIdentifier != tokenIdentifier {
			continue
		}
		results = append(results, DocumentMatch{Document: *doc, Similarity: m.Similarity})
	}
	return results, nil
}
