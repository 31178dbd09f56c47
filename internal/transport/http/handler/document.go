package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gopherai-docchat/internal/app"
	"gopherai-docchat/internal/model"
	"gopherai-docchat/internal/pkg/textextract"
	"gopherai-docchat/internal/storage"
	"gopherai-docchat/internal/transport/http/middleware"
	"gopherai-docchat/internal/transport/http/response"
)

type DocumentService interface {
	GenerateUploadURL(ctx context.Context, tokenIdentifier string) (*storage.UploadTicket, error)
	CreateDocument(ctx context.Context, input app.CreateDocumentInput) (*model.Document, error)
	UploadDocument(ctx context.Context, input app.UploadDocumentInput) (*model.Document, error)
	ListDocuments(ctx context.Context, tokenIdentifier string) ([]model.Document, error)
	GetDocument(ctx context.Context, tokenIdentifier string, id uint) (*app.DocumentView, error)
	DeleteDocument(ctx context.Context, tokenIdentifier string, id uint) error
	SearchDocuments(ctx context.Context, tokenIdentifier, query string, limit int) ([]app.DocumentMatch, error)
}

type DocumentHandler struct {
	documentService DocumentService
	maxUploadBytes  int64
}

type CreateDocumentRequest struct {
	Title    string `json:"title" binding:"required,notblank,max=256"`
	FileID   string `json:"file_id" binding:"required,uuid"`
	Filename string `json:"filename" binding:"omitempty,max=256"`
}

func NewDocumentHandler(documentService DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, maxUploadBytes: maxUploadBytes}
}

func (h *DocumentHandler) GenerateUploadURL(c *gin.Context) {
	ticket, err := h.documentService.GenerateUploadURL(c.Request.Context(), middleware.TokenIdentifier(c))
	if err != nil {
		writeError(c, err, "generate upload url failed")
		return
	}
	response.OK(c, ticket)
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := h.documentService.CreateDocument(c.Request.Context(), app.CreateDocumentInput{
		TokenIdentifier: middleware.TokenIdentifier(c),
		Title:           req.Title,
		FileID:          req.FileID,
		Filename:        req.Filename,
	})
	if err != nil {
		writeError(c, err, "create document failed")
		return
	}
	response.OK(c, doc)
}

// Upload accepts a multipart form with "file" and an optional "title".
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge,
			"file too large (max "+strconv.FormatInt(h.maxUploadBytes>>20, 10)+"MB)")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = textextract.ContentTypeFor(file.Filename)
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	doc, err := h.documentService.UploadDocument(c.Request.Context(), app.UploadDocumentInput{
		TokenIdentifier: middleware.TokenIdentifier(c),
		Title:           strings.TrimSpace(c.PostForm("title")),
		Filename:        file.Filename,
		ContentType:     contentType,
		Reader:          f,
		Size:            file.Size,
	})
	if err != nil {
		writeError(c, err, "upload document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.ListDocuments(c.Request.Context(), middleware.TokenIdentifier(c))
	if err != nil {
		writeError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Search(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	matches, err := h.documentService.SearchDocuments(c.Request.Context(), middleware.TokenIdentifier(c), c.Query("q"), limit)
	if err != nil {
		writeError(c, err, "search documents failed")
		return
	}
	response.OK(c, matches)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	view, err := h.documentService.GetDocument(c.Request.Context(), middleware.TokenIdentifier(c), id)
	if err != nil {
		writeError(c, err, "get document failed")
		return
	}
	response.OK(c, view)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.documentService.DeleteDocument(c.Request.Context(), middleware.TokenIdentifier(c), id); err != nil {
		writeError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
