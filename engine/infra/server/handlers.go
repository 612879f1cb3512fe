package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/compozy/coursepilot/engine/core"
	"github.com/compozy/coursepilot/engine/rag"
)

// Problem codes returned alongside error statuses.
const (
	codeInvalidInput     = "invalid_input"
	codeDocumentNotFound = "document_not_found"
	codeLoaderFailed     = "loader_failed"
	codeIngestionFailed  = "ingestion_failed"
	codeEmbeddingFailed  = "embedding_failed"
	codeStoreFailed      = "store_failed"
	codeRetrievalFailed  = "retrieval_failed"
	codeGenerationFailed = "generation_failed"
	codeNotConfigured    = "not_configured"
)

const maxUploadSizeBytes = 32 * 1024 * 1024

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ingestTextRequest struct {
	Text     string         `json:"text"     binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

func handleIngestText(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ingestTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			core.RespondProblem(c, &core.Problem{
				Status: http.StatusBadRequest,
				Detail: err.Error(),
				Code:   codeInvalidInput,
			})
			return
		}
		docID, err := deps.Ingest.Ingest(c.Request.Context(), req.Text, req.Metadata)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"document_id": docID})
	}
}

func handleIngestPDF(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			core.RespondProblem(c, &core.Problem{
				Status: http.StatusBadRequest,
				Detail: "multipart field 'file' is required",
				Code:   codeInvalidInput,
			})
			return
		}
		if header.Size > maxUploadSizeBytes {
			core.RespondProblem(c, &core.Problem{
				Status: http.StatusBadRequest,
				Detail: fmt.Sprintf("file exceeds maximum upload size of %d bytes", maxUploadSizeBytes),
				Code:   codeInvalidInput,
			})
			return
		}
		tmp := filepath.Join(os.TempDir(), uuid.NewString()+".pdf")
		if err := c.SaveUploadedFile(header, tmp); err != nil {
			core.RespondProblem(c, &core.Problem{
				Status: http.StatusInternalServerError,
				Detail: err.Error(),
			})
			return
		}
		defer os.Remove(tmp)
		doc, err := deps.PDF.Load(c.Request.Context(), tmp)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		doc.Metadata["filename"] = header.Filename
		doc.Metadata["source"] = header.Filename
		docID, err := deps.Ingest.IngestDocument(c.Request.Context(), doc)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"document_id": docID})
	}
}

func handleDeleteDocument(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID := strings.TrimSpace(c.Param("doc_id"))
		if docID == "" {
			core.RespondProblem(c, &core.Problem{
				Status: http.StatusBadRequest,
				Detail: "document id is required",
				Code:   codeInvalidInput,
			})
			return
		}
		if err := deps.Ingest.Delete(c.Request.Context(), docID); err != nil {
			respondServiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleListDocuments(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs := deps.Ingest.Documents()
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	}
}

type queryRequest struct {
	Query    string  `json:"query"     binding:"required"`
	TopK     int     `json:"top_k"     binding:"omitempty,gt=0"`
	MinScore float64 `json:"min_score" binding:"omitempty,gte=0,lte=1"`
}

func handleQuery(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req queryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			core.RespondProblem(c, &core.Problem{
				Status: http.StatusBadRequest,
				Detail: err.Error(),
				Code:   codeInvalidInput,
			})
			return
		}
		answer, err := deps.RAG.Answer(c.Request.Context(), req.Query, rag.Options{
			TopK:     req.TopK,
			MinScore: req.MinScore,
		})
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, answer)
	}
}

type chatRequest struct {
	Message   string `json:"message"    binding:"required"`
	SessionID string `json:"session_id"`
}

func handleChat(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			core.RespondProblem(c, &core.Problem{
				Status: http.StatusBadRequest,
				Detail: err.Error(),
				Code:   codeInvalidInput,
			})
			return
		}
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		answer, err := deps.RAG.Answer(c.Request.Context(), req.Message, rag.Options{})
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"response":   answer.Text,
			"session_id": sessionID,
			"sources":    answer.Sources,
		})
	}
}

type youtubeLoadRequest struct {
	ChannelID string `json:"channel_id"`
	MaxVideos int64  `json:"max_videos" binding:"omitempty,gt=0"`
}

func handleYouTubeLoad(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.YouTube == nil {
			core.RespondProblem(c, &core.Problem{
				Status: http.StatusServiceUnavailable,
				Detail: "youtube loader is not configured",
				Code:   codeNotConfigured,
			})
			return
		}
		var req youtubeLoadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			core.RespondProblem(c, &core.Problem{
				Status: http.StatusBadRequest,
				Detail: err.Error(),
				Code:   codeInvalidInput,
			})
			return
		}
		channelID := req.ChannelID
		if channelID == "" {
			channelID = deps.DefaultChannelID
		}
		report, err := deps.YouTube.LoadChannel(c.Request.Context(), channelID, req.MaxVideos)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, core.ErrInvalidInput):
		core.RespondProblem(c, &core.Problem{Status: http.StatusBadRequest, Detail: err.Error(), Code: codeInvalidInput})
	case errors.Is(err, core.ErrNotFound):
		core.RespondProblem(c, &core.Problem{Status: http.StatusNotFound, Detail: err.Error(), Code: codeDocumentNotFound})
	case errors.Is(err, core.ErrLoader):
		core.RespondProblem(c, &core.Problem{
			Status: http.StatusUnprocessableEntity,
			Detail: err.Error(),
			Code:   codeLoaderFailed,
		})
	case errors.Is(err, core.ErrEmbedding):
		core.RespondProblem(c, &core.Problem{Status: http.StatusBadGateway, Detail: err.Error(), Code: codeEmbeddingFailed})
	case errors.Is(err, core.ErrRetrieval):
		core.RespondProblem(c, &core.Problem{
			Status: http.StatusServiceUnavailable,
			Detail: err.Error(),
			Code:   codeRetrievalFailed,
		})
	case errors.Is(err, core.ErrStore):
		core.RespondProblem(c, &core.Problem{
			Status: http.StatusServiceUnavailable,
			Detail: err.Error(),
			Code:   codeStoreFailed,
		})
	case errors.Is(err, core.ErrGeneration):
		core.RespondProblem(c, &core.Problem{Status: http.StatusBadGateway, Detail: err.Error(), Code: codeGenerationFailed})
	case errors.Is(err, core.ErrIngestion):
		core.RespondProblem(c, &core.Problem{
			Status: http.StatusUnprocessableEntity,
			Detail: err.Error(),
			Code:   codeIngestionFailed,
		})
	default:
		core.RespondProblem(c, &core.Problem{Status: http.StatusInternalServerError, Detail: err.Error()})
	}
}
