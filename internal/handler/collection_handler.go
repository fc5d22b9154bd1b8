package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedlab/internal/filestore"
	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/errcode"
	"github.com/xxxsen/embedlab/internal/pkg/response"
	"github.com/xxxsen/embedlab/internal/service"
)

type CollectionHandler struct {
	ingest      *service.IngestService
	collections *service.CollectionService
	maxFileSize int64
}

func NewCollectionHandler(ingest *service.IngestService, collections *service.CollectionService, maxFileSize int64) *CollectionHandler {
	return &CollectionHandler{ingest: ingest, collections: collections, maxFileSize: maxFileSize}
}

type createCollectionResponse struct {
	CollectionID string           `json:"collection_id"`
	Collection   model.Collection `json:"collection"`
}

// Create ingests a multipart upload: an optional "file", an optional
// "text" field and the required "collection_metadata" JSON. With neither
// file nor text, or with sample=true, the built-in corpus is used.
func (h *CollectionHandler) Create(c *gin.Context) {
	if h.maxFileSize > 0 {
		// leave room for the form fields around the file
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+1<<20)
	}
	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, errcode.ErrInvalidFile, "file exceeds "+humanSize(h.maxFileSize))
			return
		}
		badRequest(c, "multipart form is required")
		return
	}
	rawMeta := strings.TrimSpace(c.PostForm("collection_metadata"))
	if rawMeta == "" {
		badRequest(c, "collection_metadata is required")
		return
	}
	var meta model.CollectionMetadata
	if err := json.Unmarshal([]byte(rawMeta), &meta); err != nil {
		badRequest(c, "collection_metadata is not valid json")
		return
	}
	in := service.IngestInput{Metadata: meta, Text: c.PostForm("text")}
	if raw := strings.TrimSpace(c.PostForm("sample")); raw != "" {
		useSample, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "sample must be a boolean")
			return
		}
		in.Sample = useSample
	}

	header, err := c.FormFile("file")
	switch {
	case err == nil:
		if h.maxFileSize > 0 && header.Size > h.maxFileSize {
			response.Error(c, errcode.ErrInvalidFile, "file exceeds "+humanSize(h.maxFileSize))
			return
		}
		opened, err := header.Open()
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "failed to open file")
			return
		}
		reader, contentType, err := ensureReadSeekCloser(opened)
		if err != nil {
			_ = opened.Close()
			response.Error(c, errcode.ErrInvalidFile, "failed to read file")
			return
		}
		defer reader.Close()
		in.File = &service.SourceFile{
			Name:        header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Reader:      reader,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.Error(c, errcode.ErrInvalidFile, "invalid file")
		return
	}

	coll, err := h.ingest.CreateCollection(c.Request.Context(), in)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, createCollectionResponse{CollectionID: coll.ID, Collection: *coll})
}

func (h *CollectionHandler) List(c *gin.Context) {
	items, err := h.collections.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Items(c, items)
}

func (h *CollectionHandler) Get(c *gin.Context) {
	coll, err := h.collections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, coll)
}

// Source streams the collection's stored document, or redirects to it
// when the file store serves its own URLs.
func (h *CollectionHandler) Source(c *gin.Context) {
	src, err := h.collections.OpenSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if src.URL != "" {
		c.Redirect(http.StatusFound, src.URL)
		return
	}
	defer src.Reader.Close()
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", src.Key))
	_, _ = src.Reader.Seek(0, io.SeekStart)
	_, _ = io.Copy(c.Writer, src.Reader)
}

func ensureReadSeekCloser(file filestore.ReadSeekCloser) (filestore.ReadSeekCloser, string, error) {
	buf := make([]byte, 512)
	read, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	contentType := http.DetectContentType(buf[:read])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, "", err
	}
	return file, contentType, nil
}

func humanSize(n int64) string {
	const kb, mb = 1 << 10, 1 << 20
	switch {
	case n >= mb:
		return strconv.FormatInt(n/mb, 10) + "MB"
	case n >= kb:
		return strconv.FormatInt(n/kb, 10) + "KB"
	}
	return strconv.FormatInt(n, 10) + "B"
}
