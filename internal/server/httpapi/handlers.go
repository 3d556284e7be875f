package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/dmitrijs2005/casupload/internal/api"
	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/gin-gonic/gin"
)

func (s *Server) start(c *gin.Context) {
	var req api.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", common.ErrValidation, err))
		return
	}

	uploadID, err := s.uploads.Begin(c.Request.Context(), subject(c), req.Key)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.Response{Success: true, Key: req.Key, UploadID: uploadID})
}

func (s *Server) uploadPart(c *gin.Context) {
	if s.maxPartSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxPartSize+formOverhead)
	}
	if err := c.Request.ParseMultipartForm(s.formMemory()); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", common.ErrValidation, err))
		return
	}

	key := c.PostForm(api.FieldKey)
	uploadID := c.PostForm(api.FieldUploadID)
	if key == "" || uploadID == "" {
		s.fail(c, fmt.Errorf("%w: %s and %s are required", common.ErrValidation, api.FieldKey, api.FieldUploadID))
		return
	}

	partNumber, err := strconv.Atoi(c.PostForm(api.FieldPartNumber))
	if err != nil {
		s.fail(c, fmt.Errorf("%w: bad %s", common.ErrValidation, api.FieldPartNumber))
		return
	}

	fh, err := c.FormFile(api.FieldFile)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: missing part body", common.ErrValidation))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	data, err := s.readPart(f)
	if err != nil {
		s.fail(c, err)
		return
	}

	etag, err := s.uploads.UploadPart(c.Request.Context(), subject(c), key, uploadID, partNumber, data)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.Response{Success: true, ETag: etag})
}

// readPart returns the whole part body. A body over the limit is rejected,
// never cut short.
func (s *Server) readPart(r io.Reader) ([]byte, error) {
	if s.maxPartSize <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxPartSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxPartSize {
		return nil, fmt.Errorf("%w: part exceeds %d bytes", common.ErrValidation, s.maxPartSize)
	}
	return data, nil
}

func (s *Server) formMemory() int64 {
	if s.maxPartSize > 0 {
		return s.maxPartSize + formOverhead
	}
	return defaultFormMemory
}

func (s *Server) complete(c *gin.Context) {
	var req api.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", common.ErrValidation, err))
		return
	}

	key, err := s.uploads.Complete(c.Request.Context(), subject(c), req.Key, req.UploadID, req.Parts)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.Response{Success: true, Key: key})
}

func (s *Server) abort(c *gin.Context) {
	var req api.AbortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", common.ErrValidation, err))
		return
	}

	if err := s.uploads.Abort(c.Request.Context(), subject(c), req.Key, req.UploadID); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.Response{Success: true})
}

// files serves the canonical address of a stored object.
func (s *Server) files(c *gin.Context) {
	key := c.Param("key")

	obj, err := s.uploads.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		s.fail(c, err)
		return
	}

	if obj.RedirectURL != "" {
		c.Redirect(http.StatusFound, obj.RedirectURL)
		return
	}
	defer obj.Body.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, obj.Size, contentType, obj.Body, map[string]string{
		"Cache-Control": "public, max-age=31536000, immutable",
	})
}

// fail writes err using the gateway's status and code conventions. An
// existing object is not a failure of the request: it is reported with 200
// and the FILE_EXISTS code.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		status = http.StatusInternalServerError
		resp   = api.Response{Error: "internal error"}
	)

	switch {
	case isTooLarge(err):
		status, resp = http.StatusRequestEntityTooLarge, api.Response{Error: "request too large"}
	case errors.Is(err, common.ErrFileExists):
		status, resp = http.StatusOK, api.Response{Code: common.CodeFileExists, Error: err.Error()}
	case errors.Is(err, common.ErrInvalidParts):
		status, resp = http.StatusBadRequest, api.Response{Code: common.CodeInvalidParts, Error: err.Error()}
	case errors.Is(err, common.ErrValidation):
		status, resp = http.StatusBadRequest, api.Response{Error: err.Error()}
	case errors.Is(err, common.ErrSessionNotFound):
		status, resp = http.StatusNotFound, api.Response{Error: err.Error()}
	}

	c.AbortWithStatusJSON(status, resp)
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
