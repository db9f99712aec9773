package api

import (
	"errors"
	"net/http"

	"bookcourier/internal/apperr"
	"bookcourier/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a controller error to the response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrInFlight):
		return http.StatusConflict
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case apperr.IsAuth(err):
		return http.StatusUnauthorized
	case apperr.IsConflict(err):
		return http.StatusConflict
	case apperr.IsClientStatus(err):
		return apperr.StatusOf(err)
	case apperr.IsStatus(err), apperr.IsNetwork(err), apperr.IsDecode(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error, n service.Notice) {
	status := statusFor(err)
	body := gin.H{"notice": n}

	var ae *apperr.Error
	if errors.As(err, &ae) && len(ae.Fields) > 0 {
		body["fields"] = ae.Fields
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"notice": service.Notice{Level: service.NoticeError, Message: message},
	})
}

// formUpload opens the multipart file in field. A missing file, or a request
// that is not multipart, yields a nil upload.
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, apperr.Validation("Invalid upload", map[string]string{field: "could not be read"})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, apperr.Validation("Invalid upload", map[string]string{field: "could not be read"})
	}
	return &service.Upload{Filename: fh.Filename, Body: f}, func() { _ = f.Close() }, nil
}
