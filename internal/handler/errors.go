package handler

import (
	"errors"
	"net/http"

	"catalog/internal/service"
	"catalog/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// writeError maps service errors to status codes and the matching body shape.
// failure is the status and message used for unexpected errors.
func writeError(c *gin.Context, log *logrus.Entry, err error, failure int, failureMsg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, response.Fields(verr.Messages()))
	case errors.Is(err, service.ErrPendingApproval):
		c.JSON(http.StatusConflict, response.Base(service.ErrPendingApproval.Error()))
	case errors.Is(err, service.ErrApprovalRequestNotFound):
		c.JSON(http.StatusNotFound, response.Error(service.ErrApprovalRequestNotFound.Error()))
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, response.Error(service.ErrProductNotFound.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error("Not found"))
	case errors.Is(err, service.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, response.Error(err.Error()))
	case errors.Is(err, service.ErrApproveFailed):
		log.WithError(err).Error("approve failed")
		c.JSON(http.StatusUnprocessableEntity, response.Error(service.ErrApproveFailed.Error()))
	case errors.Is(err, service.ErrRejectFailed):
		log.WithError(err).Error("reject failed")
		c.JSON(http.StatusUnprocessableEntity, response.Error(service.ErrRejectFailed.Error()))
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(failure, response.Error(failureMsg))
	}
}
