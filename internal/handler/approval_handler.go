package handler

import (
	"net/http"

	"catalog/internal/service"
	"catalog/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
	log             *logrus.Entry
}

func NewApprovalHandler(approvalService service.ApprovalService, log *logrus.Entry) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService, log: log.WithField("component", "approval_handler")}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	queue := router.Group("/api/products/approval-queue")
	{
		queue.GET("", h.ListQueue)
		queue.PUT("/:approvalId/approve", h.Approve)
		queue.PUT("/:approvalId/reject", h.Reject)
	}
}

// ListQueue returns the outstanding approval requests
// @Summary      List approval queue
// @Tags         approvals
// @Produce      json
// @Success      200  {array}   service.ApprovalRequestResponse
// @Failure      500  {object}  response.ErrorResponse
// @Router       /api/products/approval-queue [get]
func (h *ApprovalHandler) ListQueue(c *gin.Context) {
	queue, err := h.approvalService.ListQueue(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err, http.StatusInternalServerError, "Failed to retrieve approval queue")
		return
	}
	c.JSON(http.StatusOK, queue)
}

// Approve activates the product and removes the request
// @Summary      Approve request
// @Tags         approvals
// @Produce      json
// @Param        approvalId  path      string  true  "Approval request ID"
// @Success      200         {object}  response.MessageResponse
// @Failure      404         {object}  response.ErrorResponse
// @Failure      422         {object}  response.ErrorResponse
// @Router       /api/products/approval-queue/{approvalId}/approve [put]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	result, err := h.approvalService.Approve(c.Request.Context(), c.Param("approvalId"))
	if err != nil {
		writeError(c, h.log, err, http.StatusUnprocessableEntity, service.ErrApproveFailed.Error())
		return
	}
	c.JSON(http.StatusOK, response.Message(result.Message))
}

// Reject removes the request
// @Summary      Reject request
// @Description  The product keeps its pending status unless REJECT_REVERTS_TO_ACTIVE is enabled
// @Tags         approvals
// @Produce      json
// @Param        approvalId  path      string  true  "Approval request ID"
// @Success      200         {object}  response.MessageResponse
// @Failure      404         {object}  response.ErrorResponse
// @Failure      422         {object}  response.ErrorResponse
// @Router       /api/products/approval-queue/{approvalId}/reject [put]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	result, err := h.approvalService.Reject(c.Request.Context(), c.Param("approvalId"))
	if err != nil {
		writeError(c, h.log, err, http.StatusUnprocessableEntity, service.ErrRejectFailed.Error())
		return
	}
	c.JSON(http.StatusOK, response.Message(result.Message))
}
