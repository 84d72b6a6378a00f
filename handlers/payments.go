package handlers

import (
	"log/slog"
	"net/http"

	"shop-backend/pkg/ctxmanage"
	"shop-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListPayments(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	status := c.Query("status")
	method := c.Query("method")

	list, err := h.pay.ListPayments(c.Request.Context(), status, method)
	if err != nil {
		slog.Error("error fetching payments", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": list})
}
