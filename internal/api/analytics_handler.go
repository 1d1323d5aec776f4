package api

import (
	"context"
	"net/http"

	"OptInSync/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type snapshotBuilder interface {
	Aggregate(ctx context.Context) (*model.Snapshot, error)
}

// AnalyticsHandler 聚合分析接口，看板与 AI 摘要共用
type AnalyticsHandler struct {
	engine snapshotBuilder
	logger *logrus.Logger
}

func NewAnalyticsHandler(engine snapshotBuilder, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, logger: logger}
}

// GetSnapshot GET /api/analytics
func (h *AnalyticsHandler) GetSnapshot(c *gin.Context) {
	snap, err := h.engine.Aggregate(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("GetSnapshot failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}
