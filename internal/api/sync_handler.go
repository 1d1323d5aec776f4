package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"OptInSync/internal/adapter/source"
	"OptInSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// syncCoordinator 同步服务中 handler 用到的部分
type syncCoordinator interface {
	Sync(ctx context.Context, opts service.SyncOptions) (*service.SyncResult, error)
	Status() service.SyncStatus
}

type SyncHandler struct {
	coordinator syncCoordinator
	// 异步触发的同步不跟随请求生命周期，使用进程级 context
	baseCtx context.Context
	logger  *logrus.Logger
}

func NewSyncHandler(baseCtx context.Context, coordinator syncCoordinator, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{coordinator: coordinator, baseCtx: baseCtx, logger: logger}
}

// TriggerSync 触发一次同步 POST /api/sync?force_full=true&refresh=true&wait=true
// 默认异步执行并返回 202 与当前状态；wait=true 时等待结果
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	opts := service.SyncOptions{
		ForceFull:            queryBool(c, "force_full"),
		TriggerRemoteRefresh: queryBool(c, "refresh"),
	}

	if !queryBool(c, "wait") {
		go func() {
			if _, err := h.coordinator.Sync(h.baseCtx, opts); err != nil {
				h.logger.WithError(err).Warn("异步同步失败")
			}
		}()
		c.JSON(http.StatusAccepted, h.coordinator.Status())
		return
	}

	result, err := h.coordinator.Sync(c.Request.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("同步失败")
		c.JSON(syncErrorStatus(err), gin.H{"error": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStatus 同步状态 GET /api/sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.Status())
}

func syncErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		return http.StatusInternalServerError
	case source.IsKind(err, source.KindAuth):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrMaxRetriesExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
