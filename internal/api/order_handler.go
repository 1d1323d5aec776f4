package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"OptInSync/internal/model"
	"OptInSync/internal/repository"
	"OptInSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type orderQueries interface {
	ListOrders(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*model.Order, int64, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Order, error)
}

type geoBackfiller interface {
	Run(ctx context.Context) (*service.BackfillResult, error)
}

// OrderHandler 订单浏览与地理回填接口
type OrderHandler struct {
	orders   orderQueries
	backfill geoBackfiller
	logger   *logrus.Logger
}

func NewOrderHandler(orders orderQueries, backfill geoBackfiller, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, backfill: backfill, logger: logger}
}

// orderView 订单对外视图，不含原始地理输入
type orderView struct {
	ExternalID    string    `json:"external_id"`
	StoreID       string    `json:"store_id"`
	OptIn         bool      `json:"opt_in"`
	TotalPrice    string    `json:"total_price"`
	City          *string   `json:"city"`
	Province      *string   `json:"province"`
	Country       *string   `json:"country"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	IngestedAt    time.Time `json:"ingested_at"`
}

func toOrderView(o *model.Order) orderView {
	return orderView{
		ExternalID:    o.ExternalID,
		StoreID:       o.StoreID,
		OptIn:         o.OptIn,
		TotalPrice:    o.TotalPrice.StringFixed(2),
		City:          o.City,
		Province:      o.Province,
		Country:       o.Country,
		PaymentStatus: o.PaymentStatus,
		CreatedAt:     o.PlacedAt,
		IngestedAt:    o.IngestedAt,
	}
}

// ListOrders 订单列表 GET /api/orders?store_id=s1&opt_in=true&page=1&page_size=20
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := repository.OrderFilter{StoreID: c.Query("store_id")}
	if raw := c.Query("opt_in"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "opt_in must be true or false"})
			return
		}
		filter.OptIn = &v
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.orders.ListOrders(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("ListOrders failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]orderView, 0, len(list))
	for _, o := range list {
		items = append(items, toOrderView(o))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetOrder 订单详情 GET /api/orders/:external_id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	externalID := c.Param("external_id")
	if externalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "external_id is required"})
		return
	}
	o, err := h.orders.GetByExternalID(c.Request.Context(), externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("GetOrder failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toOrderView(o))
}

// ReconcileGeo 按当前词表重新校验已落库订单 POST /api/orders/reconcile-geo
func (h *OrderHandler) ReconcileGeo(c *gin.Context) {
	res, err := h.backfill.Run(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("ReconcileGeo failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}
