package api

import "github.com/gin-gonic/gin"

// RegisterRoutes 注册业务路由
func RegisterRoutes(r gin.IRouter, syncHandler *SyncHandler, analyticsHandler *AnalyticsHandler, orderHandler *OrderHandler) {
	apiGroup := r.Group("/api")

	apiGroup.POST("/sync", syncHandler.TriggerSync)
	apiGroup.GET("/sync/status", syncHandler.GetStatus)

	apiGroup.GET("/analytics", analyticsHandler.GetSnapshot)

	apiGroup.GET("/orders", orderHandler.ListOrders)
	apiGroup.GET("/orders/:external_id", orderHandler.GetOrder)
	apiGroup.POST("/orders/reconcile-geo", orderHandler.ReconcileGeo)
}
