package http

import (
	"github.com/Lost-tail/MetalProductsBackend/internal/adapter/http/middleware"
	"github.com/Lost-tail/MetalProductsBackend/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the order, webhook, and token surfaces. The webhook route
// lives under a configurable prefix so the public URL stays unguessable.
func NewRouter(h *OrderHandler, wh *WebhookHandler, th *TokenHandler, authz *middleware.Authz, webhookPrefix string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	r.Use(middleware.Logging(logging.New("http")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", th.IssueToken)

	v1 := r.Group("/v1")
	{
		v1.POST("/orders", h.CreateOrder)
		v1.POST("/orders/estimate_delivery", h.EstimateDelivery)
		v1.POST("/orders/request_call", h.RequestCall)

		v1.GET("/orders", authz.Require("orders.read"), h.ListOrders)
		v1.GET("/orders/:id", authz.Require("orders.read"), h.GetOrder)
		v1.PATCH("/orders/:id", authz.Require("orders.write"), h.UpdateOrder)
		v1.DELETE("/orders/:id", authz.Require("orders.write"), h.DeleteOrder)
	}

	r.POST(webhookPrefix+"/payment_webhook", wh.PaymentWebhook)

	return r
}
