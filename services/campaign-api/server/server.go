package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailspool/mailspool/docs"
	"github.com/mailspool/mailspool/internal/tracking"
	"github.com/mailspool/mailspool/pkg/metrics"
)

func NewHTTPServer(addr string, h *Handlers, th *TrackingHandlers, rps int) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery(), Observability())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/docs", docs.SwaggerPage)
	r.GET("/docs/openapi.yaml", docs.OpenAPISpec)

	api := r.Group("/", RateLimit(rps))
	{
		api.POST("/campaigns", h.CreateCampaign)
		api.GET("/campaigns", h.ListCampaigns)
		api.GET("/campaigns/:id", h.GetCampaign)

		api.GET("/queue/stats", h.QueueStats)
		api.POST("/queue/retry-failed", h.RetryFailed)
		api.POST("/queue/clear-failed", h.ClearFailed)
		api.POST("/queue/clear-sent", h.ClearSent)
	}

	// beacon/redirect endpoints are hit by mail clients, not operators
	r.GET(tracking.OpenPath, th.TrackOpen)
	r.GET(tracking.ClickPath, th.TrackClick)

	return &http.Server{
		Addr:    addr,
		Handler: r,
	}
}
