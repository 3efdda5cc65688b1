// Package router assembles the gin engine of the read API.
package router

import (
	"github.com/gin-gonic/gin"

	barshandler "stock_etl/internal/feature/bars/transport/handler"
	"stock_etl/internal/platform/http/handler"
)

// NewRouter registers the health, bars and watermark routes.
func NewRouter(bars *barshandler.BarsHandler, checks map[string]handler.Check) *gin.Engine {
	r := gin.Default()

	// 導通確認用
	health := handler.Health(checks)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	r.GET("/bars/:symbol", bars.GetBars)
	r.GET("/watermarks/:symbol", bars.GetWatermark)

	return r
}
