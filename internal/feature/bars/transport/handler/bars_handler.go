// Package handler はbarsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/feature/bars/transport/http/dto"
)

// BarsUsecase はバー取得のユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type BarsUsecase interface {
	GetBars(ctx context.Context, symbol string, limit int) ([]entity.Bar, error)
}

// WatermarkReader reads a symbol's stored watermark.
type WatermarkReader interface {
	Get(ctx context.Context, symbol string) (time.Time, error)
}

// BarsHandler はバーとウォーターマークのHTTPリクエストを処理します。
type BarsHandler struct {
	uc        BarsUsecase
	watermark WatermarkReader
}

// NewBarsHandler は BarsHandler を生成します。
func NewBarsHandler(uc BarsUsecase, watermark WatermarkReader) *BarsHandler {
	return &BarsHandler{uc: uc, watermark: watermark}
}

// GetBars は銘柄の最新バーを新しい順にJSONで返します。
//
// エンドポイント例:
// GET /bars/:symbol?limit=200
func (h *BarsHandler) GetBars(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	// 不正な値は0になり、usecase側でデフォルト値に置き換えられる
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	bars, err := h.uc.GetBars(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	out := make([]dto.BarResponse, 0, len(bars))
	for _, b := range bars {
		out = append(out, dto.BarResponse{
			Time:   entity.FormatTimestamp(b.Time),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetWatermark は銘柄のウォーターマークを返します。未登録の銘柄はデフォルト値になります。
//
// エンドポイント例:
// GET /watermarks/:symbol
func (h *BarsHandler) GetWatermark(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	wm, err := h.watermark.Get(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.WatermarkResponse{
		Symbol:    symbol,
		Key:       entity.WatermarkKey(symbol),
		Watermark: entity.FormatTimestamp(wm),
	})
}
