package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	symbolpkg "cryptozz/internal/pkg/symbol"
	"cryptozz/internal/smc/pattern"
)

func (s *Server) symbolAndTimeframe(c *gin.Context) (string, string, bool) {
	symbol := symbolpkg.Normalize(c.Query("symbol"))
	if symbol == "" {
		fail(c, http.StatusBadRequest, "INVALID_SYMBOL", "parameter symbol wajib, contoh BTC-USDT")
		return "", "", false
	}
	timeframe := strings.ToLower(strings.TrimSpace(c.Query("timeframe")))
	if timeframe == "" {
		timeframe = strings.ToLower(s.cfg.Market.DefaultTF)
	}
	if timeframe == "" {
		timeframe = "1h"
	}
	return symbol, timeframe, true
}

func (s *Server) handleZones(c *gin.Context) {
	symbol, timeframe, okParams := s.symbolAndTimeframe(c)
	if !okParams {
		return
	}
	snap, found := s.engine.Memory().SnapshotFor(symbol, timeframe)
	if !found {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": demoZones(symbol, timeframe)})
		return
	}
	ok(c, gin.H{
		"symbol":               snap.Symbol,
		"timeframe":            snap.Timeframe,
		"bullish_order_blocks": snap.BullishOBs,
		"bearish_order_blocks": snap.BearishOBs,
		"fair_value_gaps":      snap.FVGs,
		"updated_at":           snap.UpdatedAt,
	})
}

func (s *Server) handleContext(c *gin.Context) {
	symbol, timeframe, okParams := s.symbolAndTimeframe(c)
	if !okParams {
		return
	}
	snap, found := s.engine.Memory().SnapshotFor(symbol, timeframe)
	if !found {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": demoContext(symbol, timeframe)})
		return
	}
	ok(c, gin.H{
		"symbol":               snap.Symbol,
		"timeframe":            snap.Timeframe,
		"last_bos":             snap.LastBOS,
		"last_choch":           snap.LastCHoCH,
		"last_liquidity_sweep": snap.LastSweep,
		"updated_at":           snap.UpdatedAt,
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	ok(c, s.engine.Memory().Context())
}

func (s *Server) handleHistory(c *gin.Context) {
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if hours <= 0 {
		hours = 24
	}
	symbol := symbolpkg.Normalize(c.Query("symbol"))
	timeframe := strings.ToLower(strings.TrimSpace(c.Query("timeframe")))
	entries := s.engine.Memory().RecentHistory(hours, symbol, timeframe)
	ok(c, gin.H{"entries": entries, "count": len(entries), "hours": hours})
}

type recognizeRequest struct {
	Symbol        string  `json:"symbol"`
	Timeframe     string  `json:"timeframe"`
	LookbackHours float64 `json:"lookback_hours"`
}

func (s *Server) handleRecognize(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		fail(c, http.StatusBadRequest, "INVALID_BODY", "gagal membaca request body")
		return
	}
	if err := s.valid.ValidateRecognize(body); err != nil {
		fail(c, http.StatusBadRequest, "SCHEMA_VIOLATION", err.Error())
		return
	}
	var req recognizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_BODY", "request body tidak valid")
		return
	}
	symbol := symbolpkg.Normalize(req.Symbol)
	if symbol == "" {
		fail(c, http.StatusBadRequest, "INVALID_SYMBOL", "symbol tidak dikenal")
		return
	}
	timeframe := strings.ToLower(strings.TrimSpace(req.Timeframe))
	if timeframe == "" {
		timeframe = strings.ToLower(s.cfg.Market.DefaultTF)
	}
	if timeframe == "" {
		timeframe = "1h"
	}

	snap, found := s.engine.Memory().SnapshotFor(symbol, timeframe)
	if !found {
		// 跑空快照也能给出结构化的 "tidak terdeteksi" 结果
		snap.Symbol = symbol
		snap.Timeframe = timeframe
	}
	result := pattern.Recognize(snap, time.Now())
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      result,
		"demo_data": !found,
	})
}
