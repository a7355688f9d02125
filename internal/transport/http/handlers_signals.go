package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"cryptozz/internal/backtest"
	"cryptozz/internal/logger"
	symbolpkg "cryptozz/internal/pkg/symbol"
	"cryptozz/internal/smc/engine"
	"cryptozz/internal/smc/narrative"
	"cryptozz/internal/store"
)

type signalRequest struct {
	Symbol      string  `json:"symbol"`
	Timeframe   string  `json:"timeframe"`
	Format      string  `json:"format"`
	Verbosity   string  `json:"verbosity"`
	Balance     float64 `json:"balance"`
	RiskPercent float64 `json:"risk_percent"`
}

func (s *Server) handleSignalGET(c *gin.Context) {
	req := signalRequest{
		Symbol:    c.Query("symbol"),
		Timeframe: c.Query("timeframe"),
		Format:    c.Query("format"),
		Verbosity: c.Query("verbosity"),
	}
	if v := c.Query("balance"); v != "" {
		req.Balance, _ = strconv.ParseFloat(v, 64)
	}
	if v := c.Query("risk_percent"); v != "" {
		req.RiskPercent, _ = strconv.ParseFloat(v, 64)
	}
	s.serveSignal(c, req)
}

func (s *Server) handleSignalPOST(c *gin.Context) {
	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_BODY", "request body tidak valid: "+err.Error())
		return
	}
	s.serveSignal(c, req)
}

func (s *Server) serveSignal(c *gin.Context, req signalRequest) {
	symbol := symbolpkg.Normalize(req.Symbol)
	if symbol == "" {
		fail(c, http.StatusBadRequest, "INVALID_SYMBOL", "parameter symbol wajib, contoh BTC-USDT")
		return
	}
	timeframe := strings.ToLower(strings.TrimSpace(req.Timeframe))
	if timeframe == "" {
		timeframe = strings.ToLower(s.cfg.Market.DefaultTF)
	}
	if timeframe == "" {
		timeframe = "1h"
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	encoding := narrative.EncodingConsole
	if format == "narrative" {
		encoding = narrative.EncodingMarkdown
	}

	analysis := s.engine.Analyze(c.Request.Context(), symbol, timeframe, engine.Options{
		Verbosity:      narrative.ParseVerbosity(req.Verbosity),
		Encoding:       encoding,
		AccountBalance: req.Balance,
		RiskPercent:    req.RiskPercent,
	})
	s.persistSignal(c, analysis)

	if format == "narrative" {
		c.JSON(http.StatusOK, gin.H{
			"status":         "success",
			"format":         "narrative",
			"symbol":         analysis.Symbol,
			"timeframe":      analysis.Timeframe,
			"recommendation": analysis.Recommendation,
			"narrative":      analysis.Narrative,
			"demo_data":      analysis.Err != "",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      analysis,
		"demo_data": analysis.Err != "",
	})
}

// persistSignal 落库失败不影响响应。
func (s *Server) persistSignal(c *gin.Context, a engine.Analysis) {
	if a.Err != "" {
		return
	}
	planJSON, err := json.Marshal(a.Plan)
	if err != nil {
		planJSON = []byte("{}")
	}
	if _, err := s.signals.SaveSignal(c.Request.Context(), store.SignalRecord{
		Symbol:         a.Symbol,
		Timeframe:      a.Timeframe,
		Direction:      string(a.Plan.Direction),
		Bias:           string(a.Bias.Bias),
		Confidence:     a.Bias.Confidence,
		ExecScore:      a.Execution.Score,
		ExecResult:     string(a.Execution.Result),
		Recommendation: a.Recommendation,
		Price:          a.CurrentPrice,
		Plan:           datatypes.JSON(planJSON),
		Narrative:      a.Narrative,
	}); err != nil {
		logger.Warnf("simpan sinyal %s %s gagal: %v", a.Symbol, a.Timeframe, err)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx := s.engine.Memory().Context()
	components := gin.H{
		"smc_engine": "ok",
		"structure_memory": gin.H{
			"snapshots": ctx.Snapshots,
			"history":   ctx.History,
			"symbols":   ctx.Symbols,
		},
		"signal_store": s.signals != nil,
		"backtest":     s.bt != nil,
		"strategies":   backtest.StrategyNames(),
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"version":    apiVersion,
		"uptime":     s.started.UTC(),
		"components": components,
	})
}

func (s *Server) handleSignalHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	symbol := symbolpkg.Normalize(c.Query("symbol"))
	recs, err := s.signals.RecentSignals(c.Request.Context(), symbol, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "HISTORY_FAILED", "gagal membaca riwayat sinyal")
		return
	}
	if recs == nil {
		recs = []store.SignalRecord{}
	}
	ok(c, gin.H{"signals": recs, "count": len(recs)})
}
