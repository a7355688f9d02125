package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cryptozz/internal/backtest"
)

func (s *Server) handleBacktestGET(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	balance, _ := strconv.ParseFloat(c.Query("initial_balance"), 64)
	req := backtest.Request{
		Symbol:         c.Query("symbol"),
		Timeframe:      c.Query("timeframe"),
		Strategy:       c.Query("strategy"),
		Limit:          limit,
		InitialBalance: balance,
	}
	s.runBacktest(c, req, strings.ToLower(c.Query("format")) == "chart")
}

func (s *Server) handleBacktestPOST(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		fail(c, http.StatusBadRequest, "INVALID_BODY", "gagal membaca request body")
		return
	}
	if err := s.valid.ValidateBacktest(body); err != nil {
		fail(c, http.StatusBadRequest, "SCHEMA_VIOLATION", err.Error())
		return
	}
	var req backtest.Request
	if err := json.Unmarshal(body, &req); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_BODY", "request body tidak valid")
		return
	}
	s.runBacktest(c, req, false)
}

func (s *Server) handleBacktestQuick(c *gin.Context) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Symbol) == "" {
		fail(c, http.StatusBadRequest, "INVALID_SYMBOL", "body harus berisi {\"symbol\": ...}")
		return
	}
	if s.bt == nil {
		fail(c, http.StatusServiceUnavailable, "BACKTEST_DISABLED", "modul backtest tidak diaktifkan")
		return
	}
	res, err := s.bt.Quick(c.Request.Context(), req.Symbol)
	s.respondBacktest(c, res, err, false)
}

func (s *Server) runBacktest(c *gin.Context, req backtest.Request, asChart bool) {
	if s.bt == nil {
		fail(c, http.StatusServiceUnavailable, "BACKTEST_DISABLED", "modul backtest tidak diaktifkan")
		return
	}
	res, err := s.bt.Run(c.Request.Context(), req)
	s.respondBacktest(c, res, err, asChart)
}

func (s *Server) respondBacktest(c *gin.Context, res backtest.Result, err error, asChart bool) {
	if err != nil {
		if errors.Is(err, backtest.ErrUnknownStrategy) {
			fail(c, http.StatusBadRequest, "INVALID_STRATEGY",
				"strategi tidak dikenal, pilihan: "+strings.Join(backtest.StrategyNames(), ", "))
			return
		}
		fail(c, http.StatusInternalServerError, "BACKTEST_FAILED", err.Error())
		return
	}
	if asChart {
		html, err := backtest.RenderEquityHTML(res)
		if err != nil {
			fail(c, http.StatusInternalServerError, "CHART_FAILED", err.Error())
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", html)
		return
	}
	ok(c, res)
}
