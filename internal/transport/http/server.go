// Package httpapi 暴露面向 ChatGPT Custom GPT 与 Telegram 协作方的
// REST 层：信号、结构内存查询、回测与 OpenAPI 文档。
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cryptozz/internal/backtest"
	"cryptozz/internal/config"
	"cryptozz/internal/openapi"
	"cryptozz/internal/schema"
	"cryptozz/internal/smc/engine"
	"cryptozz/internal/store"
)

const apiVersion = "1.0.0"

// Server 组装路由与依赖。signals 允许为 nil（未配置落库）。
type Server struct {
	addr    string
	router  *gin.Engine
	cfg     *config.Config
	engine  *engine.Engine
	bt      *backtest.Service
	signals *store.Store
	valid   *schema.Validator
	docs    *openapi.Builder
	started time.Time
}

// NewServer 构建 HTTP 服务。
func NewServer(cfg *config.Config, eng *engine.Engine, bt *backtest.Service, signals *store.Store) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("http server requires config")
	}
	if eng == nil {
		return nil, errors.New("http server requires smc engine")
	}
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("compile request schemas: %w", err)
	}

	addr := cfg.App.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	s := &Server{
		addr:    addr,
		cfg:     cfg,
		engine:  eng,
		bt:      bt,
		signals: signals,
		valid:   validator,
		docs:    openapi.NewBuilder("CryptoZZ Signal API", apiVersion, "http://localhost"+addr, openapi.Routes()),
		started: time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), s.queryLogger())
	s.register(router)
	s.router = router
	return s, nil
}

func (s *Server) register(router *gin.Engine) {
	// 文档与探活不设防，GPT 平台导入 schema 时不带 key。
	router.GET("/health", s.handleHealth)
	router.GET("/openapi.json", s.handleOpenAPIJSON)
	router.GET("/openapi.yaml", s.handleOpenAPIYAML)
	router.GET("/api/gpt-schemas", s.handleSchemaProfiles)
	router.GET("/api/gpt-schemas/:profile/openapi.json", s.handleProfileSchema)

	limiter := newIPLimiter(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst)
	api := router.Group("/api", limiter.middleware(), apiKeyAuth(s.cfg.Server.APIKeys))

	api.GET("/gpts/sinyal/tajam", s.handleSignalGET)
	api.POST("/gpts/sinyal/tajam", s.handleSignalPOST)
	api.GET("/gpts/status", s.handleStatus)
	api.GET("/signals/history", s.handleSignalHistory)

	api.GET("/smc/zones", s.handleZones)
	api.GET("/smc/context", s.handleContext)
	api.GET("/smc/summary", s.handleSummary)
	api.GET("/smc/history", s.handleHistory)
	api.POST("/smc/patterns/recognize", s.handleRecognize)

	api.GET("/backtest", s.handleBacktestGET)
	api.POST("/backtest", s.handleBacktestPOST)
	api.POST("/backtest/quick", s.handleBacktestQuick)
}

// queryLogger 把 /api 调用落到信号库，失败只记日志。
func (s *Server) queryLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if len(path) < 5 || path[:5] != "/api/" {
			return
		}
		_ = s.signals.LogQuery(context.Background(), store.QueryLogRecord{
			Endpoint:      path,
			Params:        c.Request.URL.RawQuery,
			Status:        c.Writer.Status(),
			LatencyMillis: time.Since(start).Milliseconds(),
		})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": time.Since(s.started).String()})
}

// Router 暴露给测试用。
func (s *Server) Router() http.Handler { return s.router }

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或监听失败。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
