// Package store 用 gorm + sqlite 落盘信号与查询日志，
// 供 /api/signals/history 与运营排查使用。
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SignalRecord 是一条已生成信号的落库快照。Plan 保留完整 JSON，
// 避免后续计划结构演进时反复迁移表结构。
type SignalRecord struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	Symbol         string         `gorm:"column:symbol;index" json:"symbol"`
	Timeframe      string         `gorm:"column:timeframe" json:"timeframe"`
	Direction      string         `gorm:"column:direction" json:"direction"`
	Bias           string         `gorm:"column:bias" json:"bias"`
	Confidence     float64        `gorm:"column:confidence" json:"confidence"`
	ExecScore      float64        `gorm:"column:exec_score" json:"exec_score"`
	ExecResult     string         `gorm:"column:exec_result" json:"exec_result"`
	Recommendation string         `gorm:"column:recommendation" json:"recommendation"`
	Price          float64        `gorm:"column:price" json:"price"`
	Plan           datatypes.JSON `gorm:"column:plan_json" json:"plan"`
	Narrative      string         `gorm:"column:narrative" json:"narrative,omitempty"`
	CreatedAtUnix  int64          `gorm:"column:created_at;index" json:"created_at"`
}

func (SignalRecord) TableName() string { return "signal_records" }

// QueryLogRecord 记录一次对外 API 调用，用于观察 GPT 侧的真实流量。
type QueryLogRecord struct {
	ID            int64  `gorm:"column:id;primaryKey" json:"id"`
	Endpoint      string `gorm:"column:endpoint;index" json:"endpoint"`
	Params        string `gorm:"column:params" json:"params"`
	Status        int    `gorm:"column:status" json:"status"`
	LatencyMillis int64  `gorm:"column:latency_ms" json:"latency_ms"`
	CreatedAtUnix int64  `gorm:"column:created_at;index" json:"created_at"`
}

func (QueryLogRecord) TableName() string { return "query_log" }

// Store 是信号库的唯一入口。所有方法都容忍 nil 接收者，
// 让未配置 signal_db 的部署直接跳过落库。
type Store struct {
	db *gorm.DB
}

// Open 打开（或创建）sqlite 信号库。
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: signal_db 路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SignalRecord{}, &QueryLogRecord{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：留一点并发给 HTTP 读，同时压低锁竞争。
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveSignal 写入一条信号。ID 与 CreatedAt 为空时自动补齐。
func (s *Store) SaveSignal(ctx context.Context, rec SignalRecord) (SignalRecord, error) {
	if s == nil || s.db == nil {
		return rec, nil
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAtUnix <= 0 {
		rec.CreatedAtUnix = time.Now().UnixMilli()
	}
	rec.Symbol = strings.ToUpper(strings.TrimSpace(rec.Symbol))
	if len(rec.Plan) == 0 {
		rec.Plan = datatypes.JSON([]byte("{}"))
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return rec, err
	}
	return rec, nil
}

// RecentSignals 按时间倒序取最近的信号，symbol 为空时不过滤。
func (s *Store) RecentSignals(ctx context.Context, symbol string, limit int) ([]SignalRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Model(&SignalRecord{})
	if sym := strings.ToUpper(strings.TrimSpace(symbol)); sym != "" {
		query = query.Where("symbol = ?", sym)
	}
	var out []SignalRecord
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LogQuery 记录一次 API 调用。失败只影响观测，不影响主流程，
// 调用方可以忽略返回错误。
func (s *Store) LogQuery(ctx context.Context, rec QueryLogRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	if rec.CreatedAtUnix <= 0 {
		rec.CreatedAtUnix = time.Now().UnixMilli()
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// RecentQueries 取最近的调用日志。
func (s *Store) RecentQueries(ctx context.Context, limit int) ([]QueryLogRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []QueryLogRecord
	if err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// PurgeBefore 清理早于 cutoff 的日志，返回删除行数。
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	ms := cutoff.UnixMilli()
	res := s.db.WithContext(ctx).Where("created_at < ?", ms).Delete(&QueryLogRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	deleted := res.RowsAffected
	res = s.db.WithContext(ctx).Where("created_at < ?", ms).Delete(&SignalRecord{})
	if res.Error != nil {
		return deleted, res.Error
	}
	return deleted + res.RowsAffected, nil
}
