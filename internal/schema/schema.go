// Package schema 用 JSON Schema 校验对外 POST 请求体，
// 把 GPT 调用方的花式拼写挡在业务逻辑之外。
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recognizeSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"symbol": {
			"type": "string",
			"minLength": 3,
			"maxLength": 20
		},
		"timeframe": {
			"type": "string",
			"enum": ["1m", "5m", "15m", "30m", "1h", "4h", "1d"]
		},
		"lookback_hours": {
			"type": "number",
			"minimum": 1,
			"maximum": 168
		}
	},
	"required": ["symbol"],
	"additionalProperties": false
}`

const backtestSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"symbol": {"type": "string", "minLength": 3, "maxLength": 20},
		"timeframe": {"type": "string"},
		"strategy": {"type": "string"},
		"limit": {"type": "number", "minimum": 40, "maximum": 2000},
		"initial_balance": {"type": "number", "minimum": 1},
		"fee_rate": {"type": "number", "minimum": 0, "maximum": 0.01}
	},
	"required": ["symbol"],
	"additionalProperties": false
}`

// Validator 持有编译后的请求体 schema。
type Validator struct {
	recognize *jsonschema.Schema
	backtest  *jsonschema.Schema
}

// NewValidator 在进程启动时编译所有内嵌 schema。
// schema 是常量，编译失败属于编码错误，直接返回。
func NewValidator() (*Validator, error) {
	recognize, err := compile("recognize.json", recognizeSchemaJSON)
	if err != nil {
		return nil, err
	}
	backtest, err := compile("backtest.json", backtestSchemaJSON)
	if err != nil {
		return nil, err
	}
	return &Validator{recognize: recognize, backtest: backtest}, nil
}

// ValidateRecognize 校验 /api/smc/patterns/recognize 的请求体。
func (v *Validator) ValidateRecognize(body []byte) error {
	return v.validate(v.recognize, body)
}

// ValidateBacktest 校验 /api/backtest 的请求体。
func (v *Validator) ValidateBacktest(body []byte) error {
	return v.validate(v.backtest, body)
}

func (v *Validator) validate(s *jsonschema.Schema, body []byte) error {
	if v == nil || s == nil {
		return nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("request body bukan JSON valid: %w", err)
	}
	if err := s.Validate(coerceNumbers(payload)); err != nil {
		return fmt.Errorf("request body tidak sesuai schema: %w", err)
	}
	return nil
}

func compile(name, raw string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// coerceNumbers 递归把字符串形式的数字转成 float64。
// GPT 调用方常把 500 写成 "500"。
func coerceNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if k == "symbol" || k == "timeframe" || k == "strategy" {
				out[k] = child
				continue
			}
			out[k] = coerceNumbers(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = coerceNumbers(child)
		}
		return out
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return val
		}
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			return num
		}
		return val
	default:
		return val
	}
}
