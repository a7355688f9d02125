// Package openapi 从路由表生成 OpenAPI 3.1.0 文档，供 ChatGPT
// Custom GPT Actions 导入。平台限制单个文档最多 30 个操作，
// 超出的路由按表序截断。
package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"cryptozz/internal/logger"
)

const (
	specVersion  = "3.1.0"
	maxOperation = 30
)

// Operation 是路由表里的一行。Profiles 决定该操作出现在哪些
// 按场景裁剪的子文档里。
type Operation struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Tag         string
	Profiles    []string
	Query       []Parameter
	HasBody     bool
}

// Parameter 描述一个 query 参数。
type Parameter struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Builder 持有完整路由表并按需渲染文档。
type Builder struct {
	title   string
	version string
	baseURL string
	ops     []Operation
}

func NewBuilder(title, version, baseURL string, ops []Operation) *Builder {
	return &Builder{title: title, version: version, baseURL: baseURL, ops: ops}
}

// Profiles 列出路由表中出现过的所有 profile 名。
func (b *Builder) Profiles() []string {
	seen := map[string]struct{}{}
	for _, op := range b.ops {
		for _, p := range op.Profiles {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Document 渲染全量文档。
func (b *Builder) Document() map[string]any {
	return b.build(b.title, b.ops)
}

// ProfileDocument 渲染指定 profile 的子文档。
func (b *Builder) ProfileDocument(profile string) (map[string]any, error) {
	profile = strings.ToLower(strings.TrimSpace(profile))
	var ops []Operation
	for _, op := range b.ops {
		for _, p := range op.Profiles {
			if p == profile {
				ops = append(ops, op)
				break
			}
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("profile %q tidak dikenal", profile)
	}
	return b.build(fmt.Sprintf("%s (%s)", b.title, profile), ops), nil
}

// JSON 渲染为缩进 JSON。
func (b *Builder) JSON(doc map[string]any) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// YAML 渲染为 YAML。
func (b *Builder) YAML(doc map[string]any) ([]byte, error) {
	return yaml.Marshal(doc)
}

func (b *Builder) build(title string, ops []Operation) map[string]any {
	if len(ops) > maxOperation {
		logger.Warnf("openapi: %d operasi melebihi batas %d, dipotong", len(ops), maxOperation)
		ops = ops[:maxOperation]
	}

	paths := map[string]any{}
	for _, op := range ops {
		item, _ := paths[op.Path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[op.Path] = item
		}
		item[strings.ToLower(op.Method)] = operationObject(op)
	}

	return map[string]any{
		"openapi": specVersion,
		"info": map[string]any{
			"title":   title,
			"version": b.version,
		},
		"servers": []any{
			map[string]any{"url": b.baseURL},
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"ApiKeyAuth": map[string]any{
					"type": "apiKey",
					"in":   "header",
					"name": "X-API-Key",
				},
			},
		},
		"security": []any{
			map[string]any{"ApiKeyAuth": []any{}},
		},
	}
}

func operationObject(op Operation) map[string]any {
	obj := map[string]any{
		"operationId": op.OperationID,
		"summary":     op.Summary,
		"responses": map[string]any{
			"200": map[string]any{
				"description": "OK",
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{"type": "object"},
					},
				},
			},
		},
	}
	if op.Tag != "" {
		obj["tags"] = []any{op.Tag}
	}
	if len(op.Query) > 0 {
		params := make([]any, 0, len(op.Query))
		for _, p := range op.Query {
			typ := p.Type
			if typ == "" {
				typ = "string"
			}
			params = append(params, map[string]any{
				"name":        p.Name,
				"in":          "query",
				"required":    p.Required,
				"description": p.Description,
				"schema":      map[string]any{"type": typ},
			})
		}
		obj["parameters"] = params
	}
	if op.HasBody {
		obj["requestBody"] = map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"type": "object"},
				},
			},
		}
	}
	return obj
}
