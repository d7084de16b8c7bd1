package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jjenkins/lawtrack/internal/model"
)

// Registry payloads are decoded into generic maps (numbers kept as
// json.Number) and coerced here before anything else touches them.

// envelope returns root[key] when it is an object, otherwise root itself
func envelope(root map[string]any, key string) map[string]any {
	if inner, ok := root[key].(map[string]any); ok && len(inner) > 0 {
		return inner
	}
	return root
}

// coerceList turns a single object, an array or nothing into a list of objects
func coerceList(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return []map[string]any{}
	}
}

// coerceObject returns v as an object, or an empty one
func coerceObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// intField reads a number that may arrive as a JSON number or a numeric string
func intField(m map[string]any, key string, fallback int) int {
	s := strings.TrimSpace(stringField(m, key))
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func toChangeRecord(item map[string]any) model.ChangeRecord {
	return model.ChangeRecord{
		LawID:            strings.TrimSpace(stringField(item, "법령ID")),
		LawName:          stringField(item, "법령명한글"),
		LawTypeName:      stringField(item, "법령구분명"),
		MinistryNames:    stringField(item, "소관부처명"),
		MinistryCodes:    stringField(item, "소관부처코드"),
		MST:              strings.TrimSpace(stringField(item, "법령일련번호")),
		ChangeType:       stringField(item, "제개정구분명"),
		PromulgationNo:   stringField(item, "공포번호"),
		PromulgationDate: stringField(item, "공포일자"),
		EnforcementDate:  stringField(item, "시행일자"),
		HistoryCode:      stringField(item, "현행연혁코드"),
	}
}

func toArticles(v any) []model.ArticleText {
	items := coerceList(v)
	articles := make([]model.ArticleText, 0, len(items))
	for _, item := range items {
		articles = append(articles, model.ArticleText{
			No:      stringField(item, "no"),
			Content: stringField(item, "content"),
		})
	}
	return articles
}
