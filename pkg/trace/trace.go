// Package trace carries the request trace ID through HTTP, MQ headers and logs.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type ctxKey struct{}

// HeaderName 请求/响应中携带 trace ID 的 header
const HeaderName = "X-Trace-ID"

const maxIDLen = 64

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// Valid 只接受字母数字、'-' 和 '_'，长度不超过 64；trace ID 会原样写进日志和 MQ 头
func Valid(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Ensure 返回 header 中的 trace ID；缺失或不合法时生成新的
func Ensure(headerValue string) string {
	if Valid(headerValue) {
		return headerValue
	}
	return GenerateTraceID()
}
