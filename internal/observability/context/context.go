// Package obscontext carries request-scoped correlation identifiers.
package obscontext

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	shopIDKey    contextKey = "shop_id"
)

// WithRequestID stores the request identifier in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request identifier, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithShopID stores the shop identifier in ctx.
func WithShopID(ctx context.Context, shopID string) context.Context {
	if shopID == "" {
		return ctx
	}
	return context.WithValue(ctx, shopIDKey, shopID)
}

// ShopIDFromContext returns the shop identifier, or "".
func ShopIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(shopIDKey).(string); ok {
		return value
	}
	return ""
}
