package session

import "context"

type ctxKeyUserID struct{}

// WithUserID binds the authenticated user id to the request context.
func WithUserID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

// UserIDFrom returns the authenticated user id, or false for anonymous
// requests.
func UserIDFrom(ctx context.Context) (int64, bool) {
	v := ctx.Value(ctxKeyUserID{})
	if v == nil {
		return 0, false
	}
	id, _ := v.(int64)
	return id, id != 0
}
