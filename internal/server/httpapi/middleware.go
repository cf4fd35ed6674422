package httpapi

import (
	"context"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/kinkeeper/internal/common"
	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/kinkeeper/internal/server/auth"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyUserKey
)

// UserIDFromContext returns the authenticated user ID set by authMiddleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(string)
	return id, ok
}

// UserKeyFromContext returns the request-scoped user key set by
// encryptionKeyMiddleware.
func UserKeyFromContext(ctx context.Context) ([]byte, bool) {
	key, ok := ctx.Value(ctxKeyUserKey).([]byte)
	return key, ok
}

// authMiddleware validates the bearer token and stores the user ID in the
// request context. Missing, malformed, or expired tokens end the request
// with 401.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AccessTokenHeaderName)
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			h.writeError(r.Context(), w, common.ErrInvalidToken)
			return
		}

		userID, err := auth.GetUserIDFromToken(tokenString, h.jwtSecret)
		if err != nil {
			h.writeError(r.Context(), w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// encryptionKeyMiddleware extracts the caller's user key from the
// X-Encryption-Key header. Routes behind it cannot be served without the
// key: a missing or malformed header is an explicit 400, never a silent
// empty result. The key lives only in the request context and is gone when
// the request ends.
func (h *Handler) encryptionKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.EncryptionKeyHeaderName)
		if header == "" {
			h.writeError(r.Context(), w, common.ErrEncryptionKeyRequired)
			return
		}

		key, err := hex.DecodeString(header)
		if err != nil || len(key) != cryptox.KeySize {
			h.writeError(r.Context(), w, common.ErrEncryptionKeyRequired)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
