package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/apexsend/sequence-engine/internal/model"
)

type contextKey string

const tenantKey contextKey = "tenant"

// TenantAuth resolves the workspace once at the boundary and stores an
// explicit TenantScope in the request context. Real deployments derive the
// workspace from the session; the engine only cares that it arrives here.
func TenantAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idStr := r.Header.Get("X-Workspace-ID")
		id, err := strconv.Atoi(idStr)
		if err != nil || id < 1 {
			http.Error(w, "missing or invalid workspace", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), tenantKey, model.TenantScope{ID: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ScopeFrom extracts the TenantScope set by TenantAuth.
func ScopeFrom(r *http.Request) model.TenantScope {
	scope, _ := r.Context().Value(tenantKey).(model.TenantScope)
	return scope
}

// BearerAuth guards the cron-facing processor endpoint with a shared
// secret. Not tenant-scoped: the sweep runs across all workspaces.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if token == "" || auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
