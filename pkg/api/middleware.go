package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/safetypulse/safetypulse/pkg/accesscontrol"
	"github.com/safetypulse/safetypulse/pkg/contextkeys"
	"github.com/safetypulse/safetypulse/pkg/httputil"
	"github.com/safetypulse/safetypulse/pkg/identity"
	"github.com/safetypulse/safetypulse/pkg/observability"
)

// requestIDMiddleware assigns a request ID and a request-scoped logger.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		ctx = observability.WithRequestID(ctx, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionMiddleware verifies the caller and resolves their access control.
// Requests without a valid token are rejected; a valid token whose email has
// no active role still passes through with a nil access object, and handlers
// treat that as not found.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessions.SessionFromRequest(r.Context(), r)
		if err != nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		ctx := contextkeys.WithSession(r.Context(), session)
		ctx = observability.WithEmail(ctx, session.Email)

		access, err := s.access.Resolve(ctx, session.Email)
		if err != nil {
			s.logger.WithError(err).WithField("email", session.Email).Error("Access resolution failed")
			httputil.WriteInternalError(w, err)
			return
		}
		if access != nil {
			ctx = contextkeys.WithAccess(ctx, access)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates the administration subtree on the admin group claim.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r.Context())
		if session == nil || !session.Admin {
			httputil.WriteForbidden(w, "administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFrom(ctx context.Context) *identity.Session {
	if session, ok := ctx.Value(contextkeys.SessionKey).(*identity.Session); ok {
		return session
	}
	return nil
}

func accessFrom(ctx context.Context) *accesscontrol.AccessControl {
	if access, ok := ctx.Value(contextkeys.AccessKey).(*accesscontrol.AccessControl); ok {
		return access
	}
	return nil
}
