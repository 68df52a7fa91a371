package testutil

import (
	"net/http"

	"github.com/google/uuid"

	"docvault/pkg/requestcontext"
)

// AsUser stamps the request context the way the auth middleware would for an
// authenticated, verified user.
func AsUser(req *http.Request, userID uuid.UUID) *http.Request {
	return AsSubject(req, userID, "user", true)
}

// AsAdmin stamps the request context as a verified admin.
func AsAdmin(req *http.Request, userID uuid.UUID) *http.Request {
	return AsSubject(req, userID, "admin", true)
}

// AsSubject stamps the request context with an arbitrary resolved subject.
func AsSubject(req *http.Request, userID uuid.UUID, role string, verified bool) *http.Request {
	ctx := req.Context()
	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = requestcontext.WithRole(ctx, role)
	ctx = requestcontext.WithVerified(ctx, verified)
	return req.WithContext(ctx)
}
