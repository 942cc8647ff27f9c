package controllers

import (
	"net/http"

	"github.com/dmeiser/popcorn-sales-manager-sub005/api/middleware"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

// callerFromRequest pulls the authenticated caller identity seeded by the
// auth middleware.
func callerFromRequest(r *http.Request) (ids.CanonicalID, error) {
	caller := middleware.CallerFromContext(r.Context())
	if caller.IsZero() {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing")
	}
	return caller, nil
}
