package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmeiser/popcorn-sales-manager-sub005/api/middleware"
	"github.com/dmeiser/popcorn-sales-manager-sub005/api/responses"
	"github.com/dmeiser/popcorn-sales-manager-sub005/api/validators"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/accounts"
	pkgAuth "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/auth"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/auth/session"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/config"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/logger"
)

type sessionStarter interface {
	Start(ctx context.Context, accessID string) error
	Revoke(ctx context.Context, accessID string) error
}

type loginRequest struct {
	Subject     string `json:"subject" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"omitempty,max=120"`
}

type loginResponse struct {
	AccessToken string               `json:"access_token"`
	ExpiresIn   int64                `json:"expires_in"`
	Account     *accounts.AccountDTO `json:"account"`
}

// AuthLogin resolves the identity asserted by the upstream gateway to an
// account, starts a session, and mints the bearer token for it.
func AuthLogin(svc accounts.Service, manager sessionStarter, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.EnsureAccount(r.Context(), payload.Subject, payload.Email, payload.DisplayName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := account.ID.UUID()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve account id"))
			return
		}

		accessID := session.NewAccessID()
		token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
			AccountID: accountID,
			Subject:   strings.TrimSpace(payload.Subject),
			IsAdmin:   account.IsAdmin,
			JTI:       accessID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}

		if err := manager.Start(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start session"))
			return
		}

		responses.WriteSuccess(w, loginResponse{
			AccessToken: token,
			ExpiresIn:   int64(time.Duration(cfg.ExpirationMinutes) * time.Minute / time.Second),
			Account:     account,
		})
	}
}

// AuthLogout revokes the session behind the presented access token.
func AuthLogout(manager sessionStarter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		if err := manager.Revoke(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
