package echoapi

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/profile"
)

const ctxProfileKey = "profile"

// requestIDMiddleware echoes an incoming x-request-id or generates one.
func requestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

func requestLogMiddleware(logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			requestID := ctx.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = ctx.Response().Header().Get(echo.HeaderXRequestID)
			}
			fields := []interface{}{
				"request_id", requestID,
				"method", ctx.Request().Method,
				"path", ctx.Request().URL.Path,
				"status", ctx.Response().Status,
				"duration", time.Since(start).String(),
				"ip", ctx.RealIP(),
			}
			if err != nil {
				logger.Info("http request", append(fields, "error", err.Error())...)
			} else {
				logger.Info("http request", fields...)
			}
			return err
		}
	}
}

// authnMiddleware verifies the bearer token then resolves the stored profile.
// A valid token whose subject has no profile row is a 403, not a 401.
func authnMiddleware(verifier TokenVerifier, profiles *profile.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := bearerToken(ctx)
			if token == "" {
				return errUnauthorized
			}

			claims, err := verifier.Verify(ctx.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(401, err.Error()).SetInternal(err)
			}

			prof, err := profiles.Resolve(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, profile.ErrNotProvisioned) {
					return errProfileMissing
				}
				return errors.Wrap(err, "resolving profile")
			}

			ctx.Set(ctxProfileKey, prof)
			return next(ctx)
		}
	}
}

func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	allowed := profile.NewRoleSet(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			prof, err := contextProfile(ctx)
			if err != nil {
				return err
			}
			if allowed.Allows(prof.Role) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func bearerToken(ctx echo.Context) string {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func contextProfile(ctx echo.Context) (profile.Profile, error) {
	prof, ok := ctx.Get(ctxProfileKey).(profile.Profile)
	if !ok {
		return profile.Profile{}, errUnauthorized
	}
	return prof, nil
}
