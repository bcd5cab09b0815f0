package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/profile"
	smssvc "github.com/kindredkids/compass/services/sms"
	"github.com/kindredkids/compass/storage/supabase"
)

var (
	errUnauthorized     = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errInvalidCreds     = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	errProfileMissing   = echo.NewHTTPError(http.StatusForbidden, "profile not provisioned")
	errHttpForbidden    = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound     = echo.NewHTTPError(http.StatusNotFound, "not found")
	errSMSNotConfigured = echo.NewHTTPError(http.StatusBadRequest, "sms provider not configured")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how
// to translate domain errors into status codes.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch {
			case errors.Is(err, core.ErrNotFound):
				code = http.StatusNotFound
				message = "not found"
			case errors.Is(err, profile.ErrNotProvisioned):
				code = http.StatusForbidden
				message = profile.ErrNotProvisioned.Error()
			case errors.Is(err, supabase.ErrInvalidCredentials):
				code = http.StatusUnauthorized
				message = supabase.ErrInvalidCredentials.Error()
			case errors.Is(err, smssvc.ErrNotConfigured):
				code = http.StatusBadRequest
				message = smssvc.ErrNotConfigured.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, "error", err.Error(), "path", ctx.Request().URL.Path)
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
