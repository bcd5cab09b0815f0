package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/profile"
	"github.com/kindredkids/compass/storage/supabase"
)

type authApi struct {
	store *supabase.Client
}

func registerAuthAPI(g *echo.Group, opts *Options) {
	a := authApi{store: opts.Store}

	ag := g.Group("/auth")
	ag.POST("/login", a.login)
	ag.POST("/signup", a.signup)
}

func (api *authApi) login(ctx echo.Context) error {
	data := new(loginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	res, err := api.store.SignInWithPassword(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	if res.Session == nil || res.User == nil {
		return errInvalidCreds
	}

	var prof struct {
		Role     string `json:"role"`
		ChurchID string `json:"church_id"`
	}
	err = api.store.From("users").Select("role,church_id").Eq("id", res.User.ID).Single().Get(ctx.Request().Context(), &prof)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return errProfileMissing
		}
		return errors.Wrap(err, "resolving profile")
	}

	return ctx.JSON(http.StatusOK, tokenResponse{
		AccessToken:  res.Session.AccessToken,
		RefreshToken: res.Session.RefreshToken,
		ExpiresIn:    res.Session.ExpiresIn,
		TokenType:    "bearer",
		UserID:       res.User.ID,
		Role:         prof.Role,
		ChurchID:     prof.ChurchID,
	})
}

func (api *authApi) signup(ctx echo.Context) error {
	data := new(signupRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()

	// admins get a fresh church row before anything else is created
	churchID := data.ChurchID
	if data.Role == profile.RoleAdmin {
		var church struct {
			ID string `json:"id"`
		}
		err := api.store.From("churches").Single().Insert(rctx, map[string]interface{}{
			"name":        "Kindred Kids",
			"branch_name": data.BranchName,
			"location":    data.Location,
			"region":      data.Region,
			"district":    data.District,
			"area":        data.Area,
		}, &church)
		if err != nil {
			return errors.Wrap(err, "creating church")
		}
		churchID = church.ID
	}

	res, err := api.store.SignUp(rctx, data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "creating identity")
	}
	if res.User == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to create user")
	}

	err = api.store.From("users").Insert(rctx, map[string]interface{}{
		"id":        res.User.ID,
		"full_name": data.FullName,
		"email":     data.Email,
		"role":      data.Role,
		"church_id": churchID,
	}, nil)
	if err != nil {
		return errors.Wrap(err, "creating profile")
	}

	if res.Session == nil {
		return ctx.JSON(http.StatusAccepted, echo.Map{"message": "Signup created. Please verify email then login."})
	}

	return ctx.JSON(http.StatusOK, tokenResponse{
		AccessToken:  res.Session.AccessToken,
		RefreshToken: res.Session.RefreshToken,
		ExpiresIn:    res.Session.ExpiresIn,
		TokenType:    "bearer",
		UserID:       res.User.ID,
		Role:         data.Role,
		ChurchID:     churchID,
	})
}
