package echoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/birthday"
	"github.com/kindredkids/compass/core/profile"
	"github.com/kindredkids/compass/core/settings"
	notifysvc "github.com/kindredkids/compass/services/notify"
	smssvc "github.com/kindredkids/compass/services/sms"
	"github.com/kindredkids/compass/storage/supabase"
)

type commonApi struct {
	store    *supabase.Client
	notifier *notifysvc.Notifier
	sms      smssvc.Sender
	smsConf  core.SMSConfig
	logger   core.Logger
}

func registerCommonAPI(g *echo.Group, authn echo.MiddlewareFunc, opts *Options) {
	a := commonApi{
		store:    opts.Store,
		notifier: opts.Notifier,
		sms:      opts.SMS,
		smsConf:  opts.Conf.SMS,
		logger:   opts.Logger,
	}

	cg := g.Group("/common", authn)
	cg.GET("/me", a.me)
	cg.PATCH("/me", a.updateMe)
	cg.POST("/me/change-password", a.changePassword)
	cg.GET("/church", a.church)
	cg.GET("/notifications", a.notificationList)
	cg.POST("/notifications", a.notificationCreate)
	cg.GET("/settings/:section", a.settingsRetrieve)
	cg.PATCH("/settings/:section", a.settingsUpdate)
	cg.GET("/birthdays", a.birthdays)
	cg.POST("/birthdays/remind-sms", a.birthdayRemindSMS)
	cg.GET("/analytics/attendance", a.analytics("get_attendance_analytics"))
	cg.GET("/analytics/performance", a.analytics("get_performance_analytics"))
}

func (api *commonApi) me(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *commonApi) updateMe(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(updateMeRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	changes := data.changes()
	if len(changes) == 0 {
		return ctx.JSON(http.StatusOK, prof)
	}

	var updated profile.Profile
	err = api.store.From("users").Eq("id", prof.ID).Single().Update(ctx.Request().Context(), changes, &updated)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, updated)
}

// changePassword re-authenticates with the current password before touching
// anything; a wrong current password never reaches the password update.
func (api *commonApi) changePassword(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(changePasswordRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	if _, err := api.store.SignInWithPassword(rctx, prof.Email, data.CurrentPassword); err != nil {
		if errors.Is(err, supabase.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "current password is incorrect")
		}
		return err
	}

	if err := api.store.AdminUpdateUserPassword(rctx, prof.ID, data.NewPassword); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (api *commonApi) church(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	var church map[string]interface{}
	err = api.store.From("churches").Select("*").Eq("id", prof.ChurchID).Single().Get(ctx.Request().Context(), &church)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, church)
}

type notificationOut struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
}

func (api *commonApi) notificationList(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	notifications := []notificationOut{}
	err = api.store.From("notifications").
		Select("id,title,message,category,created_at").
		Eq("church_id", prof.ChurchID).
		Or("target_role.eq.all,target_role.eq."+prof.Role).
		Order("created_at", true).
		Limit(20).
		Get(ctx.Request().Context(), &notifications)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, notifications)
}

func (api *commonApi) notificationCreate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(notificationRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	var inserted notifysvc.Notification
	err = api.store.From("notifications").Single().Insert(ctx.Request().Context(), map[string]interface{}{
		"church_id":   prof.ChurchID,
		"title":       data.Title,
		"message":     data.Message,
		"target_role": data.TargetRole,
		"category":    data.Category,
	}, &inserted)
	if err != nil {
		return errors.Wrap(err, "creating notification")
	}

	// fan-out happens after the response; delivery failures never surface here
	if api.notifier != nil {
		go api.notifier.NotificationCreated(inserted)
	}
	return ctx.JSON(http.StatusCreated, inserted)
}

var errUnknownSection = core.NewValidationError(errors.New("unknown settings section"))

func (api *commonApi) settingsRetrieve(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	section := ctx.Param("section")
	if !settings.ValidSection(section) {
		return errUnknownSection
	}

	current, err := api.loadSettings(ctx, prof.ID, section)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, settings.Merge(section, current, nil))
}

func (api *commonApi) settingsUpdate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	section := ctx.Param("section")
	if !settings.ValidSection(section) {
		return errUnknownSection
	}

	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return err
	}
	patch, err := settings.ParsePatch(section, raw)
	if err != nil {
		return err
	}

	current, err := api.loadSettings(ctx, prof.ID, section)
	if err != nil {
		return err
	}
	merged := settings.Merge(section, current, patch)

	err = api.store.From("user_settings").Upsert(ctx.Request().Context(), map[string]interface{}{
		"user_id": prof.ID,
		"section": section,
		"values":  merged,
	}, "user_id,section", nil)
	if err != nil {
		return errors.Wrap(err, "storing settings")
	}
	return ctx.JSON(http.StatusOK, merged)
}

func (api *commonApi) loadSettings(ctx echo.Context, userID, section string) (map[string]interface{}, error) {
	var row struct {
		Values map[string]interface{} `json:"values"`
	}
	err := api.store.From("user_settings").
		Select("values").
		Eq("user_id", userID).
		Eq("section", section).
		Single().
		Get(ctx.Request().Context(), &row)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.Values, nil
}

func (api *commonApi) birthdays(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	days := 30
	if v := ctx.QueryParam("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "days", Error: "must be a non-negative integer"})
		}
	}
	includeTeachers := true
	if v := ctx.QueryParam("include_teachers"); v != "" {
		includeTeachers, err = strconv.ParseBool(v)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "include_teachers", Error: "must be a boolean"})
		}
	}

	rctx := ctx.Request().Context()

	students := []birthday.Reminder{}
	err = api.store.RPC(rctx, "get_upcoming_birthdays", map[string]interface{}{
		"p_church_id": prof.ChurchID,
		"p_days":      days,
	}, &students)
	if err != nil {
		return errors.Wrap(err, "listing student birthdays")
	}

	var teachers []birthday.Reminder
	if includeTeachers {
		var rows []profile.Profile
		err = api.store.From("users").
			Select("id,full_name,date_of_birth").
			Eq("church_id", prof.ChurchID).
			Eq("role", profile.RoleTeacher).
			Get(rctx, &rows)
		if err != nil {
			return errors.Wrap(err, "listing teachers")
		}
		teachers = birthday.TeacherReminders(rows, time.Now(), days)
	}

	return ctx.JSON(http.StatusOK, birthday.Merge(students, teachers))
}

// birthdayRemindSMS texts guardians of students whose birthday falls within
// the next two days. Students without a contact are skipped and individual
// send failures only reduce the count.
func (api *commonApi) birthdayRemindSMS(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}
	if !api.smsConf.Configured() {
		return errSMSNotConfigured
	}

	rctx := ctx.Request().Context()

	var reminders []birthday.Reminder
	err = api.store.RPC(rctx, "get_upcoming_birthdays", map[string]interface{}{
		"p_church_id": prof.ChurchID,
		"p_days":      2,
	}, &reminders)
	if err != nil {
		return errors.Wrap(err, "listing student birthdays")
	}
	if len(reminders) == 0 {
		return ctx.JSON(http.StatusOK, echo.Map{"sent": 0})
	}

	ids := make([]string, 0, len(reminders))
	for _, r := range reminders {
		ids = append(ids, r.StudentID)
	}
	var students []struct {
		ID              string `json:"id"`
		GuardianContact string `json:"guardian_contact"`
	}
	err = api.store.From("students").
		Select("id,guardian_contact").
		Eq("church_id", prof.ChurchID).
		In("id", ids).
		Get(rctx, &students)
	if err != nil {
		return errors.Wrap(err, "listing guardian contacts")
	}
	contacts := make(map[string]string, len(students))
	for _, s := range students {
		contacts[s.ID] = smssvc.NormalizePhone(s.GuardianContact)
	}

	sent := 0
	for _, r := range reminders {
		to := contacts[r.StudentID]
		if to == "" {
			continue
		}
		msg := fmt.Sprintf("Reminder: %s's birthday is in %d day(s) (%s). From your Kindred Kids team.",
			r.FullName, r.DaysUntilBirthday, r.DateOfBirth)
		if err := api.sms.Send(rctx, to, msg); err != nil {
			api.logger.Warn("sending birthday sms", "student_id", r.StudentID, "error", err.Error())
			continue
		}
		sent++
	}
	return ctx.JSON(http.StatusOK, echo.Map{"sent": sent})
}

func (api *commonApi) analytics(rpcName string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		prof, err := contextProfile(ctx)
		if err != nil {
			return err
		}

		params := map[string]interface{}{
			"p_church_id":  prof.ChurchID,
			"p_teacher_id": nil,
		}
		if prof.IsTeacher() {
			params["p_teacher_id"] = prof.ID
		}

		var out json.RawMessage
		if err := api.store.RPC(ctx.Request().Context(), rpcName, params, &out); err != nil {
			return errors.Wrapf(err, "calling %s", rpcName)
		}
		return ctx.JSONBlob(http.StatusOK, out)
	}
}
