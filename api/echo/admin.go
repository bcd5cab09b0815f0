package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/profile"
	"github.com/kindredkids/compass/storage/supabase"
)

type adminApi struct {
	store *supabase.Client
}

func registerAdminAPI(g *echo.Group, authn echo.MiddlewareFunc, opts *Options) {
	a := adminApi{store: opts.Store}

	ag := g.Group("/admin", authn, roleMiddleware(profile.RoleAdmin))
	ag.GET("/dashboard", a.dashboard)
	ag.GET("/church", a.churchRetrieve)
	ag.PATCH("/church", a.churchUpdate)
	ag.GET("/teachers", a.teacherList)
	ag.POST("/teachers", a.teacherCreate)
	ag.DELETE("/teachers/:id", a.teacherDestroy)
	ag.GET("/classes", a.classList)
	ag.POST("/classes", a.classCreate)
	ag.POST("/classes/assign-teacher", a.assignTeacher)
	ag.GET("/students", a.studentList)
	ag.POST("/students", a.studentCreate)
	ag.PATCH("/students/:id", a.studentUpdate)
	ag.DELETE("/students/:id", a.studentDestroy)
	ag.GET("/attendance-reports", a.attendanceReports)
	ag.GET("/performance-reports", a.performanceReports)
}

func (api *adminApi) dashboard(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	students, err := api.store.From("students").Select("id").Eq("church_id", prof.ChurchID).Count(rctx)
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	classes, err := api.store.From("classes").Select("id").Eq("church_id", prof.ChurchID).Count(rctx)
	if err != nil {
		return errors.Wrap(err, "counting classes")
	}
	teachers, err := api.store.From("users").Select("id").Eq("church_id", prof.ChurchID).Eq("role", profile.RoleTeacher).Count(rctx)
	if err != nil {
		return errors.Wrap(err, "counting teachers")
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"students": students,
		"classes":  classes,
		"teachers": teachers,
	})
}

func (api *adminApi) churchRetrieve(ctx echo.Context) error {
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

func (api *adminApi) churchUpdate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(churchPatchRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	changes := data.changes()
	if len(changes) == 0 {
		return api.churchRetrieve(ctx)
	}

	var church map[string]interface{}
	err = api.store.From("churches").Eq("id", prof.ChurchID).Single().Update(ctx.Request().Context(), changes, &church)
	if err != nil {
		return errors.Wrap(err, "updating church")
	}
	return ctx.JSON(http.StatusOK, church)
}

func (api *adminApi) teacherList(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	teachers := []profile.Profile{}
	err = api.store.From("users").
		Select("id,full_name,email,role,church_id").
		Eq("church_id", prof.ChurchID).
		Eq("role", profile.RoleTeacher).
		Get(ctx.Request().Context(), &teachers)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, teachers)
}

// teacherCreate provisions the identity first (email pre-confirmed, so the
// teacher can log in immediately), then the profile row.
func (api *adminApi) teacherCreate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(teacherCreateRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	res, err := api.store.AdminCreateUser(rctx, data.Email, data.Password, map[string]interface{}{
		"full_name": data.FullName,
		"role":      profile.RoleTeacher,
		"church_id": prof.ChurchID,
	})
	if err != nil {
		return errors.Wrap(err, "creating identity")
	}
	if res.User == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to create auth user")
	}

	row := map[string]interface{}{
		"id":        res.User.ID,
		"full_name": data.FullName,
		"email":     data.Email,
		"role":      profile.RoleTeacher,
		"church_id": prof.ChurchID,
	}
	if data.Phone != "" {
		row["phone"] = data.Phone
	}
	if data.DateOfBirth != "" {
		row["date_of_birth"] = data.DateOfBirth
	}

	var teacher profile.Profile
	if err := api.store.From("users").Single().Insert(rctx, row, &teacher); err != nil {
		return errors.Wrap(err, "creating profile")
	}
	return ctx.JSON(http.StatusCreated, teacher)
}

// teacherDestroy removes the class links first, then the profile row. The
// identity record is left to the platform's own lifecycle.
func (api *adminApi) teacherDestroy(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}
	teacherID := ctx.Param("id")
	rctx := ctx.Request().Context()

	var teacher struct {
		ID string `json:"id"`
	}
	err = api.store.From("users").
		Select("id").
		Eq("id", teacherID).
		Eq("church_id", prof.ChurchID).
		Eq("role", profile.RoleTeacher).
		Single().
		Get(rctx, &teacher)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return errHttpNotFound
		}
		return err
	}

	if err := api.store.From("class_teachers").Eq("teacher_id", teacherID).Delete(rctx); err != nil {
		return errors.Wrap(err, "removing class links")
	}
	if err := api.store.From("users").Eq("id", teacherID).Eq("church_id", prof.ChurchID).Delete(rctx); err != nil {
		return errors.Wrap(err, "removing teacher")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": true})
}

func (api *adminApi) classList(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	classes := []map[string]interface{}{}
	err = api.store.From("classes").
		Select("*").
		Eq("church_id", prof.ChurchID).
		Order("name", false).
		Get(ctx.Request().Context(), &classes)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *adminApi) classCreate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(classRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	var class map[string]interface{}
	err = api.store.From("classes").Single().Insert(ctx.Request().Context(), map[string]interface{}{
		"name":        data.Name,
		"age_group":   data.AgeGroup,
		"description": data.Description,
		"church_id":   prof.ChurchID,
	}, &class)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, class)
}

func (api *adminApi) assignTeacher(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(assignTeacherRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()

	// the teacher must exist inside the caller's tenant
	var teacher struct {
		ID string `json:"id"`
	}
	err = api.store.From("users").
		Select("id").
		Eq("id", data.TeacherID).
		Eq("church_id", prof.ChurchID).
		Eq("role", profile.RoleTeacher).
		Single().
		Get(rctx, &teacher)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "teacher not found")
		}
		return err
	}

	var record map[string]interface{}
	err = api.store.From("class_teachers").Single().Insert(rctx, map[string]interface{}{
		"teacher_id": data.TeacherID,
		"class_id":   data.ClassID,
	}, &record)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}
	return ctx.JSON(http.StatusCreated, record)
}

const studentColumns = "id,class_id,first_name,last_name,date_of_birth,guardian_name,guardian_contact,allergies,notes,gender,avatar_url"

func (api *adminApi) studentList(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	students := []map[string]interface{}{}
	err = api.store.From("students").
		Select(studentColumns).
		Eq("church_id", prof.ChurchID).
		Order("first_name", false).
		Get(ctx.Request().Context(), &students)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) studentCreate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(studentRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	var student map[string]interface{}
	err = api.store.From("students").Single().Insert(ctx.Request().Context(), map[string]interface{}{
		"class_id":         data.ClassID,
		"first_name":       data.FirstName,
		"last_name":        data.LastName,
		"date_of_birth":    data.DateOfBirth,
		"guardian_name":    data.GuardianName,
		"guardian_contact": data.GuardianContact,
		"allergies":        data.Allergies,
		"notes":            data.Notes,
		"gender":           data.Gender,
		"church_id":        prof.ChurchID,
	}, &student)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, student)
}

func (api *adminApi) studentUpdate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(studentPatchRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	changes := data.changes()
	if len(changes) == 0 {
		return core.NewValidationError(errors.New("no changes provided"))
	}

	var student map[string]interface{}
	err = api.store.From("students").
		Eq("id", ctx.Param("id")).
		Eq("church_id", prof.ChurchID).
		Single().
		Update(ctx.Request().Context(), changes, &student)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, student)
}

func (api *adminApi) studentDestroy(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	err = api.store.From("students").
		Eq("id", ctx.Param("id")).
		Eq("church_id", prof.ChurchID).
		Delete(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": true})
}

func (api *adminApi) attendanceReports(ctx echo.Context) error {
	return api.reports(ctx, "attendance_sessions", "session_date")
}

func (api *adminApi) performanceReports(ctx echo.Context) error {
	return api.reports(ctx, "performance_tests", "taken_on")
}

func (api *adminApi) reports(ctx echo.Context, table, orderCol string) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	q := api.store.From(table).
		Select("*").
		Eq("church_id", prof.ChurchID).
		Order(orderCol, true).
		Limit(50)
	if classID := ctx.QueryParam("class_id"); classID != "" {
		q = q.Eq("class_id", classID)
	}

	rows := []map[string]interface{}{}
	if err := q.Get(ctx.Request().Context(), &rows); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}
