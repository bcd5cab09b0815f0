package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core/profile"
	"github.com/kindredkids/compass/storage/supabase"
)

type teacherApi struct {
	store *supabase.Client
}

func registerTeacherAPI(g *echo.Group, authn echo.MiddlewareFunc, opts *Options) {
	a := teacherApi{store: opts.Store}

	tg := g.Group("/teacher", authn, roleMiddleware(profile.RoleTeacher))
	tg.GET("/dashboard", a.dashboard)
	tg.GET("/classes", a.classList)
	tg.GET("/students", a.studentList)
	tg.GET("/students/:id", a.studentRetrieve)
	tg.DELETE("/students/:id", a.studentDestroy)
	tg.POST("/attendance", a.attendanceCreate)
	tg.GET("/attendance", a.attendanceList)
	tg.DELETE("/attendance/:id", a.attendanceDestroy)
	tg.POST("/performance", a.performanceCreate)
	tg.GET("/performance", a.performanceList)
	tg.DELETE("/performance/:id", a.performanceDestroy)

	// notes can be added by teachers and admins alike
	ng := g.Group("/teacher", authn, roleMiddleware(profile.RoleTeacher, profile.RoleAdmin))
	ng.POST("/student-notes", a.studentNoteCreate)
}

// classLink is one class_teachers row with the class embedded by the platform.
type classLink struct {
	ClassID string                 `json:"class_id"`
	Class   map[string]interface{} `json:"classes"`
}

func (api *teacherApi) assignedClasses(ctx echo.Context, teacherID, classCols string) ([]classLink, error) {
	links := []classLink{}
	err := api.store.From("class_teachers").
		Select("class_id,classes("+classCols+")").
		Eq("teacher_id", teacherID).
		Get(ctx.Request().Context(), &links)
	return links, err
}

func (api *teacherApi) dashboard(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	links, err := api.assignedClasses(ctx, prof.ID, "id,name,age_group")
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}

	classes := make([]map[string]interface{}, 0, len(links))
	classIDs := make([]string, 0, len(links))
	for _, l := range links {
		classes = append(classes, l.Class)
		classIDs = append(classIDs, l.ClassID)
	}

	students := 0
	if len(classIDs) > 0 {
		students, err = api.store.From("students").Select("id").In("class_id", classIDs).Count(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "counting students")
		}
	}

	return ctx.JSON(http.StatusOK, echo.Map{"classes": classes, "students": students})
}

func (api *teacherApi) classList(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	links, err := api.assignedClasses(ctx, prof.ID, "id,name,age_group,description")
	if err != nil {
		return err
	}
	classes := make([]map[string]interface{}, 0, len(links))
	for _, l := range links {
		classes = append(classes, l.Class)
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *teacherApi) assignedClassIDs(ctx echo.Context, teacherID string) ([]string, error) {
	links := []classLink{}
	err := api.store.From("class_teachers").
		Select("class_id").
		Eq("teacher_id", teacherID).
		Get(ctx.Request().Context(), &links)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ClassID)
	}
	return ids, nil
}

// studentList returns the students of the caller's assigned classes. With no
// assignments it answers an empty list without ever querying the student
// table.
func (api *teacherApi) studentList(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	classIDs, err := api.assignedClassIDs(ctx, prof.ID)
	if err != nil {
		return errors.Wrap(err, "listing class links")
	}
	if len(classIDs) == 0 {
		return ctx.JSON(http.StatusOK, []map[string]interface{}{})
	}

	students := []map[string]interface{}{}
	err = api.store.From("students").
		Select("*").
		In("class_id", classIDs).
		Order("first_name", false).
		Get(ctx.Request().Context(), &students)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *teacherApi) studentRetrieve(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	var student map[string]interface{}
	err = api.store.From("students").
		Select("*,student_notes(id,note,created_at,author_id)").
		Eq("id", ctx.Param("id")).
		Eq("church_id", prof.ChurchID).
		Single().
		Get(ctx.Request().Context(), &student)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, student)
}

// studentDestroy only removes students that sit in one of the caller's own
// classes.
func (api *teacherApi) studentDestroy(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	classIDs, err := api.assignedClassIDs(ctx, prof.ID)
	if err != nil {
		return errors.Wrap(err, "listing class links")
	}
	if len(classIDs) == 0 {
		return ctx.JSON(http.StatusOK, echo.Map{"deleted": false})
	}

	err = api.store.From("students").
		Eq("id", ctx.Param("id")).
		Eq("church_id", prof.ChurchID).
		In("class_id", classIDs).
		Delete(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": true})
}

// attendanceCreate inserts the session, then the per-student records. The two
// writes are not atomic; a failed record insert leaves the session behind.
func (api *teacherApi) attendanceCreate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(attendanceRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()

	var session struct {
		ID string `json:"id"`
	}
	err = api.store.From("attendance_sessions").Single().Insert(rctx, map[string]interface{}{
		"class_id":     data.ClassID,
		"session_date": data.SessionDate,
		"recorded_by":  prof.ID,
		"church_id":    prof.ChurchID,
	}, &session)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}

	records := make([]map[string]interface{}, 0, len(data.Students))
	for _, s := range data.Students {
		records = append(records, map[string]interface{}{
			"attendance_session_id": session.ID,
			"student_id":            s.StudentID,
			"present":               s.Present,
			"notes":                 s.Notes,
		})
	}
	if err := api.store.From("attendance_records").Insert(rctx, records, nil); err != nil {
		return errors.Wrap(err, "creating records")
	}

	return ctx.JSON(http.StatusCreated, echo.Map{
		"attendance_session_id": session.ID,
		"records":               len(records),
	})
}

func (api *teacherApi) attendanceList(ctx echo.Context) error {
	return api.recordedList(ctx, "attendance_sessions", "session_date")
}

func (api *teacherApi) attendanceDestroy(ctx echo.Context) error {
	return api.recordedDestroy(ctx, "attendance_sessions")
}

// performanceCreate mirrors attendanceCreate: test row first, then scores.
func (api *teacherApi) performanceCreate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(performanceRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()

	var test struct {
		ID string `json:"id"`
	}
	err = api.store.From("performance_tests").Single().Insert(rctx, map[string]interface{}{
		"class_id":    data.ClassID,
		"title":       data.Title,
		"taken_on":    data.TakenOn,
		"recorded_by": prof.ID,
		"church_id":   prof.ChurchID,
	}, &test)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}

	scores := make([]map[string]interface{}, 0, len(data.Scores))
	for _, s := range data.Scores {
		scores = append(scores, map[string]interface{}{
			"test_id":    test.ID,
			"student_id": s.StudentID,
			"score":      s.Score,
			"max_score":  s.MaxScore,
			"notes":      s.Notes,
		})
	}
	if err := api.store.From("performance_scores").Insert(rctx, scores, nil); err != nil {
		return errors.Wrap(err, "creating scores")
	}

	return ctx.JSON(http.StatusCreated, echo.Map{
		"test_id": test.ID,
		"scores":  len(scores),
	})
}

func (api *teacherApi) performanceList(ctx echo.Context) error {
	return api.recordedList(ctx, "performance_tests", "taken_on")
}

func (api *teacherApi) performanceDestroy(ctx echo.Context) error {
	return api.recordedDestroy(ctx, "performance_tests")
}

// recordedList returns the caller's own sessions/tests, newest first.
func (api *teacherApi) recordedList(ctx echo.Context, table, orderCol string) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	q := api.store.From(table).
		Select("*").
		Eq("recorded_by", prof.ID).
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

func (api *teacherApi) recordedDestroy(ctx echo.Context, table string) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	err = api.store.From(table).
		Eq("id", ctx.Param("id")).
		Eq("recorded_by", prof.ID).
		Delete(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": true})
}

func (api *teacherApi) studentNoteCreate(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}

	data := new(studentNoteRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	var note map[string]interface{}
	err = api.store.From("student_notes").Single().Insert(ctx.Request().Context(), map[string]interface{}{
		"student_id": data.StudentID,
		"note":       data.Note,
		"author_id":  prof.ID,
		"church_id":  prof.ChurchID,
	}, &note)
	if err != nil {
		return errors.Wrap(err, "creating note")
	}
	return ctx.JSON(http.StatusCreated, note)
}
