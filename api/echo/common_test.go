package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredkids/compass/core"
)

func TestCommonMe(t *testing.T) {
	ta := newTestApp(t)
	prof := teacherProfile()
	token := ta.actingAs(prof)

	t.Run("requires a token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/v1/common/me")
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/common/me", "bogus")
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("returns the resolved profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/common/me", token)
		ta.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got map[string]interface{}
		decodeJSON(t, rec, &got)
		assert.Equal(t, prof.ID, got["id"])
		assert.Equal(t, prof.Email, got["email"])
	})
}

func TestCommonChangePassword(t *testing.T) {
	t.Run("wrong current password never reaches the update", func(t *testing.T) {
		ta := newTestApp(t)
		token := ta.actingAs(teacherProfile())
		ta.platform.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error_description": "Invalid login credentials"})
		})

		req, rec := newAuthRequest(http.MethodPost, "/api/v1/common/me/change-password", token,
			jsonBody(t, map[string]string{"current_password": "wrong", "new_password": "newsecret"}))
		ta.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, ta.platform.callCount("PUT /auth/v1/admin/users"))
	})

	t.Run("updates after re-authentication", func(t *testing.T) {
		ta := newTestApp(t)
		prof := teacherProfile()
		token := ta.actingAs(prof)
		ta.platform.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"access_token": "at",
				"user":         map[string]string{"id": prof.ID},
			})
		})
		var gotPassword string
		ta.platform.handle("PUT /auth/v1/admin/users/"+prof.ID, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotPassword = body["password"]
			writeJSON(w, http.StatusOK, map[string]string{"id": prof.ID})
		})

		req, rec := newAuthRequest(http.MethodPost, "/api/v1/common/me/change-password", token,
			jsonBody(t, map[string]string{"current_password": "old", "new_password": "newsecret"}))
		ta.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "newsecret", gotPassword)
	})

	t.Run("short new password fails", func(t *testing.T) {
		ta := newTestApp(t)
		token := ta.actingAs(teacherProfile())

		req, rec := newAuthRequest(http.MethodPost, "/api/v1/common/me/change-password", token,
			jsonBody(t, map[string]string{"current_password": "old", "new_password": "tiny"}))
		ta.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, ta.platform.callCount("POST /auth/v1/token"))
	})
}

func TestCommonNotifications(t *testing.T) {
	t.Run("list is scoped to church and role", func(t *testing.T) {
		ta := newTestApp(t)
		prof := teacherProfile()
		token := ta.actingAs(prof)

		var gotQuery map[string]string
		ta.platform.handle("GET /rest/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			gotQuery = map[string]string{
				"church_id": q.Get("church_id"),
				"or":        q.Get("or"),
				"order":     q.Get("order"),
				"limit":     q.Get("limit"),
			}
			writeJSON(w, http.StatusOK, []map[string]string{
				{"id": "n1", "title": "Harvest Sunday", "message": "9am", "category": "general", "created_at": "2026-08-01T10:00:00Z"},
			})
		})

		req, rec := newAuthRequest(http.MethodGet, "/api/v1/common/notifications", token)
		ta.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]string{
			"church_id": "eq.church-1",
			"or":        "(target_role.eq.all,target_role.eq.teacher)",
			"order":     "created_at.desc",
			"limit":     "20",
		}, gotQuery)
	})

	t.Run("create returns the inserted row regardless of delivery", func(t *testing.T) {
		ta := newTestApp(t)
		token := ta.actingAs(adminProfile())
		ta.platform.handle("POST /rest/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			body["id"] = "n9"
			body["created_at"] = "2026-08-28T08:00:00Z"
			writeJSON(w, http.StatusCreated, body)
		})

		req, rec := newAuthRequest(http.MethodPost, "/api/v1/common/notifications", token,
			jsonBody(t, map[string]string{"title": "Picnic", "message": "Saturday 10am"}))
		ta.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got map[string]interface{}
		decodeJSON(t, rec, &got)
		assert.Equal(t, "n9", got["id"])
		assert.Equal(t, "Picnic", got["title"])
		assert.Equal(t, "all", got["target_role"])
		assert.Equal(t, "general", got["category"])
	})

	t.Run("create without a title fails", func(t *testing.T) {
		ta := newTestApp(t)
		token := ta.actingAs(adminProfile())

		req, rec := newAuthRequest(http.MethodPost, "/api/v1/common/notifications", token,
			jsonBody(t, map[string]string{"message": "no title"}))
		ta.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCommonSettings(t *testing.T) {
	t.Run("unknown section", func(t *testing.T) {
		ta := newTestApp(t)
		token := ta.actingAs(teacherProfile())

		req, rec := newAuthRequest(http.MethodGet, "/api/v1/common/settings/telemetry", token)
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req, rec = newAuthRequest(http.MethodPatch, "/api/v1/common/settings/telemetry", token,
			jsonBody(t, map[string]bool{"x": true}))
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("retrieve falls back to defaults", func(t *testing.T) {
		ta := newTestApp(t)
		token := ta.actingAs(teacherProfile())
		ta.platform.handle("GET /rest/v1/user_settings", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotAcceptable)
			_, _ = w.Write([]byte(`{"code":"PGRST116"}`))
		})

		req, rec := newAuthRequest(http.MethodGet, "/api/v1/common/settings/display", token)
		ta.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got map[string]interface{}
		decodeJSON(t, rec, &got)
		assert.Equal(t, "system", got["theme"])
		assert.Equal(t, false, got["compact_mode"])
	})

	t.Run("sparse patch merges over stored values", func(t *testing.T) {
		ta := newTestApp(t)
		prof := teacherProfile()
		token := ta.actingAs(prof)
		ta.platform.handle("GET /rest/v1/user_settings", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"values": map[string]interface{}{"theme": "dark", "compact_mode": true},
			})
		})
		var upserted map[string]interface{}
		ta.platform.handle("POST /rest/v1/user_settings", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&upserted)
			w.WriteHeader(http.StatusCreated)
		})

		req, rec := newAuthRequest(http.MethodPatch, "/api/v1/common/settings/display", token,
			jsonBody(t, map[string]string{"theme": "light"}))
		ta.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got map[string]interface{}
		decodeJSON(t, rec, &got)
		assert.Equal(t, "light", got["theme"])
		assert.Equal(t, true, got["compact_mode"]) // untouched stored value survives

		require.NotNil(t, upserted)
		assert.Equal(t, prof.ID, upserted["user_id"])
		assert.Equal(t, "display", upserted["section"])
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		ta := newTestApp(t)
		token := ta.actingAs(teacherProfile())

		req, rec := newAuthRequest(http.MethodPatch, "/api/v1/common/settings/display", token,
			jsonBody(t, map[string]string{"font": "mono"}))
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCommonBirthdays(t *testing.T) {
	ta := newTestApp(t)
	prof := adminProfile()
	token := ta.actingAs(prof)

	ta.platform.handle("POST /rest/v1/rpc/get_upcoming_birthdays", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"student_id": "s1", "full_name": "Abena Yeboah", "class_name": "Sprouts", "date_of_birth": "2019-09-02", "days_until_birthday": 5},
		})
	})
	ta.platform.handle("GET /rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]string{})
	})

	req, rec := newAuthRequest(http.MethodGet, "/api/v1/common/birthdays?days=7", token)
	ta.app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []map[string]interface{}
	decodeJSON(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0]["student_id"])
}

func TestCommonBirthdayRemindSMS(t *testing.T) {
	t.Run("provider not configured", func(t *testing.T) {
		ta := newTestApp(t)
		token := ta.actingAs(adminProfile())

		req, rec := newAuthRequest(http.MethodPost, "/api/v1/common/birthdays/remind-sms", token)
		ta.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, ta.platform.callCount("POST /rest/v1/rpc/get_upcoming_birthdays"))
	})

	t.Run("sends to guardians, skipping missing contacts", func(t *testing.T) {
		ta := newTestApp(t, func(conf *core.Config) {
			conf.SMS = core.SMSConfig{ClientID: "cid", ClientSecret: "secret", SenderID: "Kindred"}
		})
		token := ta.actingAs(adminProfile())

		ta.platform.handle("POST /rest/v1/rpc/get_upcoming_birthdays", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]interface{}{
				{"student_id": "s1", "full_name": "Abena Yeboah", "date_of_birth": "2019-08-30", "days_until_birthday": 2},
				{"student_id": "s2", "full_name": "Yaw Asante", "date_of_birth": "2018-08-29", "days_until_birthday": 1},
			})
		})
		ta.platform.handle("GET /rest/v1/students", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]string{
				{"id": "s1", "guardian_contact": " +233 20 123 4567 "},
				{"id": "s2", "guardian_contact": ""},
			})
		})

		req, rec := newAuthRequest(http.MethodPost, "/api/v1/common/birthdays/remind-sms", token)
		ta.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got map[string]int
		decodeJSON(t, rec, &got)
		assert.Equal(t, 1, got["sent"])

		sent := ta.sms.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "+233201234567", sent[0].To)
		assert.Contains(t, sent[0].Message, "Abena Yeboah")
	})
}

func TestCommonAnalytics(t *testing.T) {
	ta := newTestApp(t)
	prof := teacherProfile()
	token := ta.actingAs(prof)

	var gotParams map[string]interface{}
	ta.platform.handle("POST /rest/v1/rpc/get_attendance_analytics", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotParams)
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"session_date": "2026-08-24", "present_count": 10, "total_count": 12, "attendance_rate": 0.83},
		})
	})

	req, rec := newAuthRequest(http.MethodGet, "/api/v1/common/analytics/attendance", token)
	ta.app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, prof.ChurchID, gotParams["p_church_id"])
	assert.Equal(t, prof.ID, gotParams["p_teacher_id"]) // teachers only see their own slice
}
