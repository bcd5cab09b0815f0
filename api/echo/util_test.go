package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	echoapi "github.com/kindredkids/compass/api/echo"
	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/auth"
	"github.com/kindredkids/compass/core/profile"
	notifysvc "github.com/kindredkids/compass/services/notify"
	smssvc "github.com/kindredkids/compass/services/sms"
	"github.com/kindredkids/compass/storage/supabase"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// stubVerifier accepts any token it was primed with.
type stubVerifier struct {
	claims map[string]*auth.Claims
}

func (v *stubVerifier) Verify(_ context.Context, token string) (*auth.Claims, error) {
	if claims, ok := v.claims[token]; ok {
		return claims, nil
	}
	return nil, auth.ErrInvalidToken
}

// fakePlatform stands in for the managed platform. Profile lookups are served
// from the profiles map; everything else is routed through per-test handlers
// keyed by "METHOD /path". Every request is recorded for ordering assertions.
type fakePlatform struct {
	t        *testing.T
	profiles map[string]profile.Profile
	handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests []string
}

func newFakePlatform(t *testing.T) *fakePlatform {
	return &fakePlatform{
		t:        t,
		profiles: make(map[string]profile.Profile),
		handlers: make(map[string]http.HandlerFunc),
	}
}

func (f *fakePlatform) handle(methodAndPath string, h http.HandlerFunc) {
	f.handlers[methodAndPath] = h
}

func (f *fakePlatform) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakePlatform) callCount(methodAndPath string) int {
	n := 0
	for _, r := range f.recorded() {
		if strings.HasPrefix(r, methodAndPath) {
			n++
		}
	}
	return n
}

func (f *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	f.mu.Unlock()

	// profile resolution during authentication
	if r.Method == http.MethodGet && r.URL.Path == "/rest/v1/users" {
		if id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq."); id != "" {
			prof, ok := f.profiles[id]
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotAcceptable)
				_, _ = w.Write([]byte(`{"code":"PGRST116","message":"no rows"}`))
				return
			}
			writeJSON(w, http.StatusOK, prof)
			return
		}
	}

	if h, ok := f.handlers[r.Method+" "+r.URL.Path]; ok {
		h(w, r)
		return
	}
	// fall back to prefix matches, e.g. object uploads with random keys
	for key, h := range f.handlers {
		if strings.HasSuffix(key, "/") && strings.HasPrefix(r.Method+" "+r.URL.Path, key) {
			h(w, r)
			return
		}
	}
	f.t.Errorf("fake platform: unexpected request %s %s", r.Method, r.URL)
	w.WriteHeader(http.StatusTeapot)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type testApp struct {
	app      echoapi.Server
	platform *fakePlatform
	verifier *stubVerifier
	sms      *smssvc.SenderMock
	conf     *core.Config
}

func newTestApp(t *testing.T, confMutators ...func(*core.Config)) *testApp {
	t.Helper()

	platform := newFakePlatform(t)
	srv := httptest.NewServer(platform)
	t.Cleanup(srv.Close)

	conf := &core.Config{
		AppName:   "Kindred Kids Compass",
		Env:       "TEST",
		TestMode:  true,
		APIPrefix: "/api/v1",
		Supabase: core.SupabaseConfig{
			URL:                 srv.URL,
			AnonKey:             "anon",
			ServiceRoleKey:      "service",
			JWTAudience:         "authenticated",
			StudentAvatarBucket: "student-avatars",
			UserAvatarBucket:    "user-avatars",
		},
	}

	for _, mutate := range confMutators {
		mutate(conf)
	}

	store := supabase.NewClient(conf.Supabase)
	verifier := &stubVerifier{claims: make(map[string]*auth.Claims)}
	sms := &smssvc.SenderMock{}

	app := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		DisableReqLogs: true,
		Store:          store,
		Verifier:       verifier,
		Profiles:       profile.NewService(store),
		Notifier:       notifysvc.NewNotifier(conf, store, nil, nopLogger{}), // disabled: NotifyEmails false
		SMS:            sms,
		Logger:         nopLogger{},
	})
	return &testApp{app: app, platform: platform, verifier: verifier, sms: sms, conf: conf}
}

// actingAs primes the verifier and the platform with a profile and returns a
// bearer token for it.
func (ta *testApp) actingAs(prof profile.Profile) string {
	token := "token-" + prof.ID
	ta.verifier.claims[token] = &auth.Claims{
		Email: prof.Email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  prof.ID,
			Audience: jwt.ClaimStrings{"authenticated"},
		},
	}
	ta.platform.profiles[prof.ID] = prof
	return token
}

func adminProfile() profile.Profile {
	return profile.Profile{
		ID:       "admin-1",
		FullName: "Akosua Sarpong",
		Email:    "akosua@example.com",
		Role:     profile.RoleAdmin,
		ChurchID: "church-1",
	}
}

func teacherProfile() profile.Profile {
	return profile.Profile{
		ID:       "teacher-1",
		FullName: "Kwame Owusu",
		Email:    "kwame@example.com",
		Role:     profile.RoleTeacher,
		ChurchID: "church-1",
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func jsonBody(t *testing.T, v interface{}) []byte {
	t.Helper()
	buf, err := json.Marshal(v)
	require.NoError(t, err)
	return buf
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func jsonDecode(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
