package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/masomo-dashboard/apps/api/echo"
	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
	"github.com/trezcool/masomo-dashboard/core/forms"
	logsvc "github.com/trezcool/masomo-dashboard/services/logger"
	testutil "github.com/trezcool/masomo-dashboard/tests"
)

type testEnv struct {
	conf    *core.Config
	srv     *echoapi.Server
	mgr     *forms.Manager
	catalog *forms.Catalog
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		AppName:   "Masomo",
		SecretKey: "s3cr3t",
		TestMode:  true,
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
	}
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	validate, translator := core.NewValidator()

	catalog := testutil.NewCatalog(t)
	mgr, err := forms.NewManager(catalog, forms.ManagerOptions{EagerRoot: true, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(mgr.Shutdown)

	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Catalog:    catalog,
		Sessions:   mgr,
	})
	t.Cleanup(func() { _ = srv.Close() })

	return &testEnv{conf: conf, srv: srv, mgr: mgr, catalog: catalog}
}

func (env *testEnv) token(t *testing.T, id string, admin bool) string {
	t.Helper()
	token, err := echoapi.GenerateToken(env.conf, echoapi.NewClaims(env.conf, core.Identity{ID: id}, admin))
	require.NoError(t, err)
	return token
}

func (env *testEnv) optionID(t *testing.T, level, parent, name string) string {
	t.Helper()
	options, err := env.catalog.Options(context.Background(), level, parent, "")
	require.NoError(t, err)
	return testutil.OptionID(t, options, name)
}

func (env *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

// wait blocks until the fetches of session `id` are done.
func (env *testEnv) wait(t *testing.T, id string) {
	t.Helper()
	sess, err := env.mgr.Get(id)
	require.NoError(t, err)
	sess.Engine.Wait()
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) forms.SessionView {
	t.Helper()
	var view forms.SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view), rec.Body.String())
	return view
}

func levelState(t *testing.T, view forms.SessionView, level string) cascade.SelectionState {
	t.Helper()
	for _, st := range view.Levels {
		if st.Level == level {
			return st
		}
	}
	t.Fatalf("no %q level in session %s", level, view.ID)
	return cascade.SelectionState{}
}

func names(options []cascade.Option) []string {
	n := make([]string, 0, len(options))
	for _, opt := range options {
		n = append(n, opt.Name)
	}
	return n
}

type httpTest struct {
	name     string
	method   string
	path     string
	token    string
	wantCode int
	wantData string
}

func TestServer_Public(t *testing.T) {
	env := setup(t)

	rec := env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Dashboard API!", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/forms", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var defs []forms.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &defs))
	assert.Equal(t, forms.Definitions, defs)
}

func TestRefDataApi(t *testing.T) {
	env := setup(t)
	token := env.token(t, "1", false)
	india := env.optionID(t, "country", "", "India")

	tests := []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/v1/refdata/country",
			wantCode: http.StatusUnauthorized,
			wantData: `{"error": "missing or malformed jwt"}`,
		},
		{
			name:     "invalid token",
			method:   http.MethodGet,
			path:     "/v1/refdata/country",
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
			wantData: `{"error": "invalid or expired jwt"}`,
		},
		{
			name:     "levels",
			method:   http.MethodGet,
			path:     "/v1/refdata",
			token:    token,
			wantCode: http.StatusOK,
			wantData: `["country", "district", "item", "purchase", "state", "taluka", "teacher"]`,
		},
		{
			name:     "unknown level",
			method:   http.MethodGet,
			path:     "/v1/refdata/province",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: `{"error": "\"province\": cascade: unknown level"}`,
		},
		{
			name:     "malformed level",
			method:   http.MethodGet,
			path:     "/v1/refdata/Province",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: `{"level": "only lowercase letters, digits, dashes and underscores are allowed"}`,
		},
		{
			name:     "malformed parent",
			method:   http.MethodGet,
			path:     "/v1/refdata/state?parent=abc",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: `{"country_id": "\"abc\" is not a valid id"}`,
		},
		{
			name:     "unknown parent",
			method:   http.MethodGet,
			path:     "/v1/refdata/state?parent=9999",
			token:    token,
			wantCode: http.StatusOK,
			wantData: `[]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantData, rec.Body.String())
		})
	}

	t.Run("ordering", func(t *testing.T) {
		for ordering, want := range map[string][]string{
			"":      {"Gujarat", "Karnataka", "Maharashtra"},
			"-name": {"Maharashtra", "Karnataka", "Gujarat"},
		} {
			rec := env.do(t, http.MethodGet, "/v1/refdata/state?parent="+india+"&ordering="+ordering, token, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var options []cascade.Option
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))
			assert.Equal(t, want, names(options), "ordering %q", ordering)
			assert.Equal(t, india, options[0].Attrs["country_id"])
		}
	})
}

func TestFormsApi_SelectionFlow(t *testing.T) {
	env := setup(t)
	token := env.token(t, "1", false)

	rec := env.do(t, http.MethodPost, "/v1/forms/student-enrollment/sessions", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.Equal(t, forms.FormStudentEnrollment, view.Form)
	assert.Equal(t, []string{"country", "state", "district", "taluka"}, []string{
		view.Levels[0].Level, view.Levels[1].Level, view.Levels[2].Level, view.Levels[3].Level,
	})
	sessPath := "/v1/sessions/" + view.ID
	env.wait(t, view.ID)

	// root loaded eagerly
	rec = env.do(t, http.MethodGet, sessPath+"/levels/country", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var country cascade.SelectionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &country))
	assert.Equal(t, []string{"India", "Kenya"}, names(country.Options))

	// a value that is not an option is rejected with a suggestion
	rec = env.do(t, http.MethodPut, sessPath+"/levels/country", token, echoapi.SelectRequest{Value: "Indi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "did you mean")

	india := env.optionID(t, "country", "", "India")
	rec = env.do(t, http.MethodPut, sessPath+"/levels/country", token, echoapi.SelectRequest{Value: india})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.wait(t, view.ID)

	maharashtra := env.optionID(t, "state", india, "Maharashtra")
	rec = env.do(t, http.MethodPut, sessPath+"/levels/state", token, echoapi.SelectRequest{Value: maharashtra})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.wait(t, view.ID)

	rec = env.do(t, http.MethodGet, sessPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	assert.Equal(t, india, levelState(t, view, "country").Value)
	assert.Equal(t, maharashtra, levelState(t, view, "state").Value)
	assert.Equal(t, []string{"Nagpur", "Nashik", "Pune"}, names(levelState(t, view, "district").Options))
	assert.Empty(t, levelState(t, view, "taluka").Options)

	// changing the country clears every level below it
	kenya := env.optionID(t, "country", "", "Kenya")
	rec = env.do(t, http.MethodPut, sessPath+"/levels/country", token, echoapi.SelectRequest{Value: kenya})
	require.Equal(t, http.StatusOK, rec.Code)
	env.wait(t, view.ID)

	view = decodeView(t, env.do(t, http.MethodGet, sessPath, token, nil))
	assert.Equal(t, []string{"Nairobi"}, names(levelState(t, view, "state").Options))
	assert.Empty(t, levelState(t, view, "state").Value)
	assert.Empty(t, levelState(t, view, "district").Options)

	// unknown level
	rec = env.do(t, http.MethodPut, sessPath+"/levels/province", token, echoapi.SelectRequest{Value: "1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, sessPath+"/levels/province", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "\"province\": cascade: unknown level"}`, rec.Body.String())
	rec = env.do(t, http.MethodPut, sessPath+"/levels/State", token, echoapi.SelectRequest{Value: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"level": "only lowercase letters, digits, dashes and underscores are allowed"}`, rec.Body.String())

	// closing
	rec = env.do(t, http.MethodDelete, sessPath, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, sessPath, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "session not found"}`, rec.Body.String())
}

func TestFormsApi_Open(t *testing.T) {
	env := setup(t)

	tests := []httpTest{
		{
			name:     "missing token",
			method:   http.MethodPost,
			path:     "/v1/forms/certificate/sessions",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "unknown form",
			method:   http.MethodPost,
			path:     "/v1/forms/timetable/sessions",
			token:    env.token(t, "1", false),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "certificate",
			method:   http.MethodPost,
			path:     "/v1/forms/certificate/sessions",
			token:    env.token(t, "1", false),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestFormsApi_SessionOwnership(t *testing.T) {
	env := setup(t)
	owner := env.token(t, "1", false)

	rec := env.do(t, http.MethodPost, "/v1/forms/certificate/sessions", owner, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessPath := "/v1/sessions/" + decodeView(t, rec).ID

	tests := []httpTest{
		{name: "owner", token: owner, wantCode: http.StatusOK},
		{name: "someone else", token: env.token(t, "2", false), wantCode: http.StatusForbidden},
		{name: "admin", token: env.token(t, "99", true), wantCode: http.StatusOK},
		{name: "anonymous", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, sessPath, tt.token, nil)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestFormsApi_IdentityRoot(t *testing.T) {
	env := setup(t)
	asha := env.optionID(t, "teacher", "", "Asha Patil")
	token := env.token(t, asha, false)

	rec := env.do(t, http.MethodPost, "/v1/forms/inventory/sessions", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	sessPath := "/v1/sessions/" + view.ID
	assert.Equal(t, asha, levelState(t, view, "teacher").Value)
	env.wait(t, view.ID)

	view = decodeView(t, env.do(t, http.MethodGet, sessPath, token, nil))
	assert.Equal(t, []string{"Abacus kit", "Worksheet book L1"}, names(levelState(t, view, "item").Options))

	abacus := env.optionID(t, "item", asha, "Abacus kit")
	rec = env.do(t, http.MethodPut, sessPath+"/levels/item", token, echoapi.SelectRequest{Value: abacus})
	require.Equal(t, http.StatusOK, rec.Code)
	env.wait(t, view.ID)

	// reset keeps the teacher
	rec = env.do(t, http.MethodPost, sessPath+"/reset", token, echoapi.ResetRequest{RootValue: "12345"})
	require.Equal(t, http.StatusOK, rec.Code)
	env.wait(t, view.ID)

	view = decodeView(t, env.do(t, http.MethodGet, sessPath, token, nil))
	assert.Equal(t, asha, levelState(t, view, "teacher").Value)
	assert.Empty(t, levelState(t, view, "item").Value)
	assert.Empty(t, levelState(t, view, "purchase").Options)
}

func TestFormsApi_LazyRoot(t *testing.T) {
	env := setup(t)
	token := env.token(t, "1", false)

	rec := env.do(t, http.MethodPost, "/v1/forms/region-management/sessions", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decodeView(t, rec)
	sessPath := "/v1/sessions/" + view.ID
	env.wait(t, view.ID)
	assert.Empty(t, levelState(t, view, "country").Options)

	// reading the root loads it
	rec = env.do(t, http.MethodGet, sessPath+"/levels/country", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env.wait(t, view.ID)

	rec = env.do(t, http.MethodGet, sessPath+"/levels/country", token, nil)
	var country cascade.SelectionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &country))
	assert.Equal(t, cascade.StatusReady, country.Status())
}

func TestFormsApi_HydrateSeedRetry(t *testing.T) {
	env := setup(t)
	token := env.token(t, "1", false)

	india := env.optionID(t, "country", "", "India")
	maharashtra := env.optionID(t, "state", india, "Maharashtra")
	pune := env.optionID(t, "district", maharashtra, "Pune")
	haveli := env.optionID(t, "taluka", pune, "Haveli")

	rec := env.do(t, http.MethodPost, "/v1/forms/student-edit/sessions", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeView(t, rec).ID
	sessPath := "/v1/sessions/" + id

	t.Run("hydrate", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, sessPath+"/hydrate", token, echoapi.HydrateRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"values": "this field is required"}`, rec.Body.String())

		rec = env.do(t, http.MethodPost, sessPath+"/hydrate", token, echoapi.HydrateRequest{
			Values: []string{india, maharashtra, pune, haveli, "1"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, http.MethodPost, sessPath+"/hydrate", token, echoapi.HydrateRequest{
			Values: []string{india, maharashtra, pune, haveli},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		view := decodeView(t, rec)
		assert.Equal(t, haveli, levelState(t, view, "taluka").Value)
		assert.Equal(t, []string{"Baramati", "Haveli", "Maval", "Mulshi"}, names(levelState(t, view, "taluka").Options))
	})

	t.Run("seed", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, sessPath+"/levels/taluka/seed", token, echoapi.SeedRequest{
			Value:   "t1",
			Options: []cascade.Option{{Name: "Unnamed"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, http.MethodPost, sessPath+"/levels/taluka/seed", token, echoapi.SeedRequest{
			Value:   "t1",
			Options: []cascade.Option{{ID: "t1", Name: "Talegaon"}},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "t1", levelState(t, decodeView(t, rec), "taluka").Value)
	})

	t.Run("retry", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, sessPath+"/levels/taluka/retry", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		env.wait(t, id)

		view := decodeView(t, env.do(t, http.MethodGet, sessPath, token, nil))
		taluka := levelState(t, view, "taluka")
		assert.Empty(t, taluka.Value)
		assert.Len(t, taluka.Options, 4)
	})

	t.Run("retry without parent", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, sessPath+"/reset", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodPost, sessPath+"/levels/district/retry", token, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
