package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	echoapi "github.com/campoalegre/unibus/apps/api/echo"
	"github.com/campoalegre/unibus/core"
	testutil "github.com/campoalegre/unibus/tests"
)

type httpErr struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var (
	admin      = core.Actor{ID: "user-admin", Name: "Admin", Role: core.RoleAdmin}
	operations = core.Actor{ID: "user-ops", Name: "Ops", Role: core.RoleOperations}
	driver     = core.Actor{ID: "user-drv", Name: "Driver", Role: core.RoleDriver}

	errMissingIdentity = httpErr{Error: "missing or invalid user identity"}
	errForbidden       = httpErr{Error: "permission denied"}
)

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	actor    *core.Actor
	wantCode int
	wantData []byte // not checked when nil
}

// newApp returns a server over a fresh, seeded environment.
func newApp(t *testing.T) (*testutil.Env, *echoapi.Server) {
	env := testutil.NewEnv(t)
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       env.Conf,
		Logger:     core.NopLogger{},
		Validate:   env.Validate,
		Translator: env.Translator,
		Registry:   env.Registry,
		Operations: env.Operations,
		Attendance: env.Attendance,
		Audit:      env.Audit,
		Reports:    env.Reports,
		Export:     env.Export,
		Metrics:    env.Metrics,
	})
	return env, app
}

func newActorRequest(method, path string, actor *core.Actor, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-User-ID", actor.ID)
		req.Header.Set("X-User-Name", actor.Name)
		req.Header.Set("X-User-Role", actor.Role)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func runTests(t *testing.T, app *echoapi.Server, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newActorRequest(tt.method, tt.path, tt.actor, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshall(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
