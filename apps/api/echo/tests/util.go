package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/nkashama/tathmini/apps/api/echo"
	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/assignment"
	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/evaluation"
	"github.com/nkashama/tathmini/core/user"
	emailsvc "github.com/nkashama/tathmini/services/email"
	inmemdb "github.com/nkashama/tathmini/storage/database/inmem"
)

var (
	conf *core.Config

	usrRepo   user.Repository
	classRepo class.Repository
	asgRepo   assignment.Repository
	evalRepo  evaluation.Repository

	usrSvc   *user.Service
	classSvc *class.Service
	asgSvc   *assignment.Service
	evalSvc  *evaluation.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

type testLogger struct{ t *testing.T }

func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Log(msg) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Log(msg) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Log(msg) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Logf("%s %v", msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatal(msg, args) }

// setup builds a fresh in-memory application and its API server.
func setup(t *testing.T) Server {
	t.Helper()

	conf = core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	logger := testLogger{t: t}

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	classRepo = inmemdb.NewClassRepository(db)
	asgRepo = inmemdb.NewAssignmentRepository(db)
	evalRepo = inmemdb.NewEvaluationRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc = user.NewService(usrRepo, mailSvc, conf, logger)
	classSvc = class.NewService(classRepo, conf)
	asgSvc = assignment.NewService(asgRepo)
	evalSvc = evaluation.NewService(evalRepo, asgSvc, classSvc)

	class.Init(conf.SecretKey)
	core.ParseEmailTemplates(conf, logger)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	return NewServer(
		&ServerDeps{
			Conf:           conf,
			Logger:         logger,
			UserSvc:        usrSvc,
			ClassSvc:       classSvc,
			AsgSvc:         asgSvc,
			EvalSvc:        evalSvc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	cookie   string // device_token cookie value, if any
	wantCode int
	wantData []byte
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

func addDeviceCookie(req *http.Request, token string) {
	req.AddCookie(&http.Cookie{Name: "device_token", Value: token})
}

func getTeacherToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetTeacherClaims(usr))
	if err != nil {
		t.Fatalf("getTeacherToken() failed: %v", err)
	}
	return token
}

func getStudentToken(t *testing.T, std class.Student) string {
	t.Helper()
	token, err := GenerateToken(GetStudentClaims(std))
	if err != nil {
		t.Fatalf("getStudentToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody() failed: %v; body: %s", err, rec.Body.String())
	}
}
