package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/nkashama/tathmini/core/class"
	emailsvc "github.com/nkashama/tathmini/services/email"
	testutil "github.com/nkashama/tathmini/tests"
)

func Test_authApi_teacherLogin(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	testutil.CreateUser(t, usrRepo, "Prof Gone", "gone@monmouth.edu", "s3cr3tPa$$", false)

	tests := []httpTest{
		{
			name: "empty payload", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "provide an email or a name and passcode"}),
		},
		{
			name: "unknown email", body: []byte(`{"email":"nope@monmouth.edu","password":"s3cr3tPa$$"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "wrong password", body: []byte(`{"email":"awe@monmouth.edu","password":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "missing password", body: []byte(`{"email":"awe@monmouth.edu"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "this field is required"}),
		},
		{
			name: "deactivated account", body: []byte(`{"email":"gone@monmouth.edu","password":"s3cr3tPa$$"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "ok", body: []byte(`{"email":"awe@monmouth.edu","password":"s3cr3tPa$$"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.name == "ok" {
				var resp struct {
					Token string `json:"token"`
					Role  string `json:"role"`
					Name  string `json:"name"`
				}
				decodeBody(t, rec, &resp)
				if resp.Token == "" {
					t.Error("login(): empty token")
				}
				if resp.Role != "teacher" {
					t.Errorf("login(): role = %q; want teacher", resp.Role)
				}
				if resp.Name != "Prof Awe" {
					t.Errorf("login(): name = %q; want Prof Awe", resp.Name)
				}
			}
		})
	}
}

func Test_authApi_studentLogin(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	cls := testutil.CreateClass(t, classRepo, "CS-101", teacher.ID)
	team := testutil.CreateTeam(t, classRepo, cls.ID, "Alpha")
	guests := testutil.CreateTeam(t, classRepo, cls.ID, class.GuestsTeamName)

	std := testutil.CreateStudent(t, classRepo, "Jane Poe", "s123456", "s123456", team)
	testutil.CreateStudent(t, classRepo, "Gus Guest", class.GuestStudentNo, "CS-101", guests)

	login := func(t *testing.T, body []byte, cookie string) *LoginResult {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", body)
		if cookie != "" {
			addDeviceCookie(req, cookie)
		}
		app.ServeHTTP(rec, req)
		return &LoginResult{t: t, rec: rec}
	}

	t.Run("wrong passcode", func(t *testing.T) {
		res := login(t, []byte(`{"student_name":"Jane Poe","passcode":"nope"}`), "")
		res.wantCode(http.StatusUnauthorized)
	})

	t.Run("first login locks to device", func(t *testing.T) {
		res := login(t, []byte(`{"student_name":"Jane Poe","passcode":"s123456"}`), "")
		res.wantCode(http.StatusOK)
		res.wantRole("student")
		if res.deviceCookie() == "" {
			t.Error("login(): no device_token cookie set")
		}
		locked, err := classRepo.GetStudentByID(context.Background(), std.ID)
		if err != nil {
			t.Fatalf("GetStudentByID() failed: %v", err)
		}
		if locked.DeviceToken == "" {
			t.Error("login(): device token not persisted")
		}
	})

	t.Run("second login needs matching cookie", func(t *testing.T) {
		locked, _ := classRepo.GetStudentByID(context.Background(), std.ID)

		res := login(t, []byte(`{"student_name":"Jane Poe","passcode":"s123456"}`), "")
		res.wantCode(http.StatusUnauthorized)

		res = login(t, []byte(`{"student_name":"Jane Poe","passcode":"s123456"}`), "bogus")
		res.wantCode(http.StatusUnauthorized)

		res = login(t, []byte(`{"student_name":"Jane Poe","passcode":"s123456"}`), locked.DeviceToken)
		res.wantCode(http.StatusOK)
	})

	t.Run("guest login", func(t *testing.T) {
		res := login(t, []byte(`{"guest_login":true,"name":"Gus Guest","passcode":"CS-101"}`), "")
		res.wantCode(http.StatusOK)
		res.wantRole("guest")
	})

	t.Run("guest flag does not match regular students", func(t *testing.T) {
		res := login(t, []byte(`{"guest_login":true,"name":"Jane Poe","passcode":"s123456"}`), "")
		res.wantCode(http.StatusUnauthorized)
	})
}

func Test_authApi_multiClassLogin(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	cls1 := testutil.CreateClass(t, classRepo, "CS-101", teacher.ID)
	cls2 := testutil.CreateClass(t, classRepo, "CS-201", teacher.ID)
	team1 := testutil.CreateTeam(t, classRepo, cls1.ID, "Alpha")
	team2 := testutil.CreateTeam(t, classRepo, cls2.ID, "Beta")

	std1 := testutil.CreateStudent(t, classRepo, "Jane Poe", "s123456", "s123456", team1)
	testutil.CreateStudent(t, classRepo, "Jane Poe", "s123456", "s123456", team2)

	req, rec := newRequest(http.MethodPost, "/v1/auth/login", []byte(`{"student_name":"Jane Poe","passcode":"s123456"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login() code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		MultipleClasses bool `json:"multiple_classes"`
		Classes         []struct {
			StudentID string `json:"student_id"`
			ClassName string `json:"class_name"`
		} `json:"classes"`
	}
	decodeBody(t, rec, &resp)
	if !resp.MultipleClasses {
		t.Fatal("login(): expected multiple_classes")
	}
	if len(resp.Classes) != 2 {
		t.Fatalf("login(): classes = %d; want 2", len(resp.Classes))
	}

	t.Run("select-class completes login", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/select-class",
			marchallObj(t, map[string]string{"student_id": std1.ID, "passcode": "s123456"}))
		app.ServeHTTP(rec, req)
		res := &LoginResult{t: t, rec: rec}
		res.wantCode(http.StatusOK)
		res.wantRole("student")
	})

	t.Run("select-class re-verifies the passcode", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/select-class",
			marchallObj(t, map[string]string{"student_id": std1.ID, "passcode": "nope"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("selectClass() code = %v; want %v", rec.Code, http.StatusUnauthorized)
		}
	})
}

func Test_authApi_registration(t *testing.T) {
	app := setup(t)

	t.Run("foreign domain rejected", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", []byte(`{"email":"prof@gmail.com"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("register() code = %v; want %v; body: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	sent := len(emailsvc.SentMessages)
	req, rec := newRequest(http.MethodPost, "/v1/auth/register", []byte(`{"email":"prof@monmouth.edu"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("register() code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if len(emailsvc.SentMessages) != sent+1 {
		t.Fatalf("register(): %d mails sent; want %d", len(emailsvc.SentMessages)-sent, 1)
	}
	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	code := regexp.MustCompile(`\b\d{6}\b`).FindString(msg.TextContent)
	if code == "" {
		t.Fatalf("register(): no code found in mail:\n%s", msg.TextContent)
	}

	t.Run("wrong code rejected", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"name": "Prof New", "email": "prof@monmouth.edu", "code": "000000",
			"password": "V3ry&Secret", "password_confirm": "V3ry&Secret",
		})
		req, rec := newRequest(http.MethodPost, "/v1/auth/register/verify", body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("verify() code = %v; want %v; body: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("valid code creates the account", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"name": "Prof New", "email": "prof@monmouth.edu", "code": code,
			"password": "V3ry&Secret", "password_confirm": "V3ry&Secret",
		})
		req, rec := newRequest(http.MethodPost, "/v1/auth/register/verify", body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("verify() code = %v; want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		// account can log in right away
		req, rec = newRequest(http.MethodPost, "/v1/auth/login", []byte(`{"email":"prof@monmouth.edu","password":"V3ry&Secret"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("login() code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})
}

func Test_authApi_tokenRefresh(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	cls := testutil.CreateClass(t, classRepo, "CS-101", teacher.ID)
	team := testutil.CreateTeam(t, classRepo, cls.ID, "Alpha")
	std := testutil.CreateStudent(t, classRepo, "Jane Poe", "s123456", "s123456", team)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "students cannot refresh", token: getStudentToken(t, std), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "ok", token: getTeacherToken(t, teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// LoginResult wraps a login response recorder with assertion helpers.
type LoginResult struct {
	t   *testing.T
	rec *httptest.ResponseRecorder
}

func (r *LoginResult) wantCode(code int) {
	r.t.Helper()
	if r.rec.Code != code {
		r.t.Fatalf("login() code = %v; want %v; body: %s", r.rec.Code, code, r.rec.Body.String())
	}
}

func (r *LoginResult) wantRole(role string) {
	r.t.Helper()
	var resp struct {
		Role string `json:"role"`
	}
	decodeBody(r.t, r.rec, &resp)
	if resp.Role != role {
		r.t.Errorf("login() role = %q; want %q", resp.Role, role)
	}
}

func (r *LoginResult) deviceCookie() string {
	for _, c := range r.rec.Result().Cookies() {
		if c.Name == "device_token" {
			return c.Value
		}
	}
	return ""
}
