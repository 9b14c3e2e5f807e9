package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/evaluation"
	testutil "github.com/nkashama/tathmini/tests"
)

func Test_evaluationApi_submit(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	cls := testutil.CreateClass(t, classRepo, "CS-101", teacher.ID)
	alpha := testutil.CreateTeam(t, classRepo, cls.ID, "Alpha")
	beta := testutil.CreateTeam(t, classRepo, cls.ID, "Beta")
	guests := testutil.CreateTeam(t, classRepo, cls.ID, class.GuestsTeamName)

	std := testutil.CreateStudent(t, classRepo, "Jane Poe", "s123456", "s123456", alpha)
	mate := testutil.CreateStudent(t, classRepo, "Ann Alpha", "s111111", "s111111", alpha)
	evaluated := testutil.CreateStudent(t, classRepo, "Bob Beta", "s234567", "s234567", beta)
	_ = guests

	now := time.Now().UTC()
	active := testutil.CreateAssignment(t, asgRepo, cls.ID, "Current", now.Add(-time.Hour), now.Add(time.Hour))
	upcoming := testutil.CreateAssignment(t, asgRepo, cls.ID, "Future", now.Add(2*time.Hour), now.Add(3*time.Hour))

	token := getStudentToken(t, std)
	_ = mate

	payload := func(assignmentID, teamID string, teamScore int) []byte {
		return marchallObj(t, map[string]interface{}{
			"assignment_id":     assignmentID,
			"evaluated_team_id": teamID,
			"team_score":        teamScore,
			"team_comment":      "solid work",
			"member_evaluations": []map[string]interface{}{
				{"student_id": evaluated.ID, "score": 7, "comment": "carried"},
			},
		})
	}

	tests := []httpTest{
		{
			name: "auth required", body: payload(active.ID, beta.ID, 8),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "score out of range", token: token,
			body:     payload(active.ID, beta.ID, 11),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "own team rejected", token: token,
			body:     payload(active.ID, alpha.ID, 8),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "you cannot evaluate your own team"}),
		},
		{
			name: "guests team rejected", token: token,
			body:     payload(active.ID, guests.ID, 8),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "cannot evaluate the Guests group"}),
		},
		{
			name: "not yet active rejected", token: token,
			body:     payload(upcoming.ID, beta.ID, 8),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "the assignment is not open for evaluations"}),
		},
		{
			name: "ok", token: token,
			body:     payload(active.ID, beta.ID, 8),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/evaluations", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("evaluator from another class rejected", func(t *testing.T) {
		stranger := testutil.CreateUser(t, usrRepo, "Prof Other", "other@monmouth.edu", "s3cr3tPa$$", true)
		strangerCls := testutil.CreateClass(t, classRepo, "HIS-300", stranger.ID)
		strangerTeam := testutil.CreateTeam(t, classRepo, strangerCls.ID, "Delta")
		outsider := testutil.CreateStudent(t, classRepo, "Out Sider", "s999999", "s999999", strangerTeam)

		req, rec := newAuthRequest(http.MethodPost, "/v1/evaluations", getStudentToken(t, outsider), payload(active.ID, beta.ID, 8))
		app.ServeHTTP(rec, req)
		want := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "evaluator is not a member of this class"}),
		}
		checkCodeAndData(t, want, rec)
	})

	t.Run("check reports the prior submission", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/evaluations/check/"+active.ID+"/"+beta.ID, token)
		app.ServeHTTP(rec, req)
		want := httpTest{wantCode: http.StatusOK, wantData: []byte(`{"exists":true}`)}
		checkCodeAndData(t, want, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/evaluations/check/"+upcoming.ID+"/"+beta.ID, token)
		app.ServeHTTP(rec, req)
		want = httpTest{wantCode: http.StatusOK, wantData: []byte(`{"exists":false}`)}
		checkCodeAndData(t, want, rec)
	})

	t.Run("resubmission replaces the prior evaluation", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/evaluations", token, payload(active.ID, beta.ID, 5))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("submit() code = %v; want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/teacher/evaluations/"+active.ID, getTeacherToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("review() code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var groups []evaluation.ReviewGroup
		decodeBody(t, rec, &groups)
		if len(groups) != 1 || len(groups[0].Evaluations) != 1 {
			t.Fatalf("review() = %+v; want a single evaluation of a single team", groups)
		}
		if got := groups[0].Evaluations[0].TeamScore; got != 5 {
			t.Errorf("review() team_score = %v; want the replacing score 5", got)
		}
	})
}

func Test_evaluationApi_teacherSubmit(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	cls := testutil.CreateClass(t, classRepo, "CS-101", teacher.ID)
	beta := testutil.CreateTeam(t, classRepo, cls.ID, "Beta")
	evaluated := testutil.CreateStudent(t, classRepo, "Bob Beta", "s234567", "s234567", beta)

	now := time.Now().UTC()
	active := testutil.CreateAssignment(t, asgRepo, cls.ID, "Current", now.Add(-time.Hour), now.Add(time.Hour))

	body := marchallObj(t, map[string]interface{}{
		"assignment_id":     active.ID,
		"evaluated_team_id": beta.ID,
		"team_score":        9,
		"member_evaluations": []map[string]interface{}{
			{"student_id": evaluated.ID, "score": 9},
		},
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/evaluations", getTeacherToken(t, teacher), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit() code = %v; want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	// a record was provisioned in the reserved Teachers team
	var te evaluation.TeamEvaluation
	decodeBody(t, rec, &te)
	rec2, err := classRepo.GetStudentByID(context.Background(), te.EvaluatorID)
	if err != nil {
		t.Fatalf("GetStudentByID() failed: %v", err)
	}
	if !rec2.IsTeacherRecord() {
		t.Errorf("submit(): evaluator %+v is not a teacher record", rec2)
	}
	team, err := classRepo.GetTeamByID(context.Background(), rec2.TeamID)
	if err != nil {
		t.Fatalf("GetTeamByID() failed: %v", err)
	}
	if !team.IsTeachers() {
		t.Errorf("submit(): evaluator not in the Teachers team but in %q", team.Name)
	}
}

func Test_evaluationApi_report(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	cls := testutil.CreateClass(t, classRepo, "CS-101", teacher.ID)
	alpha := testutil.CreateTeam(t, classRepo, cls.ID, "Alpha")
	beta := testutil.CreateTeam(t, classRepo, cls.ID, "Beta")
	gamma := testutil.CreateTeam(t, classRepo, cls.ID, "Gamma")

	target := testutil.CreateStudent(t, classRepo, "Bob Beta", "s234567", "s234567", beta)
	ev1 := testutil.CreateStudent(t, classRepo, "Jane Poe", "s123456", "s123456", alpha)
	ev2 := testutil.CreateStudent(t, classRepo, "Gus Gamma", "s345678", "s345678", gamma)

	now := time.Now().UTC()
	active := testutil.CreateAssignment(t, asgRepo, cls.ID, "Current", now.Add(-time.Hour), now.Add(time.Hour))
	other := testutil.CreateAssignment(t, asgRepo, cls.ID, "Other", now.Add(-time.Hour), now.Add(time.Hour))

	submit := func(t *testing.T, evaluator class.Student, assignmentID string, teamScore, memberScore int) {
		body := marchallObj(t, map[string]interface{}{
			"assignment_id":     assignmentID,
			"evaluated_team_id": beta.ID,
			"team_score":        teamScore,
			"member_evaluations": []map[string]interface{}{
				{"student_id": target.ID, "score": memberScore},
			},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/evaluations", getStudentToken(t, evaluator), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("submit() code = %v; want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	}

	submit(t, ev1, active.ID, 8, 8)
	submit(t, ev2, active.ID, 6, 7)
	// a different assignment must not leak into the report
	submit(t, ev1, other.ID, 1, 1)

	req, rec := newAuthRequest(http.MethodGet, "/v1/teacher/report/"+target.ID+"/"+active.ID, getTeacherToken(t, teacher))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("report() code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var report evaluation.Report
	decodeBody(t, rec, &report)
	if report.TeamName != "Beta" || report.ClassName != "CS-101" {
		t.Errorf("report() team/class = %q/%q; want Beta/CS-101", report.TeamName, report.ClassName)
	}
	if report.Summary.TeamCount != 2 || report.Summary.MemberCount != 2 {
		t.Errorf("report() counts = %d/%d; want 2/2", report.Summary.TeamCount, report.Summary.MemberCount)
	}
	if report.Summary.AvgTeamScore == nil || *report.Summary.AvgTeamScore != 7.0 {
		t.Errorf("report() avg team score = %v; want 7.0", report.Summary.AvgTeamScore)
	}
	if report.Summary.AvgMemberScore == nil || *report.Summary.AvgMemberScore != 7.5 {
		t.Errorf("report() avg member score = %v; want 7.5", report.Summary.AvgMemberScore)
	}

	t.Run("student outside the class reads as not found", func(t *testing.T) {
		stranger := testutil.CreateUser(t, usrRepo, "Prof Other", "other@monmouth.edu", "s3cr3tPa$$", true)
		strangerCls := testutil.CreateClass(t, classRepo, "HIS-300", stranger.ID)
		strangerTeam := testutil.CreateTeam(t, classRepo, strangerCls.ID, "Delta")
		outsider := testutil.CreateStudent(t, classRepo, "Out Sider", "s999999", "s999999", strangerTeam)

		req, rec := newAuthRequest(http.MethodGet, "/v1/teacher/report/"+outsider.ID+"/"+active.ID, getTeacherToken(t, teacher))
		app.ServeHTTP(rec, req)
		want := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		checkCodeAndData(t, want, rec)
	})
}
