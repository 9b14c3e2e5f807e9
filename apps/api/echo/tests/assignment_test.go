package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/nkashama/tathmini/core/assignment"
	testutil "github.com/nkashama/tathmini/tests"
)

func Test_assignmentApi_crud(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	other := testutil.CreateUser(t, usrRepo, "Prof Other", "other@monmouth.edu", "s3cr3tPa$$", true)
	cls := testutil.CreateClass(t, classRepo, "CS-101", teacher.ID)

	token := getTeacherToken(t, teacher)
	otherToken := getTeacherToken(t, other)
	base := "/v1/classes/" + cls.ID + "/assignments"

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodGet, path: base,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "foreign class reads as not found", method: http.MethodGet, path: base, token: otherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "naive timestamp rejected", method: http.MethodPost, path: base, token: token,
			body:     []byte(`{"name":"Sprint 1","start_at":"2026-09-01T09:00:00","end_at":"2026-09-01T17:00:00"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"start_at": "must be an RFC3339 timestamp with a UTC offset"}),
		},
		{
			name: "end before start rejected", method: http.MethodPost, path: base, token: token,
			body:     []byte(`{"name":"Sprint 1","start_at":"2026-09-01T17:00:00Z","end_at":"2026-09-01T09:00:00Z"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"end_at": "must be after start_at"}),
		},
		{
			name: "create", method: http.MethodPost, path: base, token: token,
			body:     []byte(`{"name":"Sprint 1","start_at":"2026-09-01T09:00:00-04:00","end_at":"2026-09-01T17:00:00-04:00"}`),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.name == "create" {
				var asg assignment.Assignment
				decodeBody(t, rec, &asg)
				if asg.StartAt.Location() != time.UTC {
					t.Errorf("create(): start_at not normalized to UTC: %v", asg.StartAt)
				}
				if want := time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC); !asg.StartAt.Equal(want) {
					t.Errorf("create(): start_at = %v; want %v", asg.StartAt, want)
				}
			}
		})
	}

	t.Run("update keeps omitted fields", func(t *testing.T) {
		asg := testutil.CreateAssignment(t, asgRepo, cls.ID, "Sprint 2",
			time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC), time.Date(2026, 9, 2, 17, 0, 0, 0, time.UTC))

		req, rec := newAuthRequest(http.MethodPut, "/v1/assignments/"+asg.ID, token,
			[]byte(`{"end_at":"2026-09-02T19:00:00Z"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("update() code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var updated assignment.Assignment
		decodeBody(t, rec, &updated)
		if updated.Name != "Sprint 2" || !updated.StartAt.Equal(asg.StartAt) {
			t.Errorf("update(): name/start changed: %+v", updated)
		}
		if want := time.Date(2026, 9, 2, 19, 0, 0, 0, time.UTC); !updated.EndAt.Equal(want) {
			t.Errorf("update(): end_at = %v; want %v", updated.EndAt, want)
		}
	})

	t.Run("shrinking the window below start rejected", func(t *testing.T) {
		asg := testutil.CreateAssignment(t, asgRepo, cls.ID, "Sprint 3",
			time.Date(2026, 9, 3, 9, 0, 0, 0, time.UTC), time.Date(2026, 9, 3, 17, 0, 0, 0, time.UTC))

		req, rec := newAuthRequest(http.MethodPut, "/v1/assignments/"+asg.ID, token,
			[]byte(`{"end_at":"2026-09-03T08:00:00Z"}`))
		app.ServeHTTP(rec, req)
		want := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"end_at": "must be after start_at"}),
		}
		checkCodeAndData(t, want, rec)
	})

	t.Run("delete", func(t *testing.T) {
		asg := testutil.CreateAssignment(t, asgRepo, cls.ID, "Sprint 4",
			time.Date(2026, 9, 4, 9, 0, 0, 0, time.UTC), time.Date(2026, 9, 4, 17, 0, 0, 0, time.UTC))

		req, rec := newAuthRequest(http.MethodDelete, "/v1/assignments/"+asg.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("destroy() code = %v; want %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodDelete, "/v1/assignments/"+asg.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("destroy() code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_studentApi_assignments(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	cls := testutil.CreateClass(t, classRepo, "CS-101", teacher.ID)
	alpha := testutil.CreateTeam(t, classRepo, cls.ID, "Alpha")
	beta := testutil.CreateTeam(t, classRepo, cls.ID, "Beta")
	std := testutil.CreateStudent(t, classRepo, "Jane Poe", "s123456", "s123456", alpha)
	evaluated := testutil.CreateStudent(t, classRepo, "Bob Beta", "s234567", "s234567", beta)

	now := time.Now().UTC()
	ended := testutil.CreateAssignment(t, asgRepo, cls.ID, "Past", now.Add(-3*time.Hour), now.Add(-2*time.Hour))
	active := testutil.CreateAssignment(t, asgRepo, cls.ID, "Current", now.Add(-time.Hour), now.Add(time.Hour))
	upcoming := testutil.CreateAssignment(t, asgRepo, cls.ID, "Future", now.Add(2*time.Hour), now.Add(3*time.Hour))

	token := getStudentToken(t, std)

	fetch := func(t *testing.T) []assignment.View {
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/assignments", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("queryAssignments() code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var views []assignment.View
		decodeBody(t, rec, &views)
		return views
	}

	views := fetch(t)
	if len(views) != 3 {
		t.Fatalf("queryAssignments() = %d views; want 3", len(views))
	}
	wantOrder := []string{ended.ID, active.ID, upcoming.ID}
	wantStatus := []string{"ended", "active", "upcoming"}
	for i, v := range views {
		if v.ID != wantOrder[i] {
			t.Errorf("views[%d].ID = %v; want %v (ordered by start)", i, v.ID, wantOrder[i])
		}
		if string(v.Status) != wantStatus[i] {
			t.Errorf("views[%d].Status = %v; want %v", i, v.Status, wantStatus[i])
		}
		if v.Submitted {
			t.Errorf("views[%d].Submitted = true before any submission", i)
		}
	}
	if views[1].Remaining == nil {
		t.Error("active view missing remaining countdown")
	}
	if views[2].UntilStart == nil {
		t.Error("upcoming view missing until_start countdown")
	}

	t.Run("submitted flag set after evaluating", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"assignment_id":     active.ID,
			"evaluated_team_id": beta.ID,
			"team_score":        8,
			"member_evaluations": []map[string]interface{}{
				{"student_id": evaluated.ID, "score": 7},
			},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/evaluations", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("submit() code = %v; want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		for _, v := range fetch(t) {
			if want := v.ID == active.ID; v.Submitted != want {
				t.Errorf("view %s Submitted = %v; want %v", v.Name, v.Submitted, want)
			}
		}
	})
}

func Test_studentApi_teams(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "s3cr3tPa$$", true)
	cls := testutil.CreateClass(t, classRepo, "CS-101", teacher.ID)
	alpha := testutil.CreateTeam(t, classRepo, cls.ID, "Alpha")
	beta := testutil.CreateTeam(t, classRepo, cls.ID, "Beta")
	empty := testutil.CreateTeam(t, classRepo, cls.ID, "Empty")
	std := testutil.CreateStudent(t, classRepo, "Jane Poe", "s123456", "s123456", alpha)
	testutil.CreateStudent(t, classRepo, "Bob Beta", "s234567", "s234567", beta)

	req, rec := newAuthRequest(http.MethodGet, "/v1/student/teams", getStudentToken(t, std))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("queryTeams() code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Teams []struct {
			ID string `json:"id"`
		} `json:"teams"`
		MyTeamID string `json:"my_team_id"`
	}
	decodeBody(t, rec, &resp)
	if resp.MyTeamID != alpha.ID {
		t.Errorf("queryTeams() my_team_id = %v; want %v", resp.MyTeamID, alpha.ID)
	}
	// own team and empty teams are not evaluable
	if len(resp.Teams) != 1 || resp.Teams[0].ID != beta.ID {
		t.Errorf("queryTeams() teams = %+v; want only %v (not %v or %v)", resp.Teams, beta.ID, alpha.ID, empty.ID)
	}
}
