package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/nkashama/tathmini/core/schedule"
)

var (
	// errors
	ErrNotFound = errors.New("assignment not found")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		// QueryAssignmentsByClass returns assignments ordered by start time, earliest first.
		QueryAssignmentsByClass(ctx context.Context, classID string) ([]Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		// DeleteAssignment removes the assignment and all evaluations submitted under it.
		DeleteAssignment(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}

	// View is an assignment decorated with its live lifecycle state,
	// as shown on the student dashboard.
	View struct {
		Assignment
		Status     schedule.Status          `json:"status"`
		Remaining  *schedule.Countdown      `json:"remaining,omitempty"`
		UntilStart *schedule.StartCountdown `json:"until_start,omitempty"`
		Submitted  bool                     `json:"submitted"`
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, classID string, na NewAssignment) (Assignment, error) {
	return svc.repo.CreateAssignment(ctx, Assignment{
		ClassID:   classID,
		Name:      na.Name,
		StartAt:   na.startAt,
		EndAt:     na.endAt,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Query(ctx context.Context, classID string) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsByClass(ctx, classID)
}

func (svc *Service) Get(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *Service) GetForClass(ctx context.Context, classID, id string) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if asg.ClassID != classID {
		return Assignment{}, ErrNotFound
	}
	return asg, nil
}

// Update persists an assignment already merged by UpdateAssignment.Validate.
func (svc *Service) Update(ctx context.Context, asg Assignment) (Assignment, error) {
	return svc.repo.UpdateAssignment(ctx, asg)
}

func (svc *Service) Delete(ctx context.Context, classID, id string) error {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return err
	}
	if asg.ClassID != classID {
		return ErrNotFound
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

// StudentViews decorates a class's assignments with their lifecycle state at
// `now`. `submitted` reports whether the viewing member already evaluated
// under the given assignment.
func (svc *Service) StudentViews(ctx context.Context, classID string, now time.Time, submitted func(assignmentID string) bool) ([]View, error) {
	asgs, err := svc.repo.QueryAssignmentsByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(asgs))
	for _, asg := range asgs {
		snap := schedule.Derive(now, asg.Window())
		view := View{Assignment: asg, Status: snap.Status}
		switch snap.Status {
		case schedule.StatusActive:
			r := snap.Remaining
			view.Remaining = &r
		case schedule.StatusUpcoming:
			u := snap.UntilStart
			view.UntilStart = &u
		}
		if submitted != nil {
			view.Submitted = submitted(asg.ID)
		}
		views = append(views, view)
	}
	return views, nil
}
