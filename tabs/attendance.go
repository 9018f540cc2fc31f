package tabs

import (
	"context"

	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/tab"
)

// Attendance lists the attendance of a class. Scope.Search, when set, is the
// date (yyyy-mm-dd) to show.
type Attendance struct {
	*tab.Controller[classroom.AttendanceRecord]
	deps Deps
}

func NewAttendance(d Deps) (*Attendance, error) {
	loader := tab.FromList(func(ctx context.Context, scope tab.Scope) ([]classroom.AttendanceRecord, error) {
		return d.Service.ListAttendance(ctx, scope.ID, scope.Search)
	})
	c, err := newTab(d, "attendance", loader)
	if err != nil {
		return nil, err
	}
	return &Attendance{Controller: c, deps: d}, nil
}

func (a *Attendance) Record(ctx context.Context, sheet classroom.AttendanceSheet) error {
	classID := a.Snapshot().Scope.ID
	return a.Mutate(ctx, tab.Mutation{
		Name:    "record attendance",
		Success: "Attendance saved",
		Call: func(ctx context.Context) error {
			return a.deps.Service.RecordAttendance(ctx, classID, sheet)
		},
	})
}

// AbsenceRequests are the leave requests of a class.
type AbsenceRequests struct {
	*tab.Controller[classroom.AbsenceRequest]
	deps Deps
}

func NewAbsenceRequests(d Deps) (*AbsenceRequests, error) {
	c, err := newTab(d, "absence-requests", listOf(d.Service.ListAbsenceRequests))
	if err != nil {
		return nil, err
	}
	return &AbsenceRequests{Controller: c, deps: d}, nil
}

func (ar *AbsenceRequests) Request(ctx context.Context, req classroom.NewAbsenceRequest) error {
	classID := ar.Snapshot().Scope.ID
	return ar.Mutate(ctx, tab.Mutation{
		Name:    "request absence",
		Success: "Request sent",
		Call: func(ctx context.Context) error {
			return ar.deps.Service.RequestAbsence(ctx, classID, req)
		},
	})
}

func (ar *AbsenceRequests) Approve(ctx context.Context, requestID int64) error {
	return ar.Mutate(ctx, tab.Mutation{
		Name:    "approve absence",
		Success: "Request approved",
		Call: func(ctx context.Context) error {
			return ar.deps.Service.ApproveAbsence(ctx, requestID)
		},
	})
}

func (ar *AbsenceRequests) Reject(ctx context.Context, requestID int64) error {
	return ar.Mutate(ctx, tab.Mutation{
		Name:    "reject absence",
		Confirm: "Reject this absence request?",
		Success: "Request rejected",
		Call: func(ctx context.Context) error {
			return ar.deps.Service.RejectAbsence(ctx, requestID)
		},
	})
}
