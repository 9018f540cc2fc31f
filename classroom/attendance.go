package classroom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/pkg/errors"
)

// ListAttendance returns attendance records of a class, optionally limited to
// one date (yyyy-mm-dd).
func (s *Service) ListAttendance(ctx context.Context, classID int64, date string) ([]AttendanceRecord, error) {
	var query url.Values
	if date != "" {
		query = url.Values{"date": {date}}
	}
	records, err := api.Get[[]AttendanceRecord](ctx, s.client, classPath(classID, "/attendance"), query)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ListAttendance] class %d", classID)
	}
	return records, nil
}

func (s *Service) RecordAttendance(ctx context.Context, classID int64, sheet AttendanceSheet) error {
	if err := sheet.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, classPath(classID, "/attendance"), sheet, "[Service.RecordAttendance]")
}

func (s *Service) ListAbsenceRequests(ctx context.Context, classID int64) ([]AbsenceRequest, error) {
	requests, err := api.Get[[]AbsenceRequest](ctx, s.client, classPath(classID, "/leave-requests"), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ListAbsenceRequests] class %d", classID)
	}
	return requests, nil
}

func (s *Service) RequestAbsence(ctx context.Context, classID int64, req NewAbsenceRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, classPath(classID, "/leave-requests"), req, "[Service.RequestAbsence]")
}

func (s *Service) ApproveAbsence(ctx context.Context, requestID int64) error {
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/leave-requests/%d/approve", requestID), nil, "[Service.ApproveAbsence]")
}

func (s *Service) RejectAbsence(ctx context.Context, requestID int64) error {
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/leave-requests/%d/reject", requestID), nil, "[Service.RejectAbsence]")
}
