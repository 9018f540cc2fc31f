package classroom

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/pkg/errors"
)

func (s *Service) ListAssignments(ctx context.Context, classID int64) ([]Assignment, error) {
	assignments, err := api.Get[[]Assignment](ctx, s.client, classPath(classID, "/assignments"), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ListAssignments] class %d", classID)
	}
	return assignments, nil
}

func (s *Service) CreateAssignment(ctx context.Context, classID int64, in AssignmentInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	req := api.Request{Method: http.MethodPost, Path: classPath(classID, "/assignments"), Multipart: in.multipart()}
	return errors.Wrap(s.client.Do(ctx, req, nil), "[Service.CreateAssignment]")
}

func (s *Service) UpdateAssignment(ctx context.Context, assignmentID int64, in AssignmentInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	req := api.Request{Method: http.MethodPut, Path: fmt.Sprintf("/assignments/%d", assignmentID), Multipart: in.multipart()}
	return errors.Wrap(s.client.Do(ctx, req, nil), "[Service.UpdateAssignment]")
}

func (s *Service) DeleteAssignment(ctx context.Context, assignmentID int64) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/assignments/%d", assignmentID), nil, "[Service.DeleteAssignment]")
}

// AssignmentFilePath is the download path of an assignment's attachment.
func AssignmentFilePath(assignmentID int64) string {
	return fmt.Sprintf("/assignments/%d/file", assignmentID)
}

func (s *Service) ListSubmissions(ctx context.Context, assignmentID int64) ([]Submission, error) {
	subs, err := api.Get[[]Submission](ctx, s.client, fmt.Sprintf("/assignments/%d/submissions", assignmentID), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ListSubmissions] assignment %d", assignmentID)
	}
	return subs, nil
}

// Submit uploads the signed in student's work for an assignment.
func (s *Service) Submit(ctx context.Context, assignmentID int64, file Attachment) error {
	if file.Reader == nil || file.Name == "" {
		return errors.New("[Service.Submit] a file is required")
	}
	body := api.NewMultipart().AddFile("file", file.Name, file.Reader)
	req := api.Request{Method: http.MethodPost, Path: fmt.Sprintf("/assignments/%d/submissions", assignmentID), Multipart: body}
	return errors.Wrap(s.client.Do(ctx, req, nil), "[Service.Submit]")
}

func (s *Service) DeleteSubmission(ctx context.Context, submissionID int64) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/submissions/%d", submissionID), nil, "[Service.DeleteSubmission]")
}

func (s *Service) GradeSubmission(ctx context.Context, submissionID int64, grade Grade) error {
	if err := grade.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/submissions/%d/grade", submissionID), grade, "[Service.GradeSubmission]")
}

// SubmissionFilePath is the download path of a submitted file.
func SubmissionFilePath(submissionID int64) string {
	return fmt.Sprintf("/submissions/%d/file", submissionID)
}

func (s *Service) ClassScores(ctx context.Context, classID int64) ([]ScoreSummary, error) {
	scores, err := api.Get[[]ScoreSummary](ctx, s.client, classPath(classID, "/scores"), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ClassScores] class %d", classID)
	}
	return scores, nil
}

func (s *Service) ExamScores(ctx context.Context, examID int64) ([]ExamScore, error) {
	scores, err := api.Get[[]ExamScore](ctx, s.client, fmt.Sprintf("/exams/%d/scores", examID), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ExamScores] exam %d", examID)
	}
	return scores, nil
}

// ScoreExportPath is the download path of the class grade book spreadsheet.
func ScoreExportPath(classID int64) string {
	return classPath(classID, "/scores/export")
}

func (in AssignmentInput) multipart() *api.Multipart {
	body := api.NewMultipart().AddField("title", in.Title)
	if in.Description != "" {
		body.AddField("description", in.Description)
	}
	if in.DueDate != "" {
		body.AddField("dueDate", in.DueDate)
	}
	if in.File != nil && in.File.Reader != nil {
		body.AddFile("file", in.File.Name, in.File.Reader)
	}
	return body
}
