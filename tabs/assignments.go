package tabs

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/download"
	"github.com/jrsteele09/go-classroom-client/tab"
)

// Assignments lists the assignments of a class.
type Assignments struct {
	*tab.Controller[classroom.Assignment]
	deps Deps
}

func NewAssignments(d Deps) (*Assignments, error) {
	c, err := newTab(d, "assignments", listOf(d.Service.ListAssignments))
	if err != nil {
		return nil, err
	}
	return &Assignments{Controller: c, deps: d}, nil
}

func (a *Assignments) Create(ctx context.Context, in classroom.AssignmentInput) error {
	classID := a.Snapshot().Scope.ID
	return a.Mutate(ctx, tab.Mutation{
		Name:    "create assignment",
		Success: "Assignment created",
		Call: func(ctx context.Context) error {
			return a.deps.Service.CreateAssignment(ctx, classID, in)
		},
	})
}

func (a *Assignments) Update(ctx context.Context, assignmentID int64, in classroom.AssignmentInput) error {
	return a.Mutate(ctx, tab.Mutation{
		Name:    "update assignment",
		Success: "Assignment updated",
		Call: func(ctx context.Context) error {
			return a.deps.Service.UpdateAssignment(ctx, assignmentID, in)
		},
	})
}

func (a *Assignments) Delete(ctx context.Context, assignmentID int64) error {
	return a.Mutate(ctx, tab.Mutation{
		Name:    "delete assignment",
		Confirm: "Delete this assignment and all submissions?",
		Success: "Assignment deleted",
		Call: func(ctx context.Context) error {
			return a.deps.Service.DeleteAssignment(ctx, assignmentID)
		},
	})
}

// Download saves the file attached to an assignment.
func (a *Assignments) Download(ctx context.Context, assignmentID int64) (*download.Result, error) {
	return a.deps.download(ctx, classroom.AssignmentFilePath(assignmentID), fmt.Sprintf("assignment-%d", assignmentID))
}

// Submissions lists the submissions of one assignment; Scope.ID is the
// assignment.
type Submissions struct {
	*tab.Controller[classroom.Submission]
	deps Deps
}

func NewSubmissions(d Deps) (*Submissions, error) {
	c, err := newTab(d, "submissions", listOf(d.Service.ListSubmissions))
	if err != nil {
		return nil, err
	}
	return &Submissions{Controller: c, deps: d}, nil
}

func (s *Submissions) Submit(ctx context.Context, file classroom.Attachment) error {
	assignmentID := s.Snapshot().Scope.ID
	return s.Mutate(ctx, tab.Mutation{
		Name:    "submit assignment",
		Success: "Submission uploaded",
		Call: func(ctx context.Context) error {
			return s.deps.Service.Submit(ctx, assignmentID, file)
		},
	})
}

func (s *Submissions) Delete(ctx context.Context, submissionID int64) error {
	return s.Mutate(ctx, tab.Mutation{
		Name:    "delete submission",
		Confirm: "Withdraw this submission?",
		Success: "Submission deleted",
		Call: func(ctx context.Context) error {
			return s.deps.Service.DeleteSubmission(ctx, submissionID)
		},
	})
}

func (s *Submissions) Grade(ctx context.Context, submissionID int64, grade classroom.Grade) error {
	return s.Mutate(ctx, tab.Mutation{
		Name:    "grade submission",
		Confirm: fmt.Sprintf("Give this submission %g?", grade.Score),
		Success: "Grade saved",
		Call: func(ctx context.Context) error {
			return s.deps.Service.GradeSubmission(ctx, submissionID, grade)
		},
	})
}

func (s *Submissions) Download(ctx context.Context, submissionID int64) (*download.Result, error) {
	return s.deps.download(ctx, classroom.SubmissionFilePath(submissionID), fmt.Sprintf("submission-%d", submissionID))
}

// Grades is the grade book of a class.
type Grades struct {
	*tab.Controller[classroom.ScoreSummary]
	deps Deps
}

func NewGrades(d Deps) (*Grades, error) {
	c, err := newTab(d, "grades", listOf(d.Service.ClassScores))
	if err != nil {
		return nil, err
	}
	return &Grades{Controller: c, deps: d}, nil
}

// ExamScores fetches the per-student scores of one exam without changing the
// grade book.
func (g *Grades) ExamScores(ctx context.Context, examID int64) ([]classroom.ExamScore, error) {
	return g.deps.Service.ExamScores(ctx, examID)
}

// Export downloads the grade book as a spreadsheet.
func (g *Grades) Export(ctx context.Context) (*download.Result, error) {
	classID := g.Snapshot().Scope.ID
	return g.deps.download(ctx, classroom.ScoreExportPath(classID), fmt.Sprintf("scores-%d.csv", classID))
}
