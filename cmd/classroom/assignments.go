package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/download"
	"github.com/jrsteele09/go-classroom-client/tab"
	"github.com/jrsteele09/go-classroom-client/tabs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// openAttachment opens path for upload. The caller closes the returned file.
func openAttachment(path string) (*classroom.Attachment, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open attachment")
	}
	return &classroom.Attachment{Name: filepath.Base(path), Reader: f}, f, nil
}

// saved reports a finished download and waits for its temporary copy to be
// removed so that nothing is left behind when the process exits.
func saved(ctx context.Context, a *app, result *download.Result, err error) error {
	if err != nil {
		return errors.New(api.UserMessage(err, "Download failed."))
	}
	a.out.message("Saved %s (%d bytes).", result.Filename, result.Size)
	select {
	case <-result.Revoked:
	case <-ctx.Done():
	}
	return nil
}

func (r *root) assignmentsCommand() *cobra.Command {
	var classID int64
	withAssignments := func(fn func(ctx context.Context, a *app, as *tabs.Assignments, args []string) error) func(*cobra.Command, []string) error {
		return r.authed(func(ctx context.Context, a *app, args []string) error {
			if err := requireParent("class", classID); err != nil {
				return err
			}
			as, err := tabs.NewAssignments(a.deps())
			if err != nil {
				return err
			}
			defer as.Close()
			if _, err := mount(ctx, as.Controller, tab.Scope{ID: classID}); err != nil {
				return err
			}
			return fn(ctx, a, as, args)
		})
	}

	cmd := &cobra.Command{
		Use:   "assignments",
		Short: "List the assignments of a class",
		Args:  cobra.NoArgs,
		RunE: withAssignments(func(ctx context.Context, a *app, as *tabs.Assignments, _ []string) error {
			items := as.Snapshot().Items
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{id(item.ID), item.Title, item.DueDate, item.FileName})
			}
			return a.out.list(items, []string{"ID", "TITLE", "DUE", "FILE"}, rows)
		}),
	}
	cmd.PersistentFlags().Int64Var(&classID, "class", 0, "class id")

	var in classroom.AssignmentInput
	var file string
	withInput := func(fn func(ctx context.Context, as *tabs.Assignments, args []string) error) func(*cobra.Command, []string) error {
		return withAssignments(func(ctx context.Context, a *app, as *tabs.Assignments, args []string) error {
			if file != "" {
				attachment, f, err := openAttachment(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in.File = attachment
			}
			return report(a, as.Controller, fn(ctx, as, args))
		})
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an assignment",
		Args:  cobra.NoArgs,
		RunE: withInput(func(ctx context.Context, as *tabs.Assignments, _ []string) error {
			return as.Create(ctx, in)
		}),
	}
	update := &cobra.Command{
		Use:   "update <assignment-id>",
		Short: "Change an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: withInput(func(ctx context.Context, as *tabs.Assignments, args []string) error {
			assignmentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return as.Update(ctx, assignmentID, in)
		}),
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&in.Title, "title", "", "title")
		c.Flags().StringVar(&in.Description, "description", "", "description")
		c.Flags().StringVar(&in.DueDate, "due", "", "due date (yyyy-mm-dd)")
		c.Flags().StringVar(&file, "file", "", "file to attach")
	}
	remove := &cobra.Command{
		Use:   "delete <assignment-id>",
		Short: "Delete an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: withAssignments(func(ctx context.Context, a *app, as *tabs.Assignments, args []string) error {
			assignmentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(a, as.Controller, as.Delete(ctx, assignmentID))
		}),
	}
	get := &cobra.Command{
		Use:   "download <assignment-id>",
		Short: "Download the file attached to an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: r.authed(func(ctx context.Context, a *app, args []string) error {
			assignmentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			as, err := tabs.NewAssignments(a.deps())
			if err != nil {
				return err
			}
			defer as.Close()
			result, err := as.Download(ctx, assignmentID)
			return saved(ctx, a, result, err)
		}),
	}
	cmd.AddCommand(create, update, remove, get)
	return cmd
}

func (r *root) submissionsCommand() *cobra.Command {
	var assignmentID int64
	withSubmissions := func(fn func(ctx context.Context, a *app, subs *tabs.Submissions, args []string) error) func(*cobra.Command, []string) error {
		return r.authed(func(ctx context.Context, a *app, args []string) error {
			if err := requireParent("assignment", assignmentID); err != nil {
				return err
			}
			subs, err := tabs.NewSubmissions(a.deps())
			if err != nil {
				return err
			}
			defer subs.Close()
			if _, err := mount(ctx, subs.Controller, tab.Scope{ID: assignmentID}); err != nil {
				return err
			}
			return fn(ctx, a, subs, args)
		})
	}

	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List the submissions of an assignment",
		Args:  cobra.NoArgs,
		RunE: withSubmissions(func(ctx context.Context, a *app, subs *tabs.Submissions, _ []string) error {
			items := subs.Snapshot().Items
			rows := make([][]string, 0, len(items))
			for _, s := range items {
				grade := "-"
				if s.Grade != nil {
					grade = score(*s.Grade)
				}
				rows = append(rows, []string{id(s.ID), s.StudentName, s.FileName, s.SubmittedAt, grade})
			}
			return a.out.list(items, []string{"ID", "STUDENT", "FILE", "SUBMITTED", "GRADE"}, rows)
		}),
	}
	cmd.PersistentFlags().Int64Var(&assignmentID, "assignment", 0, "assignment id")

	var file string
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Upload your work",
		Args:  cobra.NoArgs,
		RunE: withSubmissions(func(ctx context.Context, a *app, subs *tabs.Submissions, _ []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			attachment, f, err := openAttachment(file)
			if err != nil {
				return err
			}
			defer f.Close()
			return report(a, subs.Controller, subs.Submit(ctx, *attachment))
		}),
	}
	submit.Flags().StringVar(&file, "file", "", "file to upload")

	remove := &cobra.Command{
		Use:   "delete <submission-id>",
		Short: "Withdraw a submission",
		Args:  cobra.ExactArgs(1),
		RunE: withSubmissions(func(ctx context.Context, a *app, subs *tabs.Submissions, args []string) error {
			submissionID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(a, subs.Controller, subs.Delete(ctx, submissionID))
		}),
	}

	var grade classroom.Grade
	gradeCmd := &cobra.Command{
		Use:   "grade <submission-id>",
		Short: "Grade a submission",
		Args:  cobra.ExactArgs(1),
		RunE: withSubmissions(func(ctx context.Context, a *app, subs *tabs.Submissions, args []string) error {
			submissionID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(a, subs.Controller, subs.Grade(ctx, submissionID, grade))
		}),
	}
	gradeCmd.Flags().Float64Var(&grade.Score, "score", 0, "grade from 0 to 100")
	gradeCmd.Flags().StringVar(&grade.Feedback, "feedback", "", "feedback for the student")

	get := &cobra.Command{
		Use:   "download <submission-id>",
		Short: "Download a submitted file",
		Args:  cobra.ExactArgs(1),
		RunE: r.authed(func(ctx context.Context, a *app, args []string) error {
			submissionID, err := parseID(args[0])
			if err != nil {
				return err
			}
			subs, err := tabs.NewSubmissions(a.deps())
			if err != nil {
				return err
			}
			defer subs.Close()
			result, err := subs.Download(ctx, submissionID)
			return saved(ctx, a, result, err)
		}),
	}
	cmd.AddCommand(submit, remove, gradeCmd, get)
	return cmd
}

func (r *root) scoresCommand() *cobra.Command {
	var classID int64
	withGrades := func(fn func(ctx context.Context, a *app, grades *tabs.Grades, args []string) error) func(*cobra.Command, []string) error {
		return r.authed(func(ctx context.Context, a *app, args []string) error {
			grades, err := tabs.NewGrades(a.deps())
			if err != nil {
				return err
			}
			defer grades.Close()
			return fn(ctx, a, grades, args)
		})
	}

	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Show the grade book of a class",
		Args:  cobra.NoArgs,
		RunE: withGrades(func(ctx context.Context, a *app, grades *tabs.Grades, _ []string) error {
			if err := requireParent("class", classID); err != nil {
				return err
			}
			snap, err := mount(ctx, grades.Controller, tab.Scope{ID: classID})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(snap.Items))
			for _, s := range snap.Items {
				rows = append(rows, []string{
					id(s.StudentID), s.StudentName, score(s.ExamAverage), score(s.AssignmentAverage),
					score(s.AttendanceRate * 100), id(int64(s.CompletedExams)), id(int64(s.SubmittedAssignments)),
				})
			}
			return a.out.list(snap.Items, []string{"STUDENT", "NAME", "EXAMS", "ASSIGNMENTS", "ATTENDANCE %", "EXAMS TAKEN", "SUBMITTED"}, rows)
		}),
	}
	cmd.PersistentFlags().Int64Var(&classID, "class", 0, "class id")

	exam := &cobra.Command{
		Use:   "exam <exam-id>",
		Short: "Show the scores of one exam",
		Args:  cobra.ExactArgs(1),
		RunE: withGrades(func(ctx context.Context, a *app, grades *tabs.Grades, args []string) error {
			examID, err := parseID(args[0])
			if err != nil {
				return err
			}
			scores, err := grades.ExamScores(ctx, examID)
			if err != nil {
				return errors.New(api.UserMessage(err, ""))
			}
			rows := make([][]string, 0, len(scores))
			for _, s := range scores {
				rows = append(rows, []string{id(s.StudentID), s.StudentName, score(s.Score)})
			}
			return a.out.list(scores, []string{"STUDENT", "NAME", "SCORE"}, rows)
		}),
	}
	export := &cobra.Command{
		Use:   "export",
		Short: "Download the grade book as CSV",
		Args:  cobra.NoArgs,
		RunE: withGrades(func(ctx context.Context, a *app, grades *tabs.Grades, _ []string) error {
			if err := requireParent("class", classID); err != nil {
				return err
			}
			grades.Mount(ctx, tab.Scope{ID: classID})
			result, err := grades.Export(ctx)
			return saved(ctx, a, result, err)
		}),
	}
	cmd.AddCommand(exam, export)
	return cmd
}
