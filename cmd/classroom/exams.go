package main

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/tab"
	"github.com/jrsteele09/go-classroom-client/tabs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (r *root) questionsCommand() *cobra.Command {
	var classID int64
	var page int
	var search string
	withQuestions := func(fn func(ctx context.Context, a *app, qs *tabs.Questions, args []string) error) func(*cobra.Command, []string) error {
		return r.authed(func(ctx context.Context, a *app, args []string) error {
			if err := requireParent("class", classID); err != nil {
				return err
			}
			qs, err := tabs.NewQuestions(a.deps())
			if err != nil {
				return err
			}
			defer qs.Close()
			if _, err := mount(ctx, qs.Controller, tab.Scope{ID: classID, Search: search}); err != nil {
				return err
			}
			return fn(ctx, a, qs, args)
		})
	}

	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Browse the question bank of a class",
		Args:  cobra.NoArgs,
		RunE: withQuestions(func(ctx context.Context, a *app, qs *tabs.Questions, _ []string) error {
			if page > 1 {
				if err := qs.SetPage(ctx, page-1); err != nil {
					return err
				}
			}
			snap := qs.Snapshot()
			if snap.Status == tab.StatusError {
				return errors.New(snap.Error)
			}
			rows := make([][]string, 0, len(snap.Items))
			for _, q := range snap.Items {
				rows = append(rows, []string{id(q.ID), q.Content, strings.Join(q.Options, " | "), q.Answer})
			}
			if err := a.out.list(snap.Items, []string{"ID", "QUESTION", "OPTIONS", "ANSWER"}, rows); err != nil {
				return err
			}
			if snap.TotalPages > 1 {
				a.out.message("Page %d of %d", snap.Page+1, snap.TotalPages)
			}
			return nil
		}),
	}
	cmd.PersistentFlags().Int64Var(&classID, "class", 0, "class id")
	cmd.Flags().IntVar(&page, "page", 1, "page to show, starting at 1")
	cmd.Flags().StringVar(&search, "search", "", "only questions containing this keyword")

	var in classroom.QuestionInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a question to the bank",
		Args:  cobra.NoArgs,
		RunE: withQuestions(func(ctx context.Context, a *app, qs *tabs.Questions, _ []string) error {
			return report(a, qs.Controller, qs.Create(ctx, in))
		}),
	}
	update := &cobra.Command{
		Use:   "update <question-id>",
		Short: "Replace a question",
		Args:  cobra.ExactArgs(1),
		RunE: withQuestions(func(ctx context.Context, a *app, qs *tabs.Questions, args []string) error {
			questionID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(a, qs.Controller, qs.Update(ctx, questionID, in))
		}),
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&in.Content, "content", "", "question text")
		c.Flags().StringArrayVar(&in.Options, "option", nil, "answer option, repeatable")
		c.Flags().StringVar(&in.Answer, "answer", "", "the correct option")
	}
	remove := &cobra.Command{
		Use:   "delete <question-id>",
		Short: "Delete a question",
		Args:  cobra.ExactArgs(1),
		RunE: withQuestions(func(ctx context.Context, a *app, qs *tabs.Questions, args []string) error {
			questionID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(a, qs.Controller, qs.Delete(ctx, questionID))
		}),
	}
	cmd.AddCommand(create, update, remove)
	return cmd
}

func (r *root) examsCommand() *cobra.Command {
	var classID int64
	withExams := func(fn func(ctx context.Context, a *app, exams *tabs.Exams, args []string) error) func(*cobra.Command, []string) error {
		return r.authed(func(ctx context.Context, a *app, args []string) error {
			if err := requireParent("class", classID); err != nil {
				return err
			}
			exams, err := tabs.NewExams(a.deps())
			if err != nil {
				return err
			}
			defer exams.Close()
			if _, err := mount(ctx, exams.Controller, tab.Scope{ID: classID}); err != nil {
				return err
			}
			return fn(ctx, a, exams, args)
		})
	}
	withExamID := func(fn func(ctx context.Context, a *app, exams *tabs.Exams, examID int64) error) func(*cobra.Command, []string) error {
		return withExams(func(ctx context.Context, a *app, exams *tabs.Exams, args []string) error {
			examID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return fn(ctx, a, exams, examID)
		})
	}

	cmd := &cobra.Command{
		Use:   "exams",
		Short: "List the exams of a class",
		Args:  cobra.NoArgs,
		RunE: withExams(func(ctx context.Context, a *app, exams *tabs.Exams, _ []string) error {
			items := exams.Snapshot().Items
			rows := make([][]string, 0, len(items))
			for _, e := range items {
				rows = append(rows, []string{id(e.ID), e.Title, e.StartTime, id(int64(e.DurationMinutes)) + " min"})
			}
			return a.out.list(items, []string{"ID", "TITLE", "STARTS", "DURATION"}, rows)
		}),
	}
	cmd.PersistentFlags().Int64Var(&classID, "class", 0, "class id")

	var in classroom.ExamInput
	var random int
	var chosen []int64
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an exam, optionally from random or chosen bank questions",
		Args:  cobra.NoArgs,
		RunE: withExams(func(ctx context.Context, a *app, exams *tabs.Exams, _ []string) error {
			var exam *classroom.Exam
			var err error
			switch {
			case random > 0 && len(chosen) > 0:
				return errors.New("--random and --question cannot be combined")
			case random > 0:
				exam, err = exams.CreateRandom(ctx, classroom.RandomExamInput{ExamInput: in, Count: random})
			case len(chosen) > 0:
				exam, err = exams.CreateChosen(ctx, classroom.ChooseExamInput{ExamInput: in, QuestionIDs: chosen})
			default:
				exam, err = exams.Create(ctx, in)
			}
			if err := report(a, exams.Controller, err); err != nil || exam == nil {
				return err
			}
			a.out.message("Exam %d has %d questions.", exam.ID, len(exam.Questions))
			return nil
		}),
	}
	update := &cobra.Command{
		Use:   "update <exam-id>",
		Short: "Change an exam's details",
		Args:  cobra.ExactArgs(1),
		RunE: withExamID(func(ctx context.Context, a *app, exams *tabs.Exams, examID int64) error {
			return report(a, exams.Controller, exams.Update(ctx, examID, in))
		}),
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&in.Title, "title", "", "title")
		c.Flags().StringVar(&in.Description, "description", "", "description")
		c.Flags().StringVar(&in.StartTime, "start", "", "start time (yyyy-mm-ddThh:mm:ss)")
		c.Flags().IntVar(&in.DurationMinutes, "duration", 0, "duration in minutes")
	}
	create.Flags().IntVar(&random, "random", 0, "draw this many questions from the bank")
	create.Flags().Int64SliceVar(&chosen, "question", nil, "bank question id to include, repeatable")

	remove := &cobra.Command{
		Use:   "delete <exam-id>",
		Short: "Delete an exam",
		Args:  cobra.ExactArgs(1),
		RunE: withExamID(func(ctx context.Context, a *app, exams *tabs.Exams, examID int64) error {
			return report(a, exams.Controller, exams.Delete(ctx, examID))
		}),
	}
	start := &cobra.Command{
		Use:   "start <exam-id>",
		Short: "Start an exam and show its questions",
		Args:  cobra.ExactArgs(1),
		RunE: withExamID(func(ctx context.Context, a *app, exams *tabs.Exams, examID int64) error {
			attempt, err := exams.Start(ctx, examID)
			if err := report(a, exams.Controller, err); err != nil || attempt == nil {
				return err
			}
			return a.out.item(attempt)
		}),
	}

	var answer classroom.Answer
	answerCmd := &cobra.Command{
		Use:   "answer <submission-id>",
		Short: "Save the answer to one question of a started exam",
		Args:  cobra.ExactArgs(1),
		RunE: withExamID(func(ctx context.Context, a *app, exams *tabs.Exams, submissionID int64) error {
			if err := exams.SaveAnswer(ctx, submissionID, answer); err != nil {
				return errors.New(api.UserMessage(err, ""))
			}
			a.out.message("Answer saved.")
			return nil
		}),
	}
	answerCmd.Flags().Int64Var(&answer.QuestionID, "question", 0, "question id")
	answerCmd.Flags().StringVar(&answer.Choice, "choice", "", "chosen option")

	submit := &cobra.Command{
		Use:   "submit <exam-id>",
		Short: "Hand in a started exam",
		Args:  cobra.ExactArgs(1),
		RunE: withExamID(func(ctx context.Context, a *app, exams *tabs.Exams, examID int64) error {
			result, err := exams.Submit(ctx, examID)
			if err := report(a, exams.Controller, err); err != nil || result == nil {
				return err
			}
			a.out.message("Score: %s", score(result.Score))
			return nil
		}),
	}

	results := &cobra.Command{
		Use:   "results <exam-id>",
		Short: "List the results of an exam",
		Args:  cobra.ExactArgs(1),
		RunE: r.authed(func(ctx context.Context, a *app, args []string) error {
			examID, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := tabs.NewExamResults(a.deps())
			if err != nil {
				return err
			}
			defer res.Close()
			snap, err := mount(ctx, res.Controller, tab.Scope{ID: examID})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(snap.Items))
			for _, row := range snap.Items {
				rows = append(rows, []string{id(row.StudentID), row.StudentName, score(row.Score), row.SubmittedAt})
			}
			return a.out.list(snap.Items, []string{"STUDENT", "NAME", "SCORE", "SUBMITTED"}, rows)
		}),
	}

	cmd.AddCommand(create, update, remove, start, answerCmd, submit, results)
	return cmd
}
