package main

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/tab"
	"github.com/jrsteele09/go-classroom-client/tabs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (r *root) attendanceCommand() *cobra.Command {
	var classID int64
	var date string
	withAttendance := func(fn func(ctx context.Context, a *app, att *tabs.Attendance) error) func(*cobra.Command, []string) error {
		return r.authed(func(ctx context.Context, a *app, _ []string) error {
			if err := requireParent("class", classID); err != nil {
				return err
			}
			att, err := tabs.NewAttendance(a.deps())
			if err != nil {
				return err
			}
			defer att.Close()
			if _, err := mount(ctx, att.Controller, tab.Scope{ID: classID, Search: date}); err != nil {
				return err
			}
			return fn(ctx, a, att)
		})
	}

	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Show the attendance of a class",
		Args:  cobra.NoArgs,
		RunE: withAttendance(func(ctx context.Context, a *app, att *tabs.Attendance) error {
			items := att.Snapshot().Items
			rows := make([][]string, 0, len(items))
			for _, rec := range items {
				rows = append(rows, []string{rec.Date, id(rec.StudentID), rec.StudentName, string(rec.Status)})
			}
			return a.out.list(items, []string{"DATE", "STUDENT", "NAME", "STATUS"}, rows)
		}),
	}
	cmd.PersistentFlags().Int64Var(&classID, "class", 0, "class id")
	cmd.PersistentFlags().StringVar(&date, "date", "", "day (yyyy-mm-dd)")

	var marks []string
	record := &cobra.Command{
		Use:     "record",
		Short:   "Record one day of attendance",
		Example: "classroom attendance record --class 101 --date 2024-03-04 --mark 7=PRESENT --mark 8=LATE",
		Args:    cobra.NoArgs,
		RunE: withAttendance(func(ctx context.Context, a *app, att *tabs.Attendance) error {
			sheet := classroom.AttendanceSheet{Date: date}
			for _, m := range marks {
				rawID, status, ok := strings.Cut(m, "=")
				if !ok {
					return errors.Errorf("invalid mark %q, want <student-id>=<status>", m)
				}
				studentID, err := parseID(rawID)
				if err != nil {
					return err
				}
				sheet.Records = append(sheet.Records, classroom.AttendanceMark{
					StudentID: studentID,
					Status:    classroom.AttendanceStatus(strings.ToUpper(status)),
				})
			}
			return report(a, att.Controller, att.Record(ctx, sheet))
		}),
	}
	record.Flags().StringArrayVar(&marks, "mark", nil, "student-id=PRESENT|ABSENT|LATE|EXCUSED, repeatable")
	cmd.AddCommand(record)
	return cmd
}

func (r *root) leaveCommand() *cobra.Command {
	var classID int64
	withRequests := func(fn func(ctx context.Context, a *app, reqs *tabs.AbsenceRequests, args []string) error) func(*cobra.Command, []string) error {
		return r.authed(func(ctx context.Context, a *app, args []string) error {
			if err := requireParent("class", classID); err != nil {
				return err
			}
			reqs, err := tabs.NewAbsenceRequests(a.deps())
			if err != nil {
				return err
			}
			defer reqs.Close()
			if _, err := mount(ctx, reqs.Controller, tab.Scope{ID: classID}); err != nil {
				return err
			}
			return fn(ctx, a, reqs, args)
		})
	}
	decide := func(use, short string, call func(reqs *tabs.AbsenceRequests) func(context.Context, int64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <request-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: withRequests(func(ctx context.Context, a *app, reqs *tabs.AbsenceRequests, args []string) error {
				reqID, err := parseID(args[0])
				if err != nil {
					return err
				}
				return report(a, reqs.Controller, call(reqs)(ctx, reqID))
			}),
		}
	}

	cmd := &cobra.Command{
		Use:   "leave",
		Short: "List absence requests of a class",
		Args:  cobra.NoArgs,
		RunE: withRequests(func(ctx context.Context, a *app, reqs *tabs.AbsenceRequests, _ []string) error {
			items := reqs.Snapshot().Items
			rows := make([][]string, 0, len(items))
			for _, req := range items {
				rows = append(rows, []string{id(req.ID), req.Date, req.StudentName, string(req.Status), req.Reason})
			}
			return a.out.list(items, []string{"ID", "DATE", "STUDENT", "STATUS", "REASON"}, rows)
		}),
	}
	cmd.PersistentFlags().Int64Var(&classID, "class", 0, "class id")

	var in classroom.NewAbsenceRequest
	request := &cobra.Command{
		Use:   "request",
		Short: "Ask to be excused for a day",
		Args:  cobra.NoArgs,
		RunE: withRequests(func(ctx context.Context, a *app, reqs *tabs.AbsenceRequests, _ []string) error {
			return report(a, reqs.Controller, reqs.Request(ctx, in))
		}),
	}
	request.Flags().StringVar(&in.Date, "date", "", "day (yyyy-mm-dd)")
	request.Flags().StringVar(&in.Reason, "reason", "", "reason")

	cmd.AddCommand(
		request,
		decide("approve", "Approve a request", func(reqs *tabs.AbsenceRequests) func(context.Context, int64) error { return reqs.Approve }),
		decide("reject", "Reject a request", func(reqs *tabs.AbsenceRequests) func(context.Context, int64) error { return reqs.Reject }),
	)
	return cmd
}
