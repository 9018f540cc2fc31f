package main

import (
	"context"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/tab"
	"github.com/jrsteele09/go-classroom-client/tabs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func classRows(classes []classroom.Class) [][]string {
	rows := make([][]string, 0, len(classes))
	for _, c := range classes {
		rows = append(rows, []string{id(c.ID), c.Code, c.Name, c.TeacherName, id(int64(c.StudentCount))})
	}
	return rows
}

func (r *root) classesCommand() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List your classes",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, a *app, _ []string) error {
			classes, err := tabs.NewClasses(a.deps())
			if err != nil {
				return err
			}
			defer classes.Close()

			snap, err := mount(ctx, classes.Controller, tab.Scope{})
			if err != nil {
				return err
			}
			if page > 1 {
				if err := classes.SetPage(ctx, page-1); err != nil {
					return err
				}
				if snap = classes.Snapshot(); snap.Status == tab.StatusError {
					return errors.New(snap.Error)
				}
			}
			if err := a.out.list(snap.Items, []string{"ID", "CODE", "NAME", "TEACHER", "STUDENTS"}, classRows(snap.Items)); err != nil {
				return err
			}
			if snap.TotalPages > 1 {
				a.out.message("Page %d of %d", snap.Page+1, snap.TotalPages)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "page to show, starting at 1")

	var in classroom.NewClass
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a class",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, a *app, _ []string) error {
			classes, err := tabs.NewClasses(a.deps())
			if err != nil {
				return err
			}
			defer classes.Close()
			if _, err := mount(ctx, classes.Controller, tab.Scope{}); err != nil {
				return err
			}
			return report(a, classes.Controller, classes.Create(ctx, in))
		}),
	}
	create.Flags().StringVar(&in.Name, "name", "", "class name")
	create.Flags().StringVar(&in.Code, "code", "", "unique class code")
	create.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.AddCommand(create)
	return cmd
}

func (r *root) classCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Work with a single class",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <class-id>",
		Short: "Show a class with its roster and documents",
		Args:  cobra.ExactArgs(1),
		RunE: r.authed(func(ctx context.Context, a *app, args []string) error {
			classID, err := parseID(args[0])
			if err != nil {
				return err
			}
			overview, err := a.service.ClassOverview(ctx, classID)
			if err != nil {
				return errors.New(api.UserMessage(err, ""))
			}
			return a.out.item(overview)
		}),
	})
	return cmd
}

func (r *root) studentsCommand() *cobra.Command {
	var classID int64
	withStudents := func(fn func(ctx context.Context, a *app, students *tabs.Students, args []string) error) func(*cobra.Command, []string) error {
		return r.authed(func(ctx context.Context, a *app, args []string) error {
			if err := requireParent("class", classID); err != nil {
				return err
			}
			students, err := tabs.NewStudents(a.deps())
			if err != nil {
				return err
			}
			defer students.Close()
			if _, err := mount(ctx, students.Controller, tab.Scope{ID: classID}); err != nil {
				return err
			}
			return fn(ctx, a, students, args)
		})
	}

	cmd := &cobra.Command{
		Use:   "students",
		Short: "List the students of a class",
		Args:  cobra.NoArgs,
		RunE: withStudents(func(ctx context.Context, a *app, students *tabs.Students, _ []string) error {
			items := students.Snapshot().Items
			rows := make([][]string, 0, len(items))
			for _, s := range items {
				rows = append(rows, []string{id(s.ID), s.Username, s.FirstName + " " + s.LastName, s.Email})
			}
			return a.out.list(items, []string{"ID", "USERNAME", "NAME", "EMAIL"}, rows)
		}),
	}
	cmd.PersistentFlags().Int64Var(&classID, "class", 0, "class id")

	var email string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a student by email",
		Args:  cobra.NoArgs,
		RunE: withStudents(func(ctx context.Context, a *app, students *tabs.Students, _ []string) error {
			return report(a, students.Controller, students.Add(ctx, email))
		}),
	}
	add.Flags().StringVar(&email, "email", "", "student email")

	remove := &cobra.Command{
		Use:   "remove <student-id>",
		Short: "Remove a student from the class",
		Args:  cobra.ExactArgs(1),
		RunE: withStudents(func(ctx context.Context, a *app, students *tabs.Students, args []string) error {
			studentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(a, students.Controller, students.Remove(ctx, studentID))
		}),
	}
	cmd.AddCommand(add, remove)
	return cmd
}

func (r *root) documentsCommand() *cobra.Command {
	var classID int64
	withDocuments := func(fn func(ctx context.Context, a *app, docs *tabs.Documents, args []string) error) func(*cobra.Command, []string) error {
		return r.authed(func(ctx context.Context, a *app, args []string) error {
			if err := requireParent("class", classID); err != nil {
				return err
			}
			docs, err := tabs.NewDocuments(a.deps())
			if err != nil {
				return err
			}
			defer docs.Close()
			if _, err := mount(ctx, docs.Controller, tab.Scope{ID: classID}); err != nil {
				return err
			}
			return fn(ctx, a, docs, args)
		})
	}

	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List the documents of a class",
		Args:  cobra.NoArgs,
		RunE: withDocuments(func(ctx context.Context, a *app, docs *tabs.Documents, _ []string) error {
			items := docs.Snapshot().Items
			rows := make([][]string, 0, len(items))
			for _, d := range items {
				rows = append(rows, []string{id(d.ID), d.Title, d.CreatedAt})
			}
			return a.out.list(items, []string{"ID", "TITLE", "CREATED"}, rows)
		}),
	}
	cmd.PersistentFlags().Int64Var(&classID, "class", 0, "class id")

	var in classroom.DocumentInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Share a document with the class",
		Args:  cobra.NoArgs,
		RunE: withDocuments(func(ctx context.Context, a *app, docs *tabs.Documents, _ []string) error {
			return report(a, docs.Controller, docs.Create(ctx, in))
		}),
	}
	update := &cobra.Command{
		Use:   "update <document-id>",
		Short: "Replace a document's title and content",
		Args:  cobra.ExactArgs(1),
		RunE: withDocuments(func(ctx context.Context, a *app, docs *tabs.Documents, args []string) error {
			docID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(a, docs.Controller, docs.Update(ctx, docID, in))
		}),
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&in.Title, "title", "", "title")
		c.Flags().StringVar(&in.Content, "content", "", "content")
	}
	remove := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: withDocuments(func(ctx context.Context, a *app, docs *tabs.Documents, args []string) error {
			docID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(a, docs.Controller, docs.Delete(ctx, docID))
		}),
	}
	cmd.AddCommand(create, update, remove)
	return cmd
}
