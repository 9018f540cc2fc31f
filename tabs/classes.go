package tabs

import (
	"context"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/tab"
)

// Classes is the paginated class list of the signed in user.
type Classes struct {
	*tab.Controller[classroom.Class]
	deps Deps
}

func NewClasses(d Deps) (*Classes, error) {
	loader := func(ctx context.Context, _ tab.Scope, page int) (api.Page[classroom.Class], error) {
		return d.Service.ListClasses(ctx, page)
	}
	c, err := newTab(d, "classes", loader, tab.Paginated())
	if err != nil {
		return nil, err
	}
	return &Classes{Controller: c, deps: d}, nil
}

func (c *Classes) Create(ctx context.Context, class classroom.NewClass) error {
	return c.Mutate(ctx, tab.Mutation{
		Name:    "create class",
		Success: "Class created",
		Call: func(ctx context.Context) error {
			return discard(c.deps.Service.CreateClass(ctx, class))
		},
	})
}

// Students is the roster of one class.
type Students struct {
	*tab.Controller[classroom.Student]
	deps Deps
}

func NewStudents(d Deps) (*Students, error) {
	c, err := newTab(d, "students", listOf(d.Service.ListStudents))
	if err != nil {
		return nil, err
	}
	return &Students{Controller: c, deps: d}, nil
}

func (s *Students) Add(ctx context.Context, email string) error {
	classID := s.Snapshot().Scope.ID
	return s.Mutate(ctx, tab.Mutation{
		Name:    "add student",
		Success: "Student added",
		Call: func(ctx context.Context) error {
			return s.deps.Service.AddStudent(ctx, classID, classroom.AddStudent{Email: email})
		},
	})
}

func (s *Students) Remove(ctx context.Context, studentID int64) error {
	classID := s.Snapshot().Scope.ID
	return s.Mutate(ctx, tab.Mutation{
		Name:    "remove student",
		Confirm: "Remove this student from the class?",
		Success: "Student removed",
		Call: func(ctx context.Context) error {
			return s.deps.Service.RemoveStudent(ctx, classID, studentID)
		},
	})
}

// Documents are the shared documents of one class.
type Documents struct {
	*tab.Controller[classroom.Document]
	deps Deps
}

func NewDocuments(d Deps) (*Documents, error) {
	c, err := newTab(d, "documents", listOf(d.Service.ListDocuments))
	if err != nil {
		return nil, err
	}
	return &Documents{Controller: c, deps: d}, nil
}

func (dt *Documents) Create(ctx context.Context, doc classroom.DocumentInput) error {
	classID := dt.Snapshot().Scope.ID
	return dt.Mutate(ctx, tab.Mutation{
		Name:    "create document",
		Success: "Document created",
		Call: func(ctx context.Context) error {
			return dt.deps.Service.CreateDocument(ctx, classID, doc)
		},
	})
}

func (dt *Documents) Update(ctx context.Context, documentID int64, doc classroom.DocumentInput) error {
	return dt.Mutate(ctx, tab.Mutation{
		Name:    "update document",
		Success: "Document updated",
		Call: func(ctx context.Context) error {
			return dt.deps.Service.UpdateDocument(ctx, documentID, doc)
		},
	})
}

func (dt *Documents) Delete(ctx context.Context, documentID int64) error {
	return dt.Mutate(ctx, tab.Mutation{
		Name:    "delete document",
		Confirm: "Delete this document?",
		Success: "Document deleted",
		Call: func(ctx context.Context) error {
			return dt.deps.Service.DeleteDocument(ctx, documentID)
		},
	})
}
