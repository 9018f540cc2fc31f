package classroom

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ListClasses returns one page of the caller's classes. page is zero-based.
func (s *Service) ListClasses(ctx context.Context, page int) (api.Page[Class], error) {
	result, err := getPage[Class](ctx, s.client, "/classes", pageQuery(ClassPageBase, page, ClassPageSize), ClassPageBase)
	if err != nil {
		return result, errors.Wrap(err, "[Service.ListClasses]")
	}
	return result, nil
}

func (s *Service) CreateClass(ctx context.Context, class NewClass) (*Class, error) {
	if err := class.Validate(); err != nil {
		return nil, err
	}
	created, err := api.Send[Class](ctx, s.client, http.MethodPost, "/classes", class)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.CreateClass]")
	}
	return &created, nil
}

func (s *Service) GetClass(ctx context.Context, classID int64) (*Class, error) {
	class, err := api.Get[Class](ctx, s.client, classPath(classID, ""), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.GetClass] class %d", classID)
	}
	return &class, nil
}

func (s *Service) ListStudents(ctx context.Context, classID int64) ([]Student, error) {
	students, err := api.Get[[]Student](ctx, s.client, classPath(classID, "/students"), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ListStudents] class %d", classID)
	}
	return students, nil
}

func (s *Service) AddStudent(ctx context.Context, classID int64, student AddStudent) error {
	if err := student.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, classPath(classID, "/students"), student, "[Service.AddStudent]")
}

func (s *Service) RemoveStudent(ctx context.Context, classID, studentID int64) error {
	return s.do(ctx, http.MethodDelete, classPath(classID, fmt.Sprintf("/students/%d", studentID)), nil, "[Service.RemoveStudent]")
}

func (s *Service) ListDocuments(ctx context.Context, classID int64) ([]Document, error) {
	docs, err := api.Get[[]Document](ctx, s.client, classPath(classID, "/documents"), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ListDocuments] class %d", classID)
	}
	return docs, nil
}

func (s *Service) CreateDocument(ctx context.Context, classID int64, doc DocumentInput) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, classPath(classID, "/documents"), doc, "[Service.CreateDocument]")
}

func (s *Service) UpdateDocument(ctx context.Context, documentID int64, doc DocumentInput) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/documents/%d", documentID), doc, "[Service.UpdateDocument]")
}

func (s *Service) DeleteDocument(ctx context.Context, documentID int64) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/documents/%d", documentID), nil, "[Service.DeleteDocument]")
}

// Overview is the header data of the class detail page.
type Overview struct {
	Class     Class      `yaml:"class"`
	Students  []Student  `yaml:"students"`
	Documents []Document `yaml:"documents"`
}

// ClassOverview loads the class, its roster and its documents concurrently.
// The first failure cancels the other requests.
func (s *Service) ClassOverview(ctx context.Context, classID int64) (*Overview, error) {
	var overview Overview
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		class, err := s.GetClass(ctx, classID)
		if err != nil {
			return err
		}
		overview.Class = *class
		return nil
	})
	g.Go(func() error {
		students, err := s.ListStudents(ctx, classID)
		overview.Students = students
		return err
	})
	g.Go(func() error {
		docs, err := s.ListDocuments(ctx, classID)
		overview.Documents = docs
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}
