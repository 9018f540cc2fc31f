package tabs

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/tab"
)

// Questions is the paginated question bank of a class. A non-empty
// Scope.Search switches the loader to keyword search.
type Questions struct {
	*tab.Controller[classroom.Question]
	deps Deps
}

func NewQuestions(d Deps) (*Questions, error) {
	loader := func(ctx context.Context, scope tab.Scope, page int) (api.Page[classroom.Question], error) {
		if keyword := strings.TrimSpace(scope.Search); keyword != "" {
			return d.Service.SearchQuestions(ctx, scope.ID, keyword, page)
		}
		return d.Service.ListQuestions(ctx, scope.ID, page)
	}
	c, err := newTab(d, "questions", loader, tab.Paginated())
	if err != nil {
		return nil, err
	}
	return &Questions{Controller: c, deps: d}, nil
}

// Search reloads the bank from the first page filtered by keyword. An empty
// keyword shows the whole bank again.
func (q *Questions) Search(ctx context.Context, keyword string) {
	scope := q.Snapshot().Scope
	scope.Search = keyword
	q.SetScope(ctx, scope)
}

func (q *Questions) Create(ctx context.Context, in classroom.QuestionInput) error {
	classID := q.Snapshot().Scope.ID
	return q.Mutate(ctx, tab.Mutation{
		Name:    "create question",
		Success: "Question created",
		Call: func(ctx context.Context) error {
			return q.deps.Service.CreateQuestion(ctx, classID, in)
		},
	})
}

func (q *Questions) Update(ctx context.Context, questionID int64, in classroom.QuestionInput) error {
	return q.Mutate(ctx, tab.Mutation{
		Name:    "update question",
		Success: "Question updated",
		Call: func(ctx context.Context) error {
			return q.deps.Service.UpdateQuestion(ctx, questionID, in)
		},
	})
}

func (q *Questions) Delete(ctx context.Context, questionID int64) error {
	return q.Mutate(ctx, tab.Mutation{
		Name:    "delete question",
		Confirm: "Delete this question?",
		Success: "Question deleted",
		Call: func(ctx context.Context) error {
			return q.deps.Service.DeleteQuestion(ctx, questionID)
		},
	})
}

// Exams lists the exams of a class and drives their lifecycle.
type Exams struct {
	*tab.Controller[classroom.Exam]
	deps Deps
}

func NewExams(d Deps) (*Exams, error) {
	c, err := newTab(d, "exams", listOf(d.Service.ListExams))
	if err != nil {
		return nil, err
	}
	return &Exams{Controller: c, deps: d}, nil
}

func (e *Exams) Create(ctx context.Context, in classroom.ExamInput) (*classroom.Exam, error) {
	classID := e.Snapshot().Scope.ID
	return e.create(ctx, "create exam", func(ctx context.Context) (*classroom.Exam, error) {
		return e.deps.Service.CreateExam(ctx, classID, in)
	})
}

// CreateRandom creates an exam from in.Count questions drawn by the backend.
func (e *Exams) CreateRandom(ctx context.Context, in classroom.RandomExamInput) (*classroom.Exam, error) {
	classID := e.Snapshot().Scope.ID
	return e.create(ctx, "create random exam", func(ctx context.Context) (*classroom.Exam, error) {
		return e.deps.Service.CreateRandomExam(ctx, classID, in)
	})
}

func (e *Exams) CreateChosen(ctx context.Context, in classroom.ChooseExamInput) (*classroom.Exam, error) {
	classID := e.Snapshot().Scope.ID
	return e.create(ctx, "create chosen exam", func(ctx context.Context) (*classroom.Exam, error) {
		return e.deps.Service.CreateChosenExam(ctx, classID, in)
	})
}

func (e *Exams) create(ctx context.Context, name string, call func(context.Context) (*classroom.Exam, error)) (*classroom.Exam, error) {
	var exam *classroom.Exam
	err := e.Mutate(ctx, tab.Mutation{
		Name:    name,
		Confirm: "Publish this exam to the class?",
		Success: "Exam created",
		Call: func(ctx context.Context) error {
			var err error
			exam, err = call(ctx)
			return err
		},
	})
	return exam, err
}

func (e *Exams) Update(ctx context.Context, examID int64, in classroom.ExamInput) error {
	return e.Mutate(ctx, tab.Mutation{
		Name:    "update exam",
		Success: "Exam updated",
		Call: func(ctx context.Context) error {
			return e.deps.Service.UpdateExam(ctx, examID, in)
		},
	})
}

func (e *Exams) Delete(ctx context.Context, examID int64) error {
	return e.Mutate(ctx, tab.Mutation{
		Name:    "delete exam",
		Confirm: "Delete this exam and its results?",
		Success: "Exam deleted",
		Call: func(ctx context.Context) error {
			return e.deps.Service.DeleteExam(ctx, examID)
		},
	})
}

// Start opens an attempt for the signed in student.
func (e *Exams) Start(ctx context.Context, examID int64) (*classroom.ExamAttempt, error) {
	var attempt *classroom.ExamAttempt
	err := e.Mutate(ctx, tab.Mutation{
		Name:    "start exam",
		Confirm: "Start the exam now? The timer cannot be paused.",
		Call: func(ctx context.Context) error {
			var err error
			attempt, err = e.deps.Service.StartExam(ctx, examID)
			return err
		},
	})
	return attempt, err
}

// SaveAnswer records one answer of an open attempt. It does not touch the list.
func (e *Exams) SaveAnswer(ctx context.Context, submissionID int64, answer classroom.Answer) error {
	return e.deps.Service.SaveAnswer(ctx, submissionID, answer)
}

func (e *Exams) Submit(ctx context.Context, examID int64) (*classroom.ExamResult, error) {
	var result *classroom.ExamResult
	err := e.Mutate(ctx, tab.Mutation{
		Name:    "submit exam",
		Confirm: "Submit your answers? You cannot change them afterwards.",
		Success: "Exam submitted",
		Call: func(ctx context.Context) error {
			var err error
			result, err = e.deps.Service.SubmitExam(ctx, examID)
			return err
		},
	})
	return result, err
}

// ExamResults lists the results of one exam; Scope.ID is the exam.
type ExamResults struct {
	*tab.Controller[classroom.ExamResult]
}

func NewExamResults(d Deps) (*ExamResults, error) {
	c, err := newTab(d, "exam-results", listOf(d.Service.ExamResults))
	if err != nil {
		return nil, err
	}
	return &ExamResults{Controller: c}, nil
}
