package classroom

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/pkg/errors"
)

// ListQuestions returns one page of a class's question bank. page is
// zero-based; the endpoint itself counts from one.
func (s *Service) ListQuestions(ctx context.Context, classID int64, page int) (api.Page[Question], error) {
	result, err := getPage[Question](ctx, s.client, classPath(classID, "/questions"), pageQuery(QuestionPageBase, page, QuestionPageSize), QuestionPageBase)
	if err != nil {
		return result, errors.Wrapf(err, "[Service.ListQuestions] class %d", classID)
	}
	return result, nil
}

// SearchQuestions is ListQuestions filtered by keyword.
func (s *Service) SearchQuestions(ctx context.Context, classID int64, keyword string, page int) (api.Page[Question], error) {
	query := pageQuery(QuestionPageBase, page, QuestionPageSize)
	query.Set("keyword", keyword)
	result, err := getPage[Question](ctx, s.client, classPath(classID, "/questions/search"), query, QuestionPageBase)
	if err != nil {
		return result, errors.Wrapf(err, "[Service.SearchQuestions] class %d", classID)
	}
	return result, nil
}

func (s *Service) CreateQuestion(ctx context.Context, classID int64, q QuestionInput) error {
	if err := q.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, classPath(classID, "/questions"), q, "[Service.CreateQuestion]")
}

func (s *Service) UpdateQuestion(ctx context.Context, questionID int64, q QuestionInput) error {
	if err := q.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/questions/%d", questionID), q, "[Service.UpdateQuestion]")
}

func (s *Service) DeleteQuestion(ctx context.Context, questionID int64) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/questions/%d", questionID), nil, "[Service.DeleteQuestion]")
}

func (s *Service) ListExams(ctx context.Context, classID int64) ([]Exam, error) {
	exams, err := api.Get[[]Exam](ctx, s.client, classPath(classID, "/exams"), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ListExams] class %d", classID)
	}
	return exams, nil
}

func (s *Service) CreateExam(ctx context.Context, classID int64, exam ExamInput) (*Exam, error) {
	if err := exam.Validate(); err != nil {
		return nil, err
	}
	return s.createExam(ctx, classPath(classID, "/exams"), exam, "[Service.CreateExam]")
}

// CreateRandomExam lets the backend pick the questions.
func (s *Service) CreateRandomExam(ctx context.Context, classID int64, exam RandomExamInput) (*Exam, error) {
	if err := exam.Validate(); err != nil {
		return nil, err
	}
	return s.createExam(ctx, classPath(classID, "/exams/random"), exam, "[Service.CreateRandomExam]")
}

func (s *Service) CreateChosenExam(ctx context.Context, classID int64, exam ChooseExamInput) (*Exam, error) {
	if err := exam.Validate(); err != nil {
		return nil, err
	}
	return s.createExam(ctx, classPath(classID, "/exams/choose"), exam, "[Service.CreateChosenExam]")
}

func (s *Service) createExam(ctx context.Context, path string, body any, op string) (*Exam, error) {
	exam, err := api.Send[Exam](ctx, s.client, http.MethodPost, path, body)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	return &exam, nil
}

func (s *Service) UpdateExam(ctx context.Context, examID int64, exam ExamInput) error {
	if err := exam.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/exams/%d", examID), exam, "[Service.UpdateExam]")
}

func (s *Service) DeleteExam(ctx context.Context, examID int64) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/exams/%d", examID), nil, "[Service.DeleteExam]")
}

// StartExam opens an attempt for the signed in student.
func (s *Service) StartExam(ctx context.Context, examID int64) (*ExamAttempt, error) {
	attempt, err := api.Send[ExamAttempt](ctx, s.client, http.MethodPost, fmt.Sprintf("/exams/%d/start", examID), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.StartExam] exam %d", examID)
	}
	return &attempt, nil
}

// SaveAnswer records one answer of an attempt.
func (s *Service) SaveAnswer(ctx context.Context, submissionID int64, answer Answer) error {
	if err := answer.Validate(); err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/exam-submissions/%d/answers", submissionID), answer, "[Service.SaveAnswer]")
}

func (s *Service) SubmitExam(ctx context.Context, examID int64) (*ExamResult, error) {
	result, err := api.Send[ExamResult](ctx, s.client, http.MethodPost, fmt.Sprintf("/exams/%d/submit", examID), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.SubmitExam] exam %d", examID)
	}
	return &result, nil
}

func (s *Service) ExamResults(ctx context.Context, examID int64) ([]ExamResult, error) {
	results, err := api.Get[[]ExamResult](ctx, s.client, fmt.Sprintf("/exams/%d/results", examID), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ExamResults] exam %d", examID)
	}
	return results, nil
}
