package tabs_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/download"
	"github.com/jrsteele09/go-classroom-client/fakebackend"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/tab"
	"github.com/jrsteele09/go-classroom-client/tabs"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type testFixture struct {
	ctx          context.Context
	backend      *fakebackend.Backend
	teacher      fakebackend.Account
	student      fakebackend.Account
	unauthorized atomic.Int32
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	teacher, student := backend.Seed()
	return &testFixture{ctx: context.Background(), backend: backend, teacher: teacher, student: student}
}

// deps signs acc in and returns tab dependencies that approve every prompt.
func (f *testFixture) deps(t *testing.T, acc fakebackend.Account, opts ...tab.Option) (tabs.Deps, string) {
	t.Helper()
	token := f.backend.IssueToken(acc.User.ID)
	client, err := api.NewClient(f.backend.URL(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	require.NoError(t, err)
	service, err := classroom.NewService(client)
	require.NoError(t, err)

	base := []tab.Option{
		tab.WithConfirmer(tab.Approve),
		tab.WithOnUnauthorized(func(error) { f.unauthorized.Add(1) }),
	}
	return tabs.Deps{Service: service, Options: append(base, opts...)}, token
}

func (f *testFixture) mathClass(t *testing.T, d tabs.Deps) classroom.Class {
	t.Helper()
	page, err := d.Service.ListClasses(f.ctx, 0)
	require.NoError(t, err)
	for _, c := range page.Content {
		if c.Code == "MATH1" {
			return c
		}
	}
	t.Fatal("seeded class missing")
	return classroom.Class{}
}

func TestStudentSeesTheirClasses(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.student)

	classes, err := tabs.NewClasses(d)
	require.NoError(t, err)
	t.Cleanup(classes.Close)

	classes.Mount(f.ctx, tab.Scope{})
	snap := classes.Snapshot()
	require.Equal(t, tab.StatusLoaded, snap.Status)
	require.Len(t, snap.Items, 2)
	require.Equal(t, 1, snap.TotalPages)
	require.Equal(t, 1, f.backend.Calls(http.MethodGet, "/classes"))
}

func TestDuplicateClassCodeKeepsFormOpen(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.teacher)
	classes, err := tabs.NewClasses(d)
	require.NoError(t, err)
	t.Cleanup(classes.Close)

	classes.Mount(f.ctx, tab.Scope{})
	classes.OpenForm()

	err = classes.Create(f.ctx, classroom.NewClass{Name: "Maths again", Code: "MATH1"})
	require.Error(t, err)

	snap := classes.Snapshot()
	require.Equal(t, "Duplicate code", snap.Error)
	require.True(t, snap.FormOpen)
	require.Len(t, snap.Items, 2)
	require.Equal(t, 1, f.backend.Calls(http.MethodGet, "/classes"))
}

func TestCreateClassRefetchesOnce(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.teacher)
	classes, err := tabs.NewClasses(d)
	require.NoError(t, err)
	t.Cleanup(classes.Close)

	classes.Mount(f.ctx, tab.Scope{})
	classes.OpenForm()
	require.NoError(t, classes.Create(f.ctx, classroom.NewClass{Name: "Physics", Code: "PHYS1"}))

	snap := classes.Snapshot()
	require.False(t, snap.FormOpen)
	require.Equal(t, "Class created", snap.Flash)
	require.Len(t, snap.Items, 3)
	require.Equal(t, 1, f.backend.Calls(http.MethodPost, "/classes"))
	require.Equal(t, 2, f.backend.Calls(http.MethodGet, "/classes"))
}

func TestInvalidInputNeverReachesBackend(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.teacher)
	classes, err := tabs.NewClasses(d)
	require.NoError(t, err)
	t.Cleanup(classes.Close)

	classes.Mount(f.ctx, tab.Scope{})
	err = classes.Create(f.ctx, classroom.NewClass{Code: "X1"})
	require.ErrorIs(t, err, clienterrors.ErrInvalidInput)
	require.Contains(t, classes.Snapshot().Error, "name")
	require.Zero(t, f.backend.Calls(http.MethodPost, "/classes"))
}

func TestDeleteWithoutConfirmerSendsNothing(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.teacher)
	d.Options = nil
	math := f.mathClass(t, d)

	docs, err := tabs.NewDocuments(d)
	require.NoError(t, err)
	t.Cleanup(docs.Close)
	docs.Mount(f.ctx, tab.Scope{ID: math.ID})
	require.Len(t, docs.Snapshot().Items, 1)

	err = docs.Delete(f.ctx, docs.Snapshot().Items[0].ID)
	require.ErrorIs(t, err, clienterrors.ErrNotConfirmed)
	require.Zero(t, f.backend.Calls(http.MethodDelete, "/documents/{id}"))
	require.Len(t, docs.Snapshot().Items, 1)
}

func TestDeleteDocumentTwice(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.teacher)
	math := f.mathClass(t, d)

	docs, err := tabs.NewDocuments(d)
	require.NoError(t, err)
	t.Cleanup(docs.Close)
	docs.Mount(f.ctx, tab.Scope{ID: math.ID})
	id := docs.Snapshot().Items[0].ID

	require.NoError(t, docs.Delete(f.ctx, id))
	require.Empty(t, docs.Snapshot().Items)

	err = docs.Delete(f.ctx, id)
	require.ErrorIs(t, err, clienterrors.ErrNotFound)
	snap := docs.Snapshot()
	require.NotEmpty(t, snap.Error)
	require.Empty(t, snap.Items)
	require.Equal(t, 2, f.backend.Calls(http.MethodDelete, "/documents/{id}"))
}

func TestQuestionsPaginateAndSearch(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.teacher)
	math := f.mathClass(t, d)
	for i := 0; i < 10; i++ {
		f.backend.AddQuestion(classroom.Question{ClassID: math.ID, Content: "Filler", Options: []string{"a", "b"}, Answer: "a"})
	}

	questions, err := tabs.NewQuestions(d)
	require.NoError(t, err)
	t.Cleanup(questions.Close)

	questions.Mount(f.ctx, tab.Scope{ID: math.ID})
	snap := questions.Snapshot()
	require.Len(t, snap.Items, classroom.QuestionPageSize)
	require.Equal(t, 2, snap.TotalPages)
	require.Equal(t, 0, snap.Page)

	require.NoError(t, questions.SetPage(f.ctx, 1))
	snap = questions.Snapshot()
	require.Len(t, snap.Items, 2)
	require.Equal(t, 1, snap.Page)
	require.ErrorIs(t, questions.SetPage(f.ctx, 2), clienterrors.ErrPageOutOfRange)

	questions.Search(f.ctx, "3 * 3")
	snap = questions.Snapshot()
	require.Equal(t, 0, snap.Page)
	require.Len(t, snap.Items, 1)
	require.Equal(t, 1, f.backend.Calls(http.MethodGet, "/classes/{id}/questions/search"))
}

func TestRevokedTokenCallsUnauthorizedHook(t *testing.T) {
	f := setupTestFixture(t)
	d, token := f.deps(t, f.student)
	f.backend.RevokeToken(token)

	classes, err := tabs.NewClasses(d)
	require.NoError(t, err)
	t.Cleanup(classes.Close)

	classes.Mount(f.ctx, tab.Scope{})
	require.Equal(t, tab.StatusError, classes.Snapshot().Status)
	require.EqualValues(t, 1, f.unauthorized.Load())
}

func TestStudentTakesExam(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.student)
	math := f.mathClass(t, d)

	exams, err := tabs.NewExams(d)
	require.NoError(t, err)
	t.Cleanup(exams.Close)
	exams.Mount(f.ctx, tab.Scope{ID: math.ID})
	require.Len(t, exams.Snapshot().Items, 1)
	exam := exams.Snapshot().Items[0]

	attempt, err := exams.Start(f.ctx, exam.ID)
	require.NoError(t, err)
	require.Len(t, attempt.Questions, 1)
	require.Empty(t, attempt.Questions[0].Answer)

	require.NoError(t, exams.SaveAnswer(f.ctx, attempt.SubmissionID, classroom.Answer{QuestionID: attempt.Questions[0].ID, Choice: "4"}))
	result, err := exams.Submit(f.ctx, exam.ID)
	require.NoError(t, err)
	require.InDelta(t, 10.0, result.Score, 0.001)
	require.Equal(t, "Exam submitted", exams.Snapshot().Flash)

	teacherDeps, _ := f.deps(t, f.teacher)
	results, err := tabs.NewExamResults(teacherDeps)
	require.NoError(t, err)
	t.Cleanup(results.Close)
	results.Mount(f.ctx, tab.Scope{ID: exam.ID})
	require.Len(t, results.Snapshot().Items, 1)
}

func TestCreateRandomExam(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.teacher)
	math := f.mathClass(t, d)

	exams, err := tabs.NewExams(d)
	require.NoError(t, err)
	t.Cleanup(exams.Close)
	exams.Mount(f.ctx, tab.Scope{ID: math.ID})

	exam, err := exams.CreateRandom(f.ctx, classroom.RandomExamInput{
		ExamInput: classroom.ExamInput{Title: "Pop quiz", DurationMinutes: 5},
		Count:     2,
	})
	require.NoError(t, err)
	require.Len(t, exam.Questions, 2)
	require.Len(t, exams.Snapshot().Items, 2)
}

func TestSubmitAndGradeAssignment(t *testing.T) {
	f := setupTestFixture(t)
	studentDeps, _ := f.deps(t, f.student)
	math := f.mathClass(t, studentDeps)

	assignments, err := tabs.NewAssignments(studentDeps)
	require.NoError(t, err)
	t.Cleanup(assignments.Close)
	assignments.Mount(f.ctx, tab.Scope{ID: math.ID})
	require.Len(t, assignments.Snapshot().Items, 1)
	homework := assignments.Snapshot().Items[0]

	mine, err := tabs.NewSubmissions(studentDeps)
	require.NoError(t, err)
	t.Cleanup(mine.Close)
	mine.Mount(f.ctx, tab.Scope{ID: homework.ID})
	require.NoError(t, mine.Submit(f.ctx, classroom.Attachment{Name: "answers.txt", Reader: strings.NewReader("42")}))
	require.Len(t, mine.Snapshot().Items, 1)

	teacherDeps, _ := f.deps(t, f.teacher)
	graded, err := tabs.NewSubmissions(teacherDeps)
	require.NoError(t, err)
	t.Cleanup(graded.Close)
	graded.Mount(f.ctx, tab.Scope{ID: homework.ID})
	sub := graded.Snapshot().Items[0]
	require.Nil(t, sub.Grade)

	require.NoError(t, graded.Grade(f.ctx, sub.ID, classroom.Grade{Score: 87, Feedback: "Good"}))
	sub = graded.Snapshot().Items[0]
	require.NotNil(t, sub.Grade)
	require.InDelta(t, 87.0, *sub.Grade, 0.001)
}

func TestStudentCannotGrade(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.student)
	math := f.mathClass(t, d)

	assignments, err := tabs.NewAssignments(d)
	require.NoError(t, err)
	t.Cleanup(assignments.Close)
	assignments.Mount(f.ctx, tab.Scope{ID: math.ID})
	homework := assignments.Snapshot().Items[0]

	subs, err := tabs.NewSubmissions(d)
	require.NoError(t, err)
	t.Cleanup(subs.Close)
	subs.Mount(f.ctx, tab.Scope{ID: homework.ID})
	require.NoError(t, subs.Submit(f.ctx, classroom.Attachment{Name: "a.txt", Reader: strings.NewReader("x")}))

	err = subs.Grade(f.ctx, subs.Snapshot().Items[0].ID, classroom.Grade{Score: 100})
	require.Error(t, err)
	require.NotEmpty(t, subs.Snapshot().Error)
	require.Zero(t, f.unauthorized.Load())
}

func TestDownloadsNeedDownloader(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.teacher)

	assignments, err := tabs.NewAssignments(d)
	require.NoError(t, err)
	t.Cleanup(assignments.Close)

	_, err = assignments.Download(f.ctx, 1)
	require.ErrorIs(t, err, clienterrors.ErrUnsupported)
}

func TestExportGradeBook(t *testing.T) {
	f := setupTestFixture(t)
	d, _ := f.deps(t, f.teacher)
	math := f.mathClass(t, d)

	dir := t.TempDir()
	dl, err := download.New(d.Service.Client(), download.CopyTo(dir), download.WithTempDir(t.TempDir()))
	require.NoError(t, err)
	d.Downloader = dl

	grades, err := tabs.NewGrades(d)
	require.NoError(t, err)
	t.Cleanup(grades.Close)
	grades.Mount(f.ctx, tab.Scope{ID: math.ID})
	require.Len(t, grades.Snapshot().Items, 2)

	result, err := grades.Export(f.ctx)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, result.Filename))
	require.NoError(t, err)
	require.Contains(t, string(data), "Ada Lovelace")
}

func TestAbsenceRequestLifecycle(t *testing.T) {
	f := setupTestFixture(t)
	studentDeps, _ := f.deps(t, f.student)
	math := f.mathClass(t, studentDeps)

	mine, err := tabs.NewAbsenceRequests(studentDeps)
	require.NoError(t, err)
	t.Cleanup(mine.Close)
	mine.Mount(f.ctx, tab.Scope{ID: math.ID})
	require.NoError(t, mine.Request(f.ctx, classroom.NewAbsenceRequest{Date: "2024-03-04", Reason: "Dentist"}))
	require.Len(t, mine.Snapshot().Items, 1)

	teacherDeps, _ := f.deps(t, f.teacher)
	inbox, err := tabs.NewAbsenceRequests(teacherDeps)
	require.NoError(t, err)
	t.Cleanup(inbox.Close)
	inbox.Mount(f.ctx, tab.Scope{ID: math.ID})
	req := inbox.Snapshot().Items[0]
	require.Equal(t, classroom.RequestPending, req.Status)

	require.NoError(t, inbox.Reject(f.ctx, req.ID))
	require.Equal(t, classroom.RequestRejected, inbox.Snapshot().Items[0].Status)
}
