package classroom_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/fakebackend"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type testFixture struct {
	ctx     context.Context
	backend *fakebackend.Backend
	teacher fakebackend.Account
	student fakebackend.Account
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	teacher, student := backend.Seed()
	return &testFixture{ctx: context.Background(), backend: backend, teacher: teacher, student: student}
}

func (f *testFixture) service(t *testing.T, tokens oauth2.TokenSource) *classroom.Service {
	t.Helper()
	client, err := api.NewClient(f.backend.URL(), tokens)
	require.NoError(t, err)
	svc, err := classroom.NewService(client)
	require.NoError(t, err)
	return svc
}

func (f *testFixture) signedIn(t *testing.T, acc fakebackend.Account) *classroom.Service {
	t.Helper()
	token := f.backend.IssueToken(acc.User.ID)
	return f.service(t, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

func (f *testFixture) mathClassID(t *testing.T, svc *classroom.Service) int64 {
	t.Helper()
	page, err := svc.ListClasses(f.ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, page.Content)
	return page.Content[0].ID
}

func TestNewServiceRequiresClient(t *testing.T) {
	_, err := classroom.NewService(nil)
	require.Error(t, err)
}

func TestSignIn(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.service(t, oauth2.StaticTokenSource(&oauth2.Token{}))

	result, err := svc.SignIn(f.ctx, classroom.Credentials{Username: "student", Password: "Password1"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, f.student.User.ID, result.User.ID)
	require.Equal(t, users.Roles{users.RoleStudent}, users.ParseRoles(result.Roles))
}

func TestSignInWrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.service(t, oauth2.StaticTokenSource(&oauth2.Token{}))

	_, err := svc.SignIn(f.ctx, classroom.Credentials{Username: "student", Password: "nope"})
	require.Error(t, err)
	require.Equal(t, "Invalid username or password", api.UserMessage(err, ""))
}

func TestSignInValidatesBeforeNetwork(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.service(t, oauth2.StaticTokenSource(&oauth2.Token{}))

	_, err := svc.SignIn(f.ctx, classroom.Credentials{Username: "student"})
	require.ErrorIs(t, err, clienterrors.ErrInvalidInput)
	require.Zero(t, f.backend.Calls(http.MethodPost, "/auth/token"))
}

func TestClassPagesAreZeroBased(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.teacher)
	for i := 0; i < classroom.ClassPageSize; i++ {
		f.backend.AddClass(classroom.Class{Name: "Extra", Code: "EX", TeacherID: f.teacher.User.ID})
	}

	first, err := svc.ListClasses(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, first.Content, classroom.ClassPageSize)
	require.Equal(t, 2, first.TotalPages)
	require.Equal(t, 0, first.Number)

	second, err := svc.ListClasses(f.ctx, 1)
	require.NoError(t, err)
	require.Len(t, second.Content, 2)
	require.Equal(t, 1, second.Number)
}

func TestQuestionPagesAreOneBasedOnTheWire(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.teacher)
	classID := f.mathClassID(t, svc)

	page, err := svc.ListQuestions(f.ctx, classID, 0)
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	require.Equal(t, 0, page.Number)

	found, err := svc.SearchQuestions(f.ctx, classID, "2 + 2", 0)
	require.NoError(t, err)
	require.Len(t, found.Content, 1)
	require.Equal(t, "4", found.Content[0].Answer)
}

func TestClassOverviewFetchesInParallel(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.student)
	classID := f.mathClassID(t, svc)

	overview, err := svc.ClassOverview(f.ctx, classID)
	require.NoError(t, err)
	require.Equal(t, "Mathematics", overview.Class.Name)
	require.Len(t, overview.Students, 2)
	require.Len(t, overview.Documents, 1)
}

func TestClassOverviewFailsWhenAnyPartFails(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.student)
	classID := f.mathClassID(t, svc)
	f.backend.FailNextStatus(http.MethodGet, "/classes/{id}/documents", http.StatusInternalServerError, "")

	_, err := svc.ClassOverview(f.ctx, classID)
	var httpErr *api.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusInternalServerError, httpErr.Status)
}

func TestMissingClassIsNotFound(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.teacher)

	_, err := svc.GetClass(f.ctx, 9999)
	require.ErrorIs(t, err, clienterrors.ErrNotFound)
	require.Equal(t, "Class 9999 not found", api.UserMessage(err, ""))
}

func TestAssignmentUploadAndDownload(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.teacher)
	classID := f.mathClassID(t, svc)

	err := svc.CreateAssignment(f.ctx, classID, classroom.AssignmentInput{
		Title:   "Essay",
		DueDate: "2024-04-01",
		File:    &classroom.Attachment{Name: "brief.txt", Reader: strings.NewReader("Write 500 words.")},
	})
	require.NoError(t, err)

	assignments, err := svc.ListAssignments(f.ctx, classID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	essay := assignments[1]
	require.Equal(t, "brief.txt", essay.FileName)

	blob, err := svc.Client().Download(f.ctx, classroom.AssignmentFilePath(essay.ID), nil)
	require.NoError(t, err)
	defer blob.Body.Close()
	data, err := io.ReadAll(blob.Body)
	require.NoError(t, err)
	require.Equal(t, "Write 500 words.", string(data))
	require.Equal(t, "brief.txt", blob.Filename)
}

func TestInvalidAssignmentIsRejectedLocally(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.teacher)
	classID := f.mathClassID(t, svc)

	err := svc.CreateAssignment(f.ctx, classID, classroom.AssignmentInput{Title: "Essay", DueDate: "tomorrow"})
	require.ErrorIs(t, err, clienterrors.ErrInvalidInput)
	require.Zero(t, f.backend.Calls(http.MethodPost, "/classes/{id}/assignments"))
}

func TestChangePassword(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.student)

	err := svc.ChangePassword(f.ctx, users.PasswordChange{OldPassword: "Wrong1234", NewPassword: "Better123", ConfirmPassword: "Better123"})
	require.Equal(t, "Old password is incorrect", api.UserMessage(err, ""))

	require.NoError(t, svc.ChangePassword(f.ctx, users.PasswordChange{OldPassword: "Password1", NewPassword: "Better123", ConfirmPassword: "Better123"}))
	_, err = svc.SignIn(f.ctx, classroom.Credentials{Username: "student", Password: "Better123"})
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.student)

	user, err := svc.UpdateProfile(f.ctx, users.ProfileUpdate{FirstName: "Augusta", LastName: "King", Email: "ada@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Augusta King", user.FullName())

	me, err := svc.Me(f.ctx)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", me.Email)
}

func TestNotices(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.student)

	notices, err := svc.ListNotices(f.ctx, f.student.User.ID)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	require.False(t, notices[0].Read)

	require.NoError(t, svc.MarkNoticeRead(f.ctx, notices[0].ID))
	notices, err = svc.ListNotices(f.ctx, f.student.User.ID)
	require.NoError(t, err)
	require.True(t, notices[0].Read)

	_, err = svc.ListNotices(f.ctx, f.teacher.User.ID)
	require.Error(t, err)
}

func TestAttendanceSheet(t *testing.T) {
	f := setupTestFixture(t)
	svc := f.signedIn(t, f.teacher)
	classID := f.mathClassID(t, svc)

	err := svc.RecordAttendance(f.ctx, classID, classroom.AttendanceSheet{
		Date: "2024-03-04",
		Records: []classroom.AttendanceMark{
			{StudentID: f.student.User.ID, Status: classroom.AttendancePresent},
			{StudentID: 8, Status: classroom.AttendanceLate},
		},
	})
	require.NoError(t, err)

	records, err := svc.ListAttendance(f.ctx, classID, "2024-03-04")
	require.NoError(t, err)
	require.Len(t, records, 2)

	none, err := svc.ListAttendance(f.ctx, classID, "2024-03-05")
	require.NoError(t, err)
	require.Empty(t, none)
}
