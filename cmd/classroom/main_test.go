package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/fakebackend"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type testFixture struct {
	input string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("CLASSROOM_DATA_FOLDER", t.TempDir())
	t.Setenv("CLASSROOM_LOG_LEVEL", "error")
	return &testFixture{}
}

func (f *testFixture) execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCommand(strings.NewReader(f.input), &out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDemoListsClasses(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.execute("--demo", "student", "classes")
	require.NoError(t, err)
	require.Contains(t, out, "Mathematics")
	require.Contains(t, out, "Art")
}

func TestYAMLOutput(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.execute("--demo", "teacher", "-o", "yaml", "classes")
	require.NoError(t, err)
	var classes []classroom.Class
	require.NoError(t, yaml.Unmarshal([]byte(out), &classes))
	require.Len(t, classes, 2)
	require.Equal(t, "MATH1", classes[0].Code)
}

func TestUnknownOutputFormat(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.execute("--demo", "teacher", "-o", "xml", "classes")
	require.ErrorContains(t, err, "unknown output format")
}

func TestDeleteAsksFirst(t *testing.T) {
	f := setupTestFixture(t)
	f.input = "n\n"

	out, err := f.execute("--demo", "teacher", "documents", "delete", "103", "--class", "101")
	require.NoError(t, err)
	require.Contains(t, out, "Delete this document? [y/N]")
	require.Contains(t, out, "Cancelled.")
}

func TestDeleteWithYes(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.execute("--demo", "teacher", "--yes", "documents", "delete", "103", "--class", "101")
	require.NoError(t, err)
	require.Contains(t, out, "Document deleted")
}

func TestServerMessageIsReturned(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.execute("--demo", "teacher", "classes", "create", "--name", "Again", "--code", "MATH1")
	require.EqualError(t, err, "Duplicate code")
}

func TestCommandsNeedSession(t *testing.T) {
	f := setupTestFixture(t)
	backend := fakebackend.New()
	t.Cleanup(backend.Close)

	_, err := f.execute("--base-url", backend.URL(), "classes")
	require.ErrorIs(t, err, clienterrors.ErrUnauthorized)
	require.Zero(t, backend.Calls("GET", "/classes"))
}

func TestLoginPersistsSession(t *testing.T) {
	f := setupTestFixture(t)
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	backend.Seed()

	out, err := f.execute("--base-url", backend.URL(), "login", "-u", "student", "-p", "Password1")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Ada Lovelace (STUDENT).")

	out, err = f.execute("--base-url", backend.URL(), "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "username: student")
	require.Contains(t, out, "tokenType: jwt")
	require.Equal(t, 1, backend.Calls("GET", "/auth/validate"))

	_, err = f.execute("--base-url", backend.URL(), "logout")
	require.NoError(t, err)
	_, err = f.execute("--base-url", backend.URL(), "whoami")
	require.ErrorIs(t, err, clienterrors.ErrUnauthorized)
}

func TestWrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	backend.Seed()
	f.input = "student\nnope\n"

	_, err := f.execute("--base-url", backend.URL(), "login")
	require.EqualError(t, err, "Invalid username or password")
}

func TestMarkNoticeRead(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.execute("--demo", "student", "notices", "read", "108")
	require.NoError(t, err)
	require.Contains(t, out, "Marked as read. 0 unread.")
}

func TestRejectedNoticesEndSession(t *testing.T) {
	f := setupTestFixture(t)
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	backend.Seed()

	_, err := f.execute("--base-url", backend.URL(), "login", "-u", "student", "-p", "Password1")
	require.NoError(t, err)

	backend.FailNextStatus("GET", "/notices", 401, "Token revoked")
	_, err = f.execute("--base-url", backend.URL(), "notices")
	require.EqualError(t, err, "Token revoked")

	_, err = f.execute("--base-url", backend.URL(), "whoami")
	require.ErrorIs(t, err, clienterrors.ErrUnauthorized)
}
