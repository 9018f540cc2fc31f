// Package fakebackend is an in-memory implementation of the classroom REST
// backend. Tests and the CLI demo mode run against it.
package fakebackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/rs/zerolog/log"
)

// Envelope codes used by the fake. Only CodeSuccess is shared with clients.
const (
	CodeInvalidBody     = 1001
	CodeUnauthenticated = 1006
	CodeForbidden       = 1007
	CodeDuplicate       = 4000
	CodeNotFound        = 4004
	CodeInternal        = 9999
)

// Account is a user known to the fake backend.
type Account struct {
	User     users.User
	Password string
	Roles    users.Roles
}

type apiError struct {
	status  int
	code    int
	message string
}

func (e *apiError) Error() string {
	return e.message
}

func notFound(what string, id int64) *apiError {
	return &apiError{status: http.StatusNotFound, code: CodeNotFound, message: fmt.Sprintf("%s %d not found", what, id)}
}

func badRequest(message string) *apiError {
	return &apiError{status: http.StatusBadRequest, code: CodeInvalidBody, message: message}
}

type failure struct {
	status  int
	code    int
	message string
}

type contextKey string

const contextKeyAccount contextKey = "account"

const defaultTokenTTL = time.Hour

// Backend holds the whole fake server state behind one mutex.
type Backend struct {
	server   *httptest.Server
	push     *pushHub
	tokenTTL time.Duration
	nowTime  func() time.Time

	mu          sync.Mutex
	nextID      int64
	accounts    map[int64]*Account
	tokens      *tokenMinter
	classes     map[int64]*classroom.Class
	roster      map[int64][]int64
	documents   map[int64]*classroom.Document
	attendance  []classroom.AttendanceRecord
	leave       map[int64]*classroom.AbsenceRequest
	questions   map[int64]*classroom.Question
	exams       map[int64]*classroom.Exam
	attempts    map[int64]*attempt
	results     map[int64]*classroom.ExamResult
	assignments map[int64]*classroom.Assignment
	submissions map[int64]*classroom.Submission
	files       map[string][]byte
	notices     map[int64][]classroom.Notice
	calls       map[string]int
	failures    map[string][]failure
}

type attempt struct {
	examID    int64
	studentID int64
	answers   map[int64]string
}

// Option configures a Backend.
type Option func(*Backend)

// WithTokenTTL sets the lifetime of issued access tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.tokenTTL = ttl
	}
}

// WithNowTime sets the clock used to sign and check tokens (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(b *Backend) {
		b.nowTime = nowFunc
	}
}

// New starts a fake backend on a local port. Callers must Close it.
func New(options ...Option) *Backend {
	b := &Backend{
		push:        newPushHub(),
		tokenTTL:    defaultTokenTTL,
		nowTime:     time.Now,
		nextID:      100,
		accounts:    make(map[int64]*Account),
		classes:     make(map[int64]*classroom.Class),
		roster:      make(map[int64][]int64),
		documents:   make(map[int64]*classroom.Document),
		leave:       make(map[int64]*classroom.AbsenceRequest),
		questions:   make(map[int64]*classroom.Question),
		exams:       make(map[int64]*classroom.Exam),
		attempts:    make(map[int64]*attempt),
		results:     make(map[int64]*classroom.ExamResult),
		assignments: make(map[int64]*classroom.Assignment),
		submissions: make(map[int64]*classroom.Submission),
		files:       make(map[string][]byte),
		notices:     make(map[int64][]classroom.Notice),
		calls:       make(map[string]int),
		failures:    make(map[string][]failure),
	}
	for _, opt := range options {
		opt(b)
	}
	b.tokens = newTokenMinter(b.tokenTTL, b.nowTime)
	b.server = httptest.NewServer(b.routes())
	return b
}

// URL is the base URL clients should use.
func (b *Backend) URL() string {
	return b.server.URL
}

// PushURL is the websocket origin of the push endpoint.
func (b *Backend) PushURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

func (b *Backend) Close() {
	b.push.closeAll()
	b.server.Close()
}

// AddAccount registers a user that can sign in.
func (b *Backend) AddAccount(acc Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := acc
	b.accounts[acc.User.ID] = &a
}

// IssueToken returns a signed bearer token for an existing account. It
// panics when the account is unknown.
func (b *Backend) IssueToken(userID int64) string {
	b.mu.Lock()
	acc, ok := b.accounts[userID]
	b.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("fakebackend: no account %d", userID))
	}
	token, err := b.tokens.mint(acc)
	if err != nil {
		panic(err)
	}
	return token
}

// RevokeToken makes token invalid; subsequent calls get 401.
func (b *Backend) RevokeToken(token string) {
	b.tokens.revoke(token)
}

// AddClass stores class with a fresh id and returns it.
func (b *Backend) AddClass(class classroom.Class, studentIDs ...int64) classroom.Class {
	b.mu.Lock()
	defer b.mu.Unlock()
	class.ID = b.id()
	class.StudentCount = len(studentIDs)
	b.classes[class.ID] = &class
	b.roster[class.ID] = append([]int64(nil), studentIDs...)
	return class
}

func (b *Backend) AddQuestion(q classroom.Question) classroom.Question {
	b.mu.Lock()
	defer b.mu.Unlock()
	q.ID = b.id()
	b.questions[q.ID] = &q
	return q
}

func (b *Backend) AddAssignment(a classroom.Assignment, file []byte) classroom.Assignment {
	b.mu.Lock()
	defer b.mu.Unlock()
	a.ID = b.id()
	b.assignments[a.ID] = &a
	if file != nil {
		b.files[fileKey("assignment", a.ID)] = file
	}
	return a
}

// Notify stores a notice for userID and pushes an event to its subscribers.
func (b *Backend) Notify(userID int64, content, kind string) classroom.Notice {
	b.mu.Lock()
	n := classroom.Notice{ID: b.id(), Content: content, Type: kind, CreateAt: "2024-03-01T09:00:00"}
	b.notices[userID] = append(b.notices[userID], n)
	b.mu.Unlock()

	b.Push(userID)
	return n
}

// Push sends one event to every subscriber of userID without changing state.
func (b *Backend) Push(userID int64) {
	b.push.send(userID, map[string]any{"type": "NOTICE", "userId": userID})
}

// Subscribers returns how many push connections userID has open.
func (b *Backend) Subscribers(userID int64) int {
	return b.push.count(userID)
}

// Calls returns how often method was called on a route pattern such as
// "/classes/{id}/students".
func (b *Backend) Calls(method, pattern string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+pattern]
}

// FailNext makes the next call to method+pattern answer HTTP 200 with a
// non-success envelope code.
func (b *Backend) FailNext(method, pattern string, code int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + pattern
	b.failures[key] = append(b.failures[key], failure{status: http.StatusOK, code: code, message: message})
}

// FailNextStatus makes the next call to method+pattern answer with status.
func (b *Backend) FailNextStatus(method, pattern string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + pattern
	b.failures[key] = append(b.failures[key], failure{status: status, code: status, message: message})
}

// Seed loads a small school: a teacher, two students, one class with a few of
// everything. It returns the teacher and student accounts.
func (b *Backend) Seed() (teacher, student Account) {
	teacher = Account{
		User:     users.User{ID: 1, Username: "teacher", Email: "teacher@example.com", FirstName: "Maria", LastName: "Montessori"},
		Password: "Password1",
		Roles:    users.Roles{users.RoleTeacher},
	}
	student = Account{
		User:     users.User{ID: 7, Username: "student", Email: "student@example.com", FirstName: "Ada", LastName: "Lovelace"},
		Password: "Password1",
		Roles:    users.Roles{users.RoleStudent},
	}
	other := Account{
		User:     users.User{ID: 8, Username: "alan", Email: "alan@example.com", FirstName: "Alan", LastName: "Turing"},
		Password: "Password1",
		Roles:    users.Roles{users.RoleStudent},
	}
	b.AddAccount(teacher)
	b.AddAccount(student)
	b.AddAccount(other)

	math := b.AddClass(classroom.Class{Name: "Mathematics", Code: "MATH1", TeacherID: 1, TeacherName: "Maria Montessori"}, 7, 8)
	b.AddClass(classroom.Class{Name: "Art", Code: "ART1", TeacherID: 1, TeacherName: "Maria Montessori"}, 7)

	b.mu.Lock()
	doc := classroom.Document{ID: b.id(), ClassID: math.ID, Title: "Syllabus", Content: "Algebra, geometry, calculus."}
	b.documents[doc.ID] = &doc
	b.mu.Unlock()

	q1 := b.AddQuestion(classroom.Question{ClassID: math.ID, Content: "2 + 2 = ?", Options: []string{"3", "4"}, Answer: "4"})
	b.AddQuestion(classroom.Question{ClassID: math.ID, Content: "3 * 3 = ?", Options: []string{"6", "9"}, Answer: "9"})

	b.mu.Lock()
	exam := classroom.Exam{ID: b.id(), ClassID: math.ID, Title: "Quiz 1", DurationMinutes: 15, Questions: []classroom.Question{*b.questions[q1.ID]}}
	b.exams[exam.ID] = &exam
	b.mu.Unlock()

	b.AddAssignment(classroom.Assignment{ClassID: math.ID, Title: "Homework 1", DueDate: "2024-03-15", FileName: "homework1.txt"}, []byte("Solve problems 1-10."))
	b.Notify(7, "Welcome to Mathematics", "CLASS")
	return teacher, student
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(logRequests, recoverPanics)

	r.Post("/auth/token", b.endpoint(b.signIn))
	r.Get("/auth/validate", b.validate)
	r.Get("/ws/notices", b.requireAuthFunc(b.subscribe))

	r.Group(func(r chi.Router) {
		r.Use(b.requireAuth)

		r.Get("/users/me", b.endpoint(b.me))
		r.Put("/users/me", b.endpoint(b.updateMe))
		r.Put("/users/me/password", b.endpoint(b.changePassword))

		r.Get("/classes", b.endpoint(b.listClasses))
		r.Post("/classes", b.endpoint(b.createClass))
		r.Route("/classes/{id}", func(r chi.Router) {
			r.Get("/", b.endpoint(b.getClass))
			r.Get("/students", b.endpoint(b.listStudents))
			r.Post("/students", b.endpoint(b.addStudent))
			r.Delete("/students/{sid}", b.endpoint(b.removeStudent))
			r.Get("/documents", b.endpoint(b.listDocuments))
			r.Post("/documents", b.endpoint(b.createDocument))
			r.Get("/attendance", b.endpoint(b.listAttendance))
			r.Post("/attendance", b.endpoint(b.recordAttendance))
			r.Get("/leave-requests", b.endpoint(b.listLeave))
			r.Post("/leave-requests", b.endpoint(b.requestLeave))
			r.Get("/questions", b.endpoint(b.listQuestions))
			r.Get("/questions/search", b.endpoint(b.searchQuestions))
			r.Post("/questions", b.endpoint(b.createQuestion))
			r.Get("/exams", b.endpoint(b.listExams))
			r.Post("/exams", b.endpoint(b.createExam))
			r.Post("/exams/random", b.endpoint(b.createRandomExam))
			r.Post("/exams/choose", b.endpoint(b.createChosenExam))
			r.Get("/assignments", b.endpoint(b.listAssignments))
			r.Post("/assignments", b.endpoint(b.createAssignment))
			r.Get("/scores", b.endpoint(b.classScores))
			r.Get("/scores/export", b.exportScores)
		})

		r.Put("/documents/{id}", b.endpoint(b.updateDocument))
		r.Delete("/documents/{id}", b.endpoint(b.deleteDocument))
		r.Put("/leave-requests/{id}/approve", b.endpoint(b.decideLeave(classroom.RequestApproved)))
		r.Put("/leave-requests/{id}/reject", b.endpoint(b.decideLeave(classroom.RequestRejected)))
		r.Put("/questions/{id}", b.endpoint(b.updateQuestion))
		r.Delete("/questions/{id}", b.endpoint(b.deleteQuestion))
		r.Put("/exams/{id}", b.endpoint(b.updateExam))
		r.Delete("/exams/{id}", b.endpoint(b.deleteExam))
		r.Post("/exams/{id}/start", b.endpoint(b.startExam))
		r.Post("/exams/{id}/submit", b.endpoint(b.submitExam))
		r.Get("/exams/{id}/results", b.endpoint(b.examResults))
		r.Get("/exams/{id}/scores", b.endpoint(b.examScores))
		r.Post("/exam-submissions/{id}/answers", b.endpoint(b.saveAnswer))
		r.Put("/assignments/{id}", b.endpoint(b.updateAssignment))
		r.Delete("/assignments/{id}", b.endpoint(b.deleteAssignment))
		r.Get("/assignments/{id}/file", b.downloadAssignment)
		r.Get("/assignments/{id}/submissions", b.endpoint(b.listSubmissions))
		r.Post("/assignments/{id}/submissions", b.endpoint(b.submit))
		r.Delete("/submissions/{id}", b.endpoint(b.deleteSubmission))
		r.Put("/submissions/{id}/grade", b.endpoint(b.gradeSubmission))
		r.Get("/submissions/{id}/file", b.downloadSubmission)
		r.Get("/notices", b.endpoint(b.listNotices))
		r.Put("/notices/{id}/read", b.endpoint(b.markNoticeRead))
	})
	return r
}

type handler func(r *http.Request, acc *Account) (any, error)

// endpoint records the call, applies injected failures and writes the
// handler's result inside the envelope.
func (b *Backend) endpoint(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.record(w, r) {
			return
		}
		acc, _ := r.Context().Value(contextKeyAccount).(*Account)

		raw, err := b.call(h, r, acc)
		if err != nil {
			apiErr, ok := err.(*apiError)
			if !ok {
				apiErr = &apiError{status: http.StatusInternalServerError, code: CodeInternal, message: err.Error()}
			}
			writeEnvelope(w, apiErr.status, apiErr.code, apiErr.message, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, api.CodeSuccess, "", raw)
	}
}

// call runs h under the state lock. Results may point into state, so they are
// encoded before unlocking.
func (b *Backend) call(h handler, r *http.Request, acc *Account) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	result, err := h(r, acc)
	if err != nil || result == nil {
		return nil, err
	}
	return json.Marshal(result)
}

// record counts the call and answers with an injected failure if one is
// queued for the route. It reports whether the response has been written.
func (b *Backend) record(w http.ResponseWriter, r *http.Request) bool {
	key := r.Method + " " + routePattern(r)

	b.mu.Lock()
	b.calls[key]++
	var f *failure
	if queued := b.failures[key]; len(queued) > 0 {
		f = &queued[0]
		b.failures[key] = queued[1:]
	}
	b.mu.Unlock()

	if f == nil {
		return false
	}
	writeEnvelope(w, f.status, f.code, f.message, nil)
	return true
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	return strings.TrimSuffix(rctx.RoutePattern(), "/")
}

func (b *Backend) requireAuth(next http.Handler) http.Handler {
	return b.requireAuthFunc(next.ServeHTTP)
}

func (b *Backend) requireAuthFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc := b.authenticate(r)
		if acc == nil {
			writeEnvelope(w, http.StatusUnauthorized, CodeUnauthenticated, "Unauthenticated", nil)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyAccount, acc)
		next(w, r.WithContext(ctx))
	}
}

func (b *Backend) authenticate(r *http.Request) *Account {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return nil
	}
	userID, ok := b.tokens.verify(token)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[userID]
	if !ok {
		return nil
	}
	copied := *acc
	return &copied
}

func (b *Backend) validate(w http.ResponseWriter, r *http.Request) {
	if b.record(w, r) {
		return
	}
	if b.authenticate(r) == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeEnvelope(w http.ResponseWriter, status, code int, message string, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(api.Envelope[any]{Code: code, Message: message, Result: result}); err != nil {
		log.Warn().Err(err).Msg("fakebackend: write response")
	}
}

// id must be called with mu held.
func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}

func requireTeacher(acc *Account) error {
	if acc == nil || !acc.Roles.IsTeacher() {
		return &apiError{status: http.StatusForbidden, code: CodeForbidden, message: "Teachers only"}
	}
	return nil
}

func sortedValues[T any](m map[int64]*T, keep func(*T) bool) []T {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m[id])
	}
	return out
}

func paginate[T any](items []T, r *http.Request, base api.PageBase, defaultSize int) (api.Page[T], error) {
	number := int(base)
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < int(base) {
			return api.Page[T]{}, badRequest("invalid page")
		}
		number = n
	}
	size := defaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return api.Page[T]{}, badRequest("invalid size")
		}
		size = n
	}

	total := (len(items) + size - 1) / size
	start := base.Index(number) * size
	content := []T{}
	if start < len(items) {
		end := min(start+size, len(items))
		content = append(content, items[start:end]...)
	}
	return api.Page[T]{Content: content, TotalPages: total, TotalElements: int64(len(items)), Number: number}, nil
}

func fileKey(kind string, id int64) string {
	return kind + "/" + strconv.FormatInt(id, 10)
}
