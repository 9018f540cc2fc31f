package fakebackend

import (
	"net/http"
	"slices"
	"strings"

	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/internal/utils"
	"github.com/jrsteele09/go-classroom-client/users"
)

// Handlers run with b.mu held.

func (b *Backend) signIn(r *http.Request, _ *Account) (any, error) {
	var creds classroom.Credentials
	if err := decode(r, &creds); err != nil {
		return nil, err
	}
	for _, acc := range b.accounts {
		if acc.User.Username == creds.Username && acc.Password == creds.Password {
			token, err := b.tokens.mint(acc)
			if err != nil {
				return nil, err
			}
			return classroom.SignInResult{Token: token, User: acc.User, Roles: acc.Roles.Strings()}, nil
		}
	}
	return nil, &apiError{status: http.StatusOK, code: CodeUnauthenticated, message: "Invalid username or password"}
}

func (b *Backend) me(_ *http.Request, acc *Account) (any, error) {
	return acc.User, nil
}

func (b *Backend) updateMe(r *http.Request, acc *Account) (any, error) {
	var update users.ProfileUpdate
	if err := decode(r, &update); err != nil {
		return nil, err
	}
	stored := b.accounts[acc.User.ID]
	stored.User.FirstName = update.FirstName
	stored.User.LastName = update.LastName
	stored.User.Email = update.Email
	stored.User.Dob = update.Dob
	return stored.User, nil
}

func (b *Backend) changePassword(r *http.Request, acc *Account) (any, error) {
	var change users.PasswordChange
	if err := decode(r, &change); err != nil {
		return nil, err
	}
	stored := b.accounts[acc.User.ID]
	if stored.Password != change.OldPassword {
		return nil, &apiError{status: http.StatusOK, code: CodeInvalidBody, message: "Old password is incorrect"}
	}
	stored.Password = change.NewPassword
	return nil, nil
}

func (b *Backend) visibleClasses(acc *Account) []classroom.Class {
	return sortedValues(b.classes, func(c *classroom.Class) bool {
		if acc.Roles.IsTeacher() {
			return c.TeacherID == acc.User.ID
		}
		return slices.Contains(b.roster[c.ID], acc.User.ID)
	})
}

func (b *Backend) listClasses(r *http.Request, acc *Account) (any, error) {
	return paginate(b.visibleClasses(acc), r, classroom.ClassPageBase, classroom.ClassPageSize)
}

func (b *Backend) createClass(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	var in classroom.NewClass
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	for _, c := range b.classes {
		if strings.EqualFold(c.Code, in.Code) {
			return nil, &apiError{status: http.StatusOK, code: CodeDuplicate, message: "Duplicate code"}
		}
	}
	class := &classroom.Class{ID: b.id(), Name: in.Name, Code: in.Code, Description: in.Description, TeacherID: acc.User.ID, TeacherName: acc.User.FullName()}
	b.classes[class.ID] = class
	return class, nil
}

func (b *Backend) class(r *http.Request) (*classroom.Class, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	class, ok := b.classes[id]
	if !ok {
		return nil, notFound("Class", id)
	}
	return class, nil
}

func (b *Backend) getClass(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	copied := *class
	copied.StudentCount = len(b.roster[class.ID])
	return copied, nil
}

func (b *Backend) listStudents(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	students := []classroom.Student{}
	for _, id := range b.roster[class.ID] {
		if acc, ok := b.accounts[id]; ok {
			students = append(students, classroom.Student{
				ID: id, Username: acc.User.Username, Email: acc.User.Email,
				FirstName: acc.User.FirstName, LastName: acc.User.LastName,
			})
		}
	}
	return students, nil
}

func (b *Backend) addStudent(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	var in classroom.AddStudent
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	for id, acc := range b.accounts {
		if strings.EqualFold(acc.User.Email, in.Email) {
			if slices.Contains(b.roster[class.ID], id) {
				return nil, &apiError{status: http.StatusOK, code: CodeDuplicate, message: "Student already in class"}
			}
			b.roster[class.ID] = append(b.roster[class.ID], id)
			return nil, nil
		}
	}
	return nil, &apiError{status: http.StatusOK, code: CodeNotFound, message: "No user with email " + in.Email}
}

func (b *Backend) removeStudent(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	sid, err := pathID(r, "sid")
	if err != nil {
		return nil, err
	}
	i := slices.Index(b.roster[class.ID], sid)
	if i < 0 {
		return nil, notFound("Student", sid)
	}
	b.roster[class.ID] = slices.Delete(b.roster[class.ID], i, i+1)
	return nil, nil
}

func (b *Backend) listDocuments(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	return sortedValues(b.documents, func(d *classroom.Document) bool { return d.ClassID == class.ID }), nil
}

func (b *Backend) createDocument(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	var in classroom.DocumentInput
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	doc := &classroom.Document{ID: b.id(), ClassID: class.ID, Title: in.Title, Content: in.Content}
	b.documents[doc.ID] = doc
	return doc, nil
}

func (b *Backend) updateDocument(r *http.Request, _ *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	doc, ok := b.documents[id]
	if !ok {
		return nil, notFound("Document", id)
	}
	var in classroom.DocumentInput
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	doc.Title, doc.Content = in.Title, in.Content
	return doc, nil
}

func (b *Backend) deleteDocument(r *http.Request, _ *Account) (any, error) {
	return deleteByID(r, b.documents, "Document")
}

func (b *Backend) listAttendance(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	date := r.URL.Query().Get("date")
	records := []classroom.AttendanceRecord{}
	for _, rec := range b.attendance {
		if rec.ClassID == class.ID && (date == "" || rec.Date == date) {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (b *Backend) recordAttendance(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	var sheet classroom.AttendanceSheet
	if err := decode(r, &sheet); err != nil {
		return nil, err
	}
	// a sheet replaces earlier marks for the same day
	b.attendance = slices.DeleteFunc(b.attendance, func(rec classroom.AttendanceRecord) bool {
		return rec.ClassID == class.ID && rec.Date == sheet.Date
	})
	for _, mark := range sheet.Records {
		name := ""
		if acc, ok := b.accounts[mark.StudentID]; ok {
			name = acc.User.FullName()
		}
		b.attendance = append(b.attendance, classroom.AttendanceRecord{
			ID: b.id(), ClassID: class.ID, StudentID: mark.StudentID, StudentName: name, Date: sheet.Date, Status: mark.Status,
		})
	}
	return nil, nil
}

func (b *Backend) listLeave(r *http.Request, acc *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	return sortedValues(b.leave, func(l *classroom.AbsenceRequest) bool {
		return l.ClassID == class.ID && (acc.Roles.IsTeacher() || l.StudentID == acc.User.ID)
	}), nil
}

func (b *Backend) requestLeave(r *http.Request, acc *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	var in classroom.NewAbsenceRequest
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	req := &classroom.AbsenceRequest{
		ID: b.id(), ClassID: class.ID, StudentID: acc.User.ID, StudentName: acc.User.FullName(),
		Date: in.Date, Reason: in.Reason, Status: classroom.RequestPending,
	}
	b.leave[req.ID] = req
	return req, nil
}

func (b *Backend) decideLeave(status classroom.RequestStatus) handler {
	return func(r *http.Request, acc *Account) (any, error) {
		if err := requireTeacher(acc); err != nil {
			return nil, err
		}
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		req, ok := b.leave[id]
		if !ok {
			return nil, notFound("Leave request", id)
		}
		if req.Status != classroom.RequestPending {
			return nil, &apiError{status: http.StatusOK, code: CodeDuplicate, message: "Request already " + strings.ToLower(string(req.Status))}
		}
		req.Status = status
		return req, nil
	}
}

func (b *Backend) classQuestions(classID int64, keyword string) []classroom.Question {
	keyword = strings.ToLower(keyword)
	return sortedValues(b.questions, func(q *classroom.Question) bool {
		return q.ClassID == classID && strings.Contains(strings.ToLower(q.Content), keyword)
	})
}

func (b *Backend) listQuestions(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	return paginate(b.classQuestions(class.ID, ""), r, classroom.QuestionPageBase, classroom.QuestionPageSize)
}

func (b *Backend) searchQuestions(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	return paginate(b.classQuestions(class.ID, r.URL.Query().Get("keyword")), r, classroom.QuestionPageBase, classroom.QuestionPageSize)
}

func (b *Backend) createQuestion(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	var in classroom.QuestionInput
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	q := &classroom.Question{ID: b.id(), ClassID: class.ID, Content: in.Content, Options: in.Options, Answer: in.Answer}
	b.questions[q.ID] = q
	return q, nil
}

func (b *Backend) updateQuestion(r *http.Request, _ *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	q, ok := b.questions[id]
	if !ok {
		return nil, notFound("Question", id)
	}
	var in classroom.QuestionInput
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	q.Content, q.Options, q.Answer = in.Content, in.Options, in.Answer
	return q, nil
}

func (b *Backend) deleteQuestion(r *http.Request, _ *Account) (any, error) {
	return deleteByID(r, b.questions, "Question")
}

func (b *Backend) listExams(r *http.Request, acc *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	exams := sortedValues(b.exams, func(e *classroom.Exam) bool { return e.ClassID == class.ID })
	if !acc.Roles.IsTeacher() {
		for i := range exams {
			exams[i].Questions = nil
		}
	}
	return exams, nil
}

func (b *Backend) newExam(r *http.Request, in classroom.ExamInput, questions []classroom.Question) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	exam := &classroom.Exam{
		ID: b.id(), ClassID: class.ID, Title: in.Title, Description: in.Description,
		StartTime: in.StartTime, DurationMinutes: in.DurationMinutes, Questions: questions,
	}
	b.exams[exam.ID] = exam
	return exam, nil
}

func (b *Backend) createExam(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	var in classroom.ExamInput
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	return b.newExam(r, in, nil)
}

func (b *Backend) createRandomExam(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	var in classroom.RandomExamInput
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	bank := b.classQuestions(class.ID, "")
	if in.Count > len(bank) {
		return nil, &apiError{status: http.StatusOK, code: CodeInvalidBody, message: "Not enough questions in the bank"}
	}
	// deterministic: the first Count questions
	return b.newExam(r, in.ExamInput, bank[:in.Count])
}

func (b *Backend) createChosenExam(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	var in classroom.ChooseExamInput
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	questions := make([]classroom.Question, 0, len(in.QuestionIDs))
	for _, id := range in.QuestionIDs {
		q, ok := b.questions[id]
		if !ok {
			return nil, notFound("Question", id)
		}
		questions = append(questions, *q)
	}
	return b.newExam(r, in.ExamInput, questions)
}

func (b *Backend) updateExam(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	exam, ok := b.exams[id]
	if !ok {
		return nil, notFound("Exam", id)
	}
	var in classroom.ExamInput
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	exam.Title, exam.Description, exam.StartTime, exam.DurationMinutes = in.Title, in.Description, in.StartTime, in.DurationMinutes
	return exam, nil
}

func (b *Backend) deleteExam(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	return deleteByID(r, b.exams, "Exam")
}

func (b *Backend) startExam(r *http.Request, acc *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	exam, ok := b.exams[id]
	if !ok {
		return nil, notFound("Exam", id)
	}
	sub := &attempt{examID: id, studentID: acc.User.ID, answers: make(map[int64]string)}
	subID := b.id()
	b.attempts[subID] = sub

	questions := make([]classroom.Question, len(exam.Questions))
	for i, q := range exam.Questions {
		q.Answer = ""
		questions[i] = q
	}
	return classroom.ExamAttempt{SubmissionID: subID, ExamID: id, StartedAt: "2024-03-01T09:00:00", Questions: questions}, nil
}

func (b *Backend) saveAnswer(r *http.Request, acc *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	sub, ok := b.attempts[id]
	if !ok || sub.studentID != acc.User.ID {
		return nil, notFound("Exam submission", id)
	}
	var answer classroom.Answer
	if err := decode(r, &answer); err != nil {
		return nil, err
	}
	sub.answers[answer.QuestionID] = answer.Choice
	return nil, nil
}

func (b *Backend) submitExam(r *http.Request, acc *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	exam, ok := b.exams[id]
	if !ok {
		return nil, notFound("Exam", id)
	}
	var sub *attempt
	var subID int64
	for sid, a := range b.attempts {
		if a.examID == id && a.studentID == acc.User.ID && sid > subID {
			sub, subID = a, sid
		}
	}
	if sub == nil {
		return nil, &apiError{status: http.StatusOK, code: CodeInvalidBody, message: "Exam not started"}
	}

	correct := 0
	for _, q := range exam.Questions {
		if sub.answers[q.ID] == q.Answer {
			correct++
		}
	}
	score := 0.0
	if len(exam.Questions) > 0 {
		score = float64(correct) * 10 / float64(len(exam.Questions))
	}
	result := &classroom.ExamResult{ID: subID, ExamID: id, StudentID: acc.User.ID, StudentName: acc.User.FullName(), Score: score}
	b.results[subID] = result
	delete(b.attempts, subID)
	return result, nil
}

func (b *Backend) examResults(r *http.Request, _ *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	if _, ok := b.exams[id]; !ok {
		return nil, notFound("Exam", id)
	}
	return sortedValues(b.results, func(res *classroom.ExamResult) bool { return res.ExamID == id }), nil
}

func (b *Backend) examScores(r *http.Request, _ *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	if _, ok := b.exams[id]; !ok {
		return nil, notFound("Exam", id)
	}
	scores := []classroom.ExamScore{}
	for _, res := range sortedValues(b.results, func(res *classroom.ExamResult) bool { return res.ExamID == id }) {
		scores = append(scores, classroom.ExamScore{StudentID: res.StudentID, StudentName: res.StudentName, Score: res.Score})
	}
	return scores, nil
}

func (b *Backend) classScores(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	return b.scoreBook(class.ID), nil
}

func (b *Backend) scoreBook(classID int64) []classroom.ScoreSummary {
	summaries := make([]classroom.ScoreSummary, 0, len(b.roster[classID]))
	for _, sid := range b.roster[classID] {
		acc, ok := b.accounts[sid]
		if !ok {
			continue
		}
		summary := classroom.ScoreSummary{StudentID: sid, StudentName: acc.User.FullName()}

		var examTotal float64
		for _, res := range b.results {
			if res.StudentID == sid && b.exams[res.ExamID] != nil && b.exams[res.ExamID].ClassID == classID {
				summary.CompletedExams++
				examTotal += res.Score
			}
		}
		if summary.CompletedExams > 0 {
			summary.ExamAverage = examTotal / float64(summary.CompletedExams)
		}

		var gradeTotal float64
		var graded int
		for _, sub := range b.submissions {
			a := b.assignments[sub.AssignmentID]
			if sub.StudentID != sid || a == nil || a.ClassID != classID {
				continue
			}
			summary.SubmittedAssignments++
			if sub.Grade != nil {
				gradeTotal += utils.Value(sub.Grade)
				graded++
			}
		}
		if graded > 0 {
			summary.AssignmentAverage = gradeTotal / float64(graded)
		}

		var marked, present int
		for _, rec := range b.attendance {
			if rec.ClassID == classID && rec.StudentID == sid {
				marked++
				if rec.Status == classroom.AttendancePresent || rec.Status == classroom.AttendanceLate {
					present++
				}
			}
		}
		if marked > 0 {
			summary.AttendanceRate = float64(present) / float64(marked)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func (b *Backend) listAssignments(r *http.Request, _ *Account) (any, error) {
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	return sortedValues(b.assignments, func(a *classroom.Assignment) bool { return a.ClassID == class.ID }), nil
}

func (b *Backend) createAssignment(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	class, err := b.class(r)
	if err != nil {
		return nil, err
	}
	form, err := readForm(r)
	if err != nil {
		return nil, err
	}
	if form.value("title") == "" {
		return nil, &apiError{status: http.StatusOK, code: CodeInvalidBody, message: "Title is required"}
	}
	a := &classroom.Assignment{ID: b.id(), ClassID: class.ID, Title: form.value("title"), Description: form.value("description"), DueDate: form.value("dueDate")}
	if form.file != nil {
		a.FileName = form.filename
		b.files[fileKey("assignment", a.ID)] = form.file
	}
	b.assignments[a.ID] = a
	return a, nil
}

func (b *Backend) updateAssignment(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	a, ok := b.assignments[id]
	if !ok {
		return nil, notFound("Assignment", id)
	}
	form, err := readForm(r)
	if err != nil {
		return nil, err
	}
	a.Title, a.Description, a.DueDate = form.value("title"), form.value("description"), form.value("dueDate")
	if form.file != nil {
		a.FileName = form.filename
		b.files[fileKey("assignment", a.ID)] = form.file
	}
	return a, nil
}

func (b *Backend) deleteAssignment(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	return deleteByID(r, b.assignments, "Assignment")
}

func (b *Backend) listSubmissions(r *http.Request, acc *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	if _, ok := b.assignments[id]; !ok {
		return nil, notFound("Assignment", id)
	}
	return sortedValues(b.submissions, func(s *classroom.Submission) bool {
		return s.AssignmentID == id && (acc.Roles.IsTeacher() || s.StudentID == acc.User.ID)
	}), nil
}

func (b *Backend) submit(r *http.Request, acc *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	if _, ok := b.assignments[id]; !ok {
		return nil, notFound("Assignment", id)
	}
	form, err := readForm(r)
	if err != nil {
		return nil, err
	}
	if form.file == nil {
		return nil, &apiError{status: http.StatusOK, code: CodeInvalidBody, message: "File is required"}
	}
	sub := &classroom.Submission{
		ID: b.id(), AssignmentID: id, StudentID: acc.User.ID, StudentName: acc.User.FullName(),
		FileName: form.filename, SubmittedAt: "2024-03-01T09:00:00",
	}
	b.submissions[sub.ID] = sub
	b.files[fileKey("submission", sub.ID)] = form.file
	return sub, nil
}

func (b *Backend) deleteSubmission(r *http.Request, _ *Account) (any, error) {
	return deleteByID(r, b.submissions, "Submission")
}

func (b *Backend) gradeSubmission(r *http.Request, acc *Account) (any, error) {
	if err := requireTeacher(acc); err != nil {
		return nil, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	sub, ok := b.submissions[id]
	if !ok {
		return nil, notFound("Submission", id)
	}
	var grade classroom.Grade
	if err := decode(r, &grade); err != nil {
		return nil, err
	}
	sub.Grade = utils.Ptr(grade.Score)
	sub.Feedback = grade.Feedback
	return sub, nil
}

func (b *Backend) listNotices(r *http.Request, acc *Account) (any, error) {
	userID := acc.User.ID
	if raw := r.URL.Query().Get("userId"); raw != "" && raw != formatID(userID) {
		return nil, &apiError{status: http.StatusForbidden, code: CodeForbidden, message: "Cannot read another user's notices"}
	}
	return append([]classroom.Notice{}, b.notices[userID]...), nil
}

func (b *Backend) markNoticeRead(r *http.Request, acc *Account) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	notices := b.notices[acc.User.ID]
	for i := range notices {
		if notices[i].ID == id {
			notices[i].Read = true
			return nil, nil
		}
	}
	return nil, notFound("Notice", id)
}

func deleteByID[T any](r *http.Request, m map[int64]*T, what string) (any, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	if _, ok := m[id]; !ok {
		return nil, notFound(what, id)
	}
	delete(m, id)
	return nil, nil
}
