package classroom

import (
	"io"

	"github.com/jrsteele09/go-classroom-client/internal/validation"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

type Class struct {
	ID           int64  `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Code         string `json:"code" yaml:"code"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	TeacherID    int64  `json:"teacherId,omitempty" yaml:"teacherId,omitempty"`
	TeacherName  string `json:"teacherName,omitempty" yaml:"teacherName,omitempty"`
	StudentCount int    `json:"studentCount" yaml:"studentCount"`
	CreatedAt    string `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

type NewClass struct {
	Name        string `json:"name" validate:"required,max=100"`
	Code        string `json:"code" validate:"required,alphanum,max=20"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

func (nc NewClass) Validate() error { return validation.Struct(nc) }

// Student is a roster entry.
type Student struct {
	ID        int64  `json:"id" yaml:"id"`
	Username  string `json:"username" yaml:"username"`
	Email     string `json:"email" yaml:"email"`
	FirstName string `json:"firstName" yaml:"firstName"`
	LastName  string `json:"lastName" yaml:"lastName"`
}

type AddStudent struct {
	Email string `json:"email" validate:"required,email"`
}

func (as AddStudent) Validate() error { return validation.Struct(as) }

type Document struct {
	ID        int64  `json:"id" yaml:"id"`
	ClassID   int64  `json:"classId" yaml:"classId"`
	Title     string `json:"title" yaml:"title"`
	Content   string `json:"content" yaml:"content"`
	CreatedAt string `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

type DocumentInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

func (di DocumentInput) Validate() error { return validation.Struct(di) }

type AttendanceRecord struct {
	ID          int64            `json:"id" yaml:"id"`
	ClassID     int64            `json:"classId" yaml:"classId"`
	StudentID   int64            `json:"studentId" yaml:"studentId"`
	StudentName string           `json:"studentName" yaml:"studentName"`
	Date        string           `json:"date" yaml:"date"`
	Status      AttendanceStatus `json:"status" yaml:"status"`
}

type AttendanceMark struct {
	StudentID int64            `json:"studentId" validate:"required,gt=0"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
}

// AttendanceSheet records one day of attendance for a class.
type AttendanceSheet struct {
	Date    string           `json:"date" validate:"required,datetime=2006-01-02"`
	Records []AttendanceMark `json:"records" validate:"required,min=1,dive"`
}

func (as AttendanceSheet) Validate() error { return validation.Struct(as) }

type AbsenceRequest struct {
	ID          int64         `json:"id" yaml:"id"`
	ClassID     int64         `json:"classId" yaml:"classId"`
	StudentID   int64         `json:"studentId" yaml:"studentId"`
	StudentName string        `json:"studentName" yaml:"studentName"`
	Date        string        `json:"date" yaml:"date"`
	Reason      string        `json:"reason" yaml:"reason"`
	Status      RequestStatus `json:"status" yaml:"status"`
}

type NewAbsenceRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"required,max=500"`
}

func (nr NewAbsenceRequest) Validate() error { return validation.Struct(nr) }

type Question struct {
	ID      int64    `json:"id" yaml:"id"`
	ClassID int64    `json:"classId" yaml:"classId"`
	Content string   `json:"content" yaml:"content"`
	Options []string `json:"options" yaml:"options"`
	Answer  string   `json:"answer,omitempty" yaml:"answer,omitempty"` // hidden from students
}

type QuestionInput struct {
	Content string   `json:"content" validate:"required"`
	Options []string `json:"options" validate:"required,min=2,dive,required"`
	Answer  string   `json:"answer" validate:"required"`
}

func (qi QuestionInput) Validate() error { return validation.Struct(qi) }

type Exam struct {
	ID              int64      `json:"id" yaml:"id"`
	ClassID         int64      `json:"classId" yaml:"classId"`
	Title           string     `json:"title" yaml:"title"`
	Description     string     `json:"description,omitempty" yaml:"description,omitempty"`
	StartTime       string     `json:"startTime,omitempty" yaml:"startTime,omitempty"`
	DurationMinutes int        `json:"duration" yaml:"duration"`
	Questions       []Question `json:"questions,omitempty" yaml:"questions,omitempty"`
}

type ExamInput struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description,omitempty"`
	StartTime       string `json:"startTime,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05"`
	DurationMinutes int    `json:"duration" validate:"required,gt=0,lte=600"`
}

func (ei ExamInput) Validate() error { return validation.Struct(ei) }

// RandomExamInput asks the backend to draw Count questions from the bank.
type RandomExamInput struct {
	ExamInput
	Count int `json:"count" validate:"required,gt=0"`
}

func (ri RandomExamInput) Validate() error { return validation.Struct(ri) }

// ChooseExamInput builds an exam from hand-picked questions.
type ChooseExamInput struct {
	ExamInput
	QuestionIDs []int64 `json:"questionIds" validate:"required,min=1,dive,gt=0"`
}

func (ci ChooseExamInput) Validate() error { return validation.Struct(ci) }

// ExamAttempt is returned when a student starts an exam.
type ExamAttempt struct {
	SubmissionID int64      `json:"submissionId" yaml:"submissionId"`
	ExamID       int64      `json:"examId" yaml:"examId"`
	StartedAt    string     `json:"startedAt" yaml:"startedAt"`
	Questions    []Question `json:"questions" yaml:"questions"`
}

type Answer struct {
	QuestionID int64  `json:"questionId" validate:"required,gt=0"`
	Choice     string `json:"answer" validate:"required"`
}

func (a Answer) Validate() error { return validation.Struct(a) }

type ExamResult struct {
	ID          int64   `json:"id" yaml:"id"`
	ExamID      int64   `json:"examId" yaml:"examId"`
	StudentID   int64   `json:"studentId" yaml:"studentId"`
	StudentName string  `json:"studentName" yaml:"studentName"`
	Score       float64 `json:"score" yaml:"score"`
	SubmittedAt string  `json:"submittedAt,omitempty" yaml:"submittedAt,omitempty"`
}

type Assignment struct {
	ID          int64  `json:"id" yaml:"id"`
	ClassID     int64  `json:"classId" yaml:"classId"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	FileName    string `json:"fileName,omitempty" yaml:"fileName,omitempty"`
}

// Attachment is an optional file sent with an assignment or submission.
type Attachment struct {
	Name   string
	Reader io.Reader
}

type AssignmentInput struct {
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=2000"`
	DueDate     string      `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	File        *Attachment `json:"-" validate:"-"`
}

func (ai AssignmentInput) Validate() error { return validation.Struct(ai) }

type Submission struct {
	ID           int64    `json:"id" yaml:"id"`
	AssignmentID int64    `json:"assignmentId" yaml:"assignmentId"`
	StudentID    int64    `json:"studentId" yaml:"studentId"`
	StudentName  string   `json:"studentName" yaml:"studentName"`
	FileName     string   `json:"fileName,omitempty" yaml:"fileName,omitempty"`
	SubmittedAt  string   `json:"submittedAt" yaml:"submittedAt"`
	Grade        *float64 `json:"grade,omitempty" yaml:"grade,omitempty"`
	Feedback     string   `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

type Grade struct {
	Score    float64 `json:"grade" validate:"gte=0,lte=100"`
	Feedback string  `json:"feedback,omitempty" validate:"max=1000"`
}

func (g Grade) Validate() error { return validation.Struct(g) }

// ScoreSummary is one student's row of the class grade book.
type ScoreSummary struct {
	StudentID            int64   `json:"studentId" yaml:"studentId"`
	StudentName          string  `json:"studentName" yaml:"studentName"`
	ExamAverage          float64 `json:"examAverage" yaml:"examAverage"`
	AssignmentAverage    float64 `json:"assignmentAverage" yaml:"assignmentAverage"`
	AttendanceRate       float64 `json:"attendanceRate" yaml:"attendanceRate"`
	CompletedExams       int     `json:"completedExams" yaml:"completedExams"`
	SubmittedAssignments int     `json:"submittedAssignments" yaml:"submittedAssignments"`
}

type ExamScore struct {
	StudentID   int64   `json:"studentId" yaml:"studentId"`
	StudentName string  `json:"studentName" yaml:"studentName"`
	Score       float64 `json:"score" yaml:"score"`
}

type Notice struct {
	ID       int64  `json:"id" yaml:"id"`
	Content  string `json:"content" yaml:"content"`
	CreateAt string `json:"createAt" yaml:"createAt"`
	Read     bool   `json:"read" yaml:"read"`
	Type     string `json:"type" yaml:"type"`
}

// Credentials are exchanged for a bearer token at sign-in.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c Credentials) Validate() error { return validation.Struct(c) }
