package payment

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/student"
)

// State of a scan session.
type State string

const (
	StateIdle             State = "idle"
	StateScanning         State = "scanning"
	StateCodeDecoded      State = "code_decoded"
	StateStudentResolved  State = "student_resolved"
	StateStudentNotFound  State = "student_not_found"
	StatePaymentDuplicate State = "payment_duplicate"
	StatePaymentRecorded  State = "payment_recorded"
	StatePaymentFailed    State = "payment_failed"
)

var ErrScannerInactive = core.NewValidationError(errors.New("scanner is not active"))

// ScanSession is one operator's scanning workflow.
//
//   idle -> scanning -> code_decoded -> student_resolved | student_not_found
//   student_resolved -> payment_recorded | payment_duplicate | payment_failed
//
// Any state goes back to scanning on Start. The last accepted code is remembered until
// then, so a camera feed decoding the same code many times resolves the student once.
type ScanSession struct {
	mu      sync.Mutex
	touched int64 // unix nanoseconds, atomic

	id       string
	staffID  string
	state    State
	lastCode string
	student  *student.Student
	outcome  *Outcome
	message  string
}

// SessionView is a snapshot of a scan session.
type SessionView struct {
	ID       string           `json:"id"`
	State    State            `json:"state"`
	LastCode string           `json:"last_code,omitempty"`
	Student  *student.Student `json:"student,omitempty"`
	Outcome  *Outcome         `json:"outcome,omitempty"`
	Message  string           `json:"message,omitempty"`
}

func NewScanSession(staffID string) *ScanSession {
	sess := &ScanSession{
		id:      uuid.New().String(),
		staffID: staffID,
		state:   StateIdle,
	}
	sess.touch()
	return sess
}

func (s *ScanSession) ID() string      { return s.id }
func (s *ScanSession) StaffID() string { return s.staffID }

// Start (re)activates the scanner, clearing the previous student and outcome.
func (s *ScanSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start()
	s.touch()
}

func (s *ScanSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{
		ID:       s.id,
		State:    s.state,
		LastCode: s.lastCode,
		Message:  s.message,
	}
	if s.student != nil {
		stu := *s.student
		view.Student = &stu
	}
	if s.outcome != nil {
		out := *s.outcome
		view.Outcome = &out
	}
	return view
}

func (s *ScanSession) start() {
	s.state = StateScanning
	s.lastCode = ""
	s.student = nil
	s.outcome = nil
	s.message = ""
}

// accept reports whether code is a new payload the scanner should act on.
// Repeats of the last code are ignored silently, even after the scanner stopped.
func (s *ScanSession) accept(code string) (bool, error) {
	code = core.CleanString(code)
	if code == "" || code == s.lastCode {
		return false, nil
	}
	if s.state != StateScanning {
		return false, ErrScannerInactive
	}
	s.lastCode = code
	s.state = StateCodeDecoded
	return true, nil
}

func (s *ScanSession) touch() {
	atomic.StoreInt64(&s.touched, NowFunc().UnixNano())
}

func (s *ScanSession) touchedAt() int64 {
	return atomic.LoadInt64(&s.touched)
}
