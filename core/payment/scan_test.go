package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanSession_accept(t *testing.T) {
	sess := NewScanSession("staff-1")
	assert.Equal(t, StateIdle, sess.View().State)

	ok, err := sess.accept("STU-1001")
	assert.Equal(t, ErrScannerInactive, err, "idle scanner")
	assert.False(t, ok)

	sess.Start()
	tests := []struct {
		name         string
		code         string
		wantOK       bool
		wantErr      error
		wantState    State
		wantLastCode string
	}{
		{name: "empty frame", code: " ", wantState: StateScanning},
		{name: "new code", code: " STU-1001 ", wantOK: true, wantState: StateCodeDecoded, wantLastCode: "STU-1001"},
		{name: "same code", code: "STU-1001", wantState: StateCodeDecoded, wantLastCode: "STU-1001"},
		{name: "other code while stopped", code: "STU-1002", wantErr: ErrScannerInactive, wantState: StateCodeDecoded, wantLastCode: "STU-1001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := sess.accept(tt.code)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantState, sess.state)
			assert.Equal(t, tt.wantLastCode, sess.lastCode)
		})
	}
}

func TestScanSession_Start(t *testing.T) {
	sess := NewScanSession("staff-1")
	sess.Start()
	_, _ = sess.accept("STU-1001")
	sess.state = StatePaymentRecorded
	sess.outcome = &Outcome{Status: StatusRecorded, Message: "ok"}
	sess.message = "ok"

	sess.Start()
	view := sess.View()
	assert.Equal(t, StateScanning, view.State)
	assert.Empty(t, view.LastCode)
	assert.Nil(t, view.Student)
	assert.Nil(t, view.Outcome)
	assert.Empty(t, view.Message)

	// the same code can be scanned again after a restart
	ok, err := sess.accept("STU-1001")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestCategory(t *testing.T) {
	assert.True(t, Feeding.Daily())
	assert.True(t, Transport.Daily())
	assert.False(t, School.Daily())
	assert.False(t, Category("books").IsValid())
	assert.Equal(t, "Transport", Transport.Label())

	_, err := ParseDate("2024-02-30")
	assert.Error(t, err)
	_, err = ParseDate("2024-02-29")
	assert.NoError(t, err)
}
