package mosquitto

import (
	"errors"
	"testing"
	"time"
)

type fakeToken struct {
	completed bool
	err       error
}

func (t fakeToken) Wait() bool                     { return t.completed }
func (t fakeToken) WaitTimeout(time.Duration) bool { return t.completed }
func (t fakeToken) Done() <-chan struct{}          { return make(chan struct{}) }
func (t fakeToken) Error() error                   { return t.err }

func TestWaitToken(t *testing.T) {
	boom := errors.New("not authorized")

	if err := waitToken(fakeToken{completed: true}, time.Second); err != nil {
		t.Errorf("completed token: err = %v, want nil", err)
	}
	if err := waitToken(fakeToken{completed: true, err: boom}, time.Second); !errors.Is(err, boom) {
		t.Errorf("failed token: err = %v, want %v", err, boom)
	}
	if err := waitToken(fakeToken{completed: false}, time.Second); err == nil {
		t.Errorf("timed out token: err = nil, want timeout error")
	}
}
