package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy 表示上一条输入仍在处理中，本次输入被丢弃。
	ErrBusy = errors.New("conversation is busy")
	// ErrHalted 表示会话初始化失败，不再接受输入。
	ErrHalted = errors.New("conversation halted")
	// ErrExited 表示会话已退出。
	ErrExited = errors.New("conversation exited")
	// ErrNotStarted 表示尚未调用 Start。
	ErrNotStarted = errors.New("conversation not started")
	// ErrAlreadyStarted 表示重复调用 Start。
	ErrAlreadyStarted = errors.New("conversation already started")
	// ErrEmptyResult 表示远端没有返回任何候选。
	ErrEmptyResult = errors.New("no candidates returned")
)

// ValidationError 表示输入无法被当前状态识别，需要重新提问。
type ValidationError struct {
	State   State
	Input   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("input %q not understood in state %s", e.Input, e.State)
}

// stepError 给远端失败附上面向用户的补充说明。
type stepError struct {
	hint string
	err  error
}

func (e *stepError) Error() string { return e.err.Error() }

func (e *stepError) Unwrap() error { return e.err }

func failed(hint string, err error) error {
	if errors.Is(err, ErrEmptyResult) {
		return err
	}
	return &stepError{hint: hint, err: err}
}
