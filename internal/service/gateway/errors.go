package gateway

import (
	"errors"
	"fmt"
)

// ConnectionError 表示远端不可达（传输层失败）。
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("gateway %s: connection failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RemoteError 表示远端返回了非 2xx 响应，Detail 原样展示给用户。
type RemoteError struct {
	Op     string
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.Status, e.Detail)
}

// IsConnection 判断 err 链上是否有 ConnectionError。
func IsConnection(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// AsRemote 提取 err 链上的 RemoteError。
func AsRemote(err error) (*RemoteError, bool) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr, true
	}
	return nil, false
}
