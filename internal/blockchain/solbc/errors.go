// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"fmt"
	"strings"
)

// RPCError представляет ошибку RPC с дополнительным контекстом
type RPCError struct {
	Err    error
	Method string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error [%s]: %v", e.Method, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// NewRPCError создает новую ошибку RPC
func NewRPCError(err error, method string) error {
	return &RPCError{Err: err, Method: method}
}

// IsRPCError reports whether err came from the RPC node.
func IsRPCError(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr)
}

// IsRateLimited detects throttling responses from public RPC nodes.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}
