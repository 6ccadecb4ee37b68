// In file: internal/tools/errors.go
package tools

import (
	"errors"
	"fmt"
)

var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidArguments = errors.New("invalid tool arguments")
	// ErrToolReported marks a failure the tool endpoint itself reported.
	ErrToolReported = errors.New("tool endpoint reported an error")
)

// InvocationError is returned by Gateway.CallTool for transport failures and
// endpoint-reported errors alike.
type InvocationError struct {
	Tool string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
