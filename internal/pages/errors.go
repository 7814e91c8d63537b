package pages

import (
	"errors"
	"fmt"
	"time"
)

// ErrIndexOutOfRange is returned when a product index is not on the current render
var ErrIndexOutOfRange = errors.New("product index out of range")

// TimeoutError reports a wait that exceeded its bound
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Msg     string
}

func (e *TimeoutError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("%s did not complete within %dms", e.Op, e.Timeout.Milliseconds())
}

// IsTimeout reports whether err is, or wraps, a TimeoutError
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}
