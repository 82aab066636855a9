package feedback

import "errors"

// ErrUnknownStyle is returned by ParseStyle and Style.UnmarshalText for names outside the closed
// style set.
//
// It is the only error in this package. Session and Pool operations never return errors.
var ErrUnknownStyle = errors.New("feedback: unknown style")
