package cerr

import (
	"net/http"

	"github.com/pelagiclabs/annotator/pkg/clog"
)

//go:generate go tool stringer -type=Code -output=code_string.go code.go
type Code int

const (
	OK                 = Code(0)
	Canceled           = Code(1)
	Unknown            = Code(2)
	InvalidArgument    = Code(3)
	DeadlineExceeded   = Code(4)
	NotFound           = Code(5)
	AlreadyExists      = Code(6)
	PermissionDenied   = Code(7)
	ResourceExhausted  = Code(8)
	FailedPrecondition = Code(9)
	Aborted            = Code(10)
	OutOfRange         = Code(11)
	Unimplemented      = Code(12)
	Internal           = Code(13)
	Unavailable        = Code(14)
	DataLoss           = Code(15)
	Unauthenticated    = Code(16)
)

func (c Code) HTTPCode() int {
	switch c {
	case OK:
		return http.StatusOK
	case Canceled:
		return 499
	case Unknown:
		return http.StatusInternalServerError
	case InvalidArgument:
		return http.StatusBadRequest
	case DeadlineExceeded:
		return http.StatusGatewayTimeout
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case PermissionDenied:
		return http.StatusForbidden
	case ResourceExhausted:
		return http.StatusTooManyRequests
	case FailedPrecondition:
		return http.StatusPreconditionFailed
	case Aborted:
		return http.StatusConflict
	case OutOfRange:
		return http.StatusBadRequest
	case Unimplemented:
		return http.StatusNotImplemented
	case Internal:
		return http.StatusInternalServerError
	case Unavailable:
		return http.StatusServiceUnavailable
	case DataLoss:
		return http.StatusInternalServerError
	case Unauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Level reports the log level an error with this code should be recorded at.
// Client-caused conditions stay at info; server faults log at error.
func (c Code) Level() clog.Level {
	switch c {
	case Unknown, ResourceExhausted, Unimplemented, Internal, Unavailable, DataLoss:
		return clog.LevelError
	default:
		return clog.LevelInfo
	}
}

// NewCodeFromHTTPStatus maps a response status from the upstream annotation
// campaign service to a Code.
func NewCodeFromHTTPStatus(status int) Code {
	switch {
	case status >= 200 && status < 300:
		return OK
	case status == http.StatusBadRequest:
		return InvalidArgument
	case status == http.StatusUnauthorized:
		return Unauthenticated
	case status == http.StatusForbidden:
		return PermissionDenied
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusConflict:
		return AlreadyExists
	case status == http.StatusPreconditionFailed:
		return FailedPrecondition
	case status == http.StatusTooManyRequests:
		return ResourceExhausted
	case status == http.StatusNotImplemented:
		return Unimplemented
	case status == http.StatusServiceUnavailable:
		return Unavailable
	case status == http.StatusGatewayTimeout:
		return DeadlineExceeded
	case status >= 500:
		return Internal
	default:
		return Unknown
	}
}
