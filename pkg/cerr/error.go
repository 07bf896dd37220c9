package cerr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"

	"github.com/pelagiclabs/annotator/pkg/clog"
)

type Error struct {
	Code    Code
	Msg     string   // message returned to the user alongside the code
	Err     error    // underlying error kept for the logs
	Stack   string   // stack trace, captured for error-level codes
	Details []string // field-level details returned to the user
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if code.Level() == clog.LevelError {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

func (e *Error) AddDetail(msg string) *Error {
	e.Details = append(e.Details, msg)
	return e
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}

// CodeOf returns the Code carried by err, or Unknown for foreign errors.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return Unknown
}

type httpError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func ExtractToHTTPResponse(ctx context.Context, rw http.ResponseWriter, response *responseReceiver) {
	if response.err == nil {
		writeJSON(ctx, rw, response.response)
		return
	}
	if errors.Is(response.err, context.Canceled) {
		writeJSONError(ctx, rw, NewError(Canceled, "connection closed", response.err))
		return
	}
	var dnsErr *net.DNSError
	if errors.As(response.err, &dnsErr) && dnsErr.Err == "operation was canceled" {
		writeJSONError(ctx, rw, NewError(Canceled, "connection closed", response.err))
		return
	}

	clog.AddError(ctx, response.err)
	var cErr *Error
	if errors.As(response.err, &cErr) {
		if cErr.Stack != "" {
			clog.AddStack(ctx, cErr.Stack)
		}
		writeJSONError(ctx, rw, cErr)
		return
	}
	writeJSONError(ctx, rw, NewError(Unknown, "unknown error", response.err))
}

func writeJSON(ctx context.Context, rw http.ResponseWriter, response any) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(response); err != nil {
		writeJSONError(ctx, rw, NewError(Internal, "server error", err))
		return
	}
	if _, err := rw.Write(buf.Bytes()); err != nil {
		clog.AddError(ctx, NewError(Internal, "server error", err))
	}
}

func writeJSONError(ctx context.Context, rw http.ResponseWriter, origErr *Error) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(origErr.Code.HTTPCode())
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(httpError{Code: origErr.Code.String(), Message: origErr.Msg, Details: origErr.Details}); err != nil {
		buf = bytes.NewBufferString(`{"code":"Internal","message":"server error"}`)
		origErr.Err = errors.Join(origErr.Err, err)
		clog.AddError(ctx, origErr)
	}
	if _, err := rw.Write(buf.Bytes()); err != nil {
		origErr.Err = errors.Join(origErr.Err, err)
		clog.AddError(ctx, origErr)
	}
}
