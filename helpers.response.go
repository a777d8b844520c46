package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// StatusClientClosedRequest is the non standard status used to record
// requests cancelled by the client.
const StatusClientClosedRequest = 499

var EmptyData = struct{}{}

// StatusRecorder wraps http.ResponseWriter to record
// the response status code and body size.
type StatusRecorder struct {
	http.ResponseWriter
	code  int
	bytes int
	wrote bool
}

// NewStatusRecorder provides StatusRecorder with 200 as status code.
func NewStatusRecorder(rw http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: rw, code: http.StatusOK}
}

// WriteHeader records the first status code sent.
func (sr *StatusRecorder) WriteHeader(code int) {
	if sr.wrote {
		return
	}
	sr.code = code
	sr.wrote = true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *StatusRecorder) Write(b []byte) (int, error) {
	if !sr.wrote {
		sr.WriteHeader(sr.code)
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Status returns the written status code.
func (sr *StatusRecorder) Status() int {
	return sr.code
}

// Bytes returns bytes written as response body.
func (sr *StatusRecorder) Bytes() int {
	return sr.bytes
}

// Unwrap returns native response writer for http.ResponseController.
func (sr *StatusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// APIError is the data model sent when an error occurred during request processing.
// Location suggests where the client could navigate next.
type APIError struct {
	RequestID string      `json:"requestid"`
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Location  string      `json:"location,omitempty"`
	Data      interface{} `json:"data"`
}

// APIResponse is the data model sent when a request succeed.
// Total is only set on listings.
type APIResponse struct {
	RequestID string      `json:"requestid"`
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Total     *int        `json:"total,omitempty"`
	Data      interface{} `json:"data"`
}

func NewAPIError(requestid string, status int, message, location string, data interface{}) *APIError {
	return &APIError{
		RequestID: requestid,
		Status:    status,
		Message:   message,
		Location:  location,
		Data:      data,
	}
}

func GenericResponse(requestid string, status int, message string, total *int, data interface{}) *APIResponse {
	return &APIResponse{
		RequestID: requestid,
		Status:    status,
		Message:   message,
		Total:     total,
		Data:      data,
	}
}

// WriteErrorResponse is used to send error response to client. Nothing is sent
// when the request context is already done: the status is then set to 504 on
// timeout or to 499 when the client went away, for the stats records only.
func WriteErrorResponse(ctx context.Context, w http.ResponseWriter, errResp *APIError) error {
	if err := contextDone(ctx, w); err != nil {
		return err
	}
	return writeJSON(w, errResp.Status, errResp)
}

// WriteResponse is used to send success api response to client.
func WriteResponse(ctx context.Context, w http.ResponseWriter, resp *APIResponse) error {
	if err := contextDone(ctx, w); err != nil {
		return err
	}
	return writeJSON(w, resp.Status, resp)
}

func contextDone(ctx context.Context, w http.ResponseWriter) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		w.WriteHeader(http.StatusGatewayTimeout)
	} else {
		w.WriteHeader(StatusClientClosedRequest)
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
