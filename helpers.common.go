package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
)

type ContextKey string

const (
	RequestIDPrefix         string     = "r"
	RequestIDHeader         string     = "X-Request-ID"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
)

// maxBodySize caps the size of a decoded request body.
const maxBodySize = 1 << 20

var ErrEmptyRequestBody = errors.New("empty request body")

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// DecodeJSONBody reads the json content of a request body into v.
// Unknown fields are rejected.
func DecodeJSONBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyRequestBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyRequestBody
		}
		return err
	}
	return nil
}

// ParseBookID converts a path parameter into a book id.
func ParseBookID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, FieldErrors{{Field: "id", Message: "must be a positive integer"}}
	}
	return id, nil
}

// ParseListQuery extracts the optional title filter and page number of a
// books listing request. Absent values are returned as nil.
func ParseListQuery(r *http.Request) (*string, *int, error) {
	q := r.URL.Query()
	var title *string
	if q.Has("title") {
		t := q.Get("title")
		title = &t
	}
	var page *int
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			return nil, nil, FieldErrors{{Field: "page", Message: fmt.Sprintf("must be a positive integer, got %q", raw)}}
		}
		page = &p
	}
	return title, page, nil
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	ip := r.Header.Get("X-REAL-IP")
	if net.ParseIP(ip) != nil {
		return ip
	}

	for _, ip := range strings.Split(r.Header.Get("X-FORWARDED-FOR"), ",") {
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	if net.ParseIP(ip) != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory.
func IsAppRunningInDocker() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
