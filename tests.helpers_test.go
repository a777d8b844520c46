package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseBookID(t *testing.T) {
	id, err := ParseBookID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-3", "1.5", "99999999999999999999"} {
		_, err := ParseBookID(raw)
		var verrs FieldErrors
		assert.True(t, errors.As(err, &verrs), raw)
	}
}

func TestParseListQuery(t *testing.T) {
	title, page, err := ParseListQuery(httptest.NewRequest(http.MethodGet, "/v1/books", nil))
	require.NoError(t, err)
	assert.Nil(t, title)
	assert.Nil(t, page)

	title, page, err = ParseListQuery(httptest.NewRequest(http.MethodGet, "/v1/books?title=Moby+Dick&page=3", nil))
	require.NoError(t, err)
	require.NotNil(t, title)
	assert.Equal(t, "Moby Dick", *title)
	require.NotNil(t, page)
	assert.Equal(t, 3, *page)

	_, _, err = ParseListQuery(httptest.NewRequest(http.MethodGet, "/v1/books?page=zero", nil))
	assert.EqualError(t, err, `page : must be a positive integer, got "zero"`)
}

func TestDecodeJSONBody(t *testing.T) {
	var req BookCreateRequest
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(`{"title":"Emma","price":1200}`)), &req)
	require.NoError(t, err)
	assert.Equal(t, "Emma", req.Title)
	require.NotNil(t, req.Price)
	assert.Equal(t, 1200, *req.Price)

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader("")), &req)
	assert.True(t, errors.Is(err, ErrEmptyRequestBody))

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(`{"isbn":"x"}`)), &req)
	assert.Error(t, err)
}

func TestGetRequestSourceIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", GetRequestSourceIP(req))

	req.Header.Set("X-Forwarded-For", "bad, 172.16.0.3")
	assert.Equal(t, "172.16.0.3", GetRequestSourceIP(req))

	req.Header.Set("X-Real-IP", "192.168.1.7")
	assert.Equal(t, "192.168.1.7", GetRequestSourceIP(req))
}

func TestIDsHandler(t *testing.T) {
	idsHandler := NewIDsHandler()
	id := idsHandler.Generate(RequestIDPrefix)
	assert.True(t, strings.HasPrefix(id, "r:"))
	assert.True(t, idsHandler.IsValid(id, RequestIDPrefix))
	assert.False(t, idsHandler.IsValid(id, "b"))
	assert.False(t, idsHandler.IsValid("r:not-a-uuid", RequestIDPrefix))
	assert.False(t, idsHandler.IsValid("", RequestIDPrefix))
	assert.NotEqual(t, id, idsHandler.Generate(RequestIDPrefix))
}

func TestCreateLogFilePath(t *testing.T) {
	ts := time.Date(2023, 0o7, 0o2, 13, 4, 5, 6, time.UTC)
	assert.Equal(t, filepath.Join("logs", "20230702.130405.000000006.prod.log"), CreateLogFilePath("logs", true, ts))
	assert.Equal(t, filepath.Join("logs", "20230702.130405.000000006.dev.log"), CreateLogFilePath("logs", false, ts))
}

func TestRotatingFileWriter(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "logs")
	w := &RotatingFileWriter{
		clock:  NewTickingClocker(),
		folder: folder,
		max:    10,
	}
	defer w.Close()

	_, err := w.Write([]byte("0123456"))
	require.NoError(t, err)
	_, err = w.Write([]byte("789"))
	require.NoError(t, err)
	// exceeds the current file remaining space.
	_, err = w.Write([]byte("abcd"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	_, err = w.Write([]byte("this entry is too long"))
	assert.Error(t, err)

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSetupLogging(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "logs")
	config := &Config{IsProduction: true, LogLevel: zapcore.InfoLevel, LogFolder: folder, LogMaxSize: 1, GitTag: "v1.0.0"}
	w := NewRotatingFileWriter(config, NewMockClocker())
	logger, flusher := SetupLogging(config, w)
	logger.Debug("hidden entry")
	logger.Info("visible entry")
	require.NoError(t, flusher())
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(folder, entries[0].Name()))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"msg":"visible entry"`)
	assert.Contains(t, content, `"app.tag":"v1.0.0"`)
	assert.NotContains(t, content, "hidden entry")
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".prod.log"))
}
