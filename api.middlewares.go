package main

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// MiddlewareFunc is a custom type for ease of use.
type MiddlewareFunc func(httprouter.Handle) httprouter.Handle

// Middlewares is a custom type to represent a stack of
// middleware functions used to build a single chain.
type Middlewares []MiddlewareFunc

// MiddlewaresStacks builds the public-facing and the ops middlewares stacks.
// Ops requests bypass the maintenance mode.
func (api *APIHandler) MiddlewaresStacks() (*Middlewares, *Middlewares) {
	public := &Middlewares{
		api.RequestIDMiddleware,
		api.RequestsCounterMiddleware,
		api.LoggerMiddleware,
		api.CoreMiddleware,
		api.PanicRecoveryMiddleware,
		CORSMiddleware,
		api.MaintenanceModeMiddleware,
	}
	ops := &Middlewares{
		api.RequestIDMiddleware,
		api.RequestsCounterMiddleware,
		api.LoggerMiddleware,
		api.CoreMiddleware,
		api.PanicRecoveryMiddleware,
	}
	return public, ops
}

// RequestIDMiddleware adds a unique id to the request context. A valid
// id sent by the caller is kept, otherwise a new one is generated.
func (api *APIHandler) RequestIDMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := r.Header.Get(RequestIDHeader)
		if !api.idsHandler.IsValid(requestID, RequestIDPrefix) {
			requestID = api.idsHandler.Generate(RequestIDPrefix)
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		next(w, r.WithContext(ctx), ps)
	}
}

// RequestsCounterMiddleware increments the number of received requests and
// adds the new value to the request context.
func (api *APIHandler) RequestsCounterMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), RequestNumberContextKey, atomic.AddUint64(&api.stats.called, 1))
		next(w, r.WithContext(ctx), ps)
	}
}

// LoggerMiddleware stores into the request context a logger
// carrying the request id, number, method and path.
func (api *APIHandler) LoggerMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		logger := api.logger.With(
			zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)),
			zap.Uint64("request.number", GetRequestNumberFromContext(r.Context())),
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
		)
		ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
		next(w, r.WithContext(ctx), ps)
	}
}

// PanicRecoveryMiddleware catches any panic during the request lifecycle and produces
// an error log for further analysis. It sends a failure response to the client with 500.
func (api *APIHandler) PanicRecoveryMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				api.GetLoggerFromContext(r.Context()).Error("panic occurred", zap.Any("error", err))
				api.sendError(w, r, http.StatusInternalServerError, "failed to process the request.", "", EmptyData)
			}
		}()
		next(w, r, ps)
	}
}

// CoreMiddleware logs each request with its outcome and duration, and
// records the response status code into the statistics.
func (api *APIHandler) CoreMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		logger := api.GetLoggerFromContext(r.Context())
		logger.Info(
			"request",
			zap.String("request.ip", GetRequestSourceIP(r)),
			zap.String("request.agent", r.UserAgent()),
			zap.String("request.referer", r.Referer()),
		)

		sr := NewStatusRecorder(w)
		next(sr, r, ps)

		api.stats.recordStatus(sr.Status())
		logger.Info(
			"response",
			zap.Int("response.status", sr.Status()),
			zap.Int("response.bytes", sr.Bytes()),
			zap.Duration("request.duration", time.Since(start)),
		)
	}
}

// CORSMiddleware applies cors headers on each response.
func CORSMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding, X-Request-ID, User-Agent, Accept-Language, Referer, Cache-Control")
		w.Header().Set("Access-Control-Expose-Headers", "Location, X-Request-ID")
		next(w, r, ps)
	}
}

// MaintenanceModeMiddleware rejects public requests with 503 while the
// maintenance mode is enabled.
func (api *APIHandler) MaintenanceModeMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !api.mode.enabled.Load() {
			next(w, r, ps)
			return
		}
		api.mode.mu.RLock()
		data := map[string]string{
			"reason": api.mode.message,
			"since":  formatIfSet(api.mode.started),
		}
		api.mode.mu.RUnlock()
		api.sendError(w, r, http.StatusServiceUnavailable, "service currently unavailable.", "", data)
	}
}

// Chain wraps a given httprouter.Handle with a list of middlewares.
// The first middleware of the list is the outermost one.
func (m *Middlewares) Chain(h httprouter.Handle) httprouter.Handle {
	if m == nil || len(*m) == 0 {
		return h
	}
	handle := h
	for i := len(*m) - 1; i >= 0; i-- {
		handle = (*m)[i](handle)
	}
	return handle
}
