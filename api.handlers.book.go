package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const booksLocation = "/v1/books"

func bookLocation(id int64) string {
	return fmt.Sprintf("%s/%d", booksLocation, id)
}

func bookEditLocation(id int64) string {
	return bookLocation(id) + "/edit"
}

// CreateBook godoc
// @Summary      Create a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        book  body      BookCreateRequest  true  "book to create"
// @Success      201   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      422   {object}  APIError
// @Router       /v1/books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	var req BookCreateRequest
	if err := DecodeJSONBody(r, &req); err != nil {
		logger.Error("failed to decode book creation request", zap.Error(err))
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", booksLocation, err.Error())
		return
	}

	if verrs := ValidateCreateRequest(req); len(verrs) > 0 {
		logger.Error("invalid book creation request", zap.Error(verrs))
		api.sendError(w, r, http.StatusUnprocessableEntity, verrs.Error(), booksLocation, verrs)
		return
	}

	id, err := api.bookService.Insert(r.Context(), req)
	if err != nil {
		api.handleServiceError(w, r, err, "failed to create the book", booksLocation)
		return
	}
	logger.Info("success to create book", zap.Int64("book.id", id))
	w.Header().Set("Location", bookLocation(id))
	api.sendResponse(w, r, http.StatusCreated, "Book created successfully.", nil, map[string]int64{"id": id})
}

// GetAllBooks godoc
// @Summary      List books, newest first, three per page
// @Tags         books
// @Produce      json
// @Param        title  query     string  false  "title substring filter"
// @Param        page   query     int     false  "1-based page number"
// @Success      200    {object}  APIResponse
// @Failure      422    {object}  APIError
// @Router       /v1/books [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	title, page, err := ParseListQuery(r)
	if err != nil {
		logger.Error("invalid books listing request", zap.Error(err))
		api.sendError(w, r, http.StatusUnprocessableEntity, err.Error(), booksLocation, err)
		return
	}

	books, err := api.bookService.List(r.Context(), title, page)
	if err != nil {
		api.handleServiceError(w, r, err, "failed to get books", booksLocation)
		return
	}
	logger.Info("success to get books", zap.Int("books.count", len(books)))
	total := len(books)
	api.sendResponse(w, r, http.StatusOK, "Books fetched successfully.", &total, books)
}

// GetOneBook godoc
// @Summary      Read a book
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      422  {object}  APIError
// @Router       /v1/books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.bookIDFromPath(w, r, ps)
	if !ok {
		return
	}
	book, err := api.bookService.Read(r.Context(), id)
	if err != nil {
		api.handleServiceError(w, r, err, "failed to get the book", booksLocation)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to get book", zap.Int64("book.id", id))
	api.sendResponse(w, r, http.StatusOK, "Book fetched successfully.", nil, book)
}

// GetBookForEdit godoc
// @Summary      Fetch a book to prefill its edition
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      422  {object}  APIError
// @Router       /v1/books/{id}/edit [get]
func (api *APIHandler) GetBookForEdit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.bookIDFromPath(w, r, ps)
	if !ok {
		return
	}
	book, err := api.bookService.Edit(r.Context(), id)
	if err != nil {
		api.handleServiceError(w, r, err, "failed to get the book", booksLocation)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to get book for edit", zap.Int64("book.id", id))
	api.sendResponse(w, r, http.StatusOK, "Book fetched successfully.", nil, book)
}

// UpdateBook godoc
// @Summary      Update title and price of a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        id    path      int              true  "book id"
// @Param        book  body      BookEditRequest  true  "new book values"
// @Success      200   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      422   {object}  APIError
// @Router       /v1/books/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, ok := api.bookIDFromPath(w, r, ps)
	if !ok {
		return
	}

	var req BookEditRequest
	if err := DecodeJSONBody(r, &req); err != nil {
		logger.Error("failed to decode book update request", zap.Int64("book.id", id), zap.Error(err))
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", bookEditLocation(id), err.Error())
		return
	}
	if req.ID == 0 {
		req.ID = id
	}

	verrs := ValidateEditRequest(req)
	if req.ID != id {
		verrs = append(verrs, FieldError{Field: "id", Message: "must match the book id of the path"})
	}
	if len(verrs) > 0 {
		logger.Error("invalid book update request", zap.Int64("book.id", id), zap.Error(verrs))
		api.sendError(w, r, http.StatusUnprocessableEntity, verrs.Error(), bookEditLocation(id), verrs)
		return
	}

	if err := api.bookService.Update(r.Context(), req); err != nil {
		api.handleServiceError(w, r, err, "failed to update the book", bookEditLocation(id))
		return
	}
	logger.Info("success to update book", zap.Int64("book.id", id))
	w.Header().Set("Location", bookLocation(id))
	api.sendResponse(w, r, http.StatusOK, "Book updated successfully.", nil, map[string]int64{"id": id})
}

// DeleteOneBook godoc
// @Summary      Delete a book
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      422  {object}  APIError
// @Router       /v1/books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.bookIDFromPath(w, r, ps)
	if !ok {
		return
	}
	if err := api.bookService.Delete(r.Context(), id); err != nil {
		api.handleServiceError(w, r, err, "failed to delete the book", booksLocation)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to delete book", zap.Int64("book.id", id))
	w.Header().Set("Location", booksLocation)
	api.sendResponse(w, r, http.StatusOK, "Book deleted successfully.", nil, EmptyData)
}

// bookIDFromPath parses the book id path parameter. On failure the
// error response is sent and false is returned.
func (api *APIHandler) bookIDFromPath(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int64, bool) {
	raw := ps.ByName("id")
	id, err := ParseBookID(raw)
	if err != nil {
		api.GetLoggerFromContext(r.Context()).Error("book id provided is not valid", zap.String("book.id", raw))
		api.sendError(w, r, http.StatusUnprocessableEntity, err.Error(), booksLocation, err)
		return 0, false
	}
	return id, true
}

// handleServiceError maps a book service failure to its response. Missing
// books and invalid inputs share the same unprocessable entity outcome.
func (api *APIHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, message, location string) {
	logger := api.GetLoggerFromContext(r.Context())
	var verrs FieldErrors
	switch {
	case errors.Is(err, ErrBookNotFound):
		logger.Error("book does not exist", zap.Error(err))
		api.sendError(w, r, http.StatusUnprocessableEntity, "book does not exist", booksLocation, EmptyData)
	case errors.As(err, &verrs):
		logger.Error("invalid book request", zap.Error(err))
		api.sendError(w, r, http.StatusUnprocessableEntity, verrs.Error(), location, verrs)
	default:
		logger.Error(message, zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, message, location, EmptyData)
	}
}

func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, status int, message, location string, data interface{}) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	errResp := NewAPIError(requestID, status, message, location, data)
	if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send error response", zap.Error(err))
	}
}

func (api *APIHandler) sendResponse(w http.ResponseWriter, r *http.Request, status int, message string, total *int, data interface{}) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	resp := GenericResponse(requestID, status, message, total, data)
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.Error(err))
	}
}
