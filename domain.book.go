package main

import "time"

// Book represents a book entity as persisted by the storage layer.
// ID and CreatedAt are assigned by the storage on insert and never change.
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Price     int       `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookCreateRequest carries the fields of a book creation request.
// Price is a pointer so that a missing value can be told apart from zero.
type BookCreateRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Price *int   `json:"price" validate:"required"`
}

// BookEditRequest carries the fields of a book update request.
type BookEditRequest struct {
	ID    int64  `json:"id" validate:"gt=0"`
	Title string `json:"title" validate:"notblank,max=200"`
	Price *int   `json:"price" validate:"required,min=1000"`
}

// BookReadResponse is the data sent back when a single book is read.
type BookReadResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Price     int       `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookEditResponse is the data used to prefill a book edition. It is kept
// apart from BookReadResponse so both shapes can evolve on their own.
type BookEditResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Price     int       `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookListItem is a single entry of a books listing.
type BookListItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// NewBookFromCreateRequest builds a not yet persisted book.
func NewBookFromCreateRequest(req BookCreateRequest) Book {
	book := Book{Title: req.Title}
	if req.Price != nil {
		book.Price = *req.Price
	}
	return book
}

// Fill overwrites the editable fields of the given book. ID and
// CreatedAt are left untouched.
func (req BookEditRequest) Fill(book Book) Book {
	book.Title = req.Title
	if req.Price != nil {
		book.Price = *req.Price
	}
	return book
}

func NewBookReadResponse(book Book) BookReadResponse {
	return BookReadResponse{
		ID:        book.ID,
		Title:     book.Title,
		Price:     book.Price,
		CreatedAt: book.CreatedAt,
	}
}

func NewBookEditResponse(book Book) BookEditResponse {
	return BookEditResponse{
		ID:        book.ID,
		Title:     book.Title,
		Price:     book.Price,
		CreatedAt: book.CreatedAt,
	}
}

func NewBookListItem(book Book) BookListItem {
	return BookListItem{ID: book.ID, Title: book.Title}
}
