package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ListPageSize is the number of books returned by a listing page.
const ListPageSize = 3

// newestFirst orders listings by descending creation time.
var newestFirst = Sort{Field: SortByCreatedAt, Direction: Desc}

type BookServiceProvider interface {
	Insert(ctx context.Context, req BookCreateRequest) (int64, error)
	Read(ctx context.Context, id int64) (BookReadResponse, error)
	Edit(ctx context.Context, id int64) (BookEditResponse, error)
	Update(ctx context.Context, req BookEditRequest) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, title *string, page *int) ([]BookListItem, error)
}

// BookService runs the books operations against a storage. Requests
// are expected to be validated by the caller.
type BookService struct {
	logger  *zap.Logger
	storage BookStorage
}

func NewBookService(logger *zap.Logger, storage BookStorage) BookServiceProvider {
	return &BookService{
		logger:  logger,
		storage: storage,
	}
}

// Insert persists a new book and returns its assigned id.
func (bs *BookService) Insert(ctx context.Context, req BookCreateRequest) (int64, error) {
	book, err := bs.storage.Save(ctx, NewBookFromCreateRequest(req))
	if err != nil {
		return 0, fmt.Errorf("service: save book: %w", err)
	}
	bs.logger.Debug("service: book inserted", zap.Int64("book.id", book.ID))
	return book.ID, nil
}

func (bs *BookService) Read(ctx context.Context, id int64) (BookReadResponse, error) {
	book, err := bs.storage.FindByID(ctx, id)
	if err != nil {
		return BookReadResponse{}, fmt.Errorf("service: find book %d: %w", id, err)
	}
	return NewBookReadResponse(book), nil
}

func (bs *BookService) Edit(ctx context.Context, id int64) (BookEditResponse, error) {
	book, err := bs.storage.FindByID(ctx, id)
	if err != nil {
		return BookEditResponse{}, fmt.Errorf("service: find book %d: %w", id, err)
	}
	return NewBookEditResponse(book), nil
}

// Update overwrites title and price of an existing book.
func (bs *BookService) Update(ctx context.Context, req BookEditRequest) error {
	book, err := bs.storage.FindByID(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("service: find book %d: %w", req.ID, err)
	}
	if _, err = bs.storage.Save(ctx, req.Fill(book)); err != nil {
		return fmt.Errorf("service: save book %d: %w", req.ID, err)
	}
	return nil
}

func (bs *BookService) Delete(ctx context.Context, id int64) error {
	book, err := bs.storage.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service: find book %d: %w", id, err)
	}
	if err = bs.storage.Delete(ctx, book); err != nil {
		return fmt.Errorf("service: delete book %d: %w", id, err)
	}
	return nil
}

// List returns a page of books, newest first. The page number is 1-based
// and defaults to the first page. A nil title lists every book.
func (bs *BookService) List(ctx context.Context, title *string, page *int) ([]BookListItem, error) {
	pageIndex := 0
	if page != nil && *page > 1 {
		pageIndex = *page - 1
	}
	pr := PageRequest{Page: pageIndex, Size: ListPageSize, Sort: newestFirst}

	var books []Book
	var err error
	if title == nil {
		books, err = bs.storage.FindAll(ctx, pr)
	} else {
		books, err = bs.storage.FindByTitleContains(ctx, *title, pr)
	}
	if err != nil {
		return nil, fmt.Errorf("service: list books: %w", err)
	}

	items := make([]BookListItem, 0, len(books))
	for _, b := range books {
		items = append(items, NewBookListItem(b))
	}
	return items, nil
}
