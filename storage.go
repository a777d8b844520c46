package main

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
)

var ErrBookNotFound = errors.New("book not found")

// Sortable book fields.
const (
	SortByCreatedAt = "createdAt"
	SortByID        = "id"
)

// Direction is the ordering direction of a sorted listing.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort describes how a listing must be ordered.
type Sort struct {
	Field     string
	Direction Direction
}

// PageRequest describes a page of a listing. Page is 0-based.
type PageRequest struct {
	Page int
	Size int
	Sort Sort
}

// Offset returns the number of records to skip before the page.
// It saturates at math.MaxInt instead of overflowing.
func (p PageRequest) Offset() int {
	if p.Page < 0 || p.Size <= 0 {
		return 0
	}
	if p.Page > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Page * p.Size
}

// BookStorage defines possible operations on book entity.
// Save inserts the book when its ID is zero and updates it otherwise.
// An update of a missing book fails with ErrBookNotFound.
type BookStorage interface {
	Save(ctx context.Context, book Book) (Book, error)
	FindByID(ctx context.Context, id int64) (Book, error)
	Delete(ctx context.Context, book Book) error
	FindAll(ctx context.Context, page PageRequest) ([]Book, error)
	FindByTitleContains(ctx context.Context, title string, page PageRequest) ([]Book, error)
	Close() error
}

// sortBooks orders books in place. Ties on the creation time are
// broken by the id in the same direction.
func sortBooks(books []Book, s Sort) {
	less := func(a, b Book) bool {
		if s.Field == SortByCreatedAt && !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.SliceStable(books, func(i, j int) bool {
		if s.Direction == Desc {
			return less(books[j], books[i])
		}
		return less(books[i], books[j])
	})
}

// paginate returns the books that belong to the requested page.
func paginate(books []Book, page PageRequest) []Book {
	start := page.Offset()
	if start >= len(books) {
		return []Book{}
	}
	end := len(books)
	if page.Size > 0 && start+page.Size < end {
		end = start + page.Size
	}
	return books[start:end]
}

// filterByTitle keeps the books whose title contains the given substring.
func filterByTitle(books []Book, title string) []Book {
	filtered := make([]Book, 0, len(books))
	for _, b := range books {
		if strings.Contains(b.Title, title) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}
