package main

import (
	"context"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	SaveFunc                func(ctx context.Context, book Book) (Book, error)
	FindByIDFunc            func(ctx context.Context, id int64) (Book, error)
	DeleteFunc              func(ctx context.Context, book Book) error
	FindAllFunc             func(ctx context.Context, page PageRequest) ([]Book, error)
	FindByTitleContainsFunc func(ctx context.Context, title string, page PageRequest) ([]Book, error)
}

// Save mocks the behavior of book persistence by the storage.
func (m *MockBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	return m.SaveFunc(ctx, book)
}

// FindByID mocks the behavior of retrieving a book by the storage.
func (m *MockBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	return m.FindByIDFunc(ctx, id)
}

// Delete mocks the behavior of deleting a book by the storage.
func (m *MockBookStorage) Delete(ctx context.Context, book Book) error {
	return m.DeleteFunc(ctx, book)
}

// FindAll mocks the behavior of listing books by the storage.
func (m *MockBookStorage) FindAll(ctx context.Context, page PageRequest) ([]Book, error) {
	return m.FindAllFunc(ctx, page)
}

// FindByTitleContains mocks the behavior of searching books by the storage.
func (m *MockBookStorage) FindByTitleContains(ctx context.Context, title string, page PageRequest) ([]Book, error) {
	return m.FindByTitleContainsFunc(ctx, title, page)
}

func (m *MockBookStorage) Close() error {
	return nil
}

// MockBookService implements a fake BookServiceProvider.
type MockBookService struct {
	InsertFunc func(ctx context.Context, req BookCreateRequest) (int64, error)
	ReadFunc   func(ctx context.Context, id int64) (BookReadResponse, error)
	EditFunc   func(ctx context.Context, id int64) (BookEditResponse, error)
	UpdateFunc func(ctx context.Context, req BookEditRequest) error
	DeleteFunc func(ctx context.Context, id int64) error
	ListFunc   func(ctx context.Context, title *string, page *int) ([]BookListItem, error)
}

func (m *MockBookService) Insert(ctx context.Context, req BookCreateRequest) (int64, error) {
	return m.InsertFunc(ctx, req)
}

func (m *MockBookService) Read(ctx context.Context, id int64) (BookReadResponse, error) {
	return m.ReadFunc(ctx, id)
}

func (m *MockBookService) Edit(ctx context.Context, id int64) (BookEditResponse, error) {
	return m.EditFunc(ctx, id)
}

func (m *MockBookService) Update(ctx context.Context, req BookEditRequest) error {
	return m.UpdateFunc(ctx, req)
}

func (m *MockBookService) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

func (m *MockBookService) List(ctx context.Context, title *string, page *int) ([]BookListItem, error) {
	return m.ListFunc(ctx, title, page)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// TickingClocker is a fake Clocker moving one second forward on each call
// so that successive inserts get distinct creation times.
type TickingClocker struct {
	mu   sync.Mutex
	next time.Time
}

func NewTickingClocker() *TickingClocker {
	return &TickingClocker{next: time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

func (tc *TickingClocker) Now() time.Time {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	now := tc.next
	tc.next = tc.next.Add(time.Second)
	return now
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

func intPtr(v int) *int {
	return &v
}

func strPtr(s string) *string {
	return &s
}
