package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBookService(t *testing.T) BookServiceProvider {
	t.Helper()
	return NewBookService(zap.NewNop(), newTestBoltStore(t, NewTickingClocker()))
}

// TestBookService_Lifecycle walks a book through its whole lifecycle.
func TestBookService_Lifecycle(t *testing.T) {
	bs := newTestBookService(t)
	ctx := context.Background()

	id, err := bs.Insert(ctx, BookCreateRequest{Title: "Moby Dick", Price: intPtr(1500)})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	read, err := bs.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, read.ID)
	assert.Equal(t, "Moby Dick", read.Title)
	assert.Equal(t, 1500, read.Price)
	assert.False(t, read.CreatedAt.IsZero())

	edit, err := bs.Edit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, read.ID, edit.ID)
	assert.Equal(t, read.Title, edit.Title)
	assert.Equal(t, read.Price, edit.Price)

	err = bs.Update(ctx, BookEditRequest{ID: id, Title: "Moby-Dick", Price: intPtr(2000)})
	require.NoError(t, err)

	updated, err := bs.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Moby-Dick", updated.Title)
	assert.Equal(t, 2000, updated.Price)
	assert.True(t, read.CreatedAt.Equal(updated.CreatedAt))

	items, err := bs.List(ctx, strPtr("Moby"), nil)
	require.NoError(t, err)
	assert.Equal(t, []BookListItem{{ID: id, Title: "Moby-Dick"}}, items)

	require.NoError(t, bs.Delete(ctx, id))
	_, err = bs.Read(ctx, id)
	assert.True(t, errors.Is(err, ErrBookNotFound))
}

func TestBookService_NotFound(t *testing.T) {
	bs := newTestBookService(t)
	ctx := context.Background()
	const missing int64 = 42

	_, err := bs.Read(ctx, missing)
	assert.True(t, errors.Is(err, ErrBookNotFound))

	_, err = bs.Edit(ctx, missing)
	assert.True(t, errors.Is(err, ErrBookNotFound))

	err = bs.Update(ctx, BookEditRequest{ID: missing, Title: "Ghost", Price: intPtr(1000)})
	assert.True(t, errors.Is(err, ErrBookNotFound))

	err = bs.Delete(ctx, missing)
	assert.True(t, errors.Is(err, ErrBookNotFound))

	// nothing was created by the failed update.
	items, err := bs.List(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, items, 0)
}

//nolint:funlen
func TestBookService_List(t *testing.T) {
	bs := newTestBookService(t)
	ctx := context.Background()

	ids := make([]int64, 0, 5)
	for i := 1; i <= 5; i++ {
		title := fmt.Sprintf("Book %d", i)
		if i%2 == 0 {
			title = fmt.Sprintf("Go Book %d", i)
		}
		id, err := bs.Insert(ctx, BookCreateRequest{Title: title, Price: intPtr(1000 * i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	t.Run("default page is the first one", func(t *testing.T) {
		items, err := bs.List(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[4], ids[3], ids[2]}, itemIDs(items))
	})

	t.Run("page numbers are 1-based", func(t *testing.T) {
		items, err := bs.List(ctx, nil, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[4], ids[3], ids[2]}, itemIDs(items))

		items, err = bs.List(ctx, nil, intPtr(2))
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[1], ids[0]}, itemIDs(items))
	})

	t.Run("page below one falls back to the first page", func(t *testing.T) {
		items, err := bs.List(ctx, nil, intPtr(0))
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[4], ids[3], ids[2]}, itemIDs(items))
	})

	t.Run("page beyond the end is empty", func(t *testing.T) {
		items, err := bs.List(ctx, nil, intPtr(3))
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Len(t, items, 0)
	})

	t.Run("huge page number is empty", func(t *testing.T) {
		for _, p := range []int{math.MaxInt, math.MaxInt/2 + 2} {
			items, err := bs.List(ctx, nil, intPtr(p))
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Len(t, items, 0)

			items, err = bs.List(ctx, strPtr("Go"), intPtr(p))
			require.NoError(t, err)
			assert.Len(t, items, 0)
		}
	})

	t.Run("title filter is sorted newest first", func(t *testing.T) {
		items, err := bs.List(ctx, strPtr("Go"), nil)
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[3], ids[1]}, itemIDs(items))
	})

	t.Run("empty title filter matches every book", func(t *testing.T) {
		items, err := bs.List(ctx, strPtr(""), intPtr(2))
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[1], ids[0]}, itemIDs(items))
	})

	t.Run("unknown title gives an empty page", func(t *testing.T) {
		items, err := bs.List(ctx, strPtr("Python"), nil)
		require.NoError(t, err)
		assert.Len(t, items, 0)
	})
}

// TestBookService_StorageRequests ensures the service sends the expected
// page requests and wraps storage failures.
func TestBookService_StorageRequests(t *testing.T) {
	var gotPage PageRequest
	var gotTitle string
	storageErr := errors.New("storage unavailable")
	mockRepo := &MockBookStorage{
		FindAllFunc: func(_ context.Context, page PageRequest) ([]Book, error) {
			gotPage = page
			return []Book{{ID: 7, Title: "Emma", Price: 1200}}, nil
		},
		FindByTitleContainsFunc: func(_ context.Context, title string, page PageRequest) ([]Book, error) {
			gotTitle, gotPage = title, page
			return nil, storageErr
		},
		SaveFunc: func(_ context.Context, book Book) (Book, error) {
			return Book{}, storageErr
		},
	}
	bs := NewBookService(zap.NewNop(), mockRepo)

	items, err := bs.List(context.Background(), nil, intPtr(4))
	require.NoError(t, err)
	assert.Equal(t, []BookListItem{{ID: 7, Title: "Emma"}}, items)
	assert.Equal(t, PageRequest{Page: 3, Size: ListPageSize, Sort: Sort{Field: SortByCreatedAt, Direction: Desc}}, gotPage)

	_, err = bs.List(context.Background(), strPtr("Em"), nil)
	assert.True(t, errors.Is(err, storageErr))
	assert.Equal(t, "Em", gotTitle)
	assert.Equal(t, 0, gotPage.Page)
	assert.Equal(t, newestFirst, gotPage.Sort)

	_, err = bs.Insert(context.Background(), BookCreateRequest{Title: "Emma", Price: intPtr(1200)})
	assert.True(t, errors.Is(err, storageErr))
}

func itemIDs(items []BookListItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}
