package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestBoltStore returns a new instance of bolt storage in a temporary path.
func newTestBoltStore(t *testing.T, clock Clocker) *boltBookStorage {
	t.Helper()
	config := &BoltDBConfig{
		FilePath:   filepath.Join(t.TempDir(), "books.db"),
		Timeout:    5 * time.Second,
		BucketName: "test.books",
	}
	client, err := GetBoltDBClient(config)
	require.NoError(t, err, "failed in creating a test bolt store")

	bs := &boltBookStorage{
		logger: zap.NewNop(),
		client: client,
		config: config,
		clock:  clock,
	}
	t.Cleanup(func() {
		bs.Close()
		os.Remove(config.FilePath)
	})
	return bs
}

func TestBoltStore(t *testing.T) {
	testBookStorageBehavior(t, newTestBoltStore(t, NewTickingClocker()))
}

// Ensure bolt store ids follow the bucket sequence and are never reused.
func TestBoltStore_IDsNotReused(t *testing.T) {
	bs := newTestBoltStore(t, NewTickingClocker())
	ctx := context.TODO()

	b1, err := bs.Save(ctx, Book{Title: "first", Price: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(1), b1.ID)

	require.NoError(t, bs.Delete(ctx, b1))

	b2, err := bs.Save(ctx, Book{Title: "second", Price: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(2), b2.ID)
}

// Ensure the creation time is assigned by the storage clock.
func TestBoltStore_CreatedAtFromClock(t *testing.T) {
	clock := NewMockClocker()
	bs := newTestBoltStore(t, clock)

	b, err := bs.Save(context.TODO(), Book{Title: "clocked", Price: 1000, CreatedAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, clock.Now().Equal(b.CreatedAt))

	stored, err := bs.FindByID(context.TODO(), b.ID)
	require.NoError(t, err)
	assert.True(t, clock.Now().Equal(stored.CreatedAt))
}

// Ensure opening a bolt file in a missing folder fails.
func TestGetBoltDBClient_InvalidPath(t *testing.T) {
	_, err := GetBoltDBClient(&BoltDBConfig{
		FilePath:   filepath.Join(t.TempDir(), "missing", "books.db"),
		Timeout:    time.Second,
		BucketName: "books",
	})
	assert.Error(t, err)
}

func TestBoltStore_FindAllEmpty(t *testing.T) {
	bs := newTestBoltStore(t, NewMockClocker())
	books, err := bs.FindAll(context.TODO(), PageRequest{Page: 0, Size: 3, Sort: newestFirst})
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Len(t, books, 0)

	_, err = bs.FindByID(context.TODO(), 1)
	assert.True(t, errors.Is(err, ErrBookNotFound))
}
