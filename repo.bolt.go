package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
	clock  Clocker
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *BoltDBConfig) (*bolt.DB, error) {
	db, err := bolt.Open(config.FilePath, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %w", config.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %w", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, config *BoltDBConfig, clock Clocker, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: config,
		clock:  clock,
	}
}

// itob encodes an id into a big-endian key so that keys sort numerically.
func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

// Save inserts a new book with the next bucket sequence as id or
// replaces the title and price of an existing one.
func (bs *boltBookStorage) Save(_ context.Context, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bs.config.BucketName))
		if book.ID == 0 {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			book.ID = int64(seq)
			book.CreatedAt = bs.clock.Now()
		} else {
			current := bucket.Get(itob(book.ID))
			if current == nil {
				return ErrBookNotFound
			}
			var stored Book
			if err := json.Unmarshal(current, &stored); err != nil {
				return err
			}
			book.CreatedAt = stored.CreatedAt
		}
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return bucket.Put(itob(book.ID), bookBytes)
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// FindByID retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) FindByID(_ context.Context, id int64) (Book, error) {
	var book Book
	err := bs.client.View(func(tx *bolt.Tx) error {
		result := tx.Bucket([]byte(bs.config.BucketName)).Get(itob(id))
		if result == nil {
			return ErrBookNotFound
		}
		return json.Unmarshal(result, &book)
	})
	return book, err
}

// Delete removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) Delete(_ context.Context, book Book) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).Delete(itob(book.ID))
	})
}

// FindAll returns a sorted page of all books stored in the bolt database.
func (bs *boltBookStorage) FindAll(_ context.Context, page PageRequest) ([]Book, error) {
	books, err := bs.scan()
	if err != nil {
		return nil, err
	}
	sortBooks(books, page.Sort)
	return paginate(books, page), nil
}

// FindByTitleContains returns a sorted page of books whose title contains the given text.
func (bs *boltBookStorage) FindByTitleContains(_ context.Context, title string, page PageRequest) ([]Book, error) {
	books, err := bs.scan()
	if err != nil {
		return nil, err
	}
	books = filterByTitle(books, title)
	sortBooks(books, page.Sort)
	return paginate(books, page), nil
}

// scan loads every book of the bucket.
func (bs *boltBookStorage) scan() ([]Book, error) {
	books := []Book{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).ForEach(func(_, v []byte) error {
			var book Book
			if err := json.Unmarshal(v, &book); err != nil {
				return err
			}
			books = append(books, book)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}
