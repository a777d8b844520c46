package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis keys used by the book storage.
const (
	HBooks        string = "books"
	ZBooksCreated string = "books:created"
	KBooksSeq     string = "books:sequence"
	// KBookVersion prefixes the per-book key watched by updates.
	KBookVersion string = "books:version:"
)

// bookVersionKey is set on insert, bumped on update and removed on delete.
func bookVersionKey(id int64) string {
	return KBookVersion + strconv.FormatInt(id, 10)
}

// createdMember pads the id so that members with equal scores
// sort by numeric id.
func createdMember(id int64) string {
	return fmt.Sprintf("%020d", id)
}

// createdScore is exact in a float64 since creation times are kept
// at microsecond precision.
func createdScore(t time.Time) float64 {
	return float64(t.UnixMicro())
}

// maxUpdateRetries bounds the optimistic transaction retries of an update.
const maxUpdateRetries = 5

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
	clock  Clocker
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, clock Clocker, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
		clock:  clock,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
		PoolTimeout:  config.PoolTimeout,
		Password:     config.Password,
		Username:     config.Username,
		DB:           config.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %w", err)
	}
	return client, nil
}

// Close shuts down the redis client.
func (rs *redisBookStorage) Close() error {
	return rs.client.Close()
}

// Save inserts a new book or updates an existing one.
func (rs *redisBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	if book.ID == 0 {
		return rs.insert(ctx, book)
	}
	return rs.update(ctx, book)
}

func (rs *redisBookStorage) insert(ctx context.Context, book Book) (Book, error) {
	id, err := rs.client.Incr(ctx, KBooksSeq).Result()
	if err != nil {
		return Book{}, err
	}
	book.ID = id
	book.CreatedAt = rs.clock.Now().Truncate(time.Microsecond)
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return Book{}, err
	}
	_, err = rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, HBooks, strconv.FormatInt(id, 10), bookBytes)
		pipe.ZAdd(ctx, ZBooksCreated, redis.Z{Score: createdScore(book.CreatedAt), Member: createdMember(id)})
		pipe.Set(ctx, bookVersionKey(id), 0, 0)
		return nil
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// update replaces the book only while it still exists. The book version key is
// watched so that a concurrent delete aborts the transaction instead of
// re-creating the book, while writes on other books do not conflict.
func (rs *redisBookStorage) update(ctx context.Context, book Book) (Book, error) {
	member := strconv.FormatInt(book.ID, 10)
	versionKey := bookVersionKey(book.ID)
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, HBooks, member).Result()
		if errors.Is(err, redis.Nil) {
			return ErrBookNotFound
		}
		if err != nil {
			return err
		}
		var stored Book
		if err = json.Unmarshal([]byte(current), &stored); err != nil {
			return err
		}
		book.CreatedAt = stored.CreatedAt
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, HBooks, member, bookBytes)
			pipe.Incr(ctx, versionKey)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := rs.client.Watch(ctx, txf, versionKey)
		if err == nil {
			return book, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			rs.logger.Debug("redis: book update conflicted, retrying", zap.Int64("book.id", book.ID), zap.Int("attempt", i+1))
			continue
		}
		return Book{}, err
	}
	return Book{}, fmt.Errorf("redis: book %d update: too many conflicts", book.ID)
}

// FindByID retrieves a book record based on its ID.
func (rs *redisBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, strconv.FormatInt(id, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// Delete removes a book record and its creation index entry.
func (rs *redisBookStorage) Delete(ctx context.Context, book Book) error {
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, HBooks, strconv.FormatInt(book.ID, 10))
		pipe.ZRem(ctx, ZBooksCreated, createdMember(book.ID))
		pipe.Del(ctx, bookVersionKey(book.ID))
		return nil
	})
	return err
}

// FindAll returns a page of books. Creation time ordering is served by the
// sorted set, any other ordering falls back to an in-memory sort.
func (rs *redisBookStorage) FindAll(ctx context.Context, page PageRequest) ([]Book, error) {
	if page.Sort.Field != SortByCreatedAt || page.Size <= 0 {
		books, err := rs.loadAll(ctx)
		if err != nil {
			return nil, err
		}
		sortBooks(books, page.Sort)
		return paginate(books, page), nil
	}

	start := int64(page.Offset())
	stop := int64(math.MaxInt64)
	if start <= math.MaxInt64-int64(page.Size) {
		stop = start + int64(page.Size) - 1
	}
	var members []string
	var err error
	if page.Sort.Direction == Desc {
		members, err = rs.client.ZRevRange(ctx, ZBooksCreated, start, stop).Result()
	} else {
		members, err = rs.client.ZRange(ctx, ZBooksCreated, start, stop).Result()
	}
	if err != nil {
		return nil, err
	}
	return rs.loadMany(ctx, members)
}

// FindByTitleContains returns a sorted page of books whose title contains the given text.
func (rs *redisBookStorage) FindByTitleContains(ctx context.Context, title string, page PageRequest) ([]Book, error) {
	books, err := rs.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	books = filterByTitle(books, title)
	sortBooks(books, page.Sort)
	return paginate(books, page), nil
}

func (rs *redisBookStorage) loadAll(ctx context.Context) ([]Book, error) {
	values, err := rs.client.HVals(ctx, HBooks).Result()
	if err != nil {
		return nil, err
	}
	books := make([]Book, 0, len(values))
	for _, bookJSONString := range values {
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// loadMany fetches the books of the given sorted set members keeping
// their order. Books removed in between are skipped.
func (rs *redisBookStorage) loadMany(ctx context.Context, members []string) ([]Book, error) {
	books := make([]Book, 0, len(members))
	if len(members) == 0 {
		return books, nil
	}
	fields := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid %s member %q: %w", ZBooksCreated, m, err)
		}
		fields = append(fields, strconv.FormatInt(id, 10))
	}
	values, err := rs.client.HMGet(ctx, HBooks, fields...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var book Book
		if err = json.Unmarshal([]byte(s), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}
