package main

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type postgresBookStorage struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
	clock  Clocker
}

// GetPostgresPool provides a ready to use connections pool.
func GetPostgresPool(ctx context.Context, config *PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = config.ConnectTimeout
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %w", err)
	}
	return pool, nil
}

// MigratePostgres applies the embedded schema migrations.
func MigratePostgres(pool *pgxpool.Pool, table string) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	goose.SetTableName(table)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, clock Clocker, pool *pgxpool.Pool) BookStorage {
	return &postgresBookStorage{
		logger: logger,
		pool:   pool,
		clock:  clock,
	}
}

// Close releases the connections pool.
func (ps *postgresBookStorage) Close() error {
	ps.pool.Close()
	return nil
}

// Save inserts a new book or updates title and price of an existing one.
func (ps *postgresBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	if book.ID == 0 {
		err := ps.pool.QueryRow(ctx,
			`INSERT INTO books (title, price, created_at) VALUES ($1, $2, $3) RETURNING id, created_at`,
			book.Title, book.Price, ps.clock.Now(),
		).Scan(&book.ID, &book.CreatedAt)
		if err != nil {
			return Book{}, err
		}
		return book, nil
	}

	err := ps.pool.QueryRow(ctx,
		`UPDATE books SET title = $2, price = $3 WHERE id = $1 RETURNING created_at`,
		book.ID, book.Title, book.Price,
	).Scan(&book.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// FindByID retrieves a book record based on its ID.
func (ps *postgresBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	var b Book
	err := ps.pool.QueryRow(ctx,
		`SELECT id, title, price, created_at FROM books WHERE id = $1`, id,
	).Scan(&b.ID, &b.Title, &b.Price, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	return b, err
}

// Delete removes a book record.
func (ps *postgresBookStorage) Delete(ctx context.Context, book Book) error {
	_, err := ps.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, book.ID)
	return err
}

// FindAll returns a sorted page of books.
func (ps *postgresBookStorage) FindAll(ctx context.Context, page PageRequest) ([]Book, error) {
	query := `SELECT id, title, price, created_at FROM books ` + orderByClause(page.Sort) + ` LIMIT $1 OFFSET $2`
	return ps.list(ctx, query, limitArg(page), page.Offset())
}

// FindByTitleContains returns a sorted page of books whose title contains the given text.
func (ps *postgresBookStorage) FindByTitleContains(ctx context.Context, title string, page PageRequest) ([]Book, error) {
	query := `SELECT id, title, price, created_at FROM books WHERE strpos(title, $3) > 0 ` +
		orderByClause(page.Sort) + ` LIMIT $1 OFFSET $2`
	return ps.list(ctx, query, limitArg(page), page.Offset(), title)
}

func (ps *postgresBookStorage) list(ctx context.Context, query string, args ...interface{}) ([]Book, error) {
	rows, err := ps.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Price, &b.CreatedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// orderByClause builds the ORDER BY clause from a whitelisted sort.
func orderByClause(s Sort) string {
	dir := "ASC"
	if s.Direction == Desc {
		dir = "DESC"
	}
	if s.Field == SortByCreatedAt {
		return "ORDER BY created_at " + dir + ", id " + dir
	}
	return "ORDER BY id " + dir
}

// limitArg returns nil for an unbounded page, which postgres reads as LIMIT ALL.
func limitArg(page PageRequest) interface{} {
	if page.Size <= 0 {
		return nil
	}
	return page.Size
}
