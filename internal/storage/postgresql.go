// Package storage provides primitives for connecting to and interacting with data storage systems.
// It defines the Storage interface along with a PostgreSQL implementation that manages the book
// catalog, the category list, and the borrowed-book records of the library service.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"library_service/internal/models"
	"library_service/internal/pkg/logger"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	getCategoriesQuery  = `SELECT id, name FROM categories ORDER BY name;`
	getBooksQuery       = `SELECT id, book_name, author_name, category, quantity, rating, photo_url, description FROM books`
	getBookQuery        = `SELECT id, book_name, author_name, category, quantity, rating, photo_url, description FROM books WHERE id = $1;`
	createBookQuery     = `INSERT INTO books (book_name, author_name, category, quantity, rating, photo_url, description) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id;`
	upsertBookQuery     = `INSERT INTO books (id, book_name, author_name, category, quantity, rating, photo_url, description) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO UPDATE SET book_name = EXCLUDED.book_name, author_name = EXCLUDED.author_name, category = EXCLUDED.category, quantity = EXCLUDED.quantity, rating = EXCLUDED.rating, photo_url = EXCLUDED.photo_url, description = EXCLUDED.description, updated_at = NOW();`
	updateQuantityQuery = `UPDATE books SET quantity = $1, updated_at = NOW() WHERE id = $2;`
	decrementStockQuery = `UPDATE books SET quantity = quantity - 1, updated_at = NOW() WHERE book_name = $1 AND quantity > 0;`
	incrementStockQuery = `UPDATE books SET quantity = quantity + 1, updated_at = NOW() WHERE book_name = $1;`
	bookExistsQuery     = `SELECT EXISTS (SELECT 1 FROM books WHERE book_name = $1);`
	getBorrowedQuery    = `SELECT id, user_email, book_name, details FROM borrowed_books`
	insertBorrowQuery   = `INSERT INTO borrowed_books (user_email, book_name, details) VALUES ($1, $2, $3) RETURNING id;`
	deleteBorrowQuery   = `DELETE FROM borrowed_books WHERE id = $1 AND user_email = $2 RETURNING book_name;`
)

// ErrNoCopiesAvailable indicates that a borrow attempt found no copy left on
// the shelf. A book name matching no record at all is reported as sql.ErrNoRows.
var ErrNoCopiesAvailable = errors.New("storage: no copies available")

// Storage defines the methods required for data storage operations.
// Missing records are reported as sql.ErrNoRows.
type Storage interface {
	// Close closes the database connection.
	Close()

	// Catalog read methods.
	GetCategories(ctx context.Context) ([]models.Category, error)
	GetBooks(ctx context.Context, filter BookFilter) ([]models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)

	// Catalog write methods.
	CreateBook(ctx context.Context, book *models.Book) (uuid.UUID, error)
	UpsertBook(ctx context.Context, id uuid.UUID, book *models.Book) error
	UpdateBookQuantity(ctx context.Context, id uuid.UUID, quantity int) error

	// Loan methods. BorrowBook and ReturnBook keep the book's quantity
	// consistent with the set of loan records within one transaction.
	GetBorrowedBooks(ctx context.Context, filter BorrowFilter) ([]models.BorrowRecord, error)
	BorrowBook(ctx context.Context, record *models.BorrowRecord) (uuid.UUID, error)
	ReturnBook(ctx context.Context, id uuid.UUID, userEmail string) error
}

// PostgreSQL implements the Storage interface using a PostgreSQL database.
type PostgreSQL struct {
	db  *sql.DB        // Connection to the database.
	log *logger.Logger // Logger for recording events and errors.
}

// NewPostgreSQL creates a new PostgreSQL instance with the provided connection string and logger.
// It opens the connection and pings the database to ensure connectivity.
func NewPostgreSQL(configDBString string, l *logger.Logger) (*PostgreSQL, error) {
	db, err := sql.Open("pgx", configDBString)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		l.Sugar().Errorf("Database ping failed: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	return &PostgreSQL{db: db, log: l}, nil
}

// Close closes the database connection if it is open.
func (postgresql *PostgreSQL) Close() {
	if postgresql.db != nil {
		postgresql.db.Close()
	}
}

// GetCategories returns every category record.
func (postgresql *PostgreSQL) GetCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := postgresql.db.QueryContext(ctx, getCategoriesQuery)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getCategoriesQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		category := models.Category{}
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan a row in GetCategories method: %s", err)
			return nil, err
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in GetCategories method: %s", err)
		return categories, err
	}

	return categories, nil
}

// GetBooks returns the book records matching the given filter,
// or the full catalog when the filter is empty.
func (postgresql *PostgreSQL) GetBooks(ctx context.Context, filter BookFilter) ([]models.Book, error) {
	where, args := filter.where()
	rows, err := postgresql.db.QueryContext(ctx, getBooksQuery+where+";", args...)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getBooksQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	books := make([]models.Book, 0)
	for rows.Next() {
		book := models.Book{}
		err := rows.Scan(&book.ID, &book.BookName, &book.AuthorName, &book.Category,
			&book.Quantity, &book.Rating, &book.PhotoURL, &book.Description)
		if err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan a row in GetBooks method: %s", err)
			return nil, err
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in GetBooks method: %s", err)
		return books, err
	}

	return books, nil
}

// GetBook retrieves a single book by its identifier.
// It returns sql.ErrNoRows when no record matches.
func (postgresql *PostgreSQL) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book := &models.Book{}
	err := postgresql.db.QueryRowContext(ctx, getBookQuery, id).Scan(
		&book.ID, &book.BookName, &book.AuthorName, &book.Category,
		&book.Quantity, &book.Rating, &book.PhotoURL, &book.Description)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			postgresql.log.Sugar().Errorf("Failed to execute a query getBookQuery: %s", err)
		}
		return nil, err
	}

	return book, nil
}

// CreateBook inserts a new book record and returns the generated identifier.
func (postgresql *PostgreSQL) CreateBook(ctx context.Context, book *models.Book) (uuid.UUID, error) {
	var id uuid.UUID
	err := postgresql.db.QueryRowContext(ctx, createBookQuery,
		book.BookName, book.AuthorName, book.Category,
		book.Quantity, book.Rating, book.PhotoURL, book.Description).Scan(&id)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query createBookQuery: %s", err)
		return uuid.Nil, err
	}

	return id, nil
}

// UpsertBook overwrites the mutable fields of the book with the given identifier,
// inserting a new record under that identifier when none exists.
func (postgresql *PostgreSQL) UpsertBook(ctx context.Context, id uuid.UUID, book *models.Book) error {
	_, err := postgresql.db.ExecContext(ctx, upsertBookQuery,
		id, book.BookName, book.AuthorName, book.Category,
		book.Quantity, book.Rating, book.PhotoURL, book.Description)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query upsertBookQuery: %s", err)
		return err
	}

	return nil
}

// UpdateBookQuantity sets the quantity of the book with the given identifier,
// leaving every other field untouched. It returns sql.ErrNoRows when the
// identifier matches no record; nothing is created in that case.
func (postgresql *PostgreSQL) UpdateBookQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	result, err := postgresql.db.ExecContext(ctx, updateQuantityQuery, quantity, id)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query updateQuantityQuery: %s", err)
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in updateQuantityQuery: %s", err)
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// GetBorrowedBooks returns the loan records matching the given filter,
// or every loan record when the filter is empty.
func (postgresql *PostgreSQL) GetBorrowedBooks(ctx context.Context, filter BorrowFilter) ([]models.BorrowRecord, error) {
	where, args := filter.where()
	rows, err := postgresql.db.QueryContext(ctx, getBorrowedQuery+where+";", args...)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getBorrowedQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	records := make([]models.BorrowRecord, 0)
	for rows.Next() {
		record := models.BorrowRecord{}
		var details []byte
		if err := rows.Scan(&record.ID, &record.UserEmail, &record.BookName, &details); err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan a row in GetBorrowedBooks method: %s", err)
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &record.Details); err != nil {
				postgresql.log.Sugar().Errorf("Failed to decode loan details in GetBorrowedBooks method: %s", err)
				return nil, err
			}
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in GetBorrowedBooks method: %s", err)
		return records, err
	}

	return records, nil
}

// BorrowBook takes one copy of the named book off the shelf and records the loan.
// The conditional decrement and the insert run in one transaction, so two
// concurrent borrows of the last copy yield exactly one success. When the
// decrement matches no row it returns sql.ErrNoRows for an unknown book name
// and ErrNoCopiesAvailable for an exhausted one.
func (postgresql *PostgreSQL) BorrowBook(ctx context.Context, record *models.BorrowRecord) (uuid.UUID, error) {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, decrementStockQuery, record.BookName)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query decrementStockQuery: %s", err)
		return uuid.Nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in decrementStockQuery: %s", err)
		return uuid.Nil, err
	}
	if rows == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, bookExistsQuery, record.BookName).Scan(&exists); err != nil {
			postgresql.log.Sugar().Errorf("Failed to execute a query bookExistsQuery: %s", err)
			return uuid.Nil, err
		}
		if !exists {
			return uuid.Nil, sql.ErrNoRows
		}
		return uuid.Nil, ErrNoCopiesAvailable
	}

	details := []byte("{}")
	if record.Details != nil {
		if details, err = json.Marshal(record.Details); err != nil {
			postgresql.log.Sugar().Errorf("Failed to encode loan details in BorrowBook method: %s", err)
			return uuid.Nil, err
		}
	}

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, insertBorrowQuery, record.UserEmail, record.BookName, details).Scan(&id)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query insertBorrowQuery: %s", err)
		return uuid.Nil, err
	}

	if err = tx.Commit(); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

// ReturnBook removes the loan record with the given identifier and puts the copy
// back on the shelf, in one transaction. The delete predicate includes the
// borrower's email, so a loan can only be returned by the user who holds it;
// a missing record or a foreign loan both surface as sql.ErrNoRows.
func (postgresql *PostgreSQL) ReturnBook(ctx context.Context, id uuid.UUID, userEmail string) error {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var bookName string
	err = tx.QueryRowContext(ctx, deleteBorrowQuery, id, userEmail).Scan(&bookName)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			postgresql.log.Sugar().Errorf("Failed to execute a query deleteBorrowQuery: %s", err)
		}
		return err
	}

	if _, err = tx.ExecContext(ctx, incrementStockQuery, bookName); err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query incrementStockQuery: %s", err)
		return err
	}

	return tx.Commit()
}
