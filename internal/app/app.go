// Package app provides the core business logic for the library catalog and loan service.
// It handles catalog queries and writes, the borrow/return lifecycle of loan records,
// and the issuance of authentication tokens. The package integrates with the storage
// layer for data persistence and uses the auth package for token generation.
// Logging functionality is provided via the logger package.
package app

import (
	"context"
	"errors"
	"library_service/internal/models"
	"library_service/internal/pkg/auth"
	"library_service/internal/pkg/logger"
	"library_service/internal/storage"

	"github.com/google/uuid"
)

// Predefined errors for missing required parameters in requests.
var (
	// ErrMissingEmail indicates that the login payload carries no email to identify the user by.
	ErrMissingEmail = errors.New("app: missing email")
	// ErrMissingBookName indicates that a book payload carries no name.
	ErrMissingBookName = errors.New("app: missing book name")
	// ErrMissingEmailOrBookName indicates that a loan operation lacks the borrower email or the book name.
	ErrMissingEmailOrBookName = errors.New("app: missing email or book name")
	// ErrMissingQuantity indicates that a quantity adjustment carries no quantity field.
	ErrMissingQuantity = errors.New("app: missing quantity")
)

// App encapsulates the application logic and dependencies required to process requests.
// It interacts with the storage layer and uses a logger for error and activity logging.
type App struct {
	db     storage.Storage // Database storage layer for persistent data operations.
	secret string          // Signing secret for issued tokens.
	log    *logger.Logger  // Logger for logging application events and errors.
}

// NewApp creates and returns a new instance of App with the provided storage,
// signing secret, and logger dependencies.
func NewApp(db storage.Storage, secret string, log *logger.Logger) *App {
	return &App{db: db, secret: secret, log: log}
}

// ProcessLogin issues a signed token embedding the posted user object.
// The object must contain a non-empty email; everything else is carried verbatim.
func (app *App) ProcessLogin(user map[string]interface{}) (string, error) {
	email, _ := user["email"].(string)
	if email == "" {
		return "", ErrMissingEmail
	}

	token, err := auth.GenerateToken(user, app.secret)
	if err != nil {
		return "", err
	}

	return token, nil
}

// ProcessListCategories returns every category record.
func (app *App) ProcessListCategories(ctx context.Context) ([]models.Category, error) {
	return app.db.GetCategories(ctx)
}

// ProcessListBooks returns the catalog, restricted to an exact-match category
// name when one is given.
func (app *App) ProcessListBooks(ctx context.Context, category string) ([]models.Book, error) {
	return app.db.GetBooks(ctx, storage.BookFilter{Category: category})
}

// ProcessGetBook retrieves a single book by identifier.
func (app *App) ProcessGetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	return app.db.GetBook(ctx, id)
}

// ProcessCreateBook validates and inserts a new book record,
// returning the generated identifier.
func (app *App) ProcessCreateBook(ctx context.Context, book *models.Book) (uuid.UUID, error) {
	if book.BookName == "" {
		return uuid.Nil, ErrMissingBookName
	}

	return app.db.CreateBook(ctx, book)
}

// ProcessReplaceBook overwrites the book with the given identifier,
// inserting a record under that identifier when none exists.
func (app *App) ProcessReplaceBook(ctx context.Context, id uuid.UUID, book *models.Book) error {
	if book.BookName == "" {
		return ErrMissingBookName
	}

	return app.db.UpsertBook(ctx, id, book)
}

// ProcessPatchQuantity adjusts only the quantity field of the identified book.
func (app *App) ProcessPatchQuantity(ctx context.Context, id uuid.UUID, req models.UpdateQuantityRequest) error {
	if req.Quantity == nil {
		return ErrMissingQuantity
	}

	return app.db.UpdateBookQuantity(ctx, id, *req.Quantity)
}

// ProcessListBorrowed returns loan records, restricted to one borrower's email
// when one is given.
func (app *App) ProcessListBorrowed(ctx context.Context, email string) ([]models.BorrowRecord, error) {
	return app.db.GetBorrowedBooks(ctx, storage.BorrowFilter{UserEmail: email})
}

// ProcessFindBorrowed returns the loan records matching both the borrower email
// and the book name exactly. Both fields are required.
func (app *App) ProcessFindBorrowed(ctx context.Context, email, bookName string) ([]models.BorrowRecord, error) {
	if email == "" || bookName == "" {
		return nil, ErrMissingEmailOrBookName
	}

	return app.db.GetBorrowedBooks(ctx, storage.BorrowFilter{UserEmail: email, BookName: bookName})
}

// ProcessBorrow validates the loan payload and records the loan, taking one copy
// off the shelf in the same transaction via the storage layer.
func (app *App) ProcessBorrow(ctx context.Context, record *models.BorrowRecord) (uuid.UUID, error) {
	if record.UserEmail == "" || record.BookName == "" {
		return uuid.Nil, ErrMissingEmailOrBookName
	}

	return app.db.BorrowBook(ctx, record)
}

// ProcessReturn removes the identified loan record held by the given borrower
// and puts the copy back on the shelf.
func (app *App) ProcessReturn(ctx context.Context, id uuid.UUID, userEmail string) error {
	return app.db.ReturnBook(ctx, id, userEmail)
}
