// Package service contains HTTP handler implementations for the library management API endpoints.
// It orchestrates request parsing, calls the underlying business logic in the app package,
// handles errors (including database-specific errors), and writes appropriate HTTP responses.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"library_service/internal/app"
	"library_service/internal/models"
	"library_service/internal/pkg/auth"
	"library_service/internal/pkg/logger"
	"library_service/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const requestTimeout = 10 * time.Second

// handlers aggregates dependencies needed by HTTP handlers,
// including the application business logic and logger.
type handlers struct {
	app *app.App
	log *logger.Logger
}

// newHandlers initializes a new handlers instance with the provided app and logger dependencies.
func newHandlers(app *app.App, l *logger.Logger) *handlers {
	return &handlers{app: app, log: l}
}

// livenessHandler responds with a plain-text liveness message.
func (handlers *handlers) livenessHandler(res http.ResponseWriter, req *http.Request) {
	res.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res.WriteHeader(http.StatusOK)
	res.Write([]byte("Library Management is running"))
}

// loginHandler issues an authentication cookie.
// It reads the posted claims object, asks the business logic to sign a token over it,
// and stores the token in an HTTP-only cookie on the response.
func (handlers *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	var user map[string]interface{}
	if err = json.Unmarshal(requestBody, &user); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := handlers.app.ProcessLogin(user)
	if err != nil {
		if errors.Is(err, app.ErrMissingEmail) {
			writeErrorResponse(res, "missing email", http.StatusBadRequest)
			return
		}
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(res, auth.TokenCookie(token))
	writeJSONResponse(res, http.StatusOK, models.SuccessResponse{Success: true})
}

// logoutHandler instructs the client to discard the authentication cookie.
func (handlers *handlers) logoutHandler(res http.ResponseWriter, req *http.Request) {
	http.SetCookie(res, auth.ClearedTokenCookie())
	writeJSONResponse(res, http.StatusOK, models.SuccessResponse{Success: true})
}

// categoriesHandler returns every category record.
func (handlers *handlers) categoriesHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	categories, err := handlers.app.ProcessListCategories(ctx)
	if err != nil {
		writeErrorResponse(res, "failed to list categories", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusOK, categories)
}

// listBooksHandler returns the catalog, restricted by the optional
// category query parameter.
func (handlers *handlers) listBooksHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	books, err := handlers.app.ProcessListBooks(ctx, req.URL.Query().Get("category"))
	if err != nil {
		writeErrorResponse(res, "failed to list books", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusOK, books)
}

// getBookHandler returns a single book by its path identifier.
func (handlers *handlers) getBookHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeErrorResponse(res, "malformed book id", http.StatusBadRequest)
		return
	}

	book, err := handlers.app.ProcessGetBook(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErrorResponse(res, "book not found", http.StatusNotFound)
			return
		}
		writeErrorResponse(res, "failed to get book", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusOK, book)
}

// createBookHandler inserts a new book record and acknowledges with its identifier.
func (handlers *handlers) createBookHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	var book models.Book
	if err = json.Unmarshal(requestBody, &book); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	var pgError *pgconn.PgError
	id, err := handlers.app.ProcessCreateBook(ctx, &book)
	if err != nil {
		if errors.Is(err, app.ErrMissingBookName) {
			writeErrorResponse(res, "missing book name", http.StatusBadRequest)
			return
		}
		if ok := errors.As(err, &pgError); ok && pgError.Code == pgerrcode.CheckViolation {
			writeErrorResponse(res, "quantity cannot be negative", http.StatusBadRequest)
			return
		}
		if ok := errors.As(err, &pgError); ok && pgError.Code == pgerrcode.UniqueViolation {
			writeErrorResponse(res, "book with provided name already exists", http.StatusConflict)
			return
		}
		writeErrorResponse(res, "failed to create book", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusCreated, models.InsertResponse{InsertedID: id.String()})
}

// replaceBookHandler overwrites the identified book, inserting it when absent.
func (handlers *handlers) replaceBookHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeErrorResponse(res, "malformed book id", http.StatusBadRequest)
		return
	}

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	var book models.Book
	if err = json.Unmarshal(requestBody, &book); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	var pgError *pgconn.PgError
	if err = handlers.app.ProcessReplaceBook(ctx, id, &book); err != nil {
		if errors.Is(err, app.ErrMissingBookName) {
			writeErrorResponse(res, "missing book name", http.StatusBadRequest)
			return
		}
		if ok := errors.As(err, &pgError); ok && pgError.Code == pgerrcode.CheckViolation {
			writeErrorResponse(res, "quantity cannot be negative", http.StatusBadRequest)
			return
		}
		if ok := errors.As(err, &pgError); ok && pgError.Code == pgerrcode.UniqueViolation {
			writeErrorResponse(res, "book with provided name already exists", http.StatusConflict)
			return
		}
		writeErrorResponse(res, "failed to replace book", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusOK, models.AckResponse{Acknowledged: true})
}

// patchBookHandler adjusts only the quantity of the identified book.
func (handlers *handlers) patchBookHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeErrorResponse(res, "malformed book id", http.StatusBadRequest)
		return
	}

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	var updateRequest models.UpdateQuantityRequest
	if err = json.Unmarshal(requestBody, &updateRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	var pgError *pgconn.PgError
	if err = handlers.app.ProcessPatchQuantity(ctx, id, updateRequest); err != nil {
		if errors.Is(err, app.ErrMissingQuantity) {
			writeErrorResponse(res, "missing quantity", http.StatusBadRequest)
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			writeErrorResponse(res, "book not found", http.StatusNotFound)
			return
		}
		if ok := errors.As(err, &pgError); ok && pgError.Code == pgerrcode.CheckViolation {
			writeErrorResponse(res, "quantity cannot be negative", http.StatusBadRequest)
			return
		}
		writeErrorResponse(res, "failed to update quantity", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusOK, models.AckResponse{Acknowledged: true})
}

// listBorrowedHandler returns the loan records of the verified identity.
// The email query parameter defaults to the token's email when absent and is
// rejected when it names anyone else, so no caller can read another
// borrower's loans.
func (handlers *handlers) listBorrowedHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "not authorized", http.StatusUnauthorized)
		return
	}

	email := req.URL.Query().Get("email")
	if email == "" {
		email = claims.Email()
	}
	if email != claims.Email() {
		writeErrorResponse(res, "forbidden access", http.StatusForbidden)
		return
	}

	records, err := handlers.app.ProcessListBorrowed(ctx, email)
	if err != nil {
		writeErrorResponse(res, "failed to list borrowed books", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusOK, records)
}

// checkBorrowedHandler returns the loan records matching both the email and
// bookName query parameters, so a client can tell whether a user already
// holds a given title.
func (handlers *handlers) checkBorrowedHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "not authorized", http.StatusUnauthorized)
		return
	}

	email := req.URL.Query().Get("email")
	bookName := req.URL.Query().Get("bookName")
	if email != "" && email != claims.Email() {
		writeErrorResponse(res, "forbidden access", http.StatusForbidden)
		return
	}

	records, err := handlers.app.ProcessFindBorrowed(ctx, email, bookName)
	if err != nil {
		if errors.Is(err, app.ErrMissingEmailOrBookName) {
			writeErrorResponse(res, "missing email or bookName", http.StatusBadRequest)
			return
		}
		writeErrorResponse(res, "failed to check borrowed books", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusOK, records)
}

// borrowHandler records a new loan. The borrower email in the payload must
// match the verified identity, and the storage layer rejects the loan when
// no copy of the book is left.
func (handlers *handlers) borrowHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "not authorized", http.StatusUnauthorized)
		return
	}

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	var record models.BorrowRecord
	if err = json.Unmarshal(requestBody, &record); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	if record.UserEmail != "" && record.UserEmail != claims.Email() {
		writeErrorResponse(res, "forbidden access", http.StatusForbidden)
		return
	}

	id, err := handlers.app.ProcessBorrow(ctx, &record)
	if err != nil {
		if errors.Is(err, app.ErrMissingEmailOrBookName) {
			writeErrorResponse(res, "missing userEmail or bookName", http.StatusBadRequest)
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			writeErrorResponse(res, "book not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, storage.ErrNoCopiesAvailable) {
			writeErrorResponse(res, "no copies available", http.StatusConflict)
			return
		}
		writeErrorResponse(res, "failed to borrow book", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusCreated, models.InsertResponse{InsertedID: id.String()})
}

// returnHandler removes the identified loan record held by the verified
// identity and puts the copy back on the shelf.
func (handlers *handlers) returnHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "not authorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeErrorResponse(res, "malformed loan id", http.StatusBadRequest)
		return
	}

	if err = handlers.app.ProcessReturn(ctx, id, claims.Email()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErrorResponse(res, "loan record not found", http.StatusNotFound)
			return
		}
		writeErrorResponse(res, "failed to return book", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, http.StatusOK, models.AckResponse{Acknowledged: true})
}

// writeJSONResponse marshals the payload and writes it with the given status code.
func writeJSONResponse(res http.ResponseWriter, statusCode int, payload interface{}) {
	result, err := json.Marshal(payload)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	res.Write(result)
}

// writeErrorResponse writes a JSON-formatted error response to the HTTP response writer.
// It sets the Content-Type header, writes the appropriate HTTP status code, and encodes an ErrorResponse payload.
func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Message: errorInfo})
}
