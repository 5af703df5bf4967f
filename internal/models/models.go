// Package models defines the data structures used throughout the application.
// It includes the catalog and loan entities persisted in the database as well as
// the request and response payloads exchanged over the HTTP API.
package models

import "encoding/json"

// Book represents a title in the catalog together with its available stock.
// Quantity counts the copies currently on the shelf; it never goes below zero.
type Book struct {
	ID          string  `json:"id,omitempty"`
	BookName    string  `json:"bookName"`
	AuthorName  string  `json:"authorName"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	Rating      float64 `json:"rating"`
	PhotoURL    string  `json:"photoUrl"`
	Description string  `json:"description"`
}

// Category represents a named grouping for books.
// Categories are read-only from this service's perspective.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BorrowRecord represents one borrower holding one copy of one book.
// UserEmail and BookName are the fields the service interprets; any other
// fields the client submits (due date and so on) are preserved verbatim in
// Details and flattened back into the JSON representation.
type BorrowRecord struct {
	ID        string
	UserEmail string
	BookName  string
	Details   map[string]interface{}
}

// UnmarshalJSON splits an incoming flat JSON object into the interpreted
// fields and the schema-agnostic remainder.
func (r *BorrowRecord) UnmarshalJSON(data []byte) error {
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["id"].(string); ok {
		r.ID = v
	}
	if v, ok := raw["userEmail"].(string); ok {
		r.UserEmail = v
	}
	if v, ok := raw["bookName"].(string); ok {
		r.BookName = v
	}
	delete(raw, "id")
	delete(raw, "userEmail")
	delete(raw, "bookName")

	if len(raw) > 0 {
		r.Details = raw
	}
	return nil
}

// MarshalJSON flattens the record back into a single JSON object, with the
// interpreted fields taking precedence over anything in Details.
func (r BorrowRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Details)+3)
	for key, value := range r.Details {
		flat[key] = value
	}
	if r.ID != "" {
		flat["id"] = r.ID
	}
	flat["userEmail"] = r.UserEmail
	flat["bookName"] = r.BookName
	return json.Marshal(flat)
}

// UpdateQuantityRequest represents the payload for adjusting a book's stock.
// Quantity is a pointer so a missing field can be told apart from zero.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// InsertResponse acknowledges a write that created a new record.
type InsertResponse struct {
	InsertedID string `json:"insertedId"`
}

// AckResponse acknowledges a write that modified or removed existing records.
type AckResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// SuccessResponse is returned by the authentication endpoints.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents a generic error response payload.
// It contains a human-readable description of the encountered error.
type ErrorResponse struct {
	Message string `json:"message"`
}
