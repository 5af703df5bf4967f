package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookFilterWhere(t *testing.T) {
	testCases := []struct {
		name          string
		filter        BookFilter
		expectedWhere string
		expectedArgs  []interface{}
	}{
		{
			name:          "Empty filter selects everything",
			filter:        BookFilter{},
			expectedWhere: "",
			expectedArgs:  nil,
		},
		{
			name:          "Category filter",
			filter:        BookFilter{Category: "SciFi"},
			expectedWhere: " WHERE category = $1",
			expectedArgs:  []interface{}{"SciFi"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := tc.filter.where()
			assert.Equal(t, tc.expectedWhere, where)
			assert.Equal(t, tc.expectedArgs, args)
		})
	}
}

func TestBorrowFilterWhere(t *testing.T) {
	testCases := []struct {
		name          string
		filter        BorrowFilter
		expectedWhere string
		expectedArgs  []interface{}
	}{
		{
			name:          "Empty filter selects everything",
			filter:        BorrowFilter{},
			expectedWhere: "",
			expectedArgs:  nil,
		},
		{
			name:          "Email only",
			filter:        BorrowFilter{UserEmail: "reader@example.com"},
			expectedWhere: " WHERE user_email = $1",
			expectedArgs:  []interface{}{"reader@example.com"},
		},
		{
			name:          "Book name only",
			filter:        BorrowFilter{BookName: "Dune"},
			expectedWhere: " WHERE book_name = $1",
			expectedArgs:  []interface{}{"Dune"},
		},
		{
			name:          "Email and book name combined with AND",
			filter:        BorrowFilter{UserEmail: "reader@example.com", BookName: "Dune"},
			expectedWhere: " WHERE user_email = $1 AND book_name = $2",
			expectedArgs:  []interface{}{"reader@example.com", "Dune"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := tc.filter.where()
			assert.Equal(t, tc.expectedWhere, where)
			assert.Equal(t, tc.expectedArgs, args)
		})
	}
}
