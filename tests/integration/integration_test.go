package integrations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"library_service/internal/app"
	"library_service/internal/models"
	"library_service/internal/pkg/logger"
	"library_service/internal/service"
	"library_service/internal/storage"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/suite"
)

var testDatabaseURI, testJWTSecret string

func init() {
	if err := godotenv.Load("../integration/.env"); err != nil {
		log.Println("No .env file found, using default values")
	}

	testDatabaseURI = os.Getenv("TEST_DATABASE_URI")
	testJWTSecret = os.Getenv("TEST_JWT_SECRET")
	if testJWTSecret == "" {
		testJWTSecret = "supersecretkey"
	}
}

type IntegrationTestSuite struct {
	suite.Suite
	server *httptest.Server
	client *http.Client
	db     *storage.PostgreSQL
	email  string
}

func (s *IntegrationTestSuite) SetupSuite() {
	if testDatabaseURI == "" {
		s.T().Skip("TEST_DATABASE_URI is not set, skipping integration tests")
	}

	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger("info"); err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	s.db, err = storage.NewPostgreSQL(testDatabaseURI, l)
	s.Require().NoError(err, "Error connecting to test database")

	appInstance := app.NewApp(s.db, testJWTSecret, l)
	serviceInstance := service.NewService(appInstance, "localhost:0", testJWTSecret, l)

	s.server = httptest.NewServer(serviceInstance.NewRouter())

	jar, err := cookiejar.New(nil)
	s.Require().NoError(err, "Error creating cookie jar")
	s.client = &http.Client{Jar: jar}

	s.email = fmt.Sprintf("reader-%d@example.com", time.Now().UnixNano())
	s.login(s.email)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// login obtains the token cookie for the given email; the cookie jar
// attaches it to every subsequent request.
func (s *IntegrationTestSuite) login(email string) {
	reqBody, err := json.Marshal(map[string]interface{}{"email": email})
	s.Require().NoError(err, "Error marshaling login request")

	resp, err := s.client.Post(s.server.URL+"/jwt", "application/json", bytes.NewBuffer(reqBody))
	s.Require().NoError(err, "Error sending login request")
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for login")
}

func (s *IntegrationTestSuite) createBook(book models.Book) string {
	reqBody, err := json.Marshal(book)
	s.Require().NoError(err, "Error marshaling book")

	resp, err := s.client.Post(s.server.URL+"/api/v1/books", "application/json", bytes.NewBuffer(reqBody))
	s.Require().NoError(err, "Error creating book")
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode, "Expected status 201 for book creation")

	var insertResp models.InsertResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&insertResp))
	s.Require().NotEmpty(insertResp.InsertedID)
	return insertResp.InsertedID
}

func (s *IntegrationTestSuite) getBook(id string) models.Book {
	resp, err := s.client.Get(s.server.URL + "/api/v1/books/" + id)
	s.Require().NoError(err, "Error fetching book")
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for book fetch")

	var book models.Book
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&book))
	return book
}

func (s *IntegrationTestSuite) borrow(bookName string) (*http.Response, models.InsertResponse) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"userEmail": s.email,
		"bookName":  bookName,
		"dueDate":   "2026-09-30",
	})
	s.Require().NoError(err, "Error marshaling borrow request")

	resp, err := s.client.Post(s.server.URL+"/api/v1/borrowedbooks", "application/json", bytes.NewBuffer(reqBody))
	s.Require().NoError(err, "Error sending borrow request")
	defer resp.Body.Close()

	var insertResp models.InsertResponse
	if resp.StatusCode == http.StatusCreated {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&insertResp))
	}
	return resp, insertResp
}

func (s *IntegrationTestSuite) TestCatalogRoundTrip() {
	bookName := fmt.Sprintf("Dune %d", time.Now().UnixNano())
	created := models.Book{BookName: bookName, AuthorName: "Herbert", Category: "SciFi",
		Quantity: 3, Rating: 4.5, PhotoURL: "http://img", Description: "Desert planet"}

	id := s.createBook(created)

	book := s.getBook(id)
	s.Equal(bookName, book.BookName)
	s.Equal("Herbert", book.AuthorName)
	s.Equal("SciFi", book.Category)
	s.Equal(3, book.Quantity)

	resp, err := s.client.Get(s.server.URL + "/api/v1/books?category=SciFi")
	s.Require().NoError(err, "Error listing books")
	var books []models.Book
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&books))
	resp.Body.Close()

	found := false
	for _, b := range books {
		s.Equal("SciFi", b.Category, "category filter should be exact")
		if b.BookName == bookName {
			found = true
		}
	}
	s.True(found, "created book should appear in its category listing")
}

func (s *IntegrationTestSuite) TestPatchQuantityOnly() {
	bookName := fmt.Sprintf("Patchable %d", time.Now().UnixNano())
	id := s.createBook(models.Book{BookName: bookName, AuthorName: "Author", Category: "Drama",
		Quantity: 3, Rating: 4.0, PhotoURL: "http://img", Description: "Before patch"})

	reqBody := []byte(`{"quantity": 7}`)
	req, err := http.NewRequest(http.MethodPatch, s.server.URL+"/api/v1/books/"+id, bytes.NewBuffer(reqBody))
	s.Require().NoError(err, "Error creating patch request")
	resp, err := s.client.Do(req)
	s.Require().NoError(err, "Error sending patch request")
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for quantity patch")

	book := s.getBook(id)
	s.Equal(7, book.Quantity)
	s.Equal(bookName, book.BookName)
	s.Equal("Author", book.AuthorName)
	s.Equal("Drama", book.Category)
	s.Equal("Before patch", book.Description)
}

func (s *IntegrationTestSuite) TestReplaceBookUpsert() {
	id := uuid.New().String()
	bookName := fmt.Sprintf("Upsertable %d", time.Now().UnixNano())

	put := func(book models.Book) {
		reqBody, err := json.Marshal(book)
		s.Require().NoError(err, "Error marshaling book")
		req, err := http.NewRequest(http.MethodPut, s.server.URL+"/api/v1/books/"+id, bytes.NewBuffer(reqBody))
		s.Require().NoError(err, "Error creating replace request")
		resp, err := s.client.Do(req)
		s.Require().NoError(err, "Error sending replace request")
		resp.Body.Close()
		s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for replace")
	}

	put(models.Book{BookName: bookName, AuthorName: "First", Category: "Drama",
		Quantity: 1, Rating: 3.0, Description: "First draft"})

	book := s.getBook(id)
	s.Equal(id, book.ID, "upsert should insert under the supplied id")
	s.Equal("First", book.AuthorName)

	put(models.Book{BookName: bookName, AuthorName: "Second", Category: "History",
		Quantity: 5, Rating: 4.8, Description: "Second draft"})

	book = s.getBook(id)
	s.Equal(id, book.ID)
	s.Equal("Second", book.AuthorName)
	s.Equal("History", book.Category)
	s.Equal(5, book.Quantity)
	s.Equal("Second draft", book.Description)
}

func (s *IntegrationTestSuite) TestBorrowUnknownBook() {
	bookName := fmt.Sprintf("Nonexistent %d", time.Now().UnixNano())

	resp, _ := s.borrow(bookName)
	s.Equal(http.StatusNotFound, resp.StatusCode, "borrowing an unknown book should not be a conflict")
}

func (s *IntegrationTestSuite) TestBorrowAndReturn() {
	bookName := fmt.Sprintf("Borrowable %d", time.Now().UnixNano())
	id := s.createBook(models.Book{BookName: bookName, AuthorName: "Author", Category: "Drama",
		Quantity: 2, Rating: 4.0})

	resp, insertResp := s.borrow(bookName)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, "Expected status 201 for borrow")

	s.Equal(1, s.getBook(id).Quantity, "borrowing should take one copy off the shelf")

	checkURL := s.server.URL + "/api/v1/borrowedbooks/check?email=" + s.email + "&bookName=" + bookName
	resp, err := s.client.Get(checkURL)
	s.Require().NoError(err, "Error checking loan")
	var records []models.BorrowRecord
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&records))
	resp.Body.Close()
	s.Require().Len(records, 1, "the loan should be visible via the check endpoint")
	s.Equal("2026-09-30", records[0].Details["dueDate"])

	req, err := http.NewRequest(http.MethodDelete, s.server.URL+"/api/v1/borrowedbooks/"+insertResp.InsertedID, nil)
	s.Require().NoError(err, "Error creating return request")
	resp, err = s.client.Do(req)
	s.Require().NoError(err, "Error sending return request")
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for return")

	s.Equal(2, s.getBook(id).Quantity, "returning should put the copy back on the shelf")

	resp, err = s.client.Get(checkURL)
	s.Require().NoError(err, "Error re-checking loan")
	records = nil
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&records))
	resp.Body.Close()
	s.Len(records, 0, "the loan record should be gone after the return")
}

func (s *IntegrationTestSuite) TestConcurrentBorrowOfLastCopy() {
	bookName := fmt.Sprintf("LastCopy %d", time.Now().UnixNano())
	id := s.createBook(models.Book{BookName: bookName, AuthorName: "Author", Category: "Drama",
		Quantity: 1, Rating: 4.0})

	const attempts = 2
	statuses := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reqBody, _ := json.Marshal(map[string]interface{}{"userEmail": s.email, "bookName": bookName})
			resp, err := s.client.Post(s.server.URL+"/api/v1/borrowedbooks", "application/json", bytes.NewBuffer(reqBody))
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	s.Equal(1, created, "exactly one concurrent borrow should succeed")
	s.Equal(1, conflicts, "the other concurrent borrow should be rejected")
	s.Equal(0, s.getBook(id).Quantity, "quantity must never go negative")
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
