package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rnrnshn/alx-polly/internal/config"
	"github.com/rnrnshn/alx-polly/internal/db"
	"github.com/rnrnshn/alx-polly/internal/models"

	"gorm.io/gorm"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, time.Now().UnixNano())

	conn, err := db.Open(config.DatabaseSQLite, dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

// CreateTestProfile inserts a profile with a throwaway password hash.
func CreateTestProfile(t *testing.T, conn *gorm.DB, email string) *models.Profile {
	t.Helper()

	p := &models.Profile{Email: email, DisplayName: strings.Split(email, "@")[0], PasswordHash: "x"}
	if err := conn.Create(p).Error; err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}
	return p
}

// PollOpts tweaks the poll created by CreateTestPoll.
type PollOpts struct {
	Status   models.PollStatus
	Private  bool
	Multiple bool
	Expires  *time.Time
}

// CreateTestPoll inserts a poll owned by owner with one option per label and
// returns the poll with its options in order.
func CreateTestPoll(t *testing.T, conn *gorm.DB, owner *models.Profile, opts PollOpts, labels ...string) *models.Poll {
	t.Helper()

	status := opts.Status
	if status == "" {
		status = models.PollStatusActive
	}
	poll := &models.Poll{
		Title:              "Test Poll",
		Status:             status,
		IsPublic:           !opts.Private,
		AllowMultipleVotes: opts.Multiple,
		ExpiresAt:          opts.Expires,
		OwnerID:            owner.ID,
	}
	if err := conn.Omit("Owner", "Options").Create(poll).Error; err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	for i, label := range labels {
		opt := models.PollOption{PollID: poll.ID, Text: label, DisplayOrder: i + 1}
		if err := conn.Create(&opt).Error; err != nil {
			t.Fatalf("Failed to create test option: %v", err)
		}
		poll.Options = append(poll.Options, opt)
	}
	return poll
}

// CountVotes returns the number of vote rows for a poll.
func CountVotes(t *testing.T, conn *gorm.DB, pollID string) int64 {
	t.Helper()

	var n int64
	if err := conn.Model(&models.Vote{}).Where("poll_id = ?", pollID).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return n
}

// MakeRequest builds a request with an optional JSON body.
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into v.
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
