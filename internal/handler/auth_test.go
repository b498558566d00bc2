package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/jok6r1/src-diplom/internal/config"
	"github.com/jok6r1/src-diplom/internal/repository"
	"github.com/jok6r1/src-diplom/internal/utils"
)

func testConfig() config.Config {
	return config.Config{
		DBTimeout:      time.Second,
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4,
		AlertThreshold: 2, // above any consensus score, so tests never publish
	}
}

func newAuthTest(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAuthHandler(testConfig(), repository.NewUserRepo(db)), mock
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRegisterCreated(t *testing.T) {
	h, mock := newAuthTest(t)
	e := echo.New()

	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", "alice@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	req, rec := jsonRequest(http.MethodPost, "/register",
		`{"username":"alice","email":"Alice@Example.com","password":"pw"}`)
	if err := h.Register(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["userId"].(float64) != 7 {
		t.Errorf("userId = %v, want 7", body["userId"])
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	h, mock := newAuthTest(t)
	e := echo.New()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))

	req, rec := jsonRequest(http.MethodPost, "/register",
		`{"username":"alice","email":"alice@example.com","password":"pw"}`)
	if err := h.Register(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	h, _ := newAuthTest(t)
	e := echo.New()

	req, rec := jsonRequest(http.MethodPost, "/register", `{"username":"alice"}`)
	if err := h.Register(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLoginSetsCookiesAndStoresRefresh(t *testing.T) {
	h, mock := newAuthTest(t)
	e := echo.New()

	hash, err := utils.HashPassword("pw", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cols := []string{"id", "username", "email", "password_hash", "is_active", "role", "refresh_token", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(7, "alice", "alice@example.com", hash, true, "user", nil, time.Now()))
	mock.ExpectExec("UPDATE users SET refresh_token").
		WithArgs(sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req, rec := jsonRequest(http.MethodPost, "/login",
		`{"email":"alice@example.com","password":"pw"}`)
	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	access, _ := body["accessToken"].(string)
	if access == "" || body["refreshToken"] == "" {
		t.Fatalf("missing tokens in %v", body)
	}
	claims, err := utils.ParseToken("test-secret", access)
	if err != nil {
		t.Fatalf("parsing issued token: %v", err)
	}
	if claims.UserID != 7 || claims.Role != "user" {
		t.Errorf("claims = %+v", claims)
	}

	names := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		names[ck.Name] = ck.HttpOnly
	}
	if !names["accessToken"] || !names["refreshToken"] {
		t.Errorf("cookies = %v, want httpOnly accessToken and refreshToken", names)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock := newAuthTest(t)
	e := echo.New()

	hash, _ := utils.HashPassword("pw", 4)
	cols := []string{"id", "username", "email", "password_hash", "is_active", "role", "refresh_token", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(7, "alice", "alice@example.com", hash, true, "user", nil, time.Now()))

	req, rec := jsonRequest(http.MethodPost, "/login",
		`{"email":"alice@example.com","password":"nope"}`)
	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCheckUserTaken(t *testing.T) {
	h, mock := newAuthTest(t)
	e := echo.New()

	mock.ExpectQuery("SELECT 1 FROM users").
		WithArgs("alice", "").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	req := httptest.NewRequest(http.MethodGet, "/check-user?username=alice", nil)
	rec := httptest.NewRecorder()
	if err := h.CheckUser(e.NewContext(req, rec)); err != nil {
		t.Fatalf("CheckUser: %v", err)
	}

	body := decodeBody(t, rec)
	if body["exists"] != true || body["message"] != "Username or email taken" {
		t.Errorf("body = %v", body)
	}
}

func TestGetUsersInvalidActive(t *testing.T) {
	h, _ := newAuthTest(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/getUsers?active=yes", nil)
	rec := httptest.NewRecorder()
	if err := h.GetUsers(e.NewContext(req, rec)); err != nil {
		t.Fatalf("GetUsers: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
