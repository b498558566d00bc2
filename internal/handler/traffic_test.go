package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/jok6r1/src-diplom/internal/repository"
)

var trafficTestColumns = []string{
	"id", "user_id", "ip", "timestamp", "fl_byt_s", "fl_pck_s", "packet_count",
	"fwd_max_pack_size", "fwd_avg_packet", "bck_max_pack_size", "bck_avg_packet",
	"fw_iat_std", "fw_iat_min", "bck_iat_std", "bck_iat_min",
	"anomaly_ae", "anomaly_lstm", "anomaly_consensus",
}

var errTest = errors.New("test failure")

func newTrafficTest(t *testing.T) (*TrafficHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTrafficHandler(testConfig(), repository.NewTrafficRepo(db), repository.NewUserRepo(db)), mock
}

func TestIngestRejectsNonArray(t *testing.T) {
	h, _ := newTrafficTest(t)
	e := echo.New()

	for _, body := range []string{`{"ip":"10.0.0.1"}`, `[]`, ``, `"text"`} {
		req, rec := jsonRequest(http.MethodPost, "/anomalies", body)
		if err := h.Ingest(e.NewContext(req, rec)); err != nil {
			t.Fatalf("Ingest(%q): %v", body, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Ingest(%q) status = %d, want 400", body, rec.Code)
		}
		resp := decodeBody(t, rec)
		if resp["error"] != "Data must be a non-empty array" {
			t.Errorf("Ingest(%q) error = %v", body, resp["error"])
		}
	}
}

func TestIngestStoresBatchAndSkipsBadItems(t *testing.T) {
	h, mock := newTrafficTest(t)
	e := echo.New()

	// Three items: one valid, one missing fields, one not even an object.
	// Only the valid one reaches the store.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO traffic_with_anomalies").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	body := `[
		{"user_id":3,"ip":"10.0.0.1","timestamp":"2026-03-01 12:30:45","fl_byt_s":100,"fl_pck_s":10},
		{"ip":"10.0.0.2"},
		"garbage"
	]`
	req, rec := jsonRequest(http.MethodPost, "/anomalies", body)
	if err := h.Ingest(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["success"] != true || resp["message"] != "Data stored successfully" {
		t.Errorf("body = %v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIngestStoreFailure(t *testing.T) {
	h, mock := newTrafficTest(t)
	e := echo.New()

	mock.ExpectBegin().WillReturnError(errTest)

	body := `[{"user_id":3,"ip":"10.0.0.1","timestamp":"2026-03-01 12:30:45","fl_byt_s":100,"fl_pck_s":10}]`
	req, rec := jsonRequest(http.MethodPost, "/anomalies", body)
	if err := h.Ingest(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestByUserInvalidID(t *testing.T) {
	h, _ := newTrafficTest(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("userId")
	c.SetParamValues("abc")

	if err := h.ByUser(c); err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestByUserBadSinceParameter(t *testing.T) {
	h, _ := newTrafficTest(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?since=yesterday", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("userId")
	c.SetParamValues("3")

	if err := h.ByUser(c); err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestByUserNestedShape(t *testing.T) {
	h, mock := newTrafficTest(t)
	e := echo.New()

	ts := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	mock.ExpectQuery("FROM traffic_with_anomalies WHERE user_id").
		WillReturnRows(sqlmock.NewRows(trafficTestColumns).
			AddRow(1, 3, "10.0.0.1", ts, 100.0, 10.0, 7, 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, nil, nil, 0.95))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("userId")
	c.SetParamValues("3")

	if err := h.ByUser(c); err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody(t, rec)
	data := resp["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("data len = %d, want 1", len(data))
	}
	item := data[0].(map[string]interface{})
	if item["timestamp"] != "2026-03-01T12:30:45Z" {
		t.Errorf("timestamp = %v", item["timestamp"])
	}
	metrics := item["networkMetrics"].(map[string]interface{})
	if metrics["byteRate"].(float64) != 100 || metrics["packetCount"].(float64) != 7 {
		t.Errorf("networkMetrics = %v", metrics)
	}
	anomalies := item["anomalies"].(map[string]interface{})
	if anomalies["autoencoder"].(float64) != 0 {
		t.Errorf("autoencoder = %v, want 0 for NULL", anomalies["autoencoder"])
	}
	if anomalies["lstm"] != nil {
		t.Errorf("lstm = %v, want null passthrough", anomalies["lstm"])
	}
	if anomalies["consensus"].(float64) != 0.95 {
		t.Errorf("consensus = %v", anomalies["consensus"])
	}
}

func TestByIDNotFound(t *testing.T) {
	h, mock := newTrafficTest(t)
	e := echo.New()

	mock.ExpectQuery("FROM traffic_with_anomalies WHERE id").
		WillReturnRows(sqlmock.NewRows(trafficTestColumns))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("404")

	if err := h.ByID(c); err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	resp := decodeBody(t, rec)
	if resp["error"] != "Record not found" {
		t.Errorf("error = %v", resp["error"])
	}
}

func TestLatestEmptyTable(t *testing.T) {
	h, mock := newTrafficTest(t)
	e := echo.New()

	mock.ExpectQuery("SELECT MAX").
		WillReturnRows(sqlmock.NewRows(trafficTestColumns))

	req := httptest.NewRequest(http.MethodGet, "/latest-traffic", nil)
	rec := httptest.NewRecorder()
	if err := h.Latest(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUsersAndTrafficMergesBothReads(t *testing.T) {
	h, mock := newTrafficTest(t)
	e := echo.New()

	// The two reads run concurrently, so the mock must accept either order.
	mock.MatchExpectationsInOrder(false)
	userCols := []string{"id", "username", "email", "is_active", "role", "created_at"}
	mock.ExpectQuery("FROM users").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(3, "alice", "alice@example.com", true, "user", time.Now()))
	ts := time.Now().UTC().Truncate(time.Second)
	mock.ExpectQuery("INTERVAL (.+) SECOND").
		WillReturnRows(sqlmock.NewRows(trafficTestColumns).
			AddRow(1, 3, "10.0.0.1", ts, 100.0, 10.0, 7, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, nil, 0.1, 0.2))

	req := httptest.NewRequest(http.MethodGet, "/users-and-traffic", nil)
	rec := httptest.NewRecorder()
	if err := h.UsersAndTraffic(e.NewContext(req, rec)); err != nil {
		t.Fatalf("UsersAndTraffic: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody(t, rec)
	data := resp["data"].(map[string]interface{})
	if len(data["users"].([]interface{})) != 1 {
		t.Errorf("users = %v", data["users"])
	}
	if len(data["traffic"].([]interface{})) != 1 {
		t.Errorf("traffic = %v", data["traffic"])
	}
}
