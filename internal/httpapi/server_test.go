package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/leadcrm/internal/httpapi"
	"github.com/kkkkikiki/leadcrm/internal/service"
)

type noopSink struct{}

func (noopSink) Notify(context.Context, string, string, string, string, string) error { return nil }
func (noopSink) Record(context.Context, string, string, string, string) error         { return nil }

func newServer(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")

	leads := service.NewLeadService(db, noopSink{}, noopSink{})
	campaigns := service.NewCampaignService(db)
	return httpapi.New(db, leads, campaigns).Router(), mock
}

var leadCols = []string{"id", "name", "status", "call_attempts", "lost_reason", "assigned_to_id"}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClaimWinReturnsRecoveredLead(t *testing.T) {
	h, mock := newServer(t)

	mock.ExpectQuery(`SELECT id, name, course_id`).WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow("lead-1", "Mario Rossi", "PERSO", 6, "Inattività", nil))
	mock.ExpectExec(`UPDATE leads`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, name, course_id`).WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow("lead-1", "Mario Rossi", "CONTATTATO", 0, nil, "user-test"))

	rec := doJSON(t, h, http.MethodPut, "/leads/lead-1", `{"recoverLead":true,"claimLead":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var lead struct {
		Status       string `json:"status"`
		CallAttempts int    `json:"callAttempts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
	assert.Equal(t, "CONTATTATO", lead.Status)
	assert.Equal(t, 0, lead.CallAttempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRaceLossReturns409(t *testing.T) {
	h, mock := newServer(t)

	mock.ExpectQuery(`SELECT id, name, course_id`).WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow("lead-1", "Mario Rossi", "PERSO", 6, "Inattività", nil))
	mock.ExpectExec(`UPDATE leads`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, name, course_id`).WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow("lead-1", "Mario Rossi", "CONTATTATO", 0, nil, "user-rival"))

	rec := doJSON(t, h, http.MethodPut, "/leads/lead-1", `{"recoverLead":true,"claimLead":true}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "è già stato recuperato")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNonPersoReturns400(t *testing.T) {
	h, mock := newServer(t)

	mock.ExpectQuery(`SELECT id, name, course_id`).WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow("lead-1", "Mario Rossi", "CONTATTATO", 1, nil, "user-owner"))

	rec := doJSON(t, h, http.MethodPut, "/leads/lead-1", `{"recoverLead":true,"claimLead":true}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Solo i lead PERSO possono essere recuperati", body["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRequiresUserHeader(t *testing.T) {
	h, _ := newServer(t)

	req := httptest.NewRequest(http.MethodPut, "/leads/lead-1", strings.NewReader(`{"claimLead":true}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListLostLeadsEnvelope(t *testing.T) {
	h, mock := newServer(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))
	mock.ExpectQuery(`SELECT id, name`).
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow("lead-1", "Mario Rossi", "PERSO", 8, "Troppi tentativi", nil))

	rec := doJSON(t, h, http.MethodGet, "/leads/perso?page=2&pageSize=20", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Leads      []map[string]interface{} `json:"leads"`
		Pagination struct {
			Page       int  `json:"page"`
			PageSize   int  `json:"pageSize"`
			TotalCount int  `json:"totalCount"`
			TotalPages int  `json:"totalPages"`
			HasMore    bool `json:"hasMore"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Leads, 1)
	assert.Equal(t, 2, body.Pagination.Page)
	assert.Equal(t, 45, body.Pagination.TotalCount)
	assert.Equal(t, 3, body.Pagination.TotalPages)
	assert.True(t, body.Pagination.HasMore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLostLeadsClampsPageSize(t *testing.T) {
	h, mock := newServer(t)

	// An oversized pageSize is clamped before the query runs, and the
	// envelope reports the clamped value the pagination math used.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(245))
	mock.ExpectQuery(`SELECT id, name`).
		WithArgs(100, 0).
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow("lead-1", "Mario Rossi", "PERSO", 8, "Troppi tentativi", nil))

	rec := doJSON(t, h, http.MethodGet, "/leads/perso?pageSize=1000", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Pagination struct {
			Page       int  `json:"page"`
			PageSize   int  `json:"pageSize"`
			TotalPages int  `json:"totalPages"`
			HasMore    bool `json:"hasMore"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Pagination.Page)
	assert.Equal(t, 100, body.Pagination.PageSize)
	assert.Equal(t, 3, body.Pagination.TotalPages)
	assert.True(t, body.Pagination.HasMore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSpendRequiresSpendID(t *testing.T) {
	h, _ := newServer(t)

	rec := doJSON(t, h, http.MethodDelete, "/campaigns/camp-1/spend", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing spendId", body["error"])
}

func TestCampaignsRejectsMalformedWindow(t *testing.T) {
	h, _ := newServer(t)

	rec := doJSON(t, h, http.MethodGet, "/campaigns?spendStartDate=not-a-date", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFindOrCreateMasterEndpoint(t *testing.T) {
	h, mock := newServer(t)

	mock.ExpectExec(`INSERT INTO master_campaigns`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, name, course_id`).
		WithArgs("Back to School", "course-x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "course_id"}).
			AddRow("master-1", "Back to School", "course-x"))

	rec := doJSON(t, h, http.MethodPost, "/master-campaigns", `{"name":"Back to School","courseId":"course-x"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "master-1", body["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
