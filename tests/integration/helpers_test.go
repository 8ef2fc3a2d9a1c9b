//go:build integration

package integration

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/bissquit/incident-tracker/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type incidentResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ReportedBy  string `json:"reported_by"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
}

type listResponse struct {
	Incidents []incidentResponse `json:"incidents"`
	Total     int                `json:"total"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing"`
	Message string   `json:"message"`
}

// uniqueTitle returns a title that no other test uses.
func uniqueTitle(prefix string) string {
	return prefix + " " + uuid.NewString()
}

// resetIncidents removes all incidents so that list assertions see only
// what the calling test created.
func resetIncidents(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(context.Background(), "DELETE FROM incidents")
	require.NoError(t, err)
}

// createTestIncident creates an incident and returns it. An empty severity
// leaves the field out of the payload.
func createTestIncident(t *testing.T, client *testutil.Client, severity string) incidentResponse {
	t.Helper()

	payload := map[string]string{
		"title":       uniqueTitle("incident"),
		"description": "created by integration tests",
		"reported_by": "integration",
	}
	if severity != "" {
		payload["severity"] = severity
	}

	resp, err := client.POST("/incidents", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var inc incidentResponse
	testutil.DecodeJSON(t, resp, &inc)
	return inc
}

func listIncidents(t *testing.T, client *testutil.Client, query string) listResponse {
	t.Helper()

	resp, err := client.GET("/incidents" + query)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list listResponse
	testutil.DecodeJSON(t, resp, &list)
	return list
}

func incidentPath(id int64) string {
	return "/incidents/" + strconv.FormatInt(id, 10)
}

func countRows(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, testDB.QueryRow(context.Background(), "SELECT COUNT(*) FROM incidents").Scan(&n))
	return n
}
