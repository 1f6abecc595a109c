//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullResearchLifecycle_E2E(t *testing.T) {
	baseURL := apiBaseURL + "/api/v1/research"

	// Step 1: Start a research job.
	body, _ := json.Marshal(map[string]interface{}{
		"query":       "CRISPR gene editing",
		"max_results": 10,
	})
	resp, err := http.Post(baseURL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var startResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&startResp))
	jobID := startResp["job_id"].(string)
	assert.NotEmpty(t, jobID)
	assert.NotEmpty(t, startResp["workflow_id"])
	t.Logf("created job: %s", jobID)

	// Step 2: Poll status until terminal state (max 2 minutes).
	deadline := time.Now().Add(2 * time.Minute)
	var finalStatus string
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("%s/%s/status", baseURL, jobID))
		require.NoError(t, err)

		var statusResp map[string]interface{}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, json.Unmarshal(respBody, &statusResp))

		finalStatus = statusResp["status"].(string)
		t.Logf("status: %s", finalStatus)

		if finalStatus == "completed" || finalStatus == "failed" {
			break
		}

		time.Sleep(2 * time.Second)
	}

	require.Equal(t, "completed", finalStatus, "job should complete successfully")

	// Step 3: Fetch the result and verify papers and summary.
	resp, err = http.Get(fmt.Sprintf("%s/%s/result", baseURL, jobID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var resultResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&resultResp))
	papers := resultResp["papers"].([]interface{})
	t.Logf("papers found: %d", len(papers))
	assert.NotNil(t, resultResp["summary"])

	// Step 4: Export as CSV.
	resp, err = http.Get(fmt.Sprintf("%s/%s/export?format=csv", baseURL, jobID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), jobID)

	// Step 5: The job shows up in the listing.
	resp, err = http.Get(baseURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResp))
	assert.GreaterOrEqual(t, int(listResp["total_count"].(float64)), 1)
}

func TestFilterCompletedJob_E2E(t *testing.T) {
	baseURL := apiBaseURL + "/api/v1/research"

	body, _ := json.Marshal(map[string]interface{}{
		"query":       "protein folding",
		"max_results": 10,
	})
	resp, err := http.Post(baseURL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var startResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&startResp))
	jobID := startResp["job_id"].(string)

	require.True(t, waitForStatus(t, baseURL, jobID, "completed", 2*time.Minute),
		"job should reach completed")

	// Re-filter the stored result set without re-running the search.
	filterBody, _ := json.Marshal(map[string]interface{}{
		"min_citations": 5,
	})
	resp, err = http.Post(fmt.Sprintf("%s/%s/filter", baseURL, jobID),
		"application/json", bytes.NewReader(filterBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var filterResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&filterResp))
	totalBefore := int(filterResp["total_before"].(float64))
	totalAfter := int(filterResp["total_after"].(float64))
	assert.LessOrEqual(t, totalAfter, totalBefore)
}

func TestDeleteRunningJob_E2E(t *testing.T) {
	baseURL := apiBaseURL + "/api/v1/research"

	// Start a job.
	body, _ := json.Marshal(map[string]interface{}{
		"query": "long running query for cancel test",
	})
	resp, err := http.Post(baseURL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var startResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&startResp))
	jobID := startResp["job_id"].(string)

	// Delete while (likely) still running; the server cancels the workflow.
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/%s", baseURL, jobID), nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The job is gone.
	resp, err = http.Get(fmt.Sprintf("%s/%s/status", baseURL, jobID))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// waitForStatus polls the status endpoint until the job reaches the wanted
// status or a terminal state, returning whether the wanted status was seen.
func waitForStatus(t *testing.T, baseURL, jobID, want string, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("%s/%s/status", baseURL, jobID))
		require.NoError(t, err)

		var statusResp map[string]interface{}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, json.Unmarshal(respBody, &statusResp))

		status := statusResp["status"].(string)
		if status == want {
			return true
		}
		if status == "failed" {
			return false
		}
		time.Sleep(2 * time.Second)
	}
	return false
}
