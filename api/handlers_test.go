package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/quickfind/go-fuzzy-engine/config"
	"github.com/quickfind/go-fuzzy-engine/internal/engine"
	testutil "github.com/quickfind/go-fuzzy-engine/internal/testing"
	"github.com/quickfind/go-fuzzy-engine/services"
)

func setupTestRouter(eng *engine.Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	SetupRoutes(router, eng)
	return router
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, isString := body.(string); isString {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, path, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	response := make(map[string]interface{})
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return response
}

func waitForJobID(t *testing.T, eng *engine.Engine, w *httptest.ResponseRecorder) {
	t.Helper()
	response := decodeResponse(t, w)
	jobID, ok := response["job_id"].(string)
	if !ok || jobID == "" {
		t.Fatalf("Expected job_id in response, got %v", response)
	}
	testutil.WaitForJobCompletion(t, eng, jobID, testutil.DefaultJobPollingOptions())
}

func TestAddWorktreeHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	root := testutil.CreateTestTree(t, "main.go", "utils/helper.go")

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name: "valid worktree",
			requestBody: config.WorktreeSettings{
				Name:     "backend",
				RootPath: root,
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not json at all",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing name",
			requestBody: config.WorktreeSettings{
				RootPath: root,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "relative root path",
			requestBody: config.WorktreeSettings{
				Name:     "relative",
				RootPath: "some/relative/path",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate worktree",
			requestBody: config.WorktreeSettings{
				Name:     "backend",
				RootPath: root,
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSONRequest(t, router, "POST", "/worktrees", tt.requestBody)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusAccepted {
				waitForJobID(t, eng, w)
			}
		})
	}
}

func TestGetWorktreeHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	root := testutil.CreateTestTree(t, "a.go")
	testutil.CreateTestWorktree(t, eng, "app", root)

	w := doJSONRequest(t, router, "GET", "/worktrees/app", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	response := decodeResponse(t, w)
	if response["name"] != "app" {
		t.Errorf("Expected worktree name 'app', got %v", response["name"])
	}

	w = doJSONRequest(t, router, "GET", "/worktrees/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	response = decodeResponse(t, w)
	if response["code"] != string(ErrorCodeWorktreeNotFound) {
		t.Errorf("Expected code %s, got %v", ErrorCodeWorktreeNotFound, response["code"])
	}
}

func TestListWorktreesHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	testutil.CreateTestWorktree(t, eng, "alpha", testutil.CreateTestTree(t, "a.go"))
	testutil.CreateTestWorktree(t, eng, "beta", testutil.CreateTestTree(t, "b.go"))

	w := doJSONRequest(t, router, "GET", "/worktrees", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decodeResponse(t, w)
	if count, _ := response["count"].(float64); int(count) != 2 {
		t.Errorf("Expected 2 worktrees, got %v", response["count"])
	}
}

func TestSearchHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	root := testutil.CreateTestTree(t, "cmd/server.go", "internal/auth/session.go", "README.md")
	testutil.CreateTestWorktree(t, eng, "app", root)

	w := doJSONRequest(t, router, "POST", "/search", services.SearchQuery{Query: "session"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result services.SearchResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode search result: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("Expected 1 hit, got %d", result.Total)
	}
	if result.Hits[0].Path != "internal/auth/session.go" {
		t.Errorf("Expected hit 'internal/auth/session.go', got %q", result.Hits[0].Path)
	}
	if result.QueryID == "" {
		t.Error("Expected a non-empty query ID")
	}
}

func TestSearchHandlerErrors(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	testutil.CreateTestWorktree(t, eng, "app", testutil.CreateTestTree(t, "a.go"))

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{
			name:           "invalid JSON",
			requestBody:    "{{{",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeInvalidJSON,
		},
		{
			name:           "unknown worktree",
			requestBody:    services.SearchQuery{Query: "a", Worktrees: []string{"ghost"}},
			expectedStatus: http.StatusNotFound,
			expectedCode:   ErrorCodeWorktreeNotFound,
		},
		{
			name:           "negative page",
			requestBody:    services.SearchQuery{Query: "a", Page: -1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSONRequest(t, router, "POST", "/search", tt.requestBody)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			response := decodeResponse(t, w)
			if response["code"] != string(tt.expectedCode) {
				t.Errorf("Expected code %s, got %v", tt.expectedCode, response["code"])
			}
		})
	}
}

func TestRecordOpenedHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	root := testutil.CreateTestTree(t, "a.go", "b.go")
	testutil.CreateTestWorktree(t, eng, "app", root)

	w := doJSONRequest(t, router, "POST", "/worktrees/app/opened", RecordOpenedRequest{Path: "a.go"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSONRequest(t, router, "POST", "/worktrees/app/opened", RecordOpenedRequest{Path: "ghost.go"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown path, got %d", w.Code)
	}

	w = doJSONRequest(t, router, "POST", "/worktrees/ghost/opened", RecordOpenedRequest{Path: "a.go"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown worktree, got %d", w.Code)
	}

	w = doJSONRequest(t, router, "POST", "/worktrees/app/opened", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing path, got %d", w.Code)
	}
}

func TestUpdateSettingsHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	root := testutil.CreateTestTree(t, "a.go", "vendor/dep.go")
	testutil.CreateTestWorktree(t, eng, "app", root)

	w := doJSONRequest(t, router, "PATCH", "/worktrees/app/settings",
		map[string]interface{}{"exclude_dirs": []string{"vendor"}})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	waitForJobID(t, eng, w)

	settings, err := eng.GetWorktreeSettings("app")
	if err != nil {
		t.Fatalf("Failed to get settings: %v", err)
	}
	if len(settings.ExcludeDirs) != 1 || settings.ExcludeDirs[0] != "vendor" {
		t.Errorf("Expected exclude_dirs [vendor], got %v", settings.ExcludeDirs)
	}

	w = doJSONRequest(t, router, "PATCH", "/worktrees/app/settings",
		map[string]interface{}{"name": "renamed"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for rename attempt, got %d", w.Code)
	}

	w = doJSONRequest(t, router, "PATCH", "/worktrees/app/settings",
		map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty update, got %d", w.Code)
	}

	w = doJSONRequest(t, router, "PATCH", "/worktrees/ghost/settings",
		map[string]interface{}{"include_hidden": true})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRescanWorktreeHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	testutil.CreateTestWorktree(t, eng, "app", testutil.CreateTestTree(t, "a.go"))

	w := doJSONRequest(t, router, "POST", "/worktrees/app/rescan", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	waitForJobID(t, eng, w)

	w = doJSONRequest(t, router, "POST", "/worktrees/ghost/rescan", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteWorktreeHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	testutil.CreateTestWorktree(t, eng, "app", testutil.CreateTestTree(t, "a.go"))

	w := doJSONRequest(t, router, "DELETE", "/worktrees/app", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	waitForJobID(t, eng, w)

	w = doJSONRequest(t, router, "GET", "/worktrees/app", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected deleted worktree to return 404, got %d", w.Code)
	}

	w = doJSONRequest(t, router, "DELETE", "/worktrees/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestJobHandlers(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	root := testutil.CreateTestTree(t, "a.go")

	w := doJSONRequest(t, router, "POST", "/worktrees", config.WorktreeSettings{Name: "app", RootPath: root})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	response := decodeResponse(t, w)
	jobID := response["job_id"].(string)
	testutil.WaitForJobCompletion(t, eng, jobID, testutil.DefaultJobPollingOptions())

	w = doJSONRequest(t, router, "GET", "/jobs/"+jobID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	job := decodeResponse(t, w)
	if job["status"] != "completed" {
		t.Errorf("Expected job status 'completed', got %v", job["status"])
	}
	if job["worktree_name"] != "app" {
		t.Errorf("Expected worktree_name 'app', got %v", job["worktree_name"])
	}

	w = doJSONRequest(t, router, "GET", "/jobs/no-such-job", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = doJSONRequest(t, router, "GET", "/worktrees/app/jobs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	jobList := decodeResponse(t, w)
	if total, _ := jobList["total"].(float64); int(total) != 1 {
		t.Errorf("Expected 1 job for worktree, got %v", jobList["total"])
	}

	w = doJSONRequest(t, router, "GET", "/jobs/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	metrics := decodeResponse(t, w)
	if _, exists := metrics["success_rate"]; !exists {
		t.Error("Expected success_rate in metrics response")
	}
}

func TestHealthCheckHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)

	w := doJSONRequest(t, router, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decodeResponse(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
}

func TestGetStatsHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	testutil.CreateTestWorktree(t, eng, "app", testutil.CreateTestTree(t, "a.go", "b.go"))

	doJSONRequest(t, router, "POST", "/search", services.SearchQuery{Query: "a"})

	w := doJSONRequest(t, router, "GET", "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats services.StatsData
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.TotalSearches != 1 {
		t.Errorf("Expected 1 recorded search, got %d", stats.TotalSearches)
	}
	if stats.WorktreeCount != 1 {
		t.Errorf("Expected 1 worktree, got %d", stats.WorktreeCount)
	}
	if stats.IndexedPaths != 2 {
		t.Errorf("Expected 2 indexed paths, got %d", stats.IndexedPaths)
	}
}

func TestGetWorktreeStatsHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)
	root := testutil.CreateTestTree(t, "src/a.go", "src/b.go")
	testutil.CreateTestWorktree(t, eng, "app", root)

	w := doJSONRequest(t, router, "GET", "/worktrees/app/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	response := decodeResponse(t, w)
	if paths, _ := response["indexed_paths"].(float64); int(paths) != 3 {
		t.Errorf("Expected 3 indexed paths (src dir + 2 files), got %v", response["indexed_paths"])
	}
	if dirs, _ := response["directories"].(float64); int(dirs) != 1 {
		t.Errorf("Expected 1 directory, got %v", response["directories"])
	}

	w = doJSONRequest(t, router, "GET", "/worktrees/ghost/stats", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(eng)

	req, _ := http.NewRequest("GET", "/worktrees/ghost", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("Expected X-Request-ID header to round-trip, got %q", got)
	}
	response := decodeResponse(t, w)
	if response["request_id"] != "req-123" {
		t.Errorf("Expected request_id 'req-123' in error body, got %v", response["request_id"])
	}
}
