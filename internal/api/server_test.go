package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/serieswatch/internal/api"
	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/config"
	"github.com/vrsandeep/serieswatch/internal/core"
	"github.com/vrsandeep/serieswatch/internal/models"
	"github.com/vrsandeep/serieswatch/internal/testutil"
)

const sagaASIN = "S000000001"

// stubCatalog knows one series with three books.
type stubCatalog struct{}

func (stubCatalog) Kind() catalog.Kind { return catalog.KindAudible }

func (stubCatalog) LookupByID(ctx context.Context, id, region string) *models.CanonicalBook {
	return nil
}

func (stubCatalog) ListSeriesEntries(ctx context.Context, seriesID, region string) []models.CanonicalBook {
	if seriesID != sagaASIN {
		return nil
	}
	entry := func(asin, title, seq string) models.CanonicalBook {
		return models.CanonicalBook{
			ASIN: asin, Title: title, Provider: "audible",
			Series: []models.SeriesRef{{ID: sagaASIN, Name: "Saga", Position: seq}},
		}
	}
	return []models.CanonicalBook{
		entry("B000000001", "Book 1", "1"),
		entry("B000000002", "Book 2", "2"),
		entry("B000000003", "Book 3", "3"),
	}
}

func (stubCatalog) ResolveSeriesFromBook(ctx context.Context, bookID, region string) *models.SeriesRef {
	if bookID == "B000000001" {
		return &models.SeriesRef{ID: sagaASIN, Name: "Saga", Position: "1"}
	}
	return nil
}

type testEnv struct {
	app      *core.App
	db       *sql.DB
	router   http.Handler
	userID   int64
	seriesID int64
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := &config.Config{}
	cfg.Catalog.Region = "us"

	app := core.Assemble(cfg, zerolog.Nop(), db, stubCatalog{})
	go app.WsHub.Run()
	t.Cleanup(func() {
		app.Tracker.Wait()
		app.WsHub.Stop()
	})

	userID := testutil.CreateUser(t, db, "reader")
	seriesID := testutil.CreateSeries(t, db, "Saga")
	testutil.CreateBook(t, db, seriesID, "Book 1", "B000000001", "1")

	return &testEnv{
		app:      app,
		db:       db,
		router:   api.NewServer(app).Router(),
		userID:   userID,
		seriesID: seriesID,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) userPath(suffix string) string {
	return "/api/users/" + strconv.FormatInt(e.userID, 10) + suffix
}

func (e *testEnv) follow(t *testing.T) models.TrackedSeries {
	t.Helper()
	rr := e.do(t, http.MethodPost, e.userPath("/series/"+strconv.FormatInt(e.seriesID, 10)+"/follow"), map[string]string{"region": "uk"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var ts models.TrackedSeries
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ts))
	e.app.Tracker.Wait()
	return ts
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t)
	rr := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestRequestsLogThroughAppLogger(t *testing.T) {
	var logs bytes.Buffer
	db := testutil.SetupTestDB(t)
	app := core.Assemble(&config.Config{}, zerolog.New(&logs), db, stubCatalog{})
	router := api.NewServer(app).Router()
	logs.Reset()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/999/tracked", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "api", entry["component"])
	assert.Equal(t, "/api/users/999/tracked", entry["path"])
	assert.EqualValues(t, http.StatusNotFound, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRegions(t *testing.T) {
	env := setupTestServer(t)
	rr := env.do(t, http.MethodGet, "/api/regions", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Default string `json:"default"`
		Regions []struct {
			Code   string `json:"code"`
			Domain string `json:"domain"`
		} `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "us", resp.Default)
	assert.Len(t, resp.Regions, 10)
	assert.Contains(t, resp.Regions, struct {
		Code   string `json:"code"`
		Domain string `json:"domain"`
	}{Code: "de", Domain: ".de"})
}

func TestFollowAndUnfollow(t *testing.T) {
	env := setupTestServer(t)

	t.Run("Follow is idempotent", func(t *testing.T) {
		first := env.follow(t)
		second := env.follow(t)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "uk", first.Region)
	})

	t.Run("Lists followed series", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, env.userPath("/tracked"), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var tracked []models.TrackedSeries
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tracked))
		require.Len(t, tracked, 1)
		assert.Equal(t, "Saga", tracked[0].SeriesTitle)
	})

	t.Run("Unknown series", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, env.userPath("/series/999/follow"), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Bad ids", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, env.userPath("/series/abc/follow"), nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		rr = env.do(t, http.MethodGet, "/api/users/zero/tracked", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		rr = env.do(t, http.MethodGet, "/api/users/999/tracked", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Unfollow", func(t *testing.T) {
		path := env.userPath("/series/" + strconv.FormatInt(env.seriesID, 10) + "/follow")
		rr := env.do(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		rr = env.do(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestReleasesFlow(t *testing.T) {
	env := setupTestServer(t)
	ts := env.follow(t)

	// The background check on follow already recorded the two missing books.
	rr := env.do(t, http.MethodGet, env.userPath("/releases"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var releases []models.NewRelease
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &releases))
	require.Len(t, releases, 2)
	assert.Equal(t, "B000000002", releases[0].ExternalID)

	t.Run("Manual check with nothing new succeeds with zero", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/tracked/"+strconv.FormatInt(ts.ID, 10)+"/check", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Created  int                 `json:"created"`
			Releases []models.NewRelease `json:"releases"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Created)
		assert.Empty(t, resp.Releases)
	})

	t.Run("Manual check of unknown tracking", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/tracked/999/check", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Dismiss hides a release", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, env.userPath("/releases/"+strconv.FormatInt(releases[0].ID, 10)+"/dismiss"), nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = env.do(t, http.MethodGet, env.userPath("/releases"), nil)
		var visible []models.NewRelease
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &visible))
		assert.Len(t, visible, 1)

		rr = env.do(t, http.MethodGet, env.userPath("/releases?dismissed=true"), nil)
		var all []models.NewRelease
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
		assert.Len(t, all, 2)

		rr = env.do(t, http.MethodPost, env.userPath("/releases/999/dismiss"), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAdminJobs(t *testing.T) {
	env := setupTestServer(t)

	rr := env.do(t, http.MethodPost, "/api/admin/jobs/run", map[string]string{"job_name": "nope"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	require.NoError(t, env.app.Scheduler.RunOnce(context.Background()))
	rr = env.do(t, http.MethodGet, "/api/admin/jobs/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var statuses []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "release-sweep", statuses[0]["id"])
	assert.Equal(t, "success", statuses[0]["status"])
}
