package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/rollup"
	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/storage"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	sensorJob1 = `{
		"name": "sensor1",
		"rollup_index": "sensor_rollup",
		"index_pattern": "sensor-*",
		"timestamp": {"time_zone": "UTC", "interval": "1h", "delay": "7d"},
		"terms": ["node"],
		"metrics": {"temperature": ["min", "max", "sum"], "voltage": ["sum"]},
		"histogram": {"voltage": 5}
	}`
	sensorJob2 = `{
		"name": "sensor2",
		"rollup_index": "sensor_rollup",
		"index_pattern": "sensor-*",
		"timestamp": {"time_zone": "UTC", "interval": "1h", "delay": "7d"},
		"terms": ["host"],
		"histogram": {"voltage": 5}
	}`
	sensorJobOtherZone = `{
		"name": "sensor3",
		"rollup_index": "sensor_rollup",
		"timestamp": {"time_zone": "PST", "interval": "1h", "delay": "7d"},
		"terms": ["rack"]
	}`
)

func setupTestServer(t *testing.T) (*server, Storage) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)

	merger, err := rollup.NewJobsMerger(rollup.HistogramPolicyStrict)
	require.NoError(t, err)

	args := ArgsWebServer{
		ServiceKeyApi:  "test-secret",
		ListenAddress:  ":0",
		Storage:        store,
		Merger:         merger,
		GeneralHandler: func(h http.Handler) http.Handler { return h },
	}

	serv, err := NewServer(args)
	require.NoError(t, err)

	return serv, store
}

func doRequest(serv *server, method string, url string, body string, apiKey string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if len(body) > 0 {
		reader = bytes.NewBufferString(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, url, reader)
	if len(apiKey) > 0 {
		req.Header.Set("X-Api-Key", apiKey)
	}
	w := httptest.NewRecorder()
	serv.router.ServeHTTP(w, req)

	return w
}

func TestSaveJobEndpoint(t *testing.T) {
	serv, store := setupTestServer(t)
	defer func() {
		_ = store.Close()
	}()

	// Unauthenticated
	w := doRequest(serv, http.MethodPost, "/api/jobs", sensorJob1, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Authenticated
	w = doRequest(serv, http.MethodPost, "/api/jobs", sensorJob1, "test-secret")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(serv, http.MethodGet, "/api/jobs/sensor1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "sensor_rollup", gjson.Get(w.Body.String(), "rollup_index").String())
	require.Equal(t, float64(5), gjson.Get(w.Body.String(), "histogram.voltage").Float())

	w = doRequest(serv, http.MethodGet, "/api/jobs/unknown", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveJobEndpoint_BadPayload(t *testing.T) {
	serv, store := setupTestServer(t)
	defer func() {
		_ = store.Close()
	}()

	w := doRequest(serv, http.MethodPost, "/api/jobs", `{"name": { bad format }}`, "test-secret")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(serv, http.MethodPost, "/api/jobs", `{"terms": ["node"]}`, "test-secret")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "missing job name")

	w = doRequest(serv, http.MethodPost, "/api/jobs", `{"name": "bad", "metrics": {"cpu": ["median"]}}`, "test-secret")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "median")
}

func TestCapabilitiesEndpoint(t *testing.T) {
	serv, store := setupTestServer(t)
	defer func() {
		_ = store.Close()
	}()

	w := doRequest(serv, http.MethodGet, "/api/capabilities/sensor_rollup", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, doRequest(serv, http.MethodPost, "/api/jobs", sensorJob1, "test-secret").Code)
	require.Equal(t, http.StatusOK, doRequest(serv, http.MethodPost, "/api/jobs", sensorJob2, "test-secret").Code)

	w = doRequest(serv, http.MethodGet, "/api/capabilities/sensor_rollup", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	require.True(t, gjson.Get(body, "aggs.terms.node").Exists())
	require.True(t, gjson.Get(body, "aggs.terms.host").Exists())
	require.Equal(t, "sum", gjson.Get(body, "aggs.sum.voltage.agg").String())
	require.Equal(t, float64(5), gjson.Get(body, "aggs.histogram.voltage.interval").Float())
	require.Equal(t, "UTC", gjson.Get(body, "aggs.date_histogram.timestamp.time_zone").String())
	require.Equal(t, "1h", gjson.Get(body, "aggs.date_histogram.timestamp.interval").String())
	require.Equal(t, "7d", gjson.Get(body, "aggs.date_histogram.timestamp.delay").String())

	// a job with another time zone breaks the rollup index
	require.Equal(t, http.StatusOK, doRequest(serv, http.MethodPost, "/api/jobs", sensorJobOtherZone, "test-secret").Code)
	w = doRequest(serv, http.MethodGet, "/api/capabilities/sensor_rollup", "", "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "time_zone")
}

func TestImportAndDeleteJobs(t *testing.T) {
	serv, store := setupTestServer(t)
	defer func() {
		_ = store.Close()
	}()

	capabilities := `{
		"sensor-*": {
			"rollup_jobs": [
				{
					"job_id": "sensor1",
					"rollup_index": "sensor_rollup",
					"index_pattern": "sensor-*",
					"fields": {
						"node": [{"agg": "terms"}],
						"timestamp": [{"agg": "date_histogram", "time_zone": "UTC", "fixed_interval": "1h", "delay": "7d"}],
						"voltage": [{"agg": "histogram", "interval": 5}, {"agg": "avg"}]
					}
				}
			]
		}
	}`

	w := doRequest(serv, http.MethodPost, "/api/jobs/import", capabilities, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(serv, http.MethodPost, "/api/jobs/import", capabilities, "test-secret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(1), gjson.Get(w.Body.String(), "imported").Int())

	w = doRequest(serv, http.MethodPost, "/api/jobs/import", `{}`, "test-secret")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(serv, http.MethodPost, "/api/jobs/import", `[1, 2]`, "test-secret")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(serv, http.MethodGet, "/api/jobs?rollupIndex=sensor_rollup", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "sensor1", gjson.Get(w.Body.String(), "jobs.0.name").String())
	require.Equal(t, "avg", gjson.Get(w.Body.String(), "jobs.0.metrics.voltage.0").String())

	w = doRequest(serv, http.MethodGet, "/api/capabilities/sensor_rollup", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "avg", gjson.Get(w.Body.String(), "aggs.avg.voltage.agg").String())

	w = doRequest(serv, http.MethodDelete, "/api/jobs/sensor1", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(serv, http.MethodDelete, "/api/jobs/sensor1", "", "test-secret")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(serv, http.MethodDelete, "/api/jobs/sensor1", "", "test-secret")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(serv, http.MethodGet, "/api/jobs", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(0), gjson.Get(w.Body.String(), "jobs.#").Int())
}

func TestCompatibilityEndpoint(t *testing.T) {
	serv, store := setupTestServer(t)
	defer func() {
		_ = store.Close()
	}()

	testCases := []struct {
		body       string
		compatible bool
	}{
		{body: "", compatible: true},
		{body: "[]", compatible: true},
		{body: "[" + sensorJob1 + "]", compatible: true},
		{body: "[" + sensorJob1 + "," + sensorJob2 + "]", compatible: true},
		{body: "[" + sensorJob1 + "," + sensorJobOtherZone + "]", compatible: false},
		{body: "123", compatible: false},
		{body: `"foo"`, compatible: false},
	}

	for _, tc := range testCases {
		w := doRequest(serv, http.MethodPost, "/api/compatibility", tc.body, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, tc.compatible, gjson.Get(w.Body.String(), "compatible").Bool(), tc.body)
	}
}

func TestMergeEndpoint(t *testing.T) {
	serv, store := setupTestServer(t)
	defer func() {
		_ = store.Close()
	}()

	for _, body := range []string{"", "null", "true", `"foo"`, "123", "[]"} {
		w := doRequest(serv, http.MethodPost, "/api/merge", body, "")
		require.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	w := doRequest(serv, http.MethodPost, "/api/merge", "["+sensorJob1+","+sensorJobOtherZone+"]", "")
	require.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(serv, http.MethodPost, "/api/merge", "["+sensorJob1+","+sensorJob2+"]", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "terms", gjson.Get(w.Body.String(), "aggs.terms.host.agg").String())
	require.Equal(t, "date_histogram", gjson.Get(w.Body.String(), "aggs.date_histogram.timestamp.agg").String())
}
