package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/engine"
	"github.com/leapstack-labs/leapml/internal/testutil"
	"github.com/leapstack-labs/leapml/pkg/core"
)

const testKey = "secret"

type fixture struct {
	engine *engine.Engine
	server *httptest.Server
}

func setup(t *testing.T, cfg engine.Config) *fixture {
	t.Helper()
	cfg.Logger = testutil.NewTestLogger(t)
	eng, err := engine.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	srv := httptest.NewServer(NewRouter(eng, testKey, cfg.Logger))
	t.Cleanup(srv.Close)
	return &fixture{engine: eng, server: srv}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set(APIKeyHeader, testKey)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) postJSON(t *testing.T, path string, v any) *http.Response {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return f.do(t, http.MethodPost, path, bytes.NewReader(data), http.Header{"Content-Type": {"application/json"}})
}

func (f *fixture) upload(t *testing.T, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return f.do(t, http.MethodPost, "/api/datasets/upload", &buf, http.Header{"Content-Type": {mw.FormDataContentType()}})
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func binaryCSV(n int) string {
	var b strings.Builder
	b.WriteString("feature1,feature2,color,target\n")
	for i := range n {
		fmt.Fprintf(&b, "%d,%.1f,c%d,%s\n", i%7+10*(i%2), float64(i%3)*0.1, i%3, []string{"neg", "pos"}[i%2])
	}
	return b.String()
}

func TestHealth_IsPublic(t *testing.T) {
	f := setup(t, engine.Config{})

	resp, err := http.Get(f.server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestAuth(t *testing.T) {
	f := setup(t, engine.Config{})

	tests := []struct {
		name   string
		header http.Header
	}{
		{"missing key", nil},
		{"wrong key", http.Header{APIKeyHeader: {"wrong-key"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/pipeline/run", strings.NewReader("{}"))
			require.NoError(t, err)
			for k, v := range tt.header {
				req.Header[k] = v
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Could not validate credentials", decode[errorBody](t, resp).Detail)
		})
	}
}

func TestUpload(t *testing.T) {
	f := setup(t, engine.Config{MaxUploadBytes: 1024})

	t.Run("csv", func(t *testing.T) {
		resp := f.upload(t, "train.csv", "a,b\n1,x\n,y\n")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		summary := decode[core.DatasetSummary](t, resp)
		assert.NotEmpty(t, summary.DatasetID)
		assert.Equal(t, 2, summary.Rows)
		assert.Equal(t, []string{"a", "b"}, summary.ColumnNames)
		assert.Equal(t, "null", summary.Preview[1]["a"])
	})

	tests := []struct {
		name     string
		filename string
		content  string
		detail   string
	}{
		{"too large", "big.csv", "a\n" + strings.Repeat("1\n", 1024), "Uploaded file exceeds the maximum allowed size of 1024 bytes."},
		{"header only", "empty.csv", "a,b\n", "Dataset contains no rows."},
		{"unsupported", "book.xlsx", "x", "Unsupported file format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.upload(t, tt.filename, tt.content)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[errorBody](t, resp)
			assert.Contains(t, body.Detail, tt.detail)
			assert.Equal(t, string(core.KindInputFormat), body.Error)
		})
	}

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("name", "x"))
		require.NoError(t, mw.Close())
		resp := f.do(t, http.MethodPost, "/api/datasets/upload", &buf, http.Header{"Content-Type": {mw.FormDataContentType()}})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestPipeline_RunPredictDownload(t *testing.T) {
	f := setup(t, engine.Config{})

	resp := f.upload(t, "train.csv", binaryCSV(40))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[core.DatasetSummary](t, resp)

	resp = f.postJSON(t, "/api/pipeline/run", map[string]any{
		"dataset_id":    summary.DatasetID,
		"target_column": "target",
		"preprocess":    []map[string]any{{"step": "standardize"}},
		"model":         "decision_tree",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	train := decode[core.TrainResponse](t, resp)
	assert.Equal(t, core.StatusSuccess, train.Status)
	require.NotEmpty(t, train.ModelID)
	assert.Equal(t, "/api/pipeline/models/"+train.ModelID+"/download", train.ModelDownloadPath)

	resp = f.postJSON(t, "/api/pipeline/predict", map[string]any{
		"model_id": train.ModelID,
		"records": []map[string]any{
			{"feature1": "13", "feature2": 0.1, "color": "c1"},
			{"feature1": 2, "feature2": 0.0, "color": "unseen"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"pos", "neg"}, decode[core.PredictResponse](t, resp).Predictions)

	resp = f.do(t, http.MethodGet, train.ModelDownloadPath, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	a, err := artifact.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, train.ModelID, a.Handle)

	resp = f.do(t, http.MethodGet, "/api/pipeline/models/"+train.ModelID+"/recipe", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	manifest, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "expanded_columns")

	resp = f.do(t, http.MethodGet, "/api/pipeline/models", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	models := decode[[]core.ModelInfo](t, resp)
	require.Len(t, models, 1)
	assert.Equal(t, train.ModelID, models[0].ModelID)
	assert.Equal(t, core.DecisionTree, models[0].ModelType)
	assert.Equal(t, train.ModelDownloadPath, models[0].DownloadPath)

	resp = f.do(t, http.MethodGet, "/api/pipeline/runs?limit=10", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runs := decode[[]core.Run](t, resp)
	require.Len(t, runs, 2)
	assert.Equal(t, core.RunKindPredict, runs[0].Kind)
	assert.Equal(t, core.RunKindTrain, runs[1].Kind)
}

func TestPipeline_ErrorStatuses(t *testing.T) {
	f := setup(t, engine.Config{})
	f.engine.Datasets().Put("bin", "bin.csv", testutil.BinaryTable(t, 20))

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		kind   core.ErrorKind
	}{
		{"missing target", "/api/pipeline/run", map[string]any{"dataset_id": "bin", "target_column": "missing", "model": "decision_tree"}, http.StatusBadRequest, core.KindSchema},
		{"unknown dataset", "/api/pipeline/run", map[string]any{"dataset_id": "nope", "target_column": "target", "model": "decision_tree"}, http.StatusNotFound, core.KindNotFound},
		{"unsupported model", "/api/pipeline/run", map[string]any{"dataset_id": "bin", "target_column": "target", "model": "svm"}, http.StatusBadRequest, core.KindUnsupportedModel},
		{"invalid request", "/api/pipeline/run", map[string]any{"target_column": "target"}, http.StatusBadRequest, core.KindConfig},
		{"unknown model", "/api/pipeline/predict", map[string]any{"model_id": "nope", "records": []map[string]any{{"a": 1}}}, http.StatusNotFound, core.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.postJSON(t, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, string(tt.kind), decode[errorBody](t, resp).Error)
		})
	}
}

func TestPipeline_MalformedJSON(t *testing.T) {
	f := setup(t, engine.Config{})

	for _, path := range []string{"/api/pipeline/run", "/api/pipeline/predict"} {
		resp := f.do(t, http.MethodPost, path, strings.NewReader("{not json"), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, path)
	}
}

func TestListRuns_InvalidLimit(t *testing.T) {
	f := setup(t, engine.Config{})

	resp := f.do(t, http.MethodGet, "/api/pipeline/runs?limit=abc", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/pipeline/runs", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]core.Run](t, resp))
}

func TestDatasets_ListAndGet(t *testing.T) {
	f := setup(t, engine.Config{})
	f.engine.Datasets().Put("bin", "bin.csv", testutil.BinaryTable(t, 10))

	resp := f.do(t, http.MethodGet, "/api/datasets", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	infos := decode[[]map[string]any](t, resp)
	require.Len(t, infos, 1)
	assert.Equal(t, "bin", infos[0]["dataset_id"])

	resp = f.do(t, http.MethodGet, "/api/datasets/bin", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, decode[core.DatasetSummary](t, resp).Rows)

	resp = f.do(t, http.MethodGet, "/api/datasets/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDatasets_GetWithInfiniteValues(t *testing.T) {
	f := setup(t, engine.Config{})
	f.engine.Datasets().Put("inf", "inf.csv", testutil.MustTable(t,
		testutil.Floats("x", math.Inf(1), math.Inf(-1), 1),
	))

	resp := f.do(t, http.MethodGet, "/api/datasets/inf", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[core.DatasetSummary](t, resp)
	require.Len(t, summary.Preview, 3)
	assert.Equal(t, "inf", summary.Preview[0]["x"])
	assert.Equal(t, "-inf", summary.Preview[1]["x"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := setup(t, engine.Config{})
	f.upload(t, "a.csv", "a\n1\n")

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `leapml_datasets_uploads_total{outcome="success"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind core.ErrorKind
		want int
	}{
		{core.KindSchema, http.StatusBadRequest},
		{core.KindImbalancedData, http.StatusBadRequest},
		{core.KindEmptyInput, http.StatusBadRequest},
		{core.KindNotFound, http.StatusNotFound},
		{core.KindTraining, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.kind), string(tt.kind))
	}
}

func TestWriteError_PrefixesServerFaults(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, core.WrapTraining(fmt.Errorf("diverged"), "Model training failed"), pipelineFailed)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Pipeline execution failed: Model training failed: diverged", body.Detail)
	assert.Equal(t, string(core.KindTraining), body.Error)
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		wantStatus int
		wantErr    bool
	}{
		{"encodable", map[string]float64{"x": 1.5}, http.StatusOK, false},
		{"infinity", map[string]float64{"x": math.Inf(1)}, http.StatusInternalServerError, true},
		{"channel", map[string]any{"c": make(chan int)}, http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			err := writeJSON(rec, http.StatusOK, tt.value)

			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.True(t, json.Valid(rec.Body.Bytes()), rec.Body.String())
			if tt.wantErr {
				var body errorBody
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, encodeFailed, body.Detail)
			}
		})
	}
}

func TestServeListener_GracefulShutdown(t *testing.T) {
	eng, err := engine.New(context.Background(), engine.Config{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Config{Engine: eng, APIKey: testKey, WatchSeeds: true, Logger: testutil.NewTestLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
