package webui

import (
	"UberInsight/src/pipeline"
	"UberInsight/src/processor"
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogs struct {
	mu   sync.Mutex
	subs []chan string
}

func (f *fakeLogs) Subscribe() <-chan string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan string, 10)
	f.subs = append(f.subs, ch)
	return ch
}

func (f *fakeLogs) Unsubscribe(ch <-chan string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sub := range f.subs {
		if sub == ch {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return
		}
	}
}

func (f *fakeLogs) publish(msg string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return len(f.subs)
}

func sampleReport() *pipeline.Report {
	return &pipeline.Report{
		RunID:  "run-1",
		Input:  "uber.csv",
		Loaded: 3,
		Clean:  processor.CleanStats{Before: 3, DroppedMissing: 1, DroppedDuplicates: 1, After: 1},
		Summary: processor.Summary{
			Rows:    1,
			Monthly: []processor.MonthTotal{{Label: "Jan", Pickups: 5, Rows: 1}},
			Rainfall: []processor.RainfallSeries{
				{Column: "pcp01", Correlation: math.NaN()},
				{Column: "pcp24", Correlation: 0.5},
			},
		},
		OutputPath: "out.csv",
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(nil, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReportEndpoint(t *testing.T) {
	srv := NewServer(nil, nil)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	srv.Observe(sampleReport(), nil)
	srv.Observe(nil, errors.New("load: missing file"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, 3.0, body["loaded"])
	assert.Equal(t, "load: missing file", body["last_error"])
	assert.Equal(t, map[string]interface{}{"missing": 1.0, "duplicates": 1.0}, body["dropped"])

	corr := body["rainfall_correlation"].(map[string]interface{})
	assert.Nil(t, corr["pcp01"])
	assert.Equal(t, 0.5, corr["pcp24"])
	assert.Equal(t, []interface{}{"out.csv"}, body["outputs"])
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("uberinsight_runs_total 1\n"))
	})
	rec := httptest.NewRecorder()
	NewServer(nil, metrics).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "uberinsight_runs_total")
}

func TestLogStream(t *testing.T) {
	logs := &fakeLogs{}
	ts := httptest.NewServer(NewServer(logs, nil).Router())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/logs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// 等待订阅建立
	require.Eventually(t, func() bool { return logs.publish("[t] INFO: hello\n") > 0 }, time.Second, 10*time.Millisecond)

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(line, "INFO: hello\n"))

	cancel()
	assert.Eventually(t, func() bool { return logs.publish("bye\n") == 0 }, time.Second, 10*time.Millisecond)
}
