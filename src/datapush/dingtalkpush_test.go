package datapush

import (
	"UberInsight/src/pipeline"
	"UberInsight/src/processor"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRobot(url string) *Robot {
	r := NewRobot(url, "")
	r.Times = 3
	r.Interval = time.Millisecond
	return r
}

func TestNotifySendsMarkdown(t *testing.T) {
	var got markdownMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer ts.Close()

	report := &pipeline.Report{
		Input:  "uber.csv",
		Loaded: 3,
		Clean:  processor.CleanStats{After: 1},
	}
	require.NoError(t, testRobot(ts.URL).Notify(context.Background(), report))

	assert.Equal(t, "markdown", got.MsgType)
	assert.Contains(t, got.Markdown.Text, "### Uber 上车数据处理完成")
	assert.Contains(t, got.Markdown.Text, "- 读取行数: 3")
}

func TestSendRetriesOnErrcode(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			_, _ = w.Write([]byte(`{"errcode":130101,"errmsg":"send too fast"}`))
			return
		}
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer ts.Close()

	require.NoError(t, testRobot(ts.URL).SendMarkdown(context.Background(), "t", "x"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendFailsAfterRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"errcode":310000,"errmsg":"keywords not in content"}`))
	}))
	defer ts.Close()

	err := testRobot(ts.URL).SendMarkdown(context.Background(), "t", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keywords not in content")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	err := testRobot(ts.URL).SendMarkdown(context.Background(), "t", "x")
	assert.ErrorContains(t, err, "HTTP 502")
}

func TestSignedURL(t *testing.T) {
	r := NewRobot("https://oapi.dingtalk.com/robot/send?access_token=abc", "SECret")
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }

	signed, err := r.signedURL()
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("SECret"))
	mac.Write([]byte("1700000000000\nSECret"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest(http.MethodPost, signed, nil)
	require.NoError(t, err)
	q := req.URL.Query()
	assert.Equal(t, "abc", q.Get("access_token"))
	assert.Equal(t, "1700000000000", q.Get("timestamp"))
	assert.Equal(t, want, q.Get("sign"))

	unsigned, err := NewRobot("https://example.com/hook", "").signedURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", unsigned)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, func() error {
		calls++
		cancel()
		return errors.New("fail")
	}, 5, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
