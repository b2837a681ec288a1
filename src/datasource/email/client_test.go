package email

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *testLogger) Info(msg string)    { l.add(msg) }
func (l *testLogger) Warning(msg string) { l.add(msg) }
func (l *testLogger) Error(msg string)   { l.add(msg) }

func (l *testLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

type fakeMailService struct {
	emails       []*Email
	connectErr   error
	fetchErr     error
	disconnected bool
}

func (f *fakeMailService) Connect() error { return f.connectErr }
func (f *fakeMailService) Disconnect()    { f.disconnected = true }
func (f *fakeMailService) FetchUnreadEmails() ([]*Email, error) {
	return f.emails, f.fetchErr
}

const rawMessage = "From: =?UTF-8?B?5pWw5o2u?= <ops@example.com>\r\n" +
	"Subject: =?gbk?B?08Wyvcr9vt0=?= uber_nyc_enriched\r\n" +
	"Date: Thu, 05 Jan 2023 09:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"see attachment\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/csv; charset=utf-8\r\n" +
	"Content-Disposition: attachment; filename=\"uber.csv\"\r\n" +
	"\r\n" +
	"pickup_dt,borough\r\n" +
	"2023-01-05 09:00,A\r\n" +
	"--XYZ--\r\n"

func TestParseMessage(t *testing.T) {
	e, err := ParseMessage(strings.NewReader(rawMessage), nil)
	require.NoError(t, err)

	assert.Equal(t, "优步数据 uber_nyc_enriched", e.Subject)
	assert.Contains(t, e.From, "数据")
	assert.Equal(t, 2023, e.Date.Year())

	require.Len(t, e.Attachments, 1)
	assert.Equal(t, "uber.csv", e.Attachments[0].Filename)
	assert.Contains(t, string(e.Attachments[0].Content), "2023-01-05 09:00,A")
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain subject", "plain subject"},
		{"=?UTF-8?B?5pWw5o2u?=", "数据"},
		{"=?GB2312?B?saix7S5jc3Y=?=", "报表.csv"},
		{"=?bogus?Q?broken", "=?bogus?Q?broken"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, decodeHeader(tt.in), tt.in)
	}
}

func TestFilterLatestTargetEmail(t *testing.T) {
	now := time.Now()
	emails := []*Email{
		{UID: 1, Subject: "uber data", Date: now.Add(-2 * time.Hour)},
		{UID: 2, Subject: "other", Date: now},
		{UID: 3, Subject: "uber data v2", Date: now.Add(-time.Hour)},
	}

	got := filterLatestTargetEmail(emails, "uber")
	require.NotNil(t, got)
	assert.Equal(t, uint32(3), got.UID)

	assert.Nil(t, filterLatestTargetEmail(emails, "missing"))
	assert.Nil(t, filterLatestTargetEmail(nil, "uber"))
}

func TestCheckEmails(t *testing.T) {
	logger := &testLogger{}

	svc := &fakeMailService{emails: []*Email{{UID: 7, Subject: "uber export"}}}
	got, err := CheckEmails(svc, "uber", logger)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint32(7), got.UID)
	assert.True(t, svc.disconnected)

	got, err = CheckEmails(&fakeMailService{}, "uber", logger)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = CheckEmails(&fakeMailService{connectErr: errors.New("refused")}, "uber", logger)
	assert.ErrorContains(t, err, "refused")

	_, err = CheckEmails(&fakeMailService{fetchErr: errors.New("timeout")}, "uber", logger)
	assert.ErrorContains(t, err, "timeout")
}
