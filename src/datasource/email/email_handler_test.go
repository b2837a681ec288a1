package email

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentHandler(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	h := NewAttachmentHandler("uber", dir, &testLogger{})

	e := &Email{
		UID:     42,
		Subject: "uber pickups",
		Attachments: []*Attachment{
			{Filename: "uber.csv", Content: []byte("a,b\n1,2\n")},
			{Filename: "../escape.XLSX", Content: []byte("xlsx")},
			{Filename: "notes.txt", Content: []byte("skip")},
		},
	}

	saved, err := h.Handle(e)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "uber.csv"), filepath.Join(dir, "escape.XLSX")}, saved)
	assert.NoFileExists(t, filepath.Join(dir, "notes.txt"))
	assert.True(t, h.IsProcessed(42))

	data, err := os.ReadFile(saved[0])
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	// 已处理的邮件不再保存
	saved, err = h.Handle(e)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestAttachmentHandlerSkips(t *testing.T) {
	h := NewAttachmentHandler("uber", t.TempDir(), &testLogger{})

	saved, err := h.Handle(&Email{UID: 1, Subject: "weekly report",
		Attachments: []*Attachment{{Filename: "uber.csv"}}})
	require.NoError(t, err)
	assert.Empty(t, saved)
	assert.False(t, h.IsProcessed(1))

	// 没有数据附件时不标记为已处理
	saved, err = h.Handle(&Email{UID: 2, Subject: "uber",
		Attachments: []*Attachment{{Filename: "readme.md"}}})
	require.NoError(t, err)
	assert.Empty(t, saved)
	assert.False(t, h.IsProcessed(2))
}

func TestIsDataAttachment(t *testing.T) {
	assert.True(t, IsDataAttachment("a.csv"))
	assert.True(t, IsDataAttachment("A.XLSX"))
	assert.False(t, IsDataAttachment("a.xls"))
	assert.False(t, IsDataAttachment("csv"))
}
