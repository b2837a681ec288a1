package datapush

import (
	"UberInsight/src/pipeline"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// 常量定义
const (
	RETRY_TIMES     = 5
	RETRY_INTERVAL  = 2 * time.Second
	REQUEST_TIMEOUT = 10 * time.Second
)

// 钉钉 API 响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type markdownMessage struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"markdown"`
}

// Robot 钉钉群机器人，运行结束后推送摘要
type Robot struct {
	Webhook  string
	Secret   string // 加签密钥，为空时不签名
	Times    int
	Interval time.Duration
	client   *http.Client
	now      func() time.Time
}

func NewRobot(webhook, secret string) *Robot {
	return &Robot{
		Webhook:  webhook,
		Secret:   secret,
		Times:    RETRY_TIMES,
		Interval: RETRY_INTERVAL,
		client:   &http.Client{Timeout: REQUEST_TIMEOUT},
		now:      time.Now,
	}
}

// Notify 满足 pipeline.Notifier
func (b *Robot) Notify(ctx context.Context, r *pipeline.Report) error {
	title := "Uber 上车数据处理完成"
	return b.SendMarkdown(ctx, title, markdownText(title, r))
}

// SendMarkdown 发送markdown消息，失败时重试
func (b *Robot) SendMarkdown(ctx context.Context, title, text string) error {
	var msg markdownMessage
	msg.MsgType = "markdown"
	msg.Markdown.Title = title
	msg.Markdown.Text = text

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %w", err)
	}

	return retry(ctx, func() error {
		return b.post(ctx, payload)
	}, b.Times, b.Interval)
}

func (b *Robot) post(ctx context.Context, payload []byte) error {
	target, err := b.signedURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("钉钉返回HTTP %d", resp.StatusCode)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("发送消息失败(%d): %s", result.ErrCode, result.ErrMsg)
	}
	return nil
}

// signedURL 加签: base64(HmacSHA256(timestamp+"\n"+secret))
func (b *Robot) signedURL() (string, error) {
	if b.Secret == "" {
		return b.Webhook, nil
	}
	u, err := url.Parse(b.Webhook)
	if err != nil {
		return "", fmt.Errorf("webhook地址无效: %w", err)
	}

	timestamp := strconv.FormatInt(b.now().UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(b.Secret))
	mac.Write([]byte(timestamp + "\n" + b.Secret))

	q := u.Query()
	q.Set("timestamp", timestamp)
	q.Set("sign", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func markdownText(title string, r *pipeline.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", title)
	for _, line := range r.Lines() {
		fmt.Fprintf(&sb, "- %s\n", line)
	}
	fmt.Fprintf(&sb, "\n耗时: %v", r.Duration.Round(time.Millisecond))
	return sb.String()
}

// 重试函数，ctx结束时立即返回
func retry(ctx context.Context, fn func() error, times int, interval time.Duration) error {
	if times < 1 {
		times = 1
	}
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}
