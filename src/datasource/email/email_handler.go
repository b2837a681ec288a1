// email_handler.go
package email

import (
	"UberInsight/src/pipeline"
	"UberInsight/src/utils"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DataExtensions 作为数据源保存的附件类型
var DataExtensions = []string{".csv", ".xlsx"}

// AttachmentHandler 保存目标邮件的数据附件，同一封邮件只处理一次
type AttachmentHandler struct {
	TargetSubject string // 主题关键词
	DataDir       string // 附件保存目录
	logger        pipeline.Logger
	processedUIDs map[uint32]bool
	mu            sync.RWMutex
}

func NewAttachmentHandler(subject, dataDir string, logger pipeline.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		logger:        logger,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 邮件是否已处理过
func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 保存数据附件并返回保存路径，主题不匹配或已处理的邮件返回空
func (h *AttachmentHandler) Handle(e *Email) ([]string, error) {
	if h.IsProcessed(e.UID) {
		return nil, nil
	}
	if !strings.Contains(e.Subject, h.TargetSubject) {
		h.logger.Info(fmt.Sprintf("跳过主题不匹配的邮件: %s", e.Subject))
		return nil, nil
	}

	h.logger.Info(fmt.Sprintf("处理邮件: %s 发件人: %s 日期: %s",
		e.Subject, e.From, e.Date.Format("2006-01-02 15:04:05")))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	var saved []string
	for _, att := range e.Attachments {
		if !IsDataAttachment(att.Filename) {
			continue
		}
		// 只保留文件名，防止附件名带路径
		filePath := filepath.Join(h.DataDir, filepath.Base(att.Filename))
		if err := os.WriteFile(filePath, att.Content, 0644); err != nil {
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}
		h.logger.Info(fmt.Sprintf("附件已保存到: %s", filePath))
		saved = append(saved, filePath)
	}

	if len(saved) > 0 {
		h.markAsProcessed(e.UID)
	}
	return saved, nil
}

// IsDataAttachment 按扩展名判断附件是否为数据文件
func IsDataAttachment(name string) bool {
	return utils.Contains(DataExtensions, strings.ToLower(filepath.Ext(name)))
}
