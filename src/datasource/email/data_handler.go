// data_handler.go
package email

import (
	"UberInsight/src/datasource/file"
	"fmt"
	"sync"

	"github.com/go-gota/gota/dataframe"
)

// DataFrameWrapper 附件数据，线程安全
type DataFrameWrapper struct {
	df     dataframe.DataFrame
	source string
	mu     sync.RWMutex
}

// GetDF 获取当前DataFrame
func (d *DataFrameWrapper) GetDF() dataframe.DataFrame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.df
}

// Source 数据来源的附件名
func (d *DataFrameWrapper) Source() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.source
}

// LoadAttachment 读取csv/xlsx附件，时间列中的Excel序列日期由file包转为文本
func LoadAttachment(att *Attachment, opts file.Options) (*DataFrameWrapper, error) {
	if !IsDataAttachment(att.Filename) {
		return nil, fmt.Errorf("不支持的附件类型: %s", att.Filename)
	}
	df, err := file.LoadBytes(att.Filename, att.Content, opts)
	if err != nil {
		return nil, fmt.Errorf("读取附件 %s 失败: %w", att.Filename, err)
	}
	return &DataFrameWrapper{df: df, source: att.Filename}, nil
}
