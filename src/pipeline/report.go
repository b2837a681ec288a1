package pipeline

import (
	"fmt"
	"path/filepath"
)

// Lines 运行结果的摘要，供邮件和机器人消息使用
func (r *Report) Lines() []string {
	lines := []string{
		fmt.Sprintf("输入文件: %s", filepath.Base(r.Input)),
		fmt.Sprintf("读取行数: %d", r.Loaded),
		fmt.Sprintf("删除缺失: %d 行，删除重复: %d 行", r.Clean.DroppedMissing, r.Clean.DroppedDuplicates),
		fmt.Sprintf("有效行数: %d", r.Clean.After),
	}
	if r.Unparseable > 0 {
		lines = append(lines, fmt.Sprintf("无法解析的时间: %d", r.Unparseable))
	}
	if m, ok := r.Summary.BusiestMonth(); ok {
		lines = append(lines, fmt.Sprintf("订单最多的月份: %s (%.0f)", m.Label, m.Pickups))
	}
	if d, ok := r.Summary.BusiestWeekday(); ok {
		lines = append(lines, fmt.Sprintf("订单最多的星期: %s (%d)", d.Label, d.Count))
	}
	if r.OutputPath != "" {
		lines = append(lines, fmt.Sprintf("看板数据: %s", r.OutputPath))
	}
	return lines
}

// Attachments 本次运行生成的文件
func (r *Report) Attachments() []string {
	var files []string
	for _, p := range []string{r.OutputPath, r.WorkbookPath, r.ChartPath} {
		if p != "" {
			files = append(files, p)
		}
	}
	return files
}
