// Package pipeline 串联读取、派生、清洗、统计、绘图和导出
package pipeline

import (
	"UberInsight/src/chart"
	"UberInsight/src/config"
	"UberInsight/src/datasource/file"
	"UberInsight/src/exporter"
	"UberInsight/src/processor"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

const previewRows = 5

// Logger 运行过程中使用的日志接口，storage.Logger 满足该接口
type Logger interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Notifier 运行结束后的通知渠道(邮件、钉钉等)
type Notifier interface {
	Notify(ctx context.Context, r *Report) error
}

// Options 一次运行所需的路径和处理参数
type Options struct {
	InputPath    string
	OutputPath   string
	ChartPath    string // 为空时不渲染图表
	WorkbookPath string // 为空时不导出工作簿

	Load              file.Options
	Export            exporter.WriteOptions
	Columns           map[string]string // 标准列名 -> 源列名
	TimeLayouts       []string
	DropMissingSubset []string
}

// OptionsFromConfig 由配置文件生成运行参数
func OptionsFromConfig(cfg *config.Config, dc *config.DataConfig) Options {
	opts := Options{
		InputPath:         cfg.InputPath,
		OutputPath:        cfg.OutputPath,
		ChartPath:         cfg.ChartPath,
		WorkbookPath:      cfg.WorkbookPath,
		Load:              file.Options{Delimiter: cfg.Rune(), SheetName: cfg.SheetName},
		Export:            exporter.WriteOptions{Delimiter: cfg.Rune()},
		DropMissingSubset: cfg.DropMissingSubset,
	}
	if dc != nil {
		opts.Columns = dc.Mapping()
		opts.TimeLayouts = dc.TimeLayouts
	}
	return opts
}

// Report 一次运行的结果
type Report struct {
	RunID       string
	Input       string
	Loaded      int // 读取的行数
	Unparseable int // 无法解析的时间个数
	Clean       processor.CleanStats
	Summary     processor.Summary

	OutputPath   string
	ChartPath    string
	WorkbookPath string

	// 可选输出(工作簿、通知)的失败，不影响本次运行
	Warnings *multierror.Error

	Started  time.Time
	Duration time.Duration
}

func newReport(input string) *Report {
	return &Report{RunID: uuid.NewString(), Input: input, Started: time.Now()}
}

// Warning 返回汇总的告警，没有时为nil
func (r *Report) Warning() error {
	return r.Warnings.ErrorOrNil()
}

// Runner 同一时间只允许一次运行
type Runner struct {
	mu        sync.Mutex
	opts      Options
	logger    Logger
	notifiers []Notifier
}

func NewRunner(opts Options, logger Logger, notifiers ...Notifier) *Runner {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Runner{opts: opts, logger: logger, notifiers: notifiers}
}

// Run 处理配置中的输入文件
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	return r.RunFile(ctx, r.opts.InputPath)
}

// RunFile 处理指定的输入文件，用于监控目录和邮件附件
func (r *Runner) RunFile(ctx context.Context, path string) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := newReport(path)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	r.logger.Info(fmt.Sprintf("开始处理: %s", path))
	df, err := file.Load(path, r.opts.Load)
	if err != nil {
		return report, fmt.Errorf("load: %w", err)
	}
	return r.process(ctx, df, report)
}

// RunFrame 处理已读入的数据
func (r *Runner) RunFrame(ctx context.Context, df dataframe.DataFrame, source string) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := newReport(source)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return r.process(ctx, df, report)
}

func (r *Runner) process(ctx context.Context, df dataframe.DataFrame, report *Report) (*Report, error) {
	defer func() { report.Duration = time.Since(report.Started) }()

	df, err := file.RenameColumns(df, r.opts.Columns)
	if err != nil {
		return report, fmt.Errorf("load: %w", err)
	}
	if err := file.RequireColumns(df, processor.SourceColumns...); err != nil {
		return report, fmt.Errorf("load: %w", err)
	}

	rows, cols := file.Shape(df)
	report.Loaded = rows
	r.logger.Info(fmt.Sprintf("数据形状: %d 行 %d 列\n%s", rows, cols, file.Preview(df, previewRows).String()))
	r.logger.Info("列信息:\n" + file.Info(df))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	missingBefore := processor.CountMissing(df, processor.ColPickupDT)
	df, err = processor.DeriveFeatures(df, r.opts.TimeLayouts)
	if err != nil {
		return report, fmt.Errorf("derive: %w", err)
	}
	report.Unparseable = processor.CountMissing(df, processor.ColPickupDT) - missingBefore
	if report.Unparseable > 0 {
		r.logger.Warning(fmt.Sprintf("%d 个时间无法解析，已置为缺失", report.Unparseable))
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	df, report.Clean = processor.Clean(df, r.opts.DropMissingSubset)
	r.logger.Info(fmt.Sprintf("清洗完成: 原 %d 行，删除缺失 %d 行，删除重复 %d 行，剩余 %d 行",
		report.Clean.Before, report.Clean.DroppedMissing, report.Clean.DroppedDuplicates, report.Clean.After))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.Summary, err = processor.Summarize(df)
	if err != nil {
		return report, fmt.Errorf("aggregate: %w", err)
	}

	if r.opts.ChartPath != "" {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := chart.RenderFile(r.opts.ChartPath, report.Summary); err != nil {
			return report, fmt.Errorf("render: %w", err)
		}
		report.ChartPath = r.opts.ChartPath
		r.logger.Info(fmt.Sprintf("图表已生成: %s", r.opts.ChartPath))
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	dashboard, err := exporter.Dashboard(df)
	if err != nil {
		return report, fmt.Errorf("export: %w", err)
	}
	if err := exporter.WriteCSV(r.opts.OutputPath, dashboard, r.opts.Export); err != nil {
		return report, fmt.Errorf("export: %w", err)
	}
	report.OutputPath = r.opts.OutputPath
	r.logger.Info(fmt.Sprintf("看板数据已导出: %s (%d 行)", r.opts.OutputPath, dashboard.Nrow()))

	if r.opts.WorkbookPath != "" {
		if err := exporter.WriteWorkbook(r.opts.WorkbookPath, df, report.Summary); err != nil {
			report.Warnings = multierror.Append(report.Warnings, fmt.Errorf("workbook: %w", err))
		} else {
			report.WorkbookPath = r.opts.WorkbookPath
		}
	}

	report.Duration = time.Since(report.Started)
	for _, n := range r.notifiers {
		if err := n.Notify(ctx, report); err != nil {
			report.Warnings = multierror.Append(report.Warnings, fmt.Errorf("notify: %w", err))
		}
	}

	if w := report.Warning(); w != nil {
		r.logger.Warning(w.Error())
	}
	return report, nil
}

type nopLogger struct{}

func (nopLogger) Info(string)    {}
func (nopLogger) Warning(string) {}
func (nopLogger) Error(string)   {}
