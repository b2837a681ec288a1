package main

import (
	"UberInsight/src/config"
	"UberInsight/src/datapush"
	"UberInsight/src/datasource/email"
	"UberInsight/src/datasource/file"
	"UberInsight/src/metrics"
	"UberInsight/src/pipeline"
	"UberInsight/src/storage"
	"UberInsight/src/webui"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

const (
	jsonFile     = "config.json"
	dataJsonFile = "dataconfig.json"
)

var (
	jsonFolder string
	httpAddr   string
	fetchOnce  bool
)

// app 一次命令执行所需的全部组件
type app struct {
	cfg      *config.Config
	dcfg     *config.DataConfig
	logger   *storage.Logger
	runner   *pipeline.Runner
	recorder *metrics.Recorder
	web      *webui.Server
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "uberinsight",
		Short:        "Uber上车数据清洗、统计与看板导出",
		Long:         "读取上车记录，派生日期/时段/星期/月份，清洗后生成图表并导出看板数据",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), runOnce)
		},
	}
	rootCmd.PersistentFlags().StringVar(&jsonFolder, "config", "./config", "配置文件目录")
	rootCmd.PersistentFlags().StringVar(&httpAddr, "http", "", "日志/指标服务地址，覆盖配置中的http_addr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "处理一次输入文件(默认命令)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), runOnce)
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "监控输入文件，文件更新后重新处理",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), watch)
		},
	}

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "按配置的间隔定时处理",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), schedule)
		},
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "从邮箱拉取数据附件并处理",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), fetch)
		},
	}
	fetchCmd.Flags().BoolVar(&fetchOnce, "once", false, "只检查一次邮箱")

	mailCmd := &cobra.Command{
		Use:   "mail",
		Short: "处理一次并将导出文件发送到配置的邮箱",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), mailReport)
		},
	}

	rootCmd.AddCommand(runCmd, watchCmd, scheduleCmd, fetchCmd, mailCmd)
	return rootCmd
}

// withApp 初始化配置和日志，出错时记录FATAL并返回
func withApp(parent context.Context, fn func(ctx context.Context, a *app) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.logger.Close()

	go reopenOnHUP(ctx, a)

	if err := fn(ctx, a); err != nil {
		a.logger.Fatal(err.Error())
		return err
	}
	return nil
}

func newApp() (*app, error) {
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetMirror(os.Stdout)

	var notifiers []pipeline.Notifier
	if cfg.DingTalk.Webhook != "" {
		notifiers = append(notifiers, datapush.NewRobot(cfg.DingTalk.Webhook, cfg.DingTalk.Secret))
	}

	recorder := metrics.NewRecorder()
	return &app{
		cfg:      cfg,
		dcfg:     dcfg,
		logger:   logger,
		runner:   pipeline.NewRunner(pipeline.OptionsFromConfig(cfg, dcfg), logger, notifiers...),
		recorder: recorder,
		web:      webui.NewServer(logger, recorder.Handler()),
	}, nil
}

// reopenOnHUP 收到SIGHUP时重新打开日志文件，配合logrotate使用
func reopenOnHUP(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.logger.Reopen(a.cfg.LogName); err != nil {
				fmt.Fprintln(os.Stderr, "重新打开日志失败:", err)
				continue
			}
			a.logger.Info("Received signal: SIGHUP, log file reopened")
		}
	}
}

// observe 记录一次运行的结果
func (a *app) observe(report *pipeline.Report, err error) {
	a.recorder.Observe(report, err)
	a.web.Observe(report, err)
	if err := a.logger.CheckRotate(a.cfg); err != nil {
		a.logger.Error("日志轮转失败: " + err.Error())
	}
	if err == nil && report != nil {
		a.logger.Info(fmt.Sprintf("本次运行完成(%s)，耗时: %v", report.RunID, report.Duration))
	}
}

// serve 长时间运行的模式下启动HTTP服务
func (a *app) serve(ctx context.Context) {
	addr := httpAddr
	if addr == "" {
		addr = a.cfg.HTTPAddr
	}
	if addr == "" {
		return
	}
	go func() {
		a.logger.Info("HTTP服务已启动: " + addr)
		if err := a.web.ListenAndServe(ctx, addr); err != nil {
			a.logger.Error("HTTP服务异常: " + err.Error())
		}
	}()
}

func runOnce(ctx context.Context, a *app) error {
	report, err := a.runner.Run(ctx)
	a.observe(report, err)
	return err
}

// runLogged 用于后台模式，失败只记录日志
func (a *app) runLogged(ctx context.Context, run func(context.Context) (*pipeline.Report, error)) {
	report, err := run(ctx)
	a.observe(report, err)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("处理失败: " + err.Error())
	}
}

func watch(ctx context.Context, a *app) error {
	monitor, err := file.NewFileMonitor(a.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("创建文件监控失败: %w", err)
	}
	defer monitor.Close()

	a.serve(ctx)
	if _, err := os.Stat(a.cfg.InputPath); err == nil {
		a.runLogged(ctx, a.runner.Run)
	}

	a.logger.Info(fmt.Sprintf("文件监控已启动: %s，按Ctrl+C退出", a.cfg.InputPath))
	err = monitor.Watch(ctx, func(path string) {
		a.logger.Info("检测到文件更新: " + path)
		a.runLogged(ctx, func(ctx context.Context) (*pipeline.Report, error) {
			return a.runner.RunFile(ctx, path)
		})
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// cronSpec 间隔转为 @every 形式的cron表达式
func cronSpec(interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("无效的时间间隔: %v", interval)
	}
	return fmt.Sprintf("@every %s", interval), nil
}

// every 立即执行一次，之后按间隔执行，直到ctx结束
func (a *app) every(ctx context.Context, interval time.Duration, job func()) error {
	spec, err := cronSpec(interval)
	if err != nil {
		return err
	}

	c := cron.New()
	if err := c.AddFunc(spec, job); err != nil {
		return fmt.Errorf("创建定时任务失败: %w", err)
	}

	job()
	c.Start()
	defer c.Stop()

	a.logger.Info(fmt.Sprintf("定时任务已启动(%s)，按Ctrl+C退出", spec))
	<-ctx.Done()
	return nil
}

func schedule(ctx context.Context, a *app) error {
	a.serve(ctx)
	return a.every(ctx, time.Duration(a.cfg.Schedule), func() {
		a.runLogged(ctx, a.runner.Run)
	})
}

func fetch(ctx context.Context, a *app) error {
	client := email.NewEmailClient(a.cfg.Email.Server, a.cfg.Email.Username, a.cfg.Email.Password, a.logger)
	handler := email.NewAttachmentHandler(a.cfg.Email.TargetSubject, a.cfg.DataDir, a.logger)

	check := func() error {
		newEmail, err := email.CheckEmails(client, a.cfg.Email.TargetSubject, a.logger)
		if err != nil {
			return fmt.Errorf("检查邮件失败: %w", err)
		}
		if newEmail == nil || handler.IsProcessed(newEmail.UID) {
			return nil
		}
		return processEmail(ctx, a, handler, newEmail)
	}

	if fetchOnce {
		return check()
	}

	a.serve(ctx)
	return a.every(ctx, time.Duration(a.cfg.Email.CheckInterval), func() {
		if err := check(); err != nil {
			a.logger.Error(err.Error())
		}
	})
}

// processEmail 保存附件，并逐个处理其中的数据文件
func processEmail(ctx context.Context, a *app, handler *email.AttachmentHandler, e *email.Email) error {
	if _, err := handler.Handle(e); err != nil {
		return fmt.Errorf("处理邮件失败(UID:%d): %w", e.UID, err)
	}

	loadOpts := file.Options{Delimiter: a.cfg.Rune(), SheetName: a.cfg.SheetName}
	for _, att := range e.Attachments {
		if !email.IsDataAttachment(att.Filename) {
			continue
		}
		dfw, err := email.LoadAttachment(att, loadOpts)
		if err != nil {
			a.logger.Error(err.Error())
			continue
		}
		a.runLogged(ctx, func(ctx context.Context) (*pipeline.Report, error) {
			return a.runner.RunFrame(ctx, dfw.GetDF(), dfw.Source())
		})
	}
	return nil
}

func mailReport(ctx context.Context, a *app) error {
	report, err := a.runner.Run(ctx)
	a.observe(report, err)
	if err != nil {
		return err
	}

	if err := email.NewMailer(a.cfg).Notify(ctx, report); err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("邮件发送成功: %v", a.cfg.SendEmail.To))
	return nil
}
