package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	InputPath    string `json:"input_path"`    // 原始数据文件(csv/xlsx)
	OutputPath   string `json:"output_path"`   // 看板数据导出路径
	ChartPath    string `json:"chart_path"`    // 图表页面输出路径
	WorkbookPath string `json:"workbook_path"` // 可选的xlsx汇总工作簿
	Delimiter    string `json:"delimiter"`     // 分隔符，默认逗号
	SheetName    string `json:"sheet_name"`    // xlsx输入的工作表名
	DataDir      string `json:"data_dir"`      // 邮件附件保存目录
	LogName      string `json:"log_name"`
	LogMaxSize   string `json:"log_max_size"`

	Schedule Duration `json:"schedule"` // 定时运行间隔

	// 为空时整行只要有缺失值就删除
	DropMissingSubset []string `json:"drop_missing_subset"`

	Email struct {
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Server   string   `json:"server"`
		Username string   `json:"username"`
		Password string   `json:"password"`
		To       []string `json:"to"`
		Subject  string   `json:"subject"`
	} `json:"send_email"`

	DingTalk struct {
		Webhook string `json:"webhook"` // 群机器人地址，为空时不推送
		Secret  string `json:"secret"`  // 加签密钥
	} `json:"dingtalk"`

	HTTPAddr string `json:"http_addr"` // 日志/指标服务地址，为空时不启动
}

// DataConfig 列名映射及时间格式
type DataConfig struct {
	Columns     map[string]string `json:"columns"` // 标准列名 -> 源文件列名
	TimeLayouts []string          `json:"time_layouts"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

// Default 返回与原始脚本一致的默认配置
func Default() *Config {
	return &Config{
		InputPath:  "uber_nyc_enriched.csv",
		OutputPath: "Tableau_Uber_DashboardData.csv",
		ChartPath:  "charts/uber_rides.html",
		Delimiter:  ",",
		SheetName:  "Sheet1",
		DataDir:    "data",
		LogName:    "app.log",
		LogMaxSize: "10 * 1024 * 1024",
		Schedule:   Duration(time.Hour),
	}
}

// DefaultData 默认列名映射，源文件列名与标准列名相同
func DefaultData() *DataConfig {
	return &DataConfig{
		Columns: map[string]string{
			"pickup_dt": "pickup_dt",
			"borough":   "borough",
			"pickups":   "pickups",
			"temp":      "temp",
			"pcp01":     "pcp01",
			"pcp06":     "pcp06",
			"pcp24":     "pcp24",
		},
	}
}

// LoadConfig 加载配置，只执行一次
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

// Load 每次都重新读取配置文件，测试和定时任务使用
func Load(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	return loadConfigs(jsonFolder, jsonFile, dataJsonFile)
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	ApplyEnv(cfg)
	return cfg, dcfg, nil
}

// readFile 文件不存在时返回nil，使用默认配置
func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := Default()
	if len(data) > 0 {
		if err := json.Unmarshal(data, cfg); err != nil {
			errChan <- fmt.Errorf("解析Config失败: %w", err)
			return
		}
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	dcfg := DefaultData()
	if len(data) > 0 {
		var parsed DataConfig
		if err := json.Unmarshal(data, &parsed); err != nil {
			errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
			return
		}
		// 只覆盖配置中出现的列
		for k, v := range parsed.Columns {
			dcfg.Columns[k] = v
		}
		dcfg.TimeLayouts = parsed.TimeLayouts
	}
	resultChan <- dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// ApplyEnv 读取.env及环境变量覆盖文件路径
func ApplyEnv(cfg *Config) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg.InputPath = getEnv("UBER_INPUT", cfg.InputPath)
	cfg.OutputPath = getEnv("UBER_OUTPUT", cfg.OutputPath)
	cfg.ChartPath = getEnv("UBER_CHART", cfg.ChartPath)
	cfg.WorkbookPath = getEnv("UBER_WORKBOOK", cfg.WorkbookPath)
	cfg.LogName = getEnv("UBER_LOG", cfg.LogName)
	cfg.DingTalk.Webhook = getEnv("UBER_DINGTALK_WEBHOOK", cfg.DingTalk.Webhook)
	cfg.DingTalk.Secret = getEnv("UBER_DINGTALK_SECRET", cfg.DingTalk.Secret)
	cfg.HTTPAddr = getEnv("UBER_HTTP_ADDR", cfg.HTTPAddr)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Rune 返回分隔符的第一个字符
func (c *Config) Rune() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return ','
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// GetColumn 返回标准列名对应的源列名，未配置时原样返回
func (dc *DataConfig) GetColumn(name string) string {
	mu.RLock()
	defer mu.RUnlock()
	if v, ok := dc.Columns[name]; ok && v != "" {
		return v
	}
	return name
}

func (dc *DataConfig) SetColumn(name, source string) {
	mu.Lock()
	defer mu.Unlock()
	if dc.Columns == nil {
		dc.Columns = make(map[string]string)
	}
	dc.Columns[name] = source
}

// Mapping 返回列映射的副本
func (dc *DataConfig) Mapping() map[string]string {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]string, len(dc.Columns))
	for k, v := range dc.Columns {
		out[k] = v
	}
	return out
}
