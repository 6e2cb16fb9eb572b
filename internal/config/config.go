package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"projinfo/internal/service/excel"
)

// FileName 默认配置文件名（位于可执行文件同目录）
const FileName = "config.toml"

// AppConfig 应用配置
type AppConfig struct {
	Server  ServerConfig  `toml:"server"`
	Data    DataConfig    `toml:"data"`
	Updater UpdaterConfig `toml:"updater"`
	Notify  NotifyConfig  `toml:"notify"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// UpdaterConfig 更新行为配置
type UpdaterConfig struct {
	Recursive   bool   `toml:"recursive"`    // 是否递归子目录
	ESPolicy    string `toml:"es_policy"`    // keyword / fixed
	BlankPolicy string `toml:"blank_policy"` // clear / keep
	LogDir      string `toml:"log_dir"`      // 运行日志目录，相对路径基于可执行文件目录
}

// NotifyConfig 运行结束邮件通知
type NotifyConfig struct {
	Enabled    bool   `toml:"enabled"`
	SMTPServer string `toml:"smtp_server"`
	SMTPPort   int    `toml:"smtp_port"`
	SMTPUser   string `toml:"smtp_user"`
	SMTPPass   string `toml:"smtp_pass"`
	From       string `toml:"from"`
	To         string `toml:"to"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	Found         bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Updater: UpdaterConfig{
			Recursive:   true,
			ESPolicy:    string(excel.ESPolicyKeyword),
			BlankPolicy: string(excel.BlankClear),
			LogDir:      "logs",
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
		},
	}
}

// Validate 校验策略取值
func (c *AppConfig) Validate() error {
	if _, err := excel.ParseESPolicy(c.Updater.ESPolicy); err != nil {
		return err
	}
	if _, err := excel.ParseBlankPolicy(c.Updater.BlankPolicy); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Notify.Enabled && (c.Notify.SMTPServer == "" || c.Notify.To == "") {
		return fmt.Errorf("notify enabled but smtp_server or to is empty")
	}
	return nil
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func baseDir() string {
	exeDir, err := GetExeDir()
	if err != nil || exeDir == "" {
		// 无法获取可执行文件目录，使用当前目录
		return "."
	}
	return exeDir
}

// DefaultPath 默认配置文件路径
func DefaultPath() string {
	return filepath.Join(baseDir(), FileName)
}

// LoadConfigWithInfo 加载配置并返回元信息；path 为空时使用可执行文件同目录的 config.toml
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.Found = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	// 环境变量覆盖
	if v := os.Getenv("PROJINFO_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("PROJINFO_LOG_DIR"); v != "" {
		config.Updater.LogDir = v
	}
	if v := os.Getenv("PROJINFO_ES_POLICY"); v != "" {
		config.Updater.ESPolicy = v
	}

	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
func LoadConfig(path string) (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo(path)
	return config, err
}

// SaveConfig 保存配置到 path（为空时写入默认位置）
func SaveConfig(config *AppConfig, path string) error {
	if path == "" {
		path = DefaultPath()
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// resolve 相对路径基于可执行文件目录
func resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(baseDir(), dir)
}

// EnsureDataDir 确保数据目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := resolve(config.Data.DataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// LogDir 运行日志目录（不创建）
func LogDir(config *AppConfig) string {
	return resolve(config.Updater.LogDir)
}

// DBPath 运行历史数据库路径
func DBPath(config *AppConfig) string {
	return filepath.Join(resolve(config.Data.DataDir), "projinfo.db")
}
