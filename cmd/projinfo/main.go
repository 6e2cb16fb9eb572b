package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"projinfo/internal/config"
)

// version 由 -ldflags "-X main.version=..." 注入
var version = "dev"

// globalOptions 所有子命令共享的状态
type globalOptions struct {
	configPath string
	verbose    bool
	devMode    bool // serve --dev 时使用开发日志配置

	cfg     *config.AppConfig
	cfgInfo config.LoadConfigInfo
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "projinfo",
		Short: "Project Info Updater - stamp project details into MST-TS / ES- workbooks",
		Long: `projinfo finds Technical Submittal (MST-TS*.xlsx) and Equipment Schedule (ES-*.xlsx)
workbooks under a project folder and writes the project name, number and issued-for
text into their header cells.

Run without arguments to open the form in the browser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config.toml path (default: beside the executable)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	serveCmd := newServeCmd(opts)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newLocateCmd(opts))

	// 默认行为：启动界面
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	return rootCmd
}

// init 加载配置并初始化日志
func (o *globalOptions) init() error {
	cfg, info, err := config.LoadConfigWithInfo(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	o.cfg = cfg
	o.cfgInfo = info

	zc := zap.NewProductionConfig()
	if o.devMode || cfg.Server.DevMode {
		zc = zap.NewDevelopmentConfig()
	}
	if o.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	o.logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	o.logger.Debug("config loaded", zap.String("path", info.Path), zap.Bool("found", info.Found))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
