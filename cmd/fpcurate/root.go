package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/fpcurate/internal/config"
	"github.com/John-Robertt/fpcurate/internal/logging"
)

// commandContext 保存各子命令共用的输出流与工作目录。
type commandContext struct {
	stdout io.Writer
	stderr io.Writer
	// cwd 为空时使用进程当前目录。
	cwd string
}

func newCommandContext(stdout, stderr io.Writer, cwd string) *commandContext {
	return &commandContext{stdout: stdout, stderr: stderr, cwd: cwd}
}

func newRootCommand(app *commandContext) *cobra.Command {
	root := &cobra.Command{
		Use:           "fpcurate",
		Short:         "为 Flashpoint 批量生成 curation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "配置文件路径（默认读取当前目录的 "+config.FileName+"，可选）")
	pf.StringP("dir", "d", "", "curation 输出目录（默认当前目录）")
	pf.String("proxy", "", "HTTP 代理，例如 http://127.0.0.1:7890")
	pf.String("log-level", "", "日志级别：debug|info|warn|error")
	pf.String("log-format", "", "日志格式：text|json")
	pf.String("log-file", "", "日志文件（按大小滚动）；不指定则写 stderr")

	root.AddCommand(newCurateCommand(app))
	root.AddCommand(newValidateCommand(app))
	root.AddCommand(newClearSaveCommand(app))
	root.AddCommand(newVocabCommand(app))
	root.AddCommand(newFieldsCommand(app))
	return root
}

func (c *commandContext) workDir() (string, error) {
	if c.cwd != "" {
		return c.cwd, nil
	}
	return os.Getwd()
}

// load 合并配置文件与本次命令行中显式给出的参数。
func (c *commandContext) load(cmd *cobra.Command) (config.EffectiveConfig, error) {
	cwd, err := c.workDir()
	if err != nil {
		return config.EffectiveConfig{}, err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	dir, _ := cmd.Flags().GetString("dir")

	return config.LoadEffective(cwd, config.CLIArgs{
		ConfigFile:   cfgFile,
		Dir:          dir,
		UseTitle:     boolFlag(cmd, "use-title"),
		Overwrite:    boolFlag(cmd, "overwrite"),
		Save:         boolFlag(cmd, "save"),
		IgnoreErrors: boolFlag(cmd, "ignore-errors"),
		Validate:     stringFlag(cmd, "validate"),
		Site:         stringFlag(cmd, "site"),
		Spoof:        boolFlag(cmd, "spoof"),
		PageCache:    boolFlag(cmd, "page-cache"),
		ProxyURL:     stringFlag(cmd, "proxy"),
		LogLevel:     stringFlag(cmd, "log-level"),
		LogFormat:    stringFlag(cmd, "log-format"),
		LogFile:      stringFlag(cmd, "log-file"),
		SharedName:   stringFlag(cmd, "shared"),
		SharedPaths:  stringSliceFlag(cmd, "shared-path"),
	})
}

func (c *commandContext) logger(eff config.EffectiveConfig) (*slog.Logger, io.Closer, error) {
	return logging.New(c.stderr, eff.Log)
}

// boolFlag 返回显式给出的布尔参数；未给出或命令没有该参数时返回 nil。
func boolFlag(cmd *cobra.Command, name string) *bool {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return nil
	}
	return &v
}

func stringFlag(cmd *cobra.Command, name string) *string {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	v := f.Value.String()
	return &v
}

func stringSliceFlag(cmd *cobra.Command, name string) []string {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	v, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		return nil
	}
	return v
}
