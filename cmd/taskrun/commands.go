package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/object1314/taskit/pkg/distributed/xcrontab"
	"github.com/object1314/taskit/pkg/util/xsched"
)

// usageError 表示参数错误，映射到退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "taskrun",
		Usage:   "YAML 驱动的周期任务运行器",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
				Value:   "taskrun.yaml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "日志级别 (debug/info/warn/error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			createRunCommand(),
			createCheckCommand(),
		},
		DefaultCommand: "help",
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射，确保与文档退出码契约一致。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

// createRunCommand 创建 run 子命令。
func createRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "加载配置并启动任务运行器",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "seconds",
				Usage: "启用秒级 cron 精度（覆盖配置文件）",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger, err := newLogger(cmd.String("log-level"))
			if err != nil {
				return &usageError{msg: err.Error()}
			}
			return cmdRun(ctx, cmd.String("config"), cmd.Bool("seconds"), logger)
		},
	}
}

// createCheckCommand 创建 check 子命令。
func createCheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "校验配置文件并打印任务摘要",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdCheck(cmd.String("config"))
		},
	}
}

// newLogger 按级别构建 slog 日志器。
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// slogAdapter 将 *slog.Logger 适配为 xcrontab.Logger。
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(ctx context.Context, msg string, args ...any) {
	a.l.DebugContext(ctx, msg, args...)
}

func (a slogAdapter) Info(ctx context.Context, msg string, args ...any) {
	a.l.InfoContext(ctx, msg, args...)
}

func (a slogAdapter) Warn(ctx context.Context, msg string, args ...any) {
	a.l.WarnContext(ctx, msg, args...)
}

func (a slogAdapter) Error(ctx context.Context, msg string, args ...any) {
	a.l.ErrorContext(ctx, msg, args...)
}

// cmdRun 启动任务运行器并阻塞到收到终止信号。
func cmdRun(ctx context.Context, path string, seconds bool, logger *slog.Logger) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if seconds {
		cfg.Seconds = true
	}

	ct, cleanup, err := buildCrontab(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, jc := range cfg.Jobs {
		if _, err := ct.Add(jc.Spec, commandJob(jc, logger), xcrontab.WithName(jc.Name)); err != nil {
			return fmt.Errorf("register job %q: %w", jc.Name, err)
		}
		logger.Info("job registered", "job", jc.Name, "spec", jc.Spec, "command", jc.Command)
	}

	ct.Start()
	logger.Info("taskrun started", "jobs", len(cfg.Jobs), "config", path)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("shutting down")
	<-ct.Stop().Done()

	printStats(ct.Stats())
	return nil
}

// cmdCheck 校验配置并打印摘要。
func cmdCheck(path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	// 试注册全部任务以验证 cron 表达式，不启动触发引擎。
	ct, cleanup, err := buildCrontab(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer cleanup()

	for _, jc := range cfg.Jobs {
		if _, err := ct.Add(jc.Spec, xcrontab.JobFunc(func(context.Context) error { return nil })); err != nil {
			return fmt.Errorf("job %q: %w", jc.Name, err)
		}
		fmt.Printf("ok: %-20s %-16s %s\n", jc.Name, jc.Spec, jc.Command)
	}
	fmt.Printf("config valid: %d job(s)\n", len(cfg.Jobs))
	return nil
}

// buildCrontab 按配置构建 crontab 实例。
// 返回的 cleanup 负责关闭 crontab 以及按需自建的调度器。
func buildCrontab(cfg *Config, logger *slog.Logger) (xcrontab.Crontab, func(), error) {
	opts := []xcrontab.Option{
		xcrontab.WithLogger(slogAdapter{l: logger}),
	}
	if cfg.Seconds {
		opts = append(opts, xcrontab.WithSeconds())
	}
	if loc := cfg.location; loc != nil {
		opts = append(opts, xcrontab.WithLocation(loc))
	}

	var sched xsched.Scheduler
	if cfg.PoolSize > 0 {
		s, err := xsched.New(xsched.WithPoolSize(cfg.PoolSize), xsched.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("build scheduler: %w", err)
		}
		sched = s
		opts = append(opts, xcrontab.WithScheduler(sched))
	}

	ct, err := xcrontab.New(opts...)
	if err != nil {
		if sched != nil {
			_ = sched.Close()
		}
		return nil, nil, fmt.Errorf("build crontab: %w", err)
	}

	cleanup := func() {
		_ = ct.Close()
		if sched != nil {
			_ = sched.Close()
		}
	}
	return ct, cleanup, nil
}

// commandJob 将配置的外部命令包装为周期任务。
func commandJob(jc JobConfig, logger *slog.Logger) xcrontab.Job {
	return xcrontab.JobFunc(func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, jc.Command, jc.Args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("run %q: %w (output: %s)", jc.Command, err, out)
		}
		logger.DebugContext(ctx, "command finished", "job", jc.Name, "output", string(out))
		return nil
	})
}

// printStats 以 JSON 形式输出本次运行的执行统计。
func printStats(stats *xcrontab.Stats) {
	data, err := json.MarshalIndent(stats.Snapshot(), "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(data))
}
