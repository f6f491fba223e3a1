// taskrun 是基于 xcrontab 的周期任务运行器。
//
// 从 YAML 配置加载任务定义，按 cron 表达式周期性执行外部命令。
//
// 用法:
//
//	taskrun [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config     配置文件路径 (默认: taskrun.yaml)
//	-l, --log-level  日志级别 (debug/info/warn/error, 默认: info)
//
// 命令:
//
//	run            加载配置并启动任务运行器（阻塞，Ctrl-C 退出）
//	check          校验配置文件并打印任务摘要
//	help           显示帮助信息
//
// 退出码:
//
//	0: 命令执行成功
//	1: 运行时错误（配置加载失败、任务注册失败等）
//	2: 参数错误（未知命令、无效 flag 等）
//
// 示例:
//
//	taskrun run                           # 使用默认配置启动
//	taskrun -c /etc/taskrun.yaml run      # 指定配置文件
//	taskrun -c jobs.yaml check            # 只校验配置
//	taskrun -l debug run                  # 调试日志
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Run(ctx, os.Args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}

	return 0
}
