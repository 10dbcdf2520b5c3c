// xstopctl 演示并压测协作式停止：启动一组计数 worker，在信号、
// 期限或迭代上限到达时请求停止，并按 spawn 顺序输出每个位置的结果。
//
// 用法:
//
//	xstopctl [全局选项] <命令> [命令参数]
//
// 命令:
//
//	run        启动一组 worker 并等待其结束
//	version    显示版本信息
//	help       显示帮助信息
//
// run 命令参数:
//
//	-w, --workers      worker 数量 (默认: 4)
//	-n, --iterations   每个 worker 的迭代上限，0 表示直到停止 (默认: 0)
//	    --tick         每次迭代的间隔 (默认: 10ms)
//	    --stop-after   运行期限，到达后请求停止 (默认: 不限)
//	    --panic-index  让指定位置的 worker panic，用于演示失败报告 (默认: -1)
//	-c, --config       YAML/JSON 配置文件，命令行参数优先
//	    --metrics      结束时输出 OpenTelemetry 指标汇总
//	    --log-level    日志级别 debug/info/warn/error (默认: info)
//	    --log-format   日志格式 text/json (默认: text)
//	    --log-file     日志文件（按大小轮转），为空输出到 stderr
//
// 退出码:
//
//	0: 所有 worker 正常结束（包括因信号或期限停止）
//	1: 至少一个 worker 异常终止，或运行失败
//	2: 参数错误
//
// 示例:
//
//	xstopctl run -w 8 --stop-after 5s
//	xstopctl run -w 3 -n 1000 --tick 0s --metrics
//	xstopctl run --panic-index 1 --stop-after 1s
//	xstopctl run -c profile.yaml --log-format json
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
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
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:           "xstopctl",
		Usage:          "协作式停止 worker 组的演示与压测工具",
		Version:        versionString(),
		Writer:         stdout,
		ErrWriter:      stderr,
		Commands:       createCommands(),
		DefaultCommand: "help",
		OnUsageError:   wrapUsageError,
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射，确保与文档退出码契约一致。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)

	if err := app.Run(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			fmt.Fprintf(stderr, "参数错误: %v\n", err)
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

// exitError 表示命令已完成输出，只需设置非零退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 表示参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// wrapUsageError 将 flag 解析错误统一为 usageError。
func wrapUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{msg: err.Error()}
}

// isCLIUsageError 识别未经 OnUsageError 的框架参数错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"flag provided but not defined",
		"invalid value",
		"No help topic for",
		"Required flag",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
