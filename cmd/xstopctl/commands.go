package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xstop/pkg/lifecycle/xrun"
	"github.com/omeyang/xstop/pkg/lifecycle/xstop"
	"github.com/omeyang/xstop/pkg/observability/xlog"
	"github.com/omeyang/xstop/pkg/observability/xmetrics"
)

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createRunCommand(),
		createVersionCommand(),
	}
}

// createRunCommand 创建 run 子命令。
func createRunCommand() *cli.Command {
	d := defaultProfile()
	return &cli.Command{
		Name:         "run",
		Aliases:      []string{"r"},
		Usage:        "启动一组 worker，收到信号或到达期限时请求停止",
		OnUsageError: wrapUsageError,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "worker 数量", Value: d.Workers},
			&cli.IntFlag{Name: "iterations", Aliases: []string{"n"}, Usage: "每个 worker 的迭代上限，0 表示直到停止"},
			&cli.DurationFlag{Name: "tick", Usage: "每次迭代的间隔", Value: d.Tick},
			&cli.DurationFlag{Name: "stop-after", Usage: "运行期限，到达后请求停止"},
			&cli.IntFlag{Name: "panic-index", Usage: "让指定位置的 worker panic", Value: d.PanicIndex},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML/JSON 配置文件"},
			&cli.BoolFlag{Name: "metrics", Usage: "结束时输出指标汇总"},
			&cli.StringFlag{Name: "log-level", Usage: "日志级别 debug/info/warn/error", Value: d.Log.Level},
			&cli.StringFlag{Name: "log-format", Usage: "日志格式 text/json", Value: d.Log.Format},
			&cli.StringFlag{Name: "log-file", Usage: "日志文件（按大小轮转）"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProfile(cmd)
			if err != nil {
				return err
			}
			return cmdRun(ctx, p, cmd.Root().Writer, cmd.Root().ErrWriter)
		},
	}
}

// createVersionCommand 创建 version 子命令。
func createVersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "显示版本信息",
		Action: func(_ context.Context, cmd *cli.Command) error {
			fmt.Fprintf(cmd.Root().Writer, "xstopctl %s\n", versionString())
			return nil
		},
	}
}

// cmdRun 按 p 启动 worker 组并输出每个位置的结果。
//
// 设计决策: 因信号或期限停止属于预期结束，退出码为 0；
// 只有 worker 异常终止才返回退出码 1，便于脚本区分。
func cmdRun(ctx context.Context, p profile, stdout, stderr io.Writer) error {
	logger, _, closeLog, err := xlog.New().
		SetOutput(stderr).
		SetLevelString(p.Log.Level).
		SetFormat(p.Log.Format).
		SetRotation(p.Log.File).
		With(slog.String("app", "xstopctl")).
		Build()
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	defer func() { _ = closeLog() }()

	var observer xmetrics.Observer = xmetrics.NoopObserver{}
	var summary *metricSummary
	if p.Metrics {
		summary, err = newMetricSummary()
		if err != nil {
			return err
		}
		defer summary.shutdown(context.WithoutCancel(ctx))
		observer = summary.observer
	}

	fns := make([]func(*xstop.Flag) int, p.Workers)
	for i := range fns {
		fns[i] = counter(i, p)
	}

	logger.Info("starting workers",
		slog.Int("workers", p.Workers),
		slog.Int("iterations", p.Iterations),
		slog.Duration("stop_after", p.StopAfter),
	)
	start := time.Now()
	values, runErr := xrun.Run(ctx, fns,
		xrun.WithName("xstopctl"),
		xrun.WithLogger(logger),
		xrun.WithStopAfter(p.StopAfter),
		xrun.WithGroupOptions(xstop.WithObserver(observer)),
	)
	elapsed := time.Since(start)

	var joinErr *xstop.JoinError
	_ = errors.As(runErr, &joinErr)
	writeReport(stdout, values, joinErr, stopReason(runErr), elapsed)

	if summary != nil {
		if err := summary.write(ctx, stdout); err != nil {
			logger.Warn("collect metrics failed", slog.Any("error", err))
		}
	}
	if joinErr != nil {
		return &exitError{code: 1}
	}
	return nil
}

// counter 返回位置 index 的计数 worker：每次迭代前检查停止标志，
// 达到迭代上限或收到停止请求后返回已完成的次数。
func counter(index int, p profile) func(*xstop.Flag) int {
	return func(f *xstop.Flag) int {
		n := 0
		for f.Running() {
			if p.Iterations > 0 && n >= p.Iterations {
				break
			}
			if index == p.PanicIndex {
				panic(fmt.Sprintf("worker %d: injected failure after %d iterations", index, n))
			}
			n++
			if p.Tick > 0 {
				timer := time.NewTimer(p.Tick)
				select {
				case <-f.Done():
				case <-timer.C:
				}
				timer.Stop()
			}
		}
		return n
	}
}

func stopReason(err error) string {
	switch {
	case errors.Is(err, xrun.ErrSignal):
		var sigErr *xrun.SignalError
		if errors.As(err, &sigErr) {
			return "signal " + sigErr.Signal.String()
		}
		return "signal"
	case errors.Is(err, xrun.ErrStopTimeout), errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	default:
		return "completed"
	}
}

func writeReport(w io.Writer, values []int, joinErr *xstop.JoinError, reason string, elapsed time.Duration) {
	total := 0
	for i, v := range values {
		if joinErr != nil && i < len(joinErr.Errs) && joinErr.Errs[i] != nil {
			fmt.Fprintf(w, "worker[%d]: failed: %v\n", i, joinErr.Errs[i])
			continue
		}
		total += v
		fmt.Fprintf(w, "worker[%d]: %d iterations\n", i, v)
	}
	failed := 0
	if joinErr != nil {
		failed = len(joinErr.Failed())
	}
	fmt.Fprintf(w, "stop: %s, workers: %d, failed: %d, iterations: %d, elapsed: %s\n",
		reason, len(values), failed, total, elapsed.Round(time.Millisecond))
}
