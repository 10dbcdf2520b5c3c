package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xstop/pkg/config/xconf"
	"github.com/omeyang/xstop/pkg/observability/xlog"
)

// profile 一次运行的参数，可来自配置文件，命令行参数覆盖。
type profile struct {
	Workers    int           `koanf:"workers"`
	Iterations int           `koanf:"iterations"`
	Tick       time.Duration `koanf:"tick"`
	StopAfter  time.Duration `koanf:"stop_after"`
	PanicIndex int           `koanf:"panic_index"`
	Metrics    bool          `koanf:"metrics"`
	Log        logProfile    `koanf:"log"`
}

type logProfile struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

const maxWorkers = 4096

func defaultProfile() profile {
	return profile{
		Workers:    4,
		Tick:       10 * time.Millisecond,
		PanicIndex: -1,
		Log:        logProfile{Level: "info", Format: "text"},
	}
}

// loadProfile 依次叠加默认值、配置文件与显式设置的命令行参数。
func loadProfile(cmd *cli.Command) (profile, error) {
	p := defaultProfile()
	if path := cmd.String("config"); path != "" {
		cfg, err := xconf.New(path)
		if err != nil {
			return p, err
		}
		if p, err = xconf.Decode(cfg, "", p); err != nil {
			return p, err
		}
	}

	if cmd.IsSet("workers") {
		p.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("iterations") {
		p.Iterations = cmd.Int("iterations")
	}
	if cmd.IsSet("tick") {
		p.Tick = cmd.Duration("tick")
	}
	if cmd.IsSet("stop-after") {
		p.StopAfter = cmd.Duration("stop-after")
	}
	if cmd.IsSet("panic-index") {
		p.PanicIndex = cmd.Int("panic-index")
	}
	if cmd.IsSet("metrics") {
		p.Metrics = cmd.Bool("metrics")
	}
	if cmd.IsSet("log-level") {
		p.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		p.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-file") {
		p.Log.File = cmd.String("log-file")
	}
	return p, p.validate()
}

func (p profile) validate() error {
	switch {
	case p.Workers < 0 || p.Workers > maxWorkers:
		return usagef("workers 必须在 [0, %d] 范围内: %d", maxWorkers, p.Workers)
	case p.Iterations < 0:
		return usagef("iterations 不能为负数: %d", p.Iterations)
	case p.Tick < 0:
		return usagef("tick 不能为负数: %s", p.Tick)
	case p.StopAfter < 0:
		return usagef("stop-after 不能为负数: %s", p.StopAfter)
	case p.PanicIndex != -1 && (p.PanicIndex < 0 || p.PanicIndex >= p.Workers):
		return usagef("panic-index 超出范围 [-1, %d): %d", p.Workers, p.PanicIndex)
	}
	if _, err := xlog.ParseLevel(p.Log.Level); err != nil {
		return usagef("%v", err)
	}
	switch p.Log.Format {
	case "text", "json", "":
	default:
		return usagef("未知日志格式: %q", p.Log.Format)
	}
	return nil
}
