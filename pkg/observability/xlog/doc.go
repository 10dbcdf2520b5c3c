// Package xlog 构建基于 log/slog 的日志记录器。
//
// 业务包（xstop、xrun 等）只依赖 *slog.Logger，通过 WithLogger 注入；
// xlog 负责在进程入口按配置组装它：
//
//	logger, level, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/app.log", xlog.WithMaxSize(100)).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//	level.Set(slog.LevelWarn) // 运行时调整级别
//
// 设计决策: 配置错误在 Build 时统一返回，链式调用中途不返回错误，
// 便于从配置文件一次性组装。
package xlog
