// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 基于 log/slog 的日志构建器，支持级别、格式与文件轮转
//   - xmetrics: worker 生命周期的指标与追踪接口，默认实现基于 OpenTelemetry
//
// 设计原则：
//   - 业务包只依赖 *slog.Logger 与 xmetrics.Observer，通过选项注入
//   - 未注入时退化为 slog.Default() 与 NoopObserver
package observability
