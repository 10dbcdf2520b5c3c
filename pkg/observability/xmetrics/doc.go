// Package xmetrics 为 worker 生命周期提供最小化的观测接口（metrics + tracing）。
//
// 业务代码只依赖 [Observer]/[Span]/[Attr]；默认实现 [NewOTelObserver]
// 基于 OpenTelemetry。未配置时使用 [NoopObserver]，不产生任何开销。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver(xmetrics.WithMeterProvider(mp))
//	_, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xstop",
//		Operation: "worker",
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标命名
//
//   - xstop.operation.total：操作次数（Counter）
//   - xstop.operation.duration：操作耗时，单位秒（Histogram）
//
// 统一属性：component / operation / status。
package xmetrics
