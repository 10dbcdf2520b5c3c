// Package xconf 加载 YAML/JSON 配置，基于 koanf 实现。
//
// xconf 只负责加载、反序列化和重载，不做字段校验与环境变量覆盖；
// 这些由调用方在 Unmarshal 之后按需完成。
//
// # 支持的格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # 并发安全
//
// Reload 通过互斥锁串行化，解析成功后以 atomic.Pointer 原子替换 koanf 实例；
// 解析失败时保留旧配置。Unmarshal 与 Client 无锁读取当前实例。
//
// # 默认值
//
// Decode 先拷贝调用方给出的默认值，再用配置覆盖，文件中缺失的键保留默认值：
//
//	profile, err := xconf.Decode(cfg, "run", Profile{Workers: 4})
package xconf
