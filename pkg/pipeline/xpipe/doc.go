// Package xpipe 提供日志输出级的调度与热重配置。
//
// 两个角色：
//
//   - [Pipeline]：活动 sink 集的调度器（Pipeline Target）。事件投递、
//     周期心跳与配置应用全部汇入单一串行 worker，任意 sink 在任意
//     时刻至多有一个方法在执行，轮转文件因此无需文件级锁。
//   - [Controller]：重配置控制器。持有配置节的单次触发变更订阅，
//     区分首次应用（阻塞到 sink 集就绪）与热更新（fire-and-forget），
//     每次触发后重新武装订阅；同时维护全局过滤阈值（带变更 diff）
//     与进程级故障捕获开关（幂等切换）。
//
// 错误策略：热重配置过程中的解析、绑定与应用失败一律吸收并上报到
// [xsink.Collector]，绝不向触发方抛出；只有首次应用允许返回致命
// 错误（此时没有任何可回退的 sink）。
package xpipe
