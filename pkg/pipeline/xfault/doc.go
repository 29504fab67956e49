// Package xfault 提供进程级故障钩子。
//
// 两个独立的注册点：未处理故障（panic 类）与未被观察的异步故障
// （被放弃的 goroutine 返回的错误）。钩子只有 Add/Remove 语义，
// 负载只是一个错误值加来源描述。
//
// [Hub.Recover] 与 [Hub.Go] 是喂入故障的辅助入口：业务代码在
// goroutine 顶部 defer Recover，或用 Go 启动无人等待结果的任务。
package xfault
