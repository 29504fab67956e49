// Package xsink 定义日志输出端（sink）的核心契约与配置解析。
//
// 三个层次：
//   - 契约：[Sink]、[Config]、[Entry]、[Collector]
//   - 注册表：[Registry] 把配置中的类型名解析为具体的配置工厂，
//     支持限定名弱化与 Config 后缀约定等解析启发式
//   - 解析器：[Resolver.ResolveAll] 把 Sinks 配置子树解析为有序的
//     配置集合，单个条目失败只上报不中断
//
// sink 实现包（如 xfilesink、xsizesink）在 init 中向默认注册表
// 自注册，导入即可用。
package xsink
