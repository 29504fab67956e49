// Package xnode 提供层级配置节点（ConfigNode）。
//
// Node 是一棵不可变视图的键值树：
//   - GetChild/Children 按声明顺序枚举子节点
//   - GetValue 读取字符串叶子值
//   - Subscribe 订阅配置变更（单次触发，触发后必须重新订阅）
//
// # 声明顺序
//
// koanf 以 map 存储配置，天然丢失键的声明顺序。xnode 在加载时对原始
// 字节做一次顺序扫描（YAML 走 yaml.Node，JSON 走 token 流），为每个
// 路径建立有序键索引，Children 据此返回声明顺序。
//
// # 变更信号
//
// Subscribe 返回的订阅恰好投递一次：文件变更（fsnotify + 防抖）后
// 重载配置树、调用回调，随后订阅自动失效。持续监听需要在回调内
// 重新订阅。投递与重新订阅之间存在可能漏掉一次变更的窗口，见
// [Subscription] 的说明。
package xnode
