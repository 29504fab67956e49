// Package xfilesink 提供按条目数轮转、带保留清理的文本文件 sink。
//
// 类型名 "TextFile"（注册键 xfilesink.TextFileConfig），身份键为目标
// 路径。文件以单调递增的轮转序号命名（app.00000001.log ...），当前
// 文件写满 MaxEntriesPerFile 条后先滚动再写入，两个文件的条目绝不
// 交错。
//
// # 心跳与清理
//
// OnTick 驱动两个独立的递减计数器：归零冲刷（flush + fsync）、归零
// 执行保留清理。清理遵循 [RetentionBudget]：从最旧开始删除超龄文件，
// 直到总量降到预算内；年龄不足 MinAgeToKeep 的文件与当前打开的文件
// 永不删除（安全优先于空间回收）。
//
// 本包的所有方法都假定由 pipeline 的串行 worker 调用，不自带锁。
package xfilesink
