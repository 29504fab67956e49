// Package xsizesink 提供按文件大小轮转的文本文件 sink。
//
// 类型名 "SizeFile"（注册键 xsizesink.SizeFileConfig），身份键为目标
// 路径。底层使用 lumberjack v2：按大小自动轮转、备份数量/天数管理、
// 可选 gzip 压缩。与 xfilesink 的按条目数轮转互补，适合不关心条目
// 边界、只约束磁盘占用的场景。
package xsizesink
