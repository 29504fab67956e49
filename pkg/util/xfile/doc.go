// Package xfile 提供 sink 落盘前的路径校验与目录准备工具。
//
// 日志文件路径来自可热更新的配置，不能假设其格式可信：
// [SanitizePath] 做格式净化（空字节、相对穿越、目录路径），
// [EnsureDir] 负责在打开文件前创建父目录。
//
// 路径穿越检测按独立路径段精确匹配，".." 开头的合法文件名
// （如 "..config"、"app..2024.log"）不会被误判。
//
// 预定义错误变量支持 [errors.Is] 判断。
package xfile
