package xnode

import "errors"

// 配置加载与监听相关错误。
var (
	// ErrEmptyPath 配置文件路径为空。
	ErrEmptyPath = errors.New("xnode: empty config path")

	// ErrUnsupportedFormat 不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xnode: unsupported config format")

	// ErrLoadFailed 配置加载失败。
	ErrLoadFailed = errors.New("xnode: failed to load config")

	// ErrParseFailed 配置解析失败。
	ErrParseFailed = errors.New("xnode: failed to parse config")

	// ErrUnmarshalFailed 配置反序列化失败。
	ErrUnmarshalFailed = errors.New("xnode: failed to unmarshal config")

	// ErrNotWatchable 配置树不支持变更订阅（非文件来源）。
	ErrNotWatchable = errors.New("xnode: config is not backed by a file")
)
