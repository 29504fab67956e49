package xpipe

import "errors"

// 生命周期与过滤相关错误。
var (
	// ErrFilterParse 全局过滤表达式无法解析。
	ErrFilterParse = errors.New("xpipe: invalid global filter expression")

	// ErrAlreadyInitialized 控制器重复初始化。
	ErrAlreadyInitialized = errors.New("xpipe: controller already initialized")

	// ErrDisposed 控制器或 pipeline 已销毁。
	ErrDisposed = errors.New("xpipe: disposed")

	// ErrNoOperationalSink 首次应用后没有任何 sink 成功激活。
	ErrNoOperationalSink = errors.New("xpipe: no sink became operational")

	// ErrNilTarget 控制器缺少 pipeline target。
	ErrNilTarget = errors.New("xpipe: target cannot be nil")
)
