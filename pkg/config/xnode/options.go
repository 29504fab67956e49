package xnode

import "time"

// Options 定义配置树加载选项。
type Options struct {
	// Delim 配置键的分隔符，默认为 "."。
	Delim string

	// Tag 结构体标签名，用于 Unmarshal，默认为 "koanf"。
	Tag string

	// Debounce 变更订阅的防抖时间，默认 100ms。
	// 编辑器保存往往触发多个文件系统事件，防抖归并为一次投递。
	Debounce time.Duration
}

// Option 配置选项函数。
type Option func(*Options)

// defaultOptions 返回默认选项。
func defaultOptions() *Options {
	return &Options{
		Delim:    ".",
		Tag:      "koanf",
		Debounce: 100 * time.Millisecond,
	}
}

// WithDelim 设置配置键分隔符。
func WithDelim(delim string) Option {
	return func(o *Options) {
		o.Delim = delim
	}
}

// WithTag 设置 Unmarshal 使用的结构体标签名。
func WithTag(tag string) Option {
	return func(o *Options) {
		o.Tag = tag
	}
}

// WithDebounce 设置变更订阅的防抖时间。
func WithDebounce(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Debounce = d
		}
	}
}
