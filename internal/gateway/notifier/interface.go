package notifier

// TextNotifier 是最小的文本推送接口，调用方不依赖具体实现。
type TextNotifier interface {
	SendText(text string) error
}

// PhotoNotifier 由支持图片的渠道额外实现，调用方按需断言。
type PhotoNotifier interface {
	SendPhoto(caption string, png []byte) error
}

// Nop 在未配置推送渠道时使用。
type Nop struct{}

func (Nop) SendText(string) error { return nil }
