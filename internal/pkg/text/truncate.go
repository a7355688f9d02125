// Package text 提供消息文本的小工具。
package text

// Truncate 把文本裁剪到 max 字节以内并追加省略号，按符文边界
// 回退，避免把多字节字符切成半个（Telegram 会拒绝无效 UTF-8）。
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
