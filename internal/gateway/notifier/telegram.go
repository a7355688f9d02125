package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"cryptozz/internal/config"
	"cryptozz/internal/pkg/text"
)

// Telegram 消息体上限为 4096 字符，留出余量给裁剪省略号。
const maxMessageLen = 4000

// Telegram 把信号与回测摘要推送到指定群/频道。
// 解析模式固定为 HTML，与叙述层的 telegram 编码一致。
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

func NewTelegram(cfg config.TelegramConfig) *Telegram {
	return &Telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		apiBase:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// SendText 发送 HTML 文本，最多重试 3 次。
func (t *Telegram) SendText(body string) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram 配置不完整")
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload, _ := json.Marshal(map[string]any{
		"chat_id":    t.chatID,
		"text":       text.Truncate(body, maxMessageLen),
		"parse_mode": "HTML",
	})

	var lastErr error
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}

// SendPhoto 走 sendPhoto 上传 PNG（multipart），caption 同为 HTML。
func (t *Telegram) SendPhoto(caption string, png []byte) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram 配置不完整")
	}
	if len(png) == 0 {
		return fmt.Errorf("photo kosong")
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendPhoto", t.apiBase, t.botToken)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("chat_id", t.chatID)
	_ = mw.WriteField("caption", text.Truncate(caption, 1024))
	_ = mw.WriteField("parse_mode", "HTML")
	part, err := mw.CreateFormFile("photo", "chart.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(png); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body.Bytes()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return nil
}
