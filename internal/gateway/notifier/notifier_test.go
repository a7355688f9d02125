package notifier

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptozz/internal/config"
)

func TestTelegramRejectsIncompleteConfig(t *testing.T) {
	tg := NewTelegram(config.TelegramConfig{})
	assert.Error(t, tg.SendText("hi"))
}

func TestStructuredMessageRendersHTML(t *testing.T) {
	msg := StructuredMessage{
		Icon:  "📊",
		Title: "Backtest BTC-USDT",
		Sections: []MessageSection{
			{Title: "Hasil", Lines: []string{"winrate 62%", "", "profit factor 1.8"}},
		},
		Footer:    "strategi: rsi_macd",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	out := msg.RenderHTML()
	assert.True(t, strings.HasPrefix(out, "<b>"))
	assert.Contains(t, out, "<pre>")
	assert.Contains(t, out, "- winrate 62%")
	assert.Contains(t, out, "2025-06-01 12:00:00 UTC")
	assert.NotContains(t, out, "\n- \n")
}

func TestStructuredMessageEscapesHTML(t *testing.T) {
	msg := StructuredMessage{Title: "a<b>", Sections: []MessageSection{{Lines: []string{"x < y"}}}}
	out := msg.RenderHTML()
	assert.Contains(t, out, "a&lt;b&gt;")
	assert.Contains(t, out, "x &lt; y")
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, Nop{}.SendText("ignored"))
}

func TestTelegramSendPhotoMultipart(t *testing.T) {
	var gotPath string
	var gotCaption string
	var gotPhoto []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotCaption = r.FormValue("caption")
		file, _, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		gotPhoto, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram(config.TelegramConfig{BotToken: "tok", ChatID: "42"})
	tg.apiBase = srv.URL

	require.NoError(t, tg.SendPhoto("<b>grafik</b>", []byte{0x89, 'P', 'N', 'G'}))
	assert.Equal(t, "/bottok/sendPhoto", gotPath)
	assert.Equal(t, "<b>grafik</b>", gotCaption)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, gotPhoto)
}

func TestTelegramSendPhotoGuards(t *testing.T) {
	tg := NewTelegram(config.TelegramConfig{})
	assert.Error(t, tg.SendPhoto("x", []byte{1}))

	tg = NewTelegram(config.TelegramConfig{BotToken: "tok", ChatID: "42"})
	assert.Error(t, tg.SendPhoto("x", nil))
}
