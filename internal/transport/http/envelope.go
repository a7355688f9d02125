package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
)

// fail 输出统一错误包裹。code 是给 GPT 调用方分支用的短字符串。
func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}

// ok 输出统一成功包裹。
func ok(c *gin.Context, data any) {
	c.JSON(200, gin.H{"status": "success", "data": data})
}

// demoZones 是结构内存为空时的兜底负载。GPT Actions 对空响应的
// 容错很差，宁可给一份标注 demo 的示例数据。
func demoZones(symbol, timeframe string) gin.H {
	return gin.H{
		"symbol":    symbol,
		"timeframe": timeframe,
		"demo_data": true,
		"note":      "belum ada data struktur untuk simbol ini, contoh format di bawah",
		"bullish_order_blocks": []gin.H{
			{"high": 0, "low": 0, "strength": 0.5, "mitigated": "fresh"},
		},
		"bearish_order_blocks": []gin.H{},
		"fair_value_gaps":      []gin.H{},
		"generated_at":         time.Now().UTC(),
	}
}

func demoContext(symbol, timeframe string) gin.H {
	return gin.H{
		"symbol":    symbol,
		"timeframe": timeframe,
		"demo_data": true,
		"note":      "belum ada konteks struktur, jalankan analisis dulu lewat /api/gpts/sinyal/tajam",
		"last_bos":  nil,
		"last_choch": gin.H{
			"direction": "bullish", "level": 0, "confidence": 0.5,
		},
		"generated_at": time.Now().UTC(),
	}
}
