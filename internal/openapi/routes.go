package openapi

// Routes 是对外公开端点的静态路由表。profile 名对应
// /api/gpt-schemas/:profile/openapi.json 的路径段。
func Routes() []Operation {
	symbolParam := Parameter{Name: "symbol", Type: "string", Required: true, Description: "pasangan perdagangan, contoh BTC-USDT"}
	timeframeParam := Parameter{Name: "timeframe", Type: "string", Description: "1m/5m/15m/30m/1h/4h/1d, default 1h"}

	return []Operation{
		{
			Method: "GET", Path: "/api/gpts/sinyal/tajam",
			OperationID: "getSharpSignal",
			Summary:     "Ambil sinyal trading SMC lengkap untuk satu simbol",
			Tag:         "signals",
			Profiles:    []string{"signals", "full"},
			Query: []Parameter{symbolParam, timeframeParam,
				{Name: "format", Type: "string", Description: "json atau narrative"},
				{Name: "verbosity", Type: "string", Description: "brief, detail, atau full"},
			},
		},
		{
			Method: "POST", Path: "/api/gpts/sinyal/tajam",
			OperationID: "postSharpSignal",
			Summary:     "Versi POST dari endpoint sinyal tajam",
			Tag:         "signals",
			Profiles:    []string{"signals", "full"},
			HasBody:     true,
		},
		{
			Method: "GET", Path: "/api/gpts/status",
			OperationID: "getStatus",
			Summary:     "Snapshot kesehatan komponen",
			Tag:         "signals",
			Profiles:    []string{"signals", "full"},
		},
		{
			Method: "GET", Path: "/api/smc/zones",
			OperationID: "getSMCZones",
			Summary:     "Order block dan FVG aktif dari memori struktur",
			Tag:         "smc",
			Profiles:    []string{"smc", "full"},
			Query:       []Parameter{symbolParam, timeframeParam},
		},
		{
			Method: "GET", Path: "/api/smc/context",
			OperationID: "getSMCContext",
			Summary:     "Konteks struktur pasar terakhir (BOS/CHoCH)",
			Tag:         "smc",
			Profiles:    []string{"smc", "full"},
			Query:       []Parameter{symbolParam, timeframeParam},
		},
		{
			Method: "GET", Path: "/api/smc/summary",
			OperationID: "getSMCSummary",
			Summary:     "Ringkasan memori struktur lintas simbol",
			Tag:         "smc",
			Profiles:    []string{"smc", "full"},
		},
		{
			Method: "GET", Path: "/api/smc/history",
			OperationID: "getSMCHistory",
			Summary:     "Riwayat update struktur beberapa jam terakhir",
			Tag:         "smc",
			Profiles:    []string{"smc", "full"},
			Query: []Parameter{
				{Name: "symbol", Type: "string", Description: "filter simbol, opsional"},
				timeframeParam,
				{Name: "hours", Type: "number", Description: "jangkauan riwayat, default 24"},
			},
		},
		{
			Method: "POST", Path: "/api/smc/patterns/recognize",
			OperationID: "recognizePatterns",
			Summary:     "Deteksi pola Wyckoff (spring, upthrust, akumulasi, distribusi)",
			Tag:         "smc",
			Profiles:    []string{"smc", "full"},
			HasBody:     true,
		},
		{
			Method: "GET", Path: "/api/backtest",
			OperationID: "getBacktest",
			Summary:     "Jalankan backtest strategi sederhana",
			Tag:         "backtest",
			Profiles:    []string{"backtest", "full"},
			Query: []Parameter{symbolParam, timeframeParam,
				{Name: "strategy", Type: "string", Description: "rsi_macd, sma_cross, bollinger_breakout, ml_ensemble"},
				{Name: "limit", Type: "number", Description: "jumlah candle, default 500"},
			},
		},
		{
			Method: "POST", Path: "/api/backtest",
			OperationID: "postBacktest",
			Summary:     "Versi POST dari endpoint backtest",
			Tag:         "backtest",
			Profiles:    []string{"backtest", "full"},
			HasBody:     true,
		},
		{
			Method: "POST", Path: "/api/backtest/quick",
			OperationID: "quickBacktest",
			Summary:     "Backtest cepat dengan parameter default",
			Tag:         "backtest",
			Profiles:    []string{"backtest", "full"},
			HasBody:     true,
		},
		{
			Method: "GET", Path: "/api/signals/history",
			OperationID: "getSignalHistory",
			Summary:     "Riwayat sinyal yang pernah dihasilkan",
			Tag:         "signals",
			Profiles:    []string{"signals", "full"},
			Query: []Parameter{
				{Name: "symbol", Type: "string", Description: "filter simbol, opsional"},
				{Name: "limit", Type: "number", Description: "maksimal baris, default 50"},
			},
		},
		{
			Method: "GET", Path: "/health",
			OperationID: "getHealth",
			Summary:     "Liveness probe",
			Tag:         "ops",
			Profiles:    []string{"full"},
		},
	}
}
