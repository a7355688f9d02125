package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.SMC.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (s *ServerConfig) validate() error {
	for _, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("server.api_keys contains an empty key")
		}
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if !strings.HasPrefix(m.OKXBaseURL, "http") {
		return fmt.Errorf("market.okx_base_url must be an http(s) URL")
	}
	if m.TimeoutSeconds <= 0 {
		return fmt.Errorf("market.timeout_seconds must be > 0")
	}
	return nil
}

func (s *SMCConfig) validate() error {
	biasSum := s.Bias.CHoCH + s.Bias.BOS + s.Bias.Trend
	if biasSum < 0.99 || biasSum > 1.01 {
		return fmt.Errorf("smc.bias weights must sum to 1.0 (got %.3f)", biasSum)
	}
	execSum := s.Execution.CHoCH + s.Execution.FVG + s.Execution.VolumeDelta +
		s.Execution.RSI + s.Execution.OrderFlow
	if execSum < 0.99 || execSum > 1.01 {
		return fmt.Errorf("smc.execution weights must sum to 1.0 (got %.3f)", execSum)
	}
	if s.Execution.PendThreshold >= s.Execution.ValidThreshold {
		return fmt.Errorf("smc.execution.pending_threshold must be below valid_threshold")
	}
	if s.Plan.MaxSizePct <= 0 || s.Plan.MaxSizePct > 100 {
		return fmt.Errorf("smc.plan.max_size_pct must be in (0, 100]")
	}
	for i, m := range s.Plan.RiskMultiples {
		if m <= 0 {
			return fmt.Errorf("smc.plan.risk_multiples[%d] must be > 0", i)
		}
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	t := n.Telegram
	if t.Enabled && (strings.TrimSpace(t.BotToken) == "" || strings.TrimSpace(t.ChatID) == "") {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
