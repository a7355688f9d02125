package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseIntervalDuration 把 "15m" / "1h" / "4h" / "1d" / "1w" 这类
// K 线周期转成 time.Duration。大小写不敏感。
func ParseIntervalDuration(interval string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(interval))
	if len(trimmed) < 2 {
		return 0, fmt.Errorf("interval %q tidak valid", interval)
	}
	unit := trimmed[len(trimmed)-1]
	value, err := strconv.Atoi(trimmed[:len(trimmed)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("interval %q tidak valid", interval)
	}
	base := time.Duration(value)
	switch unit {
	case 'm':
		return base * time.Minute, nil
	case 'h':
		return base * time.Hour, nil
	case 'd':
		return base * 24 * time.Hour, nil
	case 'w':
		return base * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("satuan interval %q tidak dikenal", interval)
	}
}
