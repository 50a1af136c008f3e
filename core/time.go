package core

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as HH:MM:SS. Sub-second precision is
// truncated and hours are unbounded (a 30h recording prints 30:00:00).
func FormatTime(sec float64) string {
	sec = math.Max(sec, 0)
	total := int(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
