package models

import (
	"strings"
	"time"
)

func joinKey(parts ...string) string {
	return strings.Join(parts, "|")
}

func timeKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
