// Package humanfmt formats byte counts, row counts and durations for CLI
// output and pretty-mode logs.
package humanfmt

import (
	"fmt"
	"strconv"
	"time"
)

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
	tib = 1024 * gib
)

// Bytes formats a byte count using IEC binary units, e.g. "1.23 GiB".
func Bytes(b int64) string {
	switch {
	case b < 0:
		return fmt.Sprintf("%d B", b)
	case b >= tib:
		return fmt.Sprintf("%.2f TiB", float64(b)/tib)
	case b >= gib:
		return fmt.Sprintf("%.2f GiB", float64(b)/gib)
	case b >= mib:
		return fmt.Sprintf("%.2f MiB", float64(b)/mib)
	case b >= kib:
		return fmt.Sprintf("%.2f KiB", float64(b)/kib)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// Count formats a row count compactly, e.g. "1.23M", "456.00K", "789".
func Count(n int64) string {
	const (
		thousand = int64(1000)
		million  = 1000 * thousand
		billion  = 1000 * million
	)
	switch {
	case n < 0:
		return strconv.FormatInt(n, 10)
	case n >= billion:
		return fmt.Sprintf("%.2fB", float64(n)/float64(billion))
	case n >= million:
		return fmt.Sprintf("%.2fM", float64(n)/float64(million))
	case n >= thousand:
		return fmt.Sprintf("%.2fK", float64(n)/float64(thousand))
	default:
		return strconv.FormatInt(n, 10)
	}
}

// Duration formats a duration at a precision useful for build phases,
// e.g. "1.23s", "45.6ms", "2h15m".
func Duration(d time.Duration) string {
	switch {
	case d < 0:
		return d.String()
	case d >= time.Hour:
		h := d / time.Hour
		m := (d % time.Hour) / time.Minute
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	case d >= time.Minute:
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	default:
		return d.String()
	}
}
