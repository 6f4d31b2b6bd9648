package kernlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// e.g., "[12345.678901] Mem-Info:"
	regexUptime = regexp.MustCompile(`\[\s*(\d+)\.(\d+)\]`)

	// e.g., "[Sun Dec  8 09:23:39 2024] Mem-Info:" ("dmesg --ctime")
	regexCtime = regexp.MustCompile(`^\s*\[([A-Z][a-z]{2} [A-Z][a-z]{2}\s+\d{1,2} \d{2}:\d{2}:\d{2} \d{4})\]`)

	// e.g., "2024-11-15T12:02:03,561522+00:00 Mem-Info:" ("dmesg --time-format=iso")
	// or "2025-01-02T15:20:12+0800 host kernel: Mem-Info:" ("journalctl -o short-iso")
	regexISO = regexp.MustCompile(`^\s*(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?)`)

	// e.g., "Jan  2 03:04:05 host kernel: Mem-Info:" (/var/log/messages)
	regexSyslog = regexp.MustCompile(`^\s*([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`)

	// "<host> kernel:" boilerplate that follows a syslog or journal timestamp
	regexHostKernel = regexp.MustCompile(`^\s*(?:\S+\s+)?kernel:\s*`)
)

// Timestamp is the time an event was logged at, as printed by the kernel
// or by the log collector. The zero value means no timestamp was found.
type Timestamp struct {
	// Wall is the wall-clock prefix (syslog, iso or ctime format), if any.
	Wall string
	// Uptime is the bracketed "[seconds.micros]" offset since boot.
	Uptime    time.Duration
	HasUptime bool
}

// Present reports whether the line carried any timestamp.
func (ts Timestamp) Present() bool {
	return ts.Wall != "" || ts.HasUptime
}

func (ts Timestamp) String() string {
	switch {
	case ts.Wall != "" && ts.HasUptime:
		return fmt.Sprintf("%s (uptime %s)", ts.Wall, formatUptime(ts.Uptime))
	case ts.Wall != "":
		return ts.Wall
	case ts.HasUptime:
		return "uptime " + formatUptime(ts.Uptime)
	default:
		return "(none)"
	}
}

func formatUptime(d time.Duration) string {
	secs := d / time.Second
	micros := (d % time.Second) / time.Microsecond
	return fmt.Sprintf("%d.%06ds", secs, micros)
}

// ParseLine splits a log line into its timestamp and the kernel message,
// with bracketed uptime prefixes and "<host> kernel:" boilerplate removed.
func ParseLine(line string) (Timestamp, string) {
	var ts Timestamp
	rest := line

	if m := regexCtime.FindStringSubmatch(rest); m != nil {
		ts.Wall = m[1]
		rest = rest[len(m[0]):]
	} else if m := regexISO.FindStringSubmatch(rest); m != nil {
		ts.Wall = m[1]
		rest = rest[len(m[0]):]
		rest = regexHostKernel.ReplaceAllString(rest, "")
	} else if m := regexSyslog.FindStringSubmatch(rest); m != nil {
		ts.Wall = m[1]
		rest = rest[len(m[0]):]
		rest = regexHostKernel.ReplaceAllString(rest, "")
	}

	if loc := regexUptime.FindStringSubmatchIndex(rest); loc != nil {
		secs, err1 := strconv.ParseInt(rest[loc[2]:loc[3]], 10, 64)
		frac := rest[loc[4]:loc[5]]
		// kernels print microseconds, but be lenient on digit counts
		for len(frac) < 6 {
			frac += "0"
		}
		micros, err2 := strconv.ParseInt(frac[:6], 10, 64)
		if err1 == nil && err2 == nil {
			ts.Uptime = time.Duration(secs)*time.Second + time.Duration(micros)*time.Microsecond
			ts.HasUptime = true
		}
		rest = rest[:loc[0]] + rest[loc[1]:]
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "kernel:"))
	return ts, rest
}

// ParseTimestamp returns only the timestamp of the line.
func ParseTimestamp(line string) Timestamp {
	ts, _ := ParseLine(line)
	return ts
}
