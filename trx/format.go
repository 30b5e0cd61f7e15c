package trx

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayout is the VSTest wire format for instants: second fraction has
// seven digits (100ns ticks), matching the duration format below.
const timestampLayout = "2006-01-02T15:04:05.0000000-07:00"

// FormatTimestamp renders an instant in the TRX timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// FormatDuration renders an elapsed duration as HH:MM:SS.fffffff with 100ns
// ticks. Hours wrap at 60 rather than 24; consumers have ingested that output
// for years, so the wrap is kept as-is rather than corrected.
func FormatDuration(d time.Duration) string {
	ns := d.Nanoseconds()
	if ns < 0 {
		ns = 0
	}
	totalHns := ns / 100
	totalSeconds := ns / 1_000_000_000
	totalMinutes := totalSeconds / 60
	totalHours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d.%07d",
		totalHours%60,
		totalMinutes%60,
		totalSeconds%60,
		totalHns%10_000_000)
}

// SanitizeName removes characters that make certain TRX consumers (notably
// Azure DevOps Pipelines) reject the document: every well-formed [tag] is
// stripped together with its brackets, commas are dropped, and the result is
// trimmed. Removing a tag that was padded with spaces on both sides collapses
// the two leftover spaces into one. An opened bracket that never closes is a
// content error.
func SanitizeName(raw string) (string, error) {
	var b strings.Builder
	var lastChar byte
	for i := 0; i < len(raw); {
		switch raw[i] {
		case '[':
			end := strings.IndexByte(raw[i:], ']')
			if end < 0 {
				return "", NewContentError("unclosed [tag] in name: %s", raw)
			}
			i += end + 1
			// "removed [tag] here" -> "removed  here" -> "removed here"
			if lastChar == ' ' && i < len(raw) && raw[i] == ' ' {
				i++
			}
		case ',':
			i++
		default:
			lastChar = raw[i]
			b.WriteByte(lastChar)
			i++
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// FormatSourceInfo renders one line of TRX stack-trace text for a source
// location. sourcePrefix, when it matches, is trimmed from the path so stacks
// stay relative to the repository root; backslashes are normalized so Windows
// paths render consistently.
func FormatSourceInfo(sourcePrefix, file string, line int) string {
	path := strings.TrimPrefix(file, sourcePrefix)
	path = strings.ReplaceAll(path, "\\", "/")
	return fmt.Sprintf("at TestEngine.Module.Method() in %s:line %d\n", path, line)
}
