package utils

import "strings"

const logEntrySeparator = ";\n"

// AddToLogMessage appends one entry to a per-request log builder. The
// builder is flushed as a single block when the request finishes, so
// concurrent requests do not interleave their log output.
func AddToLogMessage(logMessageBuilder *strings.Builder, entry string) {
	logMessageBuilder.Grow(len(entry) + len(logEntrySeparator))
	logMessageBuilder.WriteString(entry)
	logMessageBuilder.WriteString(logEntrySeparator)
}
