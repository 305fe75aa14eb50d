package security

import (
	"fmt"
	"hash/fnv"
)

// hashSensitive reduces user-supplied content to a short one-way hash for
// the event trail. Raw usernames and message bodies never reach a log line
// or the audit store.
func hashSensitive(data string) string {
	if data == "" {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(data))
	return fmt.Sprintf("%08x", h.Sum32())
}

// logEvent emits a structured security event to slog and, when configured,
// the audit recorder. Details passed here must already be hashed.
func (c *Context) logEvent(event string, details map[string]string) {
	attrs := make([]any, 0, 2+2*len(details))
	attrs = append(attrs, "event", event)
	for k, v := range details {
		attrs = append(attrs, k, v)
	}
	c.logger.Warn("security event", attrs...)

	if c.recorder != nil {
		c.recorder.Record(event, details)
	}
}
