package safego

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
)

var stderrMu sync.Mutex

// ReportPanicToStderr writes info to stderr in the default report format.
// Handlers that only want to decorate the default report can call it.
func ReportPanicToStderr(info PanicInfo) {
	var buf bytes.Buffer
	buf.WriteString("safego: panic")
	writeHead(&buf, info.Name, info.Tags)
	fmt.Fprintf(&buf, " value=%v\n", info.Value)
	if len(info.Stack) > 0 {
		_, _ = buf.Write(info.Stack)
		if info.Stack[len(info.Stack)-1] != '\n' {
			_ = buf.WriteByte('\n')
		}
	}
	writeStderr(buf.Bytes())
}

func reportErrorToStderr(info ErrorInfo) {
	var buf bytes.Buffer
	buf.WriteString("safego: error")
	writeHead(&buf, info.Name, info.Tags)
	fmt.Fprintf(&buf, " err=%v\n", info.Err)
	writeStderr(buf.Bytes())
}

func writeHead(buf *bytes.Buffer, name string, tags []Tag) {
	if name != "" {
		fmt.Fprintf(buf, " name=%q", name)
	}
	if len(tags) > 0 {
		buf.WriteString(" tags=")
		buf.WriteString(formatTags(tags))
	}
}

func writeStderr(p []byte) {
	stderrMu.Lock()
	_, _ = os.Stderr.Write(p)
	stderrMu.Unlock()
}

func formatTags(tags []Tag) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, t := range tags {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%q", t.Key, t.Value)
	}
	b.WriteByte('}')
	return b.String()
}
