package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"fastjob.dev/devtools/internal/api"
)

// Reporter prints human-readable scenario progress.
type Reporter struct {
	w io.Writer
}

// NewReporter writes to w, or stdout when w is nil.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{w: w}
}

func (r *Reporter) Banner(title string) {
	fmt.Fprintln(r.w, title)
	r.Rule()
}

// Heading prints an unindented line.
func (r *Reporter) Heading(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

func (r *Reporter) Blank() {
	fmt.Fprintln(r.w)
}

func (r *Reporter) Rule() {
	fmt.Fprintln(r.w, strings.Repeat("=", 50))
}

func (r *Reporter) Step(title, details string) {
	fmt.Fprintf(r.w, "\n🔹 %s\n", title)
	if details != "" {
		fmt.Fprintf(r.w, "   %s\n", details)
	}
}

func (r *Reporter) Line(format string, args ...any) {
	fmt.Fprintf(r.w, "   "+format+"\n", args...)
}

func (r *Reporter) Item(format string, args ...any) {
	fmt.Fprintf(r.w, "   • "+format+"\n", args...)
}

func (r *Reporter) Success(format string, args ...any) {
	fmt.Fprintf(r.w, "✅ "+format+"\n", args...)
}

func (r *Reporter) Failure(format string, args ...any) {
	fmt.Fprintf(r.w, "❌ "+format+"\n", args...)
}

// Exchange prints the status code and the body, pretty-printed when it is
// JSON and verbatim otherwise.
func (r *Reporter) Exchange(ex api.Exchange) {
	r.Line("Status: %d", ex.StatusCode)
	body := bytes.TrimSpace(ex.Body)
	var pretty bytes.Buffer
	if json.Valid(body) && json.Indent(&pretty, body, "   ", "  ") == nil {
		r.Line("Response: %s", pretty.String())
		return
	}
	r.Line("Response: %s", body)
}
