package downloader

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// Progress receives transfer progress. total is -1 while the length is unknown.
type Progress interface {
	Start(name string, total int64)
	Update(current, total int64)
	Done(current int64)
}

type discardProgress struct{}

func (discardProgress) Start(string, int64) {}
func (discardProgress) Update(int64, int64) {}
func (discardProgress) Done(int64) {}

// tracker keeps the running byte count for one transfer. The count only
// grows, and a declared total that turns out too small is raised to the
// current count instead of failing the transfer.
type tracker struct {
	current int64
	total   int64
	sink    Progress
}

func newTracker(sink Progress, name string, total int64) *tracker {
	if total < 0 {
		total = -1
	}
	sink.Start(name, total)
	return &tracker{total: total, sink: sink}
}

func (t *tracker) add(n int) {
	if n <= 0 {
		return
	}
	t.current += int64(n)
	if t.total >= 0 && t.current > t.total {
		t.total = t.current
	}
	t.sink.Update(t.current, t.total)
}

func (t *tracker) done() {
	t.sink.Done(t.current)
}

const barWidth = 50

// Bar renders progress as a redrawn '#' bar when w is a terminal and as a
// single summary line otherwise.
type Bar struct {
	w           io.Writer
	interactive bool
	name        string
}

// NewBar creates a Bar writing to w.
func NewBar(w io.Writer) *Bar {
	interactive := false
	if f, ok := w.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return &Bar{w: w, interactive: interactive}
}

func (b *Bar) Start(name string, total int64) {
	b.name = name
	if !b.interactive {
		return
	}
	if total >= 0 {
		fmt.Fprintf(b.w, "Downloading %s (%s)\n", name, humanize.Bytes(uint64(total)))
	} else {
		fmt.Fprintf(b.w, "Downloading %s\n", name)
	}
}

func (b *Bar) Update(current, total int64) {
	if !b.interactive {
		return
	}
	fmt.Fprintf(b.w, "\r%s", renderBar(current, total))
}

func (b *Bar) Done(current int64) {
	if b.interactive {
		fmt.Fprintln(b.w)
	}
	fmt.Fprintf(b.w, "Done: %s (%s)\n", b.name, humanize.Bytes(uint64(current)))
}

// renderBar formats one progress line. Unknown totals render as a counter.
func renderBar(current, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%s received", humanize.Bytes(uint64(current)))
	}
	filled := int(barWidth * current / total)
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("[%s%s] %s/%s",
		strings.Repeat("#", filled), strings.Repeat(" ", barWidth-filled),
		humanize.Bytes(uint64(current)), humanize.Bytes(uint64(total)))
}
