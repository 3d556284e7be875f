package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/casupload/internal/client/upload"
)

// progressPrinter turns machine snapshots into terse console lines: one per
// state change and one per 10% of progress.
type progressPrinter struct {
	out io.Writer

	mu     sync.Mutex
	state  upload.State
	decile int
}

func (p *progressPrinter) observe(s upload.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.State != p.state {
		p.state = s.State
		p.decile = 0
		p.printState(s)
		return
	}

	var pct float64
	var label string
	switch s.State {
	case upload.StateCalculating:
		pct, label = s.HashProgress, "digest"
	case upload.StateUploading:
		pct, label = s.UploadProgress, "upload"
	default:
		return
	}

	if d := int(pct) / 10; d > p.decile {
		p.decile = d
		fmt.Fprintf(p.out, "%s %3d%%\n", label, d*10)
	}
}

func (p *progressPrinter) printState(s upload.Snapshot) {
	switch s.State {
	case upload.StateCalculating:
		fmt.Fprintf(p.out, "computing digest of %s\n", s.FileName)
	case upload.StateCalculated:
		fmt.Fprintf(p.out, "ready: %s\n", s.Key)
	case upload.StatePreparing:
		fmt.Fprintln(p.out, "opening upload session")
	case upload.StateUploading:
		fmt.Fprintln(p.out, "uploading")
	case upload.StateError:
		fmt.Fprintf(p.out, "error (%s): %s\n", s.Kind, s.Message)
	}
}
