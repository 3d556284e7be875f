package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dmitrijs2005/casupload/internal/client/upload"
	"github.com/stretchr/testify/require"
)

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	p := &progressPrinter{out: &out}

	p.observe(upload.Snapshot{State: upload.StateCalculating, FileName: "a.pdf"})
	for _, v := range []float64{5, 12, 19, 35, 100} {
		p.observe(upload.Snapshot{State: upload.StateCalculating, HashProgress: v})
	}
	p.observe(upload.Snapshot{State: upload.StateCalculated, Key: "k.pdf"})
	p.observe(upload.Snapshot{State: upload.StateError, Kind: upload.KindNetworkFailure, Message: "boom"})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, []string{
		"computing digest of a.pdf",
		"digest  10%",
		"digest  30%",
		"digest 100%",
		"ready: k.pdf",
		"error (network failure): boom",
	}, lines)
}
