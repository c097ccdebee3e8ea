package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/arthur-debert/dataprov/pkg/logging"
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
)

// Progress draws transfer progress on a terminal: a bar when the size is
// known up front and a spinner counting bytes otherwise.
type Progress struct {
	w io.Writer
}

// NewProgress draws on w, normally stderr.
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

// Factory adapts p for dataset.WithProgress.
func (p *Progress) Factory() dataset.ProgressFactory {
	return p.Start
}

// Start begins reporting one transfer. The first progress call decides
// between bar and spinner.
func (p *Progress) Start(label string) (fetch.ProgressFunc, func()) {
	t := &transfer{w: p.w, label: label}
	return t.update, t.done
}

type transfer struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	bar     *pterm.ProgressbarPrinter
	spinner *pterm.SpinnerPrinter
	last    int64
	failed  bool
}

func (t *transfer) update(done, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failed {
		return
	}
	if t.bar == nil && t.spinner == nil {
		t.start(total)
		if t.failed {
			return
		}
	}

	if t.bar != nil {
		if delta := done - t.last; delta > 0 {
			t.bar.Add(int(delta))
		}
	} else {
		t.spinner.UpdateText(fmt.Sprintf("%s %s", t.label, humanize.Bytes(uint64(done))))
	}
	t.last = done
}

func (t *transfer) start(total int64) {
	var err error
	if total > 0 {
		t.bar, err = pterm.DefaultProgressbar.
			WithTotal(int(total)).
			WithTitle(t.label).
			WithShowCount(false).
			WithRemoveWhenDone(true).
			WithWriter(t.w).
			Start()
	} else {
		t.spinner, err = pterm.DefaultSpinner.
			WithRemoveWhenDone(true).
			WithWriter(t.w).
			Start(t.label)
	}
	if err != nil {
		logger := logging.GetLogger("ui")
		logger.Debug().Err(err).Str("label", t.label).Msg("cannot draw progress")
		t.failed = true
	}
}

func (t *transfer) done() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar != nil {
		_, _ = t.bar.Stop()
	}
	if t.spinner != nil {
		_ = t.spinner.Stop()
	}
	if t.last > 0 {
		_, _ = fmt.Fprintf(t.w, "%s %s\n", OK(t.label), Muted(humanize.Bytes(uint64(t.last))))
	}
}
