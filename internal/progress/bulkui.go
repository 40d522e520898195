package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/andresharpe/cute-sub002/internal/bulk"
	"github.com/andresharpe/cute-sub002/internal/constants"
)

const maxStatusWidth = 60

// BulkUI shows a spinner-style bar while entries are listed and one mpb bar
// per mutation phase afterwards. Failures are printed above the bars.
type BulkUI struct {
	mu         sync.Mutex
	out        io.Writer
	isTerminal bool

	listing *progressbar.ProgressBar

	progress *mpb.Progress
	bars     map[bulk.Phase]*phaseBar
	order    []bulk.Phase
}

type phaseBar struct {
	bar    *mpb.Bar
	status string
	mu     sync.Mutex
}

func (p *phaseBar) setStatus(s string) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *phaseBar) getStatus() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// NewBulkUI renders to out.
func NewBulkUI(out io.Writer, isTerminal bool) *BulkUI {
	return &BulkUI{
		out:        out,
		isTerminal: isTerminal,
		bars:       make(map[bulk.Phase]*phaseBar),
	}
}

// Handle implements UI.
func (u *BulkUI) Handle(ev bulk.ProgressEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if ev.Phase == bulk.PhaseList {
		u.handleListing(ev)
		return
	}
	u.finishListing()

	pb := u.phase(ev.Phase, ev.Total)
	if ev.Total > 0 {
		pb.bar.SetTotal(int64(ev.Total), false)
	}
	pb.bar.SetCurrent(int64(ev.Succeeded))
	pb.setStatus(truncate(ev.Message, maxStatusWidth))

	if ev.Err != nil {
		fmt.Fprintln(u.progress, ev.Message)
	}
}

func (u *BulkUI) handleListing(ev bulk.ProgressEvent) {
	if u.listing == nil {
		total := -1
		if ev.Total > 0 {
			total = ev.Total
		}
		u.listing = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(u.out),
			progressbar.OptionSetDescription("listing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(constants.ProgressRefreshInterval),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		)
	} else if ev.Total > 0 {
		u.listing.ChangeMax(ev.Total)
	}
	u.listing.Describe(truncate(ev.Message, maxStatusWidth))
	_ = u.listing.Set(ev.Succeeded)
}

func (u *BulkUI) finishListing() {
	if u.listing == nil {
		return
	}
	_ = u.listing.Finish()
	u.listing = nil
}

func (u *BulkUI) phase(name bulk.Phase, total int) *phaseBar {
	if pb, ok := u.bars[name]; ok {
		return pb
	}
	if u.progress == nil {
		u.progress = mpb.New(
			mpb.WithOutput(u.out),
			mpb.WithRefreshRate(constants.ProgressRefreshInterval),
			mpb.WithWidth(100),
		)
	}

	pb := &phaseBar{}
	pb.bar = u.progress.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("%-10s", name)),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Any(func(decor.Statistics) string { return " " + pb.getStatus() }),
		),
	)
	u.bars[name] = pb
	u.order = append(u.order, name)
	return pb
}

// Writer implements UI.
func (u *BulkUI) Writer() io.Writer {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.progress != nil {
		return u.progress
	}
	return u.out
}

// Wait implements UI. Bars of phases that ended short of their total are
// closed at their current count.
func (u *BulkUI) Wait() {
	u.mu.Lock()
	u.finishListing()
	for _, name := range u.order {
		if pb := u.bars[name]; !pb.bar.Completed() {
			pb.bar.SetTotal(-1, true)
		}
	}
	p := u.progress
	u.mu.Unlock()

	if p != nil {
		p.Wait()
	}
}

// IsTerminal implements UI.
func (u *BulkUI) IsTerminal() bool { return u.isTerminal }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
