package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/jedib0t/go-pretty/v6/progress"
)

// CommitProgress draws one progress bar per commit job on an interactive
// console and plain status lines otherwise.
type CommitProgress struct {
	console  *Console
	writer   progress.Writer
	lock     sync.Mutex
	trackers map[string]*progress.Tracker
	stopped  bool
}

func NewCommitProgress(console *Console) *CommitProgress {
	p := &CommitProgress{console: console, trackers: make(map[string]*progress.Tracker)}
	if console.Interactive {
		pw := progress.NewWriter()
		pw.SetOutputWriter(console.Out)
		pw.SetAutoStop(false)
		pw.SetTrackerLength(30)
		pw.SetStyle(progress.StyleDefault)
		pw.SetUpdateFrequency(250 * time.Millisecond)
		pw.Style().Visibility.ETA = false
		pw.Style().Visibility.Percentage = true
		p.writer = pw
		go pw.Render()
	}
	return p
}

func (p *CommitProgress) JobStarted(host, jobId string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.writer == nil {
		p.console.Printf("%s commit job %s started\n", host, jobId)
		return
	}
	tracker := &progress.Tracker{Message: fmt.Sprintf("%s job %s", host, jobId), Total: 100, Units: progress.UnitsDefault}
	p.trackers[key(host, jobId)] = tracker
	p.writer.AppendTracker(tracker)
}

func (p *CommitProgress) JobProgress(host, jobId string, pct int) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if tracker, found := p.trackers[key(host, jobId)]; found {
		tracker.SetValue(int64(pct))
	}
}

func (p *CommitProgress) JobFinished(host, jobId string, verdict model.CommitVerdict) {
	p.lock.Lock()
	defer p.lock.Unlock()
	tracker, found := p.trackers[key(host, jobId)]
	if !found {
		p.console.Printf("%s commit job %s: %s\n", host, jobId, p.console.CommitVerdict(verdict))
		return
	}
	if verdict == model.VerdictCommitted {
		tracker.SetValue(100)
		tracker.MarkAsDone()
	} else {
		tracker.UpdateMessage(fmt.Sprintf("%s job %s %s", host, jobId, verdict))
		tracker.MarkAsErrored()
	}
}

// Stop waits for the last redraw and releases the renderer.
func (p *CommitProgress) Stop() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.writer == nil || p.stopped {
		return
	}
	p.stopped = true
	time.Sleep(300 * time.Millisecond)
	p.writer.Stop()
	for p.writer.IsRenderInProgress() {
		time.Sleep(50 * time.Millisecond)
	}
}

func key(host, jobId string) string {
	return host + "/" + jobId
}
