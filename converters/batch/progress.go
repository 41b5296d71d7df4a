package batch

import "github.com/darianmavgo/mkcsv/converters/common"

// progressTracker forwards progress to a sink and never lets the overall fraction go backwards.
type progressTracker struct {
	run       *Run
	sink      common.ProgressSink
	total     int
	completed int
	current   float64
	last      float64
}

// update sets the fraction of the current file.
func (p *progressTracker) update(current float64, status string) {
	p.current = min(max(current, 0), 1)
	p.emit(status)
}

func (p *progressTracker) startFile(name string) {
	p.current = 0
	p.emit("processing " + name)
}

func (p *progressTracker) fileDone(status string) {
	if p.completed < p.total {
		p.completed++
	}
	p.current = 0
	p.emit(status)
}

// finish reports the end of the batch as exactly 1.0.
func (p *progressTracker) finish() {
	p.completed = p.total
	p.current = 0
	p.emit("done")
}

func (p *progressTracker) emit(status string) {
	pr := common.Progress{
		Completed: p.completed,
		Total:     p.total,
		Current:   p.current,
		Status:    status,
	}
	f := pr.Fraction()
	if f < p.last {
		return
	}
	p.last = f
	p.run.Progress = pr
	if p.sink != nil {
		p.sink.Report(pr)
	}
}
