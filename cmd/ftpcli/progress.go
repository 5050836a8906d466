package main

import (
	"github.com/schollz/progressbar/v3"
)

// barListener renders transfer progress as a terminal progress bar. The bar
// is created on the first callback, once the total size is known.
type barListener struct {
	description string
	bar         *progressbar.ProgressBar
}

func newBarListener(description string) *barListener {
	return &barListener{description: description}
}

func (l *barListener) OnBytesRead(total, current int64)  { l.set(total, current) }
func (l *barListener) OnBytesWrite(total, current int64) { l.set(total, current) }

func (l *barListener) set(total, current int64) {
	if l.bar == nil {
		l.bar = progressbar.DefaultBytes(total, l.description)
	}
	_ = l.bar.Set64(current)
	if current >= total {
		_ = l.bar.Finish()
	}
}
