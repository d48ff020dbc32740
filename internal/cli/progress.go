package cli

import (
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/schollz/progressbar/v3"

	"github.com/fmueller/streamplay/internal/engine"
)

const maxLabelRunes = 48

type stopFunc func()

// startPlaybackSpinner animates a spinner with the elapsed playback time
// for inv on w until the returned func is called.
func startPlaybackSpinner(enabled bool, w io.Writer, inv engine.Invocation) stopFunc {
	if !enabled || w == nil {
		return func() {}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(playbackLabel(inv.Source)),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	stop := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(150 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-finished
		})
	}
}

// playbackLabel keeps the end of long URLs, where the stream name usually is.
func playbackLabel(source string) string {
	if source == "" {
		return "Playing"
	}
	if n := utf8.RuneCountInString(source); n > maxLabelRunes {
		runes := []rune(source)
		source = "…" + string(runes[n-maxLabelRunes+1:])
	}
	return "Playing " + source
}
