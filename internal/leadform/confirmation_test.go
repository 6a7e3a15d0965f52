package leadform

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	assert.Equal(t, "Guide.pdf", Filename("Guide"))
	assert.Equal(t, "ebook.pdf", Filename(""))
}

func TestConfirmationStopCancelsPending(t *testing.T) {
	sched := &fakeScheduler{}
	fired := 0
	c := NewConfirmation(NavigationState{EbookTitle: "G", DownloadURL: "https://x/f.pdf"}, func(Download) { fired++ }, WithScheduler(sched))
	c.Start()
	c.Stop()
	sched.advance(time.Hour)
	assert.Equal(t, 0, fired)

	c.Retrigger()
	assert.Equal(t, 0, fired, "retrigger after stop")
}

func TestConfirmationRetrigger(t *testing.T) {
	sched := &fakeScheduler{}
	var got []Download
	c := NewConfirmation(NavigationState{DownloadURL: "https://x/f.pdf"}, func(d Download) { got = append(got, d) }, WithScheduler(sched))
	c.Start()
	c.Retrigger()
	assert.Len(t, got, 1, "retrigger fires immediately")
	sched.advance(DownloadDelay)
	assert.Len(t, got, 2)
	assert.Equal(t, "ebook.pdf", got[0].Filename)
}

func TestConfirmationWithoutURL(t *testing.T) {
	sched := &fakeScheduler{}
	fired := 0
	c := NewConfirmation(NavigationState{EbookTitle: "G"}, func(Download) { fired++ }, WithScheduler(sched))
	c.Start()
	c.Retrigger()
	assert.Empty(t, sched.pending)
	assert.Equal(t, 0, fired)
}

func TestConfirmationRealTimer(t *testing.T) {
	var fired atomic.Int32
	start := time.Now()
	done := make(chan time.Duration, 1)
	c := NewConfirmation(NavigationState{DownloadURL: "https://x/f.pdf"}, func(Download) {
		fired.Add(1)
		done <- time.Since(start)
	})
	c.Start()

	select {
	case elapsed := <-done:
		assert.GreaterOrEqual(t, elapsed, DownloadDelay)
	case <-time.After(5 * time.Second):
		t.Fatal("download never fired")
	}
	c.Stop()
	assert.Equal(t, int32(1), fired.Load())
}
