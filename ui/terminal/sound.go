package terminal

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

// Sound plays game effects. Implementations are called from the gravity
// goroutine as well as the input loop.
type Sound interface {
	LineClear(lines int)
	GameOver()
}

type noSound struct{}

func (noSound) LineClear(int) {}
func (noSound) GameOver()     {}

// BeepSound plays short sine tones through the system speaker
type BeepSound struct {
	rate beep.SampleRate
}

// NewBeepSound initializes the speaker. Close releases it.
func NewBeepSound() (*BeepSound, error) {
	rate := beep.SampleRate(44100)
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return nil, err
	}
	return &BeepSound{rate: rate}, nil
}

func (b *BeepSound) tone(freq float64, d time.Duration) {
	sine, err := generators.SineTone(b.rate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(b.rate.N(d), sine))
}

// LineClear rises in pitch with the number of lines
func (b *BeepSound) LineClear(lines int) {
	b.tone(440+float64(lines)*220, time.Duration(60*lines)*time.Millisecond)
}

func (b *BeepSound) GameOver() {
	b.tone(165, 400*time.Millisecond)
}

func (b *BeepSound) Close() {
	speaker.Close()
}
