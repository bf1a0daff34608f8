package audio

import (
	"math"

	"github.com/gopxl/beep/v2"
)

const stretchFrame = 1024

// stretcher changes tempo without changing pitch by overlap-adding Hann
// windowed frames. Frames are read every hop*ratio input samples and written
// every hop output samples, so a periodic Hann window at 50% overlap sums
// to unity gain.
type stretcher struct {
	src   beep.Streamer
	ratio float64

	window []float64
	hop    int

	in    [][2]float64
	inPos float64
	acc   [][2]float64
	out   [][2]float64
	eof   bool
	done  bool
}

func newStretcher(src beep.Streamer, ratio float64) *stretcher {
	window := make([]float64, stretchFrame)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(stretchFrame))
	}
	return &stretcher{
		src:    src,
		ratio:  ratio,
		window: window,
		hop:    stretchFrame / 2,
		acc:    make([][2]float64, stretchFrame),
	}
}

// SetRatio changes the tempo. Ratio 1 passes samples through.
func (s *stretcher) SetRatio(ratio float64) {
	s.ratio = ratio
}

func (s *stretcher) Stream(samples [][2]float64) (int, bool) {
	if s.ratio == 1 && len(s.out) == 0 && len(s.in) == 0 {
		return s.src.Stream(samples)
	}

	n := 0
	for n < len(samples) {
		if len(s.out) == 0 {
			if s.done {
				break
			}
			s.step()
			continue
		}
		c := copy(samples[n:], s.out)
		s.out = s.out[c:]
		n += c
	}
	if n == 0 && s.done {
		return 0, false
	}
	return n, true
}

func (s *stretcher) Err() error {
	return s.src.Err()
}

// step produces hop output samples from one analysis frame.
func (s *stretcher) step() {
	start := int(s.inPos)
	s.fill(start + stretchFrame)

	if s.eof && start >= len(s.in) {
		// Flush the tail that is still waiting for its overlap.
		s.out = append(s.out, s.acc[:s.hop]...)
		s.done = true
		return
	}

	for i := 0; i < stretchFrame; i++ {
		var frame [2]float64
		if start+i < len(s.in) {
			frame = s.in[start+i]
		}
		w := s.window[i]
		s.acc[i][0] += frame[0] * w
		s.acc[i][1] += frame[1] * w
	}

	s.out = append(s.out, s.acc[:s.hop]...)
	copy(s.acc, s.acc[s.hop:])
	for i := stretchFrame - s.hop; i < stretchFrame; i++ {
		s.acc[i] = [2]float64{}
	}

	s.inPos += float64(s.hop) * s.ratio
	if drop := int(s.inPos); drop > 0 {
		if drop > len(s.in) {
			drop = len(s.in)
		}
		s.in = s.in[drop:]
		s.inPos -= float64(drop)
	}
}

func (s *stretcher) fill(want int) {
	var buf [512][2]float64
	for !s.eof && len(s.in) < want {
		n, ok := s.src.Stream(buf[:])
		s.in = append(s.in, buf[:n]...)
		if !ok {
			s.eof = true
		}
		if n == 0 {
			break
		}
	}
}
