package gridsolver

// Frame is one fixed length animation frame. Index -1 is the frame before
// the simulation starts.
type Frame struct {
	Index                 int
	TimeIntervalInSeconds float64
}

func NewFrame(index int, timeIntervalInSeconds float64) Frame {
	return Frame{Index: index, TimeIntervalInSeconds: timeIntervalInSeconds}
}

func (f Frame) TimeInSeconds() float64 { return float64(f.Index) * f.TimeIntervalInSeconds }

func (f *Frame) Advance() { f.Index++ }

func (f *Frame) AdvanceBy(delta int) { f.Index += delta }

// animation carries the frame and sub step bookkeeping shared by the 2D and
// 3D solvers. step advances one frame in adaptive sub steps.
type animation struct {
	currentFrame Frame
	currentTime  float64
}

func newAnimation() animation {
	return animation{currentFrame: Frame{Index: -1}}
}

func (a *animation) CurrentFrame() Frame { return a.currentFrame }

func (a *animation) CurrentTimeInSeconds() float64 { return a.currentTime }

// update advances to frame one frame at a time, initializing on the first
// call. The frame with index k starts at k times its interval.
func (a *animation) update(frame Frame, initialize func() error,
	subSteps func(dt float64) int, step func(dt float64) error) (err error) {
	if frame.Index <= a.currentFrame.Index {
		return
	}
	if a.currentFrame.Index < 0 {
		if err = initialize(); err != nil {
			return
		}
	}
	for a.currentFrame.Index < frame.Index {
		next := NewFrame(a.currentFrame.Index+1, frame.TimeIntervalInSeconds)
		a.currentTime = next.TimeInSeconds()
		remaining := next.TimeIntervalInSeconds
		for remaining > epsilon {
			dt := remaining / float64(max(subSteps(remaining), 1))
			if err = step(dt); err != nil {
				return
			}
			remaining -= dt
			a.currentTime += dt
		}
		a.currentFrame = next
	}
	return
}
