package playback

import "math"

// SwipeThreshold is the minimum travel in pixels for a swipe to count
const SwipeThreshold = 50.0

// Gesture is the action a swipe resolved to
type Gesture int

const (
	GestureNone Gesture = iota
	GestureSeekForward
	GestureSeekBackward
	GestureVolumeUp
	GestureVolumeDown
)

// ClassifySwipe maps a swipe delta in screen coordinates (y grows downward)
// to a gesture. The axis with the larger travel wins; ties go vertical.
func ClassifySwipe(dx, dy float64) Gesture {
	if math.Abs(dx) > math.Abs(dy) {
		switch {
		case dx > SwipeThreshold:
			return GestureSeekForward
		case dx < -SwipeThreshold:
			return GestureSeekBackward
		}
		return GestureNone
	}

	switch {
	case dy < -SwipeThreshold:
		return GestureVolumeUp
	case dy > SwipeThreshold:
		return GestureVolumeDown
	}
	return GestureNone
}

// HandleSwipe applies the gesture for a swipe and returns it
func (c *Controller) HandleSwipe(dx, dy float64) Gesture {
	g := ClassifySwipe(dx, dy)
	switch g {
	case GestureSeekForward:
		c.SeekForward()
	case GestureSeekBackward:
		c.SeekBackward()
	case GestureVolumeUp:
		c.VolumeUp()
	case GestureVolumeDown:
		c.VolumeDown()
	}
	return g
}
