package collage

// FrameIndices returns the library indices for a frame of count tiles drawn
// from a library of n images at the given cycle, and the cycle the frame was
// drawn at.
//
// Consecutive frames advance by count-1 images, so the last image of one
// frame opens the next. When the window would run past the end of the
// library the whole frame restarts at index 0 and the cycle resets to 0.
// Libraries smaller than a frame repeat.
func FrameIndices(cycle, n, count int) ([]int, int) {
	if n <= 0 || count <= 0 {
		return nil, cycle
	}

	start := (count - 1) * cycle
	if cycle < 0 || start+count > n {
		cycle, start = 0, 0
	}

	indices := make([]int, count)
	for k := range indices {
		indices[k] = (start + k) % n
	}

	return indices, cycle
}
