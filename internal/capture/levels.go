package capture

// binCount is the number of bins per level snapshot, sized to render as a
// compact bar visualizer.
const binCount = 32

// levelBins derives a coarse energy distribution from one encoded chunk.
// The chunk is opaque compressed audio, so this is not a spectral analysis;
// it only promises "recent energy distribution" suitable for a visualizer.
// Each bin is the mean absolute deviation of its byte segment, scaled 0-255.
func levelBins(chunk []byte) []int {
	bins := make([]int, binCount)
	if len(chunk) == 0 {
		return bins
	}

	segment := len(chunk) / binCount
	if segment == 0 {
		segment = 1
	}

	for i := 0; i < binCount; i++ {
		start := i * segment
		if start >= len(chunk) {
			break
		}
		end := start + segment
		if end > len(chunk) {
			end = len(chunk)
		}

		seg := chunk[start:end]
		var sum int
		for _, b := range seg {
			sum += int(b)
		}
		mean := sum / len(seg)

		var dev int
		for _, b := range seg {
			d := int(b) - mean
			if d < 0 {
				d = -d
			}
			dev += d
		}
		bins[i] = clampByte(2 * dev / len(seg))
	}

	return bins
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
