package engine

// span is an inclusive cell range handled by one worker.
type span struct {
	start, end int
}

// partitions splits [0, length-1] into at most workers contiguous spans of
// near equal size.
func partitions(length, workers int) []span {
	workers = max(1, min(workers, length))
	out := make([]span, 0, workers)
	size, rest := length/workers, length%workers
	start := 0
	for w := range workers {
		n := size
		if w < rest {
			n++
		}
		out = append(out, span{start: start, end: start + n - 1})
		start += n
	}
	return out
}
