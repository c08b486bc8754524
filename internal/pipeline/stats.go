package pipeline

import "time"

// Result summarizes a successful run.
type Result struct {
	Output  string
	Linked  int // Streams written to the output.
	Dropped int // Streams no mux template accepted.
	Size    int64
	Elapsed time.Duration
}
