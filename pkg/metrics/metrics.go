package metrics

// RequestSecondsBuckets covers calls to inference servers, which range from
// a few milliseconds for an acknowledgement to minutes for a finished job.
var RequestSecondsBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
