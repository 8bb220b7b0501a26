package models

// TrackingFrame is a point-in-time delivery telemetry snapshot emitted by the
// backend's per-order stream. Frames are ephemeral; each one supersedes the
// previous frame for its order.
type TrackingFrame struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Status string  `json:"status"`
	// ETA is a unix-millisecond timestamp; nil means the backend is still
	// calculating one.
	ETA        *int64  `json:"eta"`
	DistanceKM float64 `json:"distance"`
	Timestamp  int64   `json:"timestamp"`
}

// Delivered reports whether the frame carries terminal delivery telemetry.
func (f *TrackingFrame) Delivered() bool {
	return f.Status == "delivered"
}
