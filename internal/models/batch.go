package models

// BatchError records one failed batch of a bulk upsert.
type BatchError struct {
	Offset  int      `json:"offset"`
	Keys    []string `json:"keys"`
	Message string   `json:"message"`
}

// BatchResult is the outcome of a bulk upsert. Failed batches do not abort the call.
type BatchResult struct {
	Total      int          `json:"total"`
	Processed  int          `json:"processed"`
	Failed     int          `json:"failed"`
	Errors     []BatchError `json:"errors"`
	DurationMs int64        `json:"durationMs"`
	// Throughput is processed tickets per second.
	Throughput float64 `json:"throughput"`
}
