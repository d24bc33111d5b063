package city

import "time"

// DefaultHistorySize is how many revenue samples a city keeps.
const DefaultHistorySize = 24

// RevenueSample is the net revenue (yield minus maintenance) of one tick.
type RevenueSample struct {
	Timestamp time.Time `json:"timestamp"`
	Revenue   int       `json:"revenue"`
}

// RevenueHistory is a fixed-size ring buffer; the oldest sample is evicted first.
type RevenueHistory struct {
	samples []RevenueSample
	next    int
	full    bool
}

// NewRevenueHistory creates a history retaining at most size samples.
func NewRevenueHistory(size int) *RevenueHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &RevenueHistory{samples: make([]RevenueSample, size)}
}

// Append records a sample, overwriting the oldest one when full.
func (h *RevenueHistory) Append(s RevenueSample) {
	h.samples[h.next] = s
	h.next = (h.next + 1) % len(h.samples)
	if h.next == 0 {
		h.full = true
	}
}

// Len returns the number of retained samples.
func (h *RevenueHistory) Len() int {
	if h.full {
		return len(h.samples)
	}
	return h.next
}

// Cap returns the retention limit.
func (h *RevenueHistory) Cap() int {
	return len(h.samples)
}

// Samples returns a copy of the retained samples, oldest first.
func (h *RevenueHistory) Samples() []RevenueSample {
	out := make([]RevenueSample, 0, h.Len())
	if h.full {
		out = append(out, h.samples[h.next:]...)
	}
	return append(out, h.samples[:h.next]...)
}
