package types

// Sample represents a single measurement for a named series.
type Sample struct {
	// Series names the round-robin store the value belongs to
	// (e.g., "router-01:ifInOctets").
	Series string

	// TimestampMs is the Unix timestamp in milliseconds. Stores are indexed
	// by push order, so it is informational only.
	TimestampMs int64

	Value float64

	// Valid is false for failed measurements; those are not pushed.
	Valid bool
}

// Key returns the series name.
func (s *Sample) Key() string {
	return s.Series
}

// SampleBatch represents a collection of samples for batch processing.
type SampleBatch struct {
	Samples []Sample
}

// NewSampleBatch creates a new batch with the given capacity.
func NewSampleBatch(capacity int) *SampleBatch {
	return &SampleBatch{
		Samples: make([]Sample, 0, capacity),
	}
}

// Add appends a sample to the batch.
func (b *SampleBatch) Add(s Sample) {
	b.Samples = append(b.Samples, s)
}

// Len returns the number of samples in the batch.
func (b *SampleBatch) Len() int {
	return len(b.Samples)
}

// Clear resets the batch for reuse.
func (b *SampleBatch) Clear() {
	b.Samples = b.Samples[:0]
}

// BySeries splits the batch into per-series value slices, keeping push
// order within each series. Invalid samples are dropped and counted.
func (b *SampleBatch) BySeries() (values map[string][]float64, skipped int) {
	values = make(map[string][]float64)
	for i := range b.Samples {
		s := &b.Samples[i]
		if !s.Valid {
			skipped++
			continue
		}
		values[s.Key()] = append(values[s.Key()], s.Value)
	}
	return values, skipped
}
