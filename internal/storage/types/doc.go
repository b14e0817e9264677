// Package types defines the values that flow into the series registry.
//
// Key types:
//   - Sample: a single measurement addressed to a named series
//   - SampleBatch: samples grouped for one ingestion call
package types
