// Package storage implements fixed-memory, multi-resolution round-robin
// storage.
//
// Architecture:
//
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│   Series    │────▶│  rrd.Store  │────▶│  Reducing   │──▶ coarser
//	│  Registry   │     │  (levels)   │     │   Buffer    │    levels
//	└─────────────┘     └─────────────┘     └─────────────┘
//	       │                                       │
//	       ▼                                       ▼
//	┌─────────────┐                         ┌─────────────┐
//	│   Config    │                         │  Reducers   │
//	│  (layouts)  │                         │ (DDSketch)  │
//	└─────────────┘                         └─────────────┘
//
// Subpackages:
//   - buffer: circular and reducing ring buffers
//   - rrd: the multi-level store with DataPoint and Sample addressing
//   - reduce: consolidation functions (average, min, max, sum, first,
//     last and DDSketch quantiles)
//   - series: a sharded registry of named stores with batch ingestion
//   - config: YAML layouts, per-series overrides and memory estimates
//   - types: the sample and batch ingestion units
package storage
