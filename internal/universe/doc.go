// Package universe implements the instrument registry.
//
// The registry:
//   - Loads the UST and futures index files, falling back to gateway
//     discovery when the futures index is unavailable
//   - Loads the futures historical bars used by the risk checks
//   - Refreshes quotes from gateway snapshots on an interval
//   - Applies streaming quote updates
//   - Hands the engine point-in-time copies of the open instruments
package universe
