// Package engine runs the business cycle.
//
// Each cycle takes a universe snapshot and runs, in order: CTD selection,
// futures analytics, pair construction, SIA basis, SMA sizing, RENTD
// ranking, pre-trade risk and order execution. The resulting CycleRecord
// goes to the store and the metrics.
package engine
