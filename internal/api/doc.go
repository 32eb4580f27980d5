// Package api provides the Interactive Brokers Client Portal gateway client.
//
// The gateway runs locally and proxies an authenticated brokerage session:
//   - REST: https://localhost:5000/v1/api
//   - WebSocket: wss://localhost:5000/v1/api/ws (see package stream)
//
// Endpoints used: auth status and tickle, futures scan, security definitions,
// secdef search, market data snapshots and history, partitioned PnL, and the
// order endpoints (list, place, cancel, suppress reply messages).
//
// Every request waits on a shared ratelimit.Bucket before it is sent.
package api
