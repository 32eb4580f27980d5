// Package stream implements the gateway market data websocket.
//
// The Manager:
//   - Obtains the session token from /tickle and connects with it as the
//     api cookie
//   - Subscribes smd+<conid> market data for every universe instrument
//   - Sends the tic keepalive
//   - Merges partial field updates into full quotes for the handler
//   - Reconnects with exponential backoff
package stream
