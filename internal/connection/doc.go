// Package connection implements the websocket side of the Noren feed.
//
// Client owns one socket: a read goroutine that timestamps and buffers every
// frame, and a heartbeat goroutine that pings with {"t":"h"} and reports a
// stale connection. Feed speaks the feed's request protocol (connect,
// touchline and depth subscriptions, order updates) on top of a Client.
package connection
