// Package router classifies Noren websocket frames and dispatches them to a
// Handler one at a time, in arrival order. It also provides Queue, the
// growable buffer writers use between the dispatcher and the database.
package router
