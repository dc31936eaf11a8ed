// Package api provides the Noren OMS REST client used by the Shoonya broker.
//
// Every endpoint is an HTTP POST whose body is "jData=<json>" followed by
// "&jKey=<session token>" once logged in. Broker-level failures come back as
// HTTP 200 with {"stat":"Not_Ok","emsg":...}; those are returned as result
// values, and Go errors are kept for transport faults.
//
// Endpoints:
//   - /QuickAuth: login
//   - /SearchScrip: symbol search
//   - /TPSeries: intraday time-price bars
//   - /Logout
package api
