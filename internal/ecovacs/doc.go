// Package ecovacs is the adapter between robotctl tools and the Ecovacs open
// platform HTTP API.
//
// Every operation is a single round trip: the client joins the configured
// base URL with an endpoint identifier, stringifies the parameters, injects
// the shared API key under "ak", sends the request as a query string (GET)
// or JSON body (POST) and decodes the three-field response envelope:
//
//	{"msg": "OK", "code": 0, "data": [...]}
//
// # Failure Contract
//
// Call never returns an error and never panics on upstream behaviour. A
// timeout, connection failure, non-2xx status or undecodable body becomes
//
//	{"msg": "Request failed: <description>", "code": -1, "data": []}
//
// Upstream business errors (valid JSON with a non-zero code) pass through
// untouched. Do exposes the same call with a typed error for callers that
// need to tell failures apart.
//
// # Thread Safety
//
// A Client holds only immutable configuration and a shared http.Client, so
// any number of calls may be in flight concurrently.
//
// There are no retries, no caching and no queuing in this package.
package ecovacs
