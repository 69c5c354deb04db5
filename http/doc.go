// Package http provides the HTTP transport for filedepot collections.
//
// The router exposes one route group per concern:
//
//	POST   /{collection}                             upload (session protocol)
//	GET    /{collection}                             list tracked records
//	GET    /{collection}/{id}/{version}/{filename}   download one version
//	GET    /{collection}/*                           public-collection serving
//	DELETE /{collection}/{id}                        cascading removal
//
// Uploads run the full session protocol inside one request: the descriptor
// is prepared and authorized, the pending marker is tracked and the
// initiate hook fired as the body starts streaming into storage, and the
// record is committed on finish. Downloads delegate to the collection's
// download flow, which owns interception, stat/404 handling, and
// single-range streaming.
//
// Authentication is pluggable through RequestVerifier; reads and writes
// can be verified independently. CORS is handled by go-chi/cors.
package http
