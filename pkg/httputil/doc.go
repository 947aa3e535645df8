// Package httputil provides the JSON response envelope used by every API
// route, request parsing helpers, and generic HTTP middleware (request IDs,
// request logging, panic recovery).
//
// All responses share one envelope shape:
//
//	{"success": true,  "data": {...}}
//	{"success": false, "error": "Invalid API key", "code": "UNAUTHORIZED"}
package httputil
