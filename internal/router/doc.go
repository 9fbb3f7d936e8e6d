// Package router dispatches decoded chat frames to caller callbacks.
//
// The Router is a stateless dispatch table: each recognized discriminant
// maps to one optional callback in Handlers. Dispatch is total (malformed
// and unknown frames are logged and dropped, never raised) and preserves
// delivery order because it runs inline on the connection's read loop.
package router
