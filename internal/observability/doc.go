// Package observability builds the process logger.
//
// Components receive a *zap.Logger through their constructors. Request
// scoped fields such as the request id are attached at the call site.
package observability
