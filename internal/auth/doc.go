// Package auth provides the token and authorization primitives of the
// security service.
//
// This package implements:
//   - Claims minting and expiry judgement (ClaimsPolicy)
//   - Compact HS256 token issuance and verification (Codec)
//   - The Principal capability consumed by request authentication
//   - Role/authority checks used by route-level authorization
//
// Tokens are never stored server-side. A token is trusted only when its
// signature validates under the process-wide secret and its expiry is
// strictly in the future.
package auth
