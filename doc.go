// Package credentialssdk is the root of the ledger credentials SDK.
//
// The SDK drives a distributed ledger's Credentials feature set over a node's
// WebSocket RPC API: issuing, accepting, listing, and revoking credentials,
// and configuring credential-gated deposit authorization. All hard protocol
// primitives — signing, serialization, submission — are delegated to the
// signer and transport packages; the clients here are deliberately thin.
//
// Packages:
//
//   - codec: pure translation between domain values and the hex/epoch wire form
//   - transport: the ledger RPC capability, wire types, and result codes
//   - transport/websocket: the WebSocket implementation of that capability
//   - signer: local and remote transaction signing, wallet derivation
//   - credential: the credential lifecycle client
//   - depositauth: the deposit-authorization configurator
//   - config: connection defaults and the script handoff store
//
// See examples/ for end-to-end walk-throughs.
package credentialssdk
