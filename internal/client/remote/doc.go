// Package remote is the remote store client: it publishes a file into a
// repository through the HTTPS contents API and returns its raw-content URL.
//
// # Protocol
//
//	GET {api}/repos/{owner/name}/contents/{folder}/{filename}?ref={branch}
//	PUT {api}/repos/{owner/name}/contents/{folder}/{filename}
//	    {"message":"Upload <filename>","content":"<base64>","branch":"<b>","sha":"<rev>"}
//
// The GET lookup captures the current revision ("sha"). The PUT carries it
// only when one was observed, which makes replacement optimistic: the store
// refuses an update whose revision is stale or missing.
//
// # Errors
//
// Lookup failures are absorbed. A PUT that cannot be sent yields
// *common.TransportError; any status other than 200/201 yields
// *common.RemoteRejectedError with the status and response body.
package remote
