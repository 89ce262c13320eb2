// Package http is the message layer of the client. [NewRequest] builds the
// browser-like request for a URL, [EncodeRequest] renders it, and
// [ParseResponse] turns the bytes read back into a [Response] with transfer
// and content codings removed and set-cookie headers parsed.
//
// [IsComplete] tells a reader when to stop reading from a connection that
// stays open.
//
// RFC 9110 and RFC 9112 are followed for framing. Responses are read
// leniently since real servers are not always strict.
package http
