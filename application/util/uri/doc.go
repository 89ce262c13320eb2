// Package uri models the request targets of a conversation.
//
// A [URL] is reduced to scheme, domain, port, path segments, query and
// fragment. Two URLs name the same resource when domain, port and path
// match; scheme and fragment are ignored so that cookie and redirect
// bookkeeping treat http and https variants of a page alike.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986
package uri
