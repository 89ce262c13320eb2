package client

import (
	"strings"

	"http-conversation/application/util/uri"
)

// ReferrerPolicy decides what is sent as Referer after a redirect.
// Reference: https://www.w3.org/TR/referrer-policy/#referrer-policies
type ReferrerPolicy string

const (
	PolicyDefault                     ReferrerPolicy = ""
	PolicyNoReferrer                  ReferrerPolicy = "no-referrer"
	PolicyNoReferrerWhenDowngrade     ReferrerPolicy = "no-referrer-when-downgrade"
	PolicyOrigin                      ReferrerPolicy = "origin"
	PolicyOriginWhenCrossOrigin       ReferrerPolicy = "origin-when-cross-origin"
	PolicySameOrigin                  ReferrerPolicy = "same-origin"
	PolicyStrictOrigin                ReferrerPolicy = "strict-origin"
	PolicyStrictOriginWhenCrossOrigin ReferrerPolicy = "strict-origin-when-cross-origin"
	PolicyUnsafeURL                   ReferrerPolicy = "unsafe-url"
)

var knownPolicies = map[ReferrerPolicy]struct{}{
	PolicyNoReferrer:                  {},
	PolicyNoReferrerWhenDowngrade:     {},
	PolicyOrigin:                      {},
	PolicyOriginWhenCrossOrigin:       {},
	PolicySameOrigin:                  {},
	PolicyStrictOrigin:                {},
	PolicyStrictOriginWhenCrossOrigin: {},
	PolicyUnsafeURL:                   {},
}

// ParseReferrerPolicy parses a Referrer-Policy header value.
// The last recognized token wins; unknown tokens are ignored.
func ParseReferrerPolicy(value string) ReferrerPolicy {
	policy := PolicyDefault
	for _, token := range strings.Split(value, ",") {
		p := ReferrerPolicy(strings.ToLower(strings.TrimSpace(token)))
		if _, ok := knownPolicies[p]; ok {
			policy = p
		}
	}
	return policy
}

// Referrer returns the Referer value for a request to "to" that was
// redirected from "from". Empty means no Referer.
func (p ReferrerPolicy) Referrer(from, to uri.URL) string {
	sameOrigin := from.SameOrigin(to)
	downgrade := from.IsSecure() && !to.IsSecure()

	switch p {
	case PolicyNoReferrer:
		return ""
	case PolicyNoReferrerWhenDowngrade:
		if downgrade {
			return ""
		}
		return from.Href()
	case PolicyOrigin:
		return from.Origin()
	case PolicyOriginWhenCrossOrigin:
		if sameOrigin {
			return from.Href()
		}
		return from.Origin()
	case PolicySameOrigin:
		if sameOrigin {
			return from.Href()
		}
		return ""
	case PolicyStrictOrigin:
		if downgrade {
			return ""
		}
		return from.Origin()
	case PolicyStrictOriginWhenCrossOrigin:
		switch {
		case sameOrigin && !downgrade:
			return from.Href()
		case downgrade:
			return ""
		}
		return from.Origin()
	case PolicyUnsafeURL:
		return from.Href()
	}

	// No policy given.
	if sameOrigin {
		return from.Href()
	}
	return from.Origin()
}
