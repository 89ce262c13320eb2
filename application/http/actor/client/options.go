package client

import (
	"time"

	"http-conversation/application/http"
)

type Options struct {
	// Port is used for secure targets whose URL has no port.
	// Plain targets default to 80.
	Port uint16

	// ForceSecure connects with TLS even for http targets.
	ForceSecure bool

	// KeepAlive asks the server to keep the connection open and reuses it
	// for the next exchange with the same endpoint.
	KeepAlive bool

	// MaxReferrals is how many redirects one Send follows.
	MaxReferrals uint

	// MaxRetries is how many attempts an exchange gets before failing.
	MaxRetries uint

	// RequestInterval is the minimum gap between two attempts.
	// Zero disables pacing.
	RequestInterval time.Duration

	Send    SendOptions
	Receive ReceiveOptions
	Timeout TimeoutOptions
}

type SendOptions struct {
	ExtendedHeaders bool
	// AcceptEncoding is sent as is. Empty omits the header.
	AcceptEncoding string
	UserAgent      string
}

type ReceiveOptions struct {
	Decode http.DecodeOptions

	// BufferSize is the size of a single socket read.
	BufferSize int
}

type TimeoutOptions struct {
	// Connect bounds resolving, dialing and the TLS handshake.
	Connect time.Duration
	// Receive bounds a single socket read. Expiry ends the response.
	Receive time.Duration
	// Response bounds reading a whole response. Zero means no limit.
	Response time.Duration
}

func DefaultOptions() Options {
	return Options{
		Port:         443,
		KeepAlive:    true,
		MaxReferrals: 10,
		MaxRetries:   5,
		Send: SendOptions{
			AcceptEncoding: http.DefaultAcceptEncoding,
			UserAgent:      http.DefaultUserAgent,
		},
		Receive: ReceiveOptions{
			Decode:     http.DefaultParseOptions.DecodeOptions,
			BufferSize: 4096,
		},
		Timeout: TimeoutOptions{
			Connect:  10 * time.Second,
			Receive:  5 * time.Second,
			Response: 30 * time.Second,
		},
	}
}
