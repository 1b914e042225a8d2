package config

// UnknownFieldPolicy governs what happens to a part whose field name
// is not claimed by the configured Selector.
type UnknownFieldPolicy int

const (
	// PolicyIgnore silently drains and discards unclaimed parts. This
	// is the default.
	PolicyIgnore UnknownFieldPolicy = iota
	// PolicyReject fails the request with UnexpectedFieldError the
	// moment an unclaimed part's headers are parsed.
	PolicyReject
)
