// Package identity wraps the external OAuth identity provider used by the
// login flow. The dispatcher only needs the code-for-profile exchange: it
// redirects the browser to the provider, receives an authorization code on
// the callback, and trades it for a token, name, and email. Token contents
// are opaque.
package identity
