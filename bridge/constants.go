// Package bridge holds application-wide constants shared by the chatbridge
// subpackages.
package bridge

const (
	// DefaultAppName is the canonical application name, used for config
	// lookup paths and the env variable prefix.
	DefaultAppName = "chatbridge"

	// DefaultConfigPath is the fallback config directory.
	DefaultConfigPath = "/etc/chatbridge"

	// DefaultUsersDBPath is the embedded libsql database for user
	// registrations.
	DefaultUsersDBPath = "./data/chatbridge.db"
)

// SignatureHeader is the webhook header carrying the base64 RSA signature
// computed by the chat provider over the raw request body.
const SignatureHeader = "x-siqsignature"

// FallbackAnswer is delivered whenever orchestration fails or the completion
// service yields no text. The provider's pending conversation must never be
// left without a final reply.
const FallbackAnswer = "⚠️ Your request could not be processed at this time. Please try again."
