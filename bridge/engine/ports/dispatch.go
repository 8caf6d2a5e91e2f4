package ports

import "context"

// Dispatcher delivers out-of-band replies to the chat provider's callback
// API. Implementations must not retry against the provider: a duplicated
// final reply is worse than a lost one.
type Dispatcher interface {
	// SendProgress posts a short "still working" notice for the pending
	// request, extending the provider's timeout.
	SendProgress(ctx context.Context, requestID string) error

	// SendFinal posts the final answer, completing the pending request.
	SendFinal(ctx context.Context, requestID, text string) error
}
