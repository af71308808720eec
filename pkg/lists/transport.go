package lists

import (
	"context"
	"net/http"
)

// Transport sends a single HTTP request to HubSpot.
//
// Implementations own connection handling, credential injection and any
// retry policy. A non-nil error means the exchange failed; any status code
// that was received is reported through status with a nil error.
//
// Page fetches arrive as GET with a nil body. List add and remove calls
// always arrive as POST (batchMethod) with the encoded BatchPayload.
type Transport interface {
	Send(ctx context.Context, method, url string, body []byte) (status int, respBody []byte, err error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, method, url string, body []byte) (int, []byte, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	return f(ctx, method, url, body)
}

// batchMethod is the verb of list add and remove calls.
const batchMethod = http.MethodPost

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
