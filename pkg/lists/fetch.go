package lists

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// fetchPage issues a GET for one page of template and decodes the body into T.
// opts must already carry a page size.
func fetchPage[T any](ctx context.Context, c *Client, template PathTemplate, listID int64, opts RequestOptions) (T, error) {
	var out T

	u := c.resolveURL(template, listID, opts.query())

	event := c.logger.Debug().
		Str("action", ActionFetchPage.String()).
		Int64("list_id", listID).
		Int("count", opts.PageSize).
		Str("url", u)
	if opts.Offset != nil {
		event = event.Int64("vid_offset", *opts.Offset)
	}
	event.Msg("Fetching list page")

	status, body, err := c.transport.Send(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, wrapTransportError(http.MethodGet, u, err)
	}

	if !isSuccess(status) {
		c.logger.Warn().
			Int64("list_id", listID).
			Int("status", status).
			Msg("List fetch rejected by HubSpot")
		return out, &APIError{StatusCode: status, Body: string(body)}
	}

	if err := c.serializer.Unmarshal(body, &out); err != nil {
		return out, &DeserializationError{
			Type: fmt.Sprintf("%T", out),
			Body: body,
			Err:  err,
		}
	}

	return out, nil
}

func wrapTransportError(method, u string, err error) error {
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return err
	}
	return &TransportError{Method: method, URL: u, Err: err}
}

// fetchOutcome maps an operation error to its metric label.
func fetchOutcome(err error) string {
	var (
		apiErr    *APIError
		decodeErr *DeserializationError
		encodeErr *SerializationError
		tErr      *TransportError
	)
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.As(err, &apiErr):
		return outcomeAPIError
	case errors.As(err, &decodeErr), errors.As(err, &encodeErr):
		return outcomeDecode
	case errors.As(err, &tErr):
		return outcomeTransport
	default:
		return outcomeInvalidCall
	}
}
