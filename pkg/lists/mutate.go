package lists

import (
	"context"
)

// mutateBatch sends payload to template for listID. It returns true on a
// 2xx response and false on any other well-formed response; an error is
// returned only when the payload cannot be encoded or the exchange failed.
func (c *Client) mutateBatch(ctx context.Context, template PathTemplate, listID int64, payload *BatchPayload) (bool, error) {
	u := c.resolveURL(template, listID, nil)

	body, err := c.serializer.Marshal(payload)
	if err != nil {
		return false, &SerializationError{Err: err}
	}

	method := batchMethod

	c.logger.Debug().
		Int64("list_id", listID).
		Int("vids", len(payload.Vids)).
		Int("emails", len(payload.Emails)).
		Str("method", method).
		Str("url", u).
		Msg("Sending list batch mutation")

	status, respBody, err := c.transport.Send(ctx, method, u, body)
	if err != nil {
		return false, wrapTransportError(method, u, err)
	}

	if !isSuccess(status) {
		c.logger.Warn().
			Int64("list_id", listID).
			Int("status", status).
			Str("body", string(respBody)).
			Msg("List batch mutation rejected by HubSpot")
		return false, nil
	}

	return true, nil
}
