// Package lists provides a typed client for the HubSpot contact-list API.
//
// The package covers three operations against a single contact list:
//
//   - fetching one page of list membership (GetListByID, GetContacts)
//   - adding a batch of contacts to a list (AddBatch)
//   - removing a batch of contacts from a list (RemoveBatch)
//
// Every operation resolves a path template for its Action, substitutes the
// list id and query parameters, and hands the request to a Transport. The
// response body is decoded by a Serializer. Both collaborators are
// interfaces so tests can inject fakes; New wires them explicitly and
// NewDefault supplies the production implementations.
//
// # Basic Usage
//
//	c, err := lists.NewDefault(os.Getenv("HUBSPOT_API_KEY"))
//	if err != nil {
//		return err
//	}
//
//	page, err := c.GetContacts(ctx, 42, &lists.RequestOptions{PageSize: 100})
//	if err != nil {
//		return err
//	}
//
//	ok, err := c.AddBatch(ctx, &lists.BatchPayload{Vids: []int64{1, 2, 3}}, 42)
//
// # Errors
//
// Fetch failures are always returned as errors: *TransportError,
// *APIError or *DeserializationError. Batch mutations return false (and a
// nil error) when HubSpot answers with a well-formed non-success status and
// only return an error when the exchange itself failed.
package lists
