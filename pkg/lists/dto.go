package lists

// ContactListPage is one page of list membership as returned by
// GET /contacts/v1/lists/:listId/contacts/all.
type ContactListPage struct {
	Contacts []Contact `json:"contacts"`

	// HasMore is true when another page can be fetched with VidOffset.
	HasMore bool `json:"has-more"`

	// VidOffset is the cursor for the next page.
	VidOffset int64 `json:"vid-offset"`
}

// NextOptions returns the options for the page after p, keeping the page size.
// It returns nil when there are no more pages.
func (p *ContactListPage) NextOptions(pageSize int) *RequestOptions {
	if p == nil || !p.HasMore {
		return nil
	}
	return &RequestOptions{PageSize: pageSize, Offset: Offset(p.VidOffset)}
}

// Contact is a list member.
type Contact struct {
	Vid              int64                      `json:"vid"`
	CanonicalVid     int64                      `json:"canonical-vid"`
	PortalID         int64                      `json:"portal-id"`
	IsContact        bool                       `json:"is-contact"`
	AddedAt          int64                      `json:"addedAt,omitempty"`
	Properties       map[string]ContactProperty `json:"properties,omitempty"`
	IdentityProfiles []IdentityProfile          `json:"identity-profiles,omitempty"`
}

// Property returns the value of a contact property, or "" when absent.
func (c Contact) Property(name string) string {
	return c.Properties[name].Value
}

// ContactProperty is a single property value.
type ContactProperty struct {
	Value string `json:"value"`
}

// IdentityProfile groups the identities (email, lead guid) of a contact.
type IdentityProfile struct {
	Vid        int64      `json:"vid"`
	Identities []Identity `json:"identities"`
}

// Identity is one identifier of a contact.
type Identity struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
	IsPrimary bool   `json:"is-primary,omitempty"`
}

// BatchPayload is the request body of the add and remove operations.
// Contacts can be referenced by vid, by email or both.
type BatchPayload struct {
	Vids   []int64  `json:"vids,omitempty"`
	Emails []string `json:"emails,omitempty"`
}

// Len returns the number of contacts referenced by the payload.
func (p *BatchPayload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Vids) + len(p.Emails)
}

// BatchResult is the response body of the add and remove operations.
type BatchResult struct {
	Updated       []int64  `json:"updated"`
	Discarded     []int64  `json:"discarded"`
	InvalidVids   []int64  `json:"invalidVids"`
	InvalidEmails []string `json:"invalidEmails"`
}
