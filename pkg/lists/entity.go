package lists

// EntityDescriptor supplies the route base every path template is built on.
type EntityDescriptor interface {
	RouteBasePath() string
}

// ContactListEntity describes the HubSpot v1 contacts API.
type ContactListEntity struct{}

// RouteBasePath implements EntityDescriptor.
func (ContactListEntity) RouteBasePath() string {
	return "/contacts/v1"
}
