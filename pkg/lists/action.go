package lists

import (
	"fmt"
	"strconv"
	"strings"
)

// ListIDToken is the placeholder replaced by the list id in a PathTemplate.
const ListIDToken = ":listId:"

// Action selects the path template and HTTP verb of a list operation.
type Action int

const (
	// ActionFetchPage reads one page of list membership.
	ActionFetchPage Action = iota + 1

	// ActionAddBatch adds a batch of contacts to a list.
	ActionAddBatch

	// ActionRemoveBatch removes a batch of contacts from a list.
	ActionRemoveBatch
)

// String returns the metric/log label of the action.
func (a Action) String() string {
	switch a {
	case ActionFetchPage:
		return "fetch_page"
	case ActionAddBatch:
		return "add_batch"
	case ActionRemoveBatch:
		return "remove_batch"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// PathTemplate is a URL path containing the ListIDToken placeholder.
type PathTemplate string

// ResolvePath maps an entity route base and an action to its path template.
//
// Example:
//
//	ResolvePath("/contacts/v1", ActionAddBatch) // "/contacts/v1/lists/:listId:/add"
func ResolvePath(routeBase string, action Action) (PathTemplate, error) {
	if routeBase == "" {
		return "", ErrInvalidRouteBase
	}

	switch action {
	case ActionFetchPage:
		return PathTemplate(routeBase + "/lists/" + ListIDToken + "/contacts/all"), nil
	case ActionAddBatch:
		return PathTemplate(routeBase + "/lists/" + ListIDToken + "/add"), nil
	case ActionRemoveBatch:
		return PathTemplate(routeBase + "/lists/" + ListIDToken + "/remove"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAction, action)
	}
}

// Expand substitutes the list id into the template.
func (p PathTemplate) Expand(listID int64) string {
	return strings.Replace(string(p), ListIDToken, strconv.FormatInt(listID, 10), 1)
}
