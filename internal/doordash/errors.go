package doordash

import (
	"fmt"
	"strings"
)

// The order history endpoint is an undocumented consumer API that changes
// without notice. When it breaks we want the failure to say whether the
// query itself went stale (schema drift), the API rejected us outright,
// or the response simply wasn't GraphQL-shaped — each is triaged differently.

// driftMarkers are query/field names whose appearance in a GraphQL error
// message means the upstream schema no longer matches ordersQuery.
var driftMarkers = []string{"getConsumerOrdersWithDetails", "ordersHistory"}

// SchemaDriftError signals that DoorDash changed the order history GraphQL
// contract and ordersQuery must be re-captured from the web client.
type SchemaDriftError struct {
	Detail string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf(
		"doordash changed the order history GraphQL query (%s): capture the new query from "+
			"the GraphQL calls in the browser DevTools network tab and update ordersQuery to match",
		e.Detail)
}

// APIError is an explicit GraphQL-level error unrelated to schema drift.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("doordash API error: %s", e.Message)
}

// MalformedResponseError means the response body was missing the expected
// top-level GraphQL structure entirely.
type MalformedResponseError struct {
	Keys []string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unexpected API response structure: expected a %q key but got keys %v",
		"data", e.Keys)
}

// classifyGraphQLError maps a top-level GraphQL error message to either a
// schema drift or a generic API error.
func classifyGraphQLError(msg string) error {
	for _, marker := range driftMarkers {
		if strings.Contains(msg, marker) {
			return &SchemaDriftError{Detail: msg}
		}
	}
	return &APIError{Message: msg}
}
