package m365client

import (
	"context"
	"fmt"
	"strings"

	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
)

// TenantDetails returns the tenant display name and ID from Graph.
func (c *Client) TenantDetails(ctx context.Context) (string, string, error) {
	result, err := c.graph.Organization().Get(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to get organization details: %w", err)
	}

	orgs := result.GetValue()
	if len(orgs) == 0 {
		return "", "", fmt.Errorf("no organization details found")
	}

	org := orgs[0]
	var name, id string
	if org.GetDisplayName() != nil {
		name = *org.GetDisplayName()
	}
	if org.GetId() != nil {
		id = *org.GetId()
	}
	return name, id, nil
}

// AuthMethods returns the registered authentication method types for one
// principal, e.g. "passwordAuthenticationMethod" or "fido2AuthenticationMethod".
func (c *Client) AuthMethods(ctx context.Context, principalID string) ([]string, error) {
	result, err := c.graph.Users().ByUserId(principalID).Authentication().Methods().Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list authentication methods for %s: %w", principalID, err)
	}

	pageIterator, err := msgraphcore.NewPageIterator[models.AuthenticationMethodable](
		result, c.graph.GetAdapter(), models.CreateAuthenticationMethodCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("failed to create page iterator: %w", err)
	}

	var methods []string
	err = pageIterator.Iterate(ctx, func(method models.AuthenticationMethodable) bool {
		if odataType := method.GetOdataType(); odataType != nil {
			methods = append(methods, strings.TrimPrefix(*odataType, "#microsoft.graph."))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate authentication methods: %w", err)
	}

	return methods, nil
}
