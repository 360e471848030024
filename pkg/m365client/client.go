// Package m365client implements the directory surface the audit links
// consume. Exchange Online data comes from the admin REST endpoint's
// InvokeCommand API; tenant and per-user authentication data comes from
// Microsoft Graph.
package m365client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/lanternsec/lantern/pkg/types"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
)

const (
	exoScope   = "https://outlook.office365.com/.default"
	exoBaseURL = "https://outlook.office365.com/adminapi/beta"
)

// TenantProvider is the optional tenant metadata surface. The audit links
// probe for it so fakes without tenant data still satisfy the directory
// interface.
type TenantProvider interface {
	TenantDetails(ctx context.Context) (name, id string, err error)
}

// Client talks to one organization. It is safe for concurrent use; the
// underlying transports carry their own retry and backoff behavior.
type Client struct {
	organization string
	cred         azcore.TokenCredential
	httpClient   *http.Client
	graph        *msgraphsdk.GraphServiceClient
	baseURL      string
}

func New(organization string) (*Client, error) {
	if organization == "" {
		return nil, errors.New("organization must not be empty")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get Azure credentials: %w", err)
	}

	graphClient, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{"https://graph.microsoft.com/.default"})
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph client: %w", err)
	}

	return &Client{
		organization: organization,
		cred:         cred,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		graph:        graphClient,
		baseURL:      exoBaseURL,
	}, nil
}

type cmdletInput struct {
	CmdletName string         `json:"CmdletName"`
	Parameters map[string]any `json:"Parameters,omitempty"`
}

type invokeRequest struct {
	CmdletInput cmdletInput `json:"CmdletInput"`
}

type invokeResponse struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// invokeCommand runs one Exchange Online cmdlet through the admin REST
// endpoint and follows @odata.nextLink until the result set is drained.
func (c *Client) invokeCommand(ctx context.Context, cmdlet string, params map[string]any) ([]json.RawMessage, error) {
	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{exoScope}})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire Exchange Online token: %w", err)
	}

	body, err := json.Marshal(invokeRequest{CmdletInput: cmdletInput{CmdletName: cmdlet, Parameters: params}})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/InvokeCommand", c.baseURL, c.organization)

	var rows []json.RawMessage
	method := http.MethodPost
	payload := body

	for url != "" {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token.Token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", cmdlet, err)
		}

		page, err := decodeInvokeResponse(resp, cmdlet)
		if err != nil {
			return nil, err
		}

		rows = append(rows, page.Value...)

		// Continuation pages are fetched with GET.
		url = page.NextLink
		method = http.MethodGet
		payload = nil
	}

	return rows, nil
}

func decodeInvokeResponse(resp *http.Response, cmdlet string) (*invokeResponse, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", cmdlet, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &cmdletError{cmdlet: cmdlet, status: resp.StatusCode, body: truncateBody(raw)}
	}

	var page invokeResponse
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", cmdlet, err)
	}
	return &page, nil
}

type cmdletError struct {
	cmdlet string
	status int
	body   string
}

func (e *cmdletError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.cmdlet, e.status, e.body)
}

// notFound reports whether a cmdlet error means the identity does not exist
// rather than the call failing.
func (e *cmdletError) notFound() bool {
	return e.status == http.StatusNotFound ||
		strings.Contains(e.body, "ManagementObjectNotFoundException") ||
		strings.Contains(e.body, "couldn't be found")
}

// notMailbox reports whether the error means the object has no mailbox
// permission table at all, as opposed to the query failing.
func (e *cmdletError) notMailbox() bool {
	return e.notFound() || strings.Contains(e.body, "is not a mailbox")
}

func truncateBody(raw []byte) string {
	const max = 512
	s := string(raw)
	if len(s) > max {
		return s[:max]
	}
	return s
}

// ---- wire shapes ----

type exoAuthPolicy struct {
	Name                       string `json:"Name"`
	AllowBasicAuthPop          bool   `json:"AllowBasicAuthPop"`
	AllowBasicAuthImap         bool   `json:"AllowBasicAuthImap"`
	AllowBasicAuthSmtp         bool   `json:"AllowBasicAuthSmtp"`
	AllowBasicAuthActiveSync   bool   `json:"AllowBasicAuthActiveSync"`
	AllowBasicAuthAutodiscover bool   `json:"AllowBasicAuthAutodiscover"`
	AllowBasicAuthWebServices  bool   `json:"AllowBasicAuthWebServices"`
	AllowBasicAuthPowershell   bool   `json:"AllowBasicAuthPowershell"`
	AllowBasicAuthMapi         bool   `json:"AllowBasicAuthMapi"`
}

type exoUser struct {
	UserPrincipalName    string `json:"UserPrincipalName"`
	DisplayName          string `json:"DisplayName"`
	AuthenticationPolicy string `json:"AuthenticationPolicy"`
	RecipientTypeDetails string `json:"RecipientTypeDetails"`
}

type exoRecipient struct {
	Identity             string   `json:"Identity"`
	PrimarySmtpAddress   string   `json:"PrimarySmtpAddress"`
	RecipientTypeDetails string   `json:"RecipientTypeDetails"`
	GrantSendOnBehalfTo  []string `json:"GrantSendOnBehalfTo"`
}

type exoPermission struct {
	Trustee      string   `json:"Trustee"`
	User         string   `json:"User"`
	AccessRights []string `json:"AccessRights"`
	IsInherited  bool     `json:"IsInherited"`
	Deny         bool     `json:"Deny"`
}

// ---- DirectoryClient implementation ----

// ListAuthPolicies returns the tenant's authentication policies.
func (c *Client) ListAuthPolicies(ctx context.Context) ([]types.AuthPolicy, error) {
	rows, err := c.invokeCommand(ctx, "Get-AuthenticationPolicy", nil)
	if err != nil {
		return nil, err
	}

	policies := make([]types.AuthPolicy, 0, len(rows))
	for _, row := range rows {
		var p exoAuthPolicy
		if err := json.Unmarshal(row, &p); err != nil {
			return nil, fmt.Errorf("failed to decode authentication policy: %w", err)
		}
		policies = append(policies, types.AuthPolicy{
			Name:              types.PolicyName(p.Name),
			AllowPop:          p.AllowBasicAuthPop,
			AllowImap:         p.AllowBasicAuthImap,
			AllowSmtp:         p.AllowBasicAuthSmtp,
			AllowActiveSync:   p.AllowBasicAuthActiveSync,
			AllowAutodiscover: p.AllowBasicAuthAutodiscover,
			AllowWebServices:  p.AllowBasicAuthWebServices,
			AllowPowershell:   p.AllowBasicAuthPowershell,
			AllowMapi:         p.AllowBasicAuthMapi,
		})
	}
	return policies, nil
}

// ListPrincipals returns every user principal in the tenant.
func (c *Client) ListPrincipals(ctx context.Context) ([]types.Principal, error) {
	rows, err := c.invokeCommand(ctx, "Get-User", map[string]any{"ResultSize": "Unlimited"})
	if err != nil {
		return nil, err
	}

	principals := make([]types.Principal, 0, len(rows))
	for _, row := range rows {
		var u exoUser
		if err := json.Unmarshal(row, &u); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		principals = append(principals, types.Principal{
			Identity:       u.UserPrincipalName,
			DisplayName:    u.DisplayName,
			Kind:           recipientKindFromDetails(u.RecipientTypeDetails),
			AssignedPolicy: types.PolicyName(u.AuthenticationPolicy),
		})
	}
	return principals, nil
}

// ListRecipients returns all recipient objects of one kind.
func (c *Client) ListRecipients(ctx context.Context, kind types.RecipientKind) ([]types.RecipientObject, error) {
	cmdlet, params, err := recipientQuery(kind)
	if err != nil {
		return nil, err
	}

	rows, err := c.invokeCommand(ctx, cmdlet, params)
	if err != nil {
		return nil, err
	}

	recipients := make([]types.RecipientObject, 0, len(rows))
	for _, row := range rows {
		var r exoRecipient
		if err := json.Unmarshal(row, &r); err != nil {
			return nil, fmt.Errorf("failed to decode recipient: %w", err)
		}
		recipients = append(recipients, types.RecipientObject{
			Identity:       r.Identity,
			PrimaryAddress: r.PrimarySmtpAddress,
			Kind:           kind,
			DelegateRefs:   r.GrantSendOnBehalfTo,
		})
	}
	return recipients, nil
}

func recipientQuery(kind types.RecipientKind) (string, map[string]any, error) {
	switch kind {
	case types.UserMailbox:
		return "Get-Mailbox", map[string]any{"RecipientTypeDetails": "UserMailbox", "ResultSize": "Unlimited"}, nil
	case types.SharedMailbox:
		return "Get-Mailbox", map[string]any{"RecipientTypeDetails": "SharedMailbox", "ResultSize": "Unlimited"}, nil
	case types.DistributionGroup:
		return "Get-DistributionGroup", map[string]any{"ResultSize": "Unlimited"}, nil
	case types.UnifiedGroup:
		return "Get-UnifiedGroup", map[string]any{"ResultSize": "Unlimited"}, nil
	default:
		return "", nil, fmt.Errorf("unsupported recipient kind %q", kind)
	}
}

// ResolveDelegateReference maps a raw delegate reference to its primary SMTP
// address. An unknown reference is a miss, not an error.
func (c *Client) ResolveDelegateReference(ctx context.Context, ref string) (string, bool, error) {
	rows, err := c.invokeCommand(ctx, "Get-Recipient", map[string]any{"Identity": ref})
	if err != nil {
		var ce *cmdletError
		if errors.As(err, &ce) && ce.notFound() {
			return "", false, nil
		}
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}

	var r exoRecipient
	if err := json.Unmarshal(rows[0], &r); err != nil {
		return "", false, fmt.Errorf("failed to decode recipient: %w", err)
	}
	if r.PrimarySmtpAddress == "" {
		return "", false, nil
	}
	return r.PrimarySmtpAddress, true, nil
}

// GetExplicitPermissions returns the recipient's permission table: trustee
// rights always, mailbox rights when the object is a mailbox. Deny entries
// never grant anything and are dropped here.
func (c *Client) GetExplicitPermissions(ctx context.Context, recipientID string) ([]types.ExplicitPermission, error) {
	rows, err := c.invokeCommand(ctx, "Get-RecipientPermission", map[string]any{"Identity": recipientID})
	if err != nil {
		return nil, err
	}

	perms := make([]types.ExplicitPermission, 0, len(rows))
	for _, row := range rows {
		var p exoPermission
		if err := json.Unmarshal(row, &p); err != nil {
			return nil, fmt.Errorf("failed to decode recipient permission: %w", err)
		}
		if p.Deny {
			continue
		}
		perms = append(perms, types.ExplicitPermission{
			Holder:    p.Trustee,
			Rights:    p.AccessRights,
			Inherited: p.IsInherited,
		})
	}

	// Mailbox rights are not defined for groups. Only a not-a-mailbox answer
	// is ignorable here; a throttle or auth failure must surface so the run
	// is not reported as complete.
	mailboxRows, err := c.invokeCommand(ctx, "Get-MailboxPermission", map[string]any{"Identity": recipientID})
	if err != nil {
		var ce *cmdletError
		if errors.As(err, &ce) && ce.notMailbox() {
			return perms, nil
		}
		return nil, err
	}

	for _, row := range mailboxRows {
		var p exoPermission
		if err := json.Unmarshal(row, &p); err != nil {
			return nil, fmt.Errorf("failed to decode mailbox permission: %w", err)
		}
		if p.Deny {
			continue
		}
		perms = append(perms, types.ExplicitPermission{
			Holder:    p.User,
			Rights:    p.AccessRights,
			Inherited: p.IsInherited,
		})
	}

	return perms, nil
}

// TenantModernAuthEnabled reads the organization-wide modern auth switch.
func (c *Client) TenantModernAuthEnabled(ctx context.Context) (bool, error) {
	rows, err := c.invokeCommand(ctx, "Get-OrganizationConfig", nil)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, errors.New("organization config returned no rows")
	}

	var cfg struct {
		OAuth2ClientProfileEnabled bool `json:"OAuth2ClientProfileEnabled"`
	}
	if err := json.Unmarshal(rows[0], &cfg); err != nil {
		return false, fmt.Errorf("failed to decode organization config: %w", err)
	}
	return cfg.OAuth2ClientProfileEnabled, nil
}

func recipientKindFromDetails(details string) types.RecipientKind {
	switch details {
	case "UserMailbox":
		return types.UserMailbox
	case "SharedMailbox":
		return types.SharedMailbox
	case "MailUniversalDistributionGroup", "MailUniversalSecurityGroup", "MailNonUniversalGroup":
		return types.DistributionGroup
	case "GroupMailbox":
		return types.UnifiedGroup
	default:
		return types.UnspecifiedRecipient
	}
}
