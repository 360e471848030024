package m365

import (
	"fmt"
	"log/slog"

	"github.com/lanternsec/lantern/pkg/links/options"
	"github.com/lanternsec/lantern/pkg/m365client"
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// TenantInfo rides the chain ahead of recipient records so the aggregator
// can stamp reports with the tenant it audited.
type TenantInfo struct {
	TenantID   string
	TenantName string
}

// recipientKinds is the fixed scan order for delegate access audits.
var recipientKinds = []types.RecipientKind{
	types.UserMailbox,
	types.SharedMailbox,
	types.DistributionGroup,
	types.UnifiedGroup,
}

// DelegateAccessCollectorLink streams every recipient object in the tenant
// downstream, one bulk listing per recipient kind. Any bulk listing failure
// aborts the run: with no recipients there is nothing to correlate.
type DelegateAccessCollectorLink struct {
	*chain.Base

	dir DirectoryClient
}

func NewDelegateAccessCollectorLink(configs ...cfg.Config) chain.Link {
	l := &DelegateAccessCollectorLink{}
	l.Base = chain.NewBase(l, configs...)
	return l
}

func (l *DelegateAccessCollectorLink) Params() []cfg.Param {
	return []cfg.Param{
		options.M365Organization(),
	}
}

func (l *DelegateAccessCollectorLink) Process(input any) error {
	ctx := l.Context()

	if l.dir == nil {
		organization, err := cfg.As[string](l.Arg("organization"))
		if err != nil {
			return fmt.Errorf("organization is required: %w", err)
		}
		client, err := m365client.New(organization)
		if err != nil {
			return fmt.Errorf("failed to create directory client: %w", err)
		}
		l.dir = client
	}

	if tp, ok := l.dir.(m365client.TenantProvider); ok {
		if name, id, err := tp.TenantDetails(ctx); err == nil {
			if err := l.Send(TenantInfo{TenantID: id, TenantName: name}); err != nil {
				return err
			}
		} else {
			slog.Warn("could not read tenant details", "error", err)
		}
	}

	total := 0
	for _, kind := range recipientKinds {
		if ctx.Err() != nil {
			slog.Warn("collection interrupted, stopping recipient listing", "collected", total)
			break
		}

		recipients, err := l.dir.ListRecipients(ctx, kind)
		if err != nil {
			return fmt.Errorf("failed to list %s recipients: %w", kind, err)
		}
		slog.Info("collected recipients", "kind", kind, "count", len(recipients))

		for _, recipient := range recipients {
			if err := l.Send(recipient); err != nil {
				return err
			}
		}
		total += len(recipients)
	}

	slog.Info("recipient collection complete", "total", total)
	return nil
}
