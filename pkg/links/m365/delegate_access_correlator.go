package m365

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lanternsec/lantern/pkg/links/options"
	"github.com/lanternsec/lantern/pkg/m365client"
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/lanternsec/lantern/pkg/utils"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// CorrelationStats closes out a delegate access scan: how many recipients
// were examined and how many per-record operations failed.
type CorrelationStats struct {
	Target    string
	Processed int
	Errors    int
}

// Correlator extracts the delegation grants a target principal holds on a
// single recipient object. The three checks (SendAs, SendOnBehalf,
// FullAccess) are independent: a failing check logs a warning and
// contributes zero grants while the others still run. Each check returns its
// own findings; nothing here mutates shared state, so checks run
// concurrently.
type Correlator struct {
	dir      DirectoryClient
	resolver *DelegateResolver
}

func NewCorrelator(dir DirectoryClient) *Correlator {
	return &Correlator{
		dir:      dir,
		resolver: NewDelegateResolver(dir),
	}
}

// Correlate returns the grants target holds on recipient plus the number of
// warnings raised along the way. A recipient with no delegates and no
// explicit permissions legitimately yields zero grants.
func (c *Correlator) Correlate(ctx context.Context, target string, recipient types.RecipientObject) ([]types.PermissionGrant, int) {
	var wg sync.WaitGroup

	var sendAs, sendOnBehalf, fullAccess []types.PermissionGrant
	var sendAsWarn, sendOnBehalfWarn, fullAccessWarn int

	wg.Add(1)
	go func() {
		defer wg.Done()
		sendAs, sendAsWarn = c.checkSendAs(ctx, target, recipient)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sendOnBehalf, sendOnBehalfWarn = c.checkSendOnBehalf(ctx, target, recipient)
	}()

	// FullAccess is a mailbox right; groups are never checked.
	if !recipient.Kind.IsGroup() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fullAccess, fullAccessWarn = c.checkFullAccess(ctx, target, recipient)
		}()
	}

	wg.Wait()

	grants := make([]types.PermissionGrant, 0, len(sendAs)+len(sendOnBehalf)+len(fullAccess))
	grants = append(grants, sendAs...)
	grants = append(grants, sendOnBehalf...)
	grants = append(grants, fullAccess...)

	return grants, sendAsWarn + sendOnBehalfWarn + fullAccessWarn
}

// checkSendAs scans the recipient's explicit trustee rights for a SendAs
// entry held by the target. Inherited rows never count.
func (c *Correlator) checkSendAs(ctx context.Context, target string, recipient types.RecipientObject) ([]types.PermissionGrant, int) {
	perms, err := c.dir.GetExplicitPermissions(ctx, recipient.Identity)
	if err != nil {
		slog.Warn("SendAs check failed", "recipient", recipient.Identity, "error", err)
		return nil, 1
	}

	var grants []types.PermissionGrant
	for _, perm := range perms {
		if perm.Inherited {
			continue
		}
		if !rightsContain(perm.Rights, string(types.AccessSendAs)) {
			continue
		}
		if utils.NormalizeAddress(perm.Holder) != utils.NormalizeAddress(target) {
			continue
		}
		grants = append(grants, newGrant(recipient, target, types.AccessSendAs))
	}
	return grants, 0
}

// checkSendOnBehalf resolves each raw delegate reference to a canonical
// address and emits a grant when it lands on the target. Unresolvable
// references are skipped with a warning, not treated as fatal.
func (c *Correlator) checkSendOnBehalf(ctx context.Context, target string, recipient types.RecipientObject) ([]types.PermissionGrant, int) {
	var grants []types.PermissionGrant
	warnings := 0

	for _, ref := range recipient.DelegateRefs {
		address, found, err := c.resolver.Resolve(ctx, ref)
		if err != nil {
			slog.Warn("delegate reference lookup failed", "recipient", recipient.Identity, "ref", ref, "error", err)
			warnings++
			continue
		}
		if !found {
			slog.Warn("delegate reference did not resolve to a recipient", "recipient", recipient.Identity, "ref", ref)
			warnings++
			continue
		}
		if utils.NormalizeAddress(address) == utils.NormalizeAddress(target) {
			grants = append(grants, newGrant(recipient, target, types.AccessSendOnBehalf))
		}
	}

	return grants, warnings
}

// checkFullAccess scans explicit, non-inherited rights for a FullAccess
// entry whose holder refers to the target. Holder strings may be
// domain-qualified, so matching is normalized containment; see
// utils.HolderMatches for the known imprecision.
func (c *Correlator) checkFullAccess(ctx context.Context, target string, recipient types.RecipientObject) ([]types.PermissionGrant, int) {
	perms, err := c.dir.GetExplicitPermissions(ctx, recipient.Identity)
	if err != nil {
		slog.Warn("FullAccess check failed", "recipient", recipient.Identity, "error", err)
		return nil, 1
	}

	var grants []types.PermissionGrant
	for _, perm := range perms {
		if perm.Inherited {
			continue
		}
		if !rightsContain(perm.Rights, string(types.AccessFullAccess)) {
			continue
		}
		if !utils.HolderMatches(perm.Holder, target) {
			continue
		}
		grants = append(grants, newGrant(recipient, target, types.AccessFullAccess))
	}
	return grants, 0
}

func newGrant(recipient types.RecipientObject, grantee string, right types.AccessRight) types.PermissionGrant {
	return types.PermissionGrant{
		ObjectKind:  recipient.Kind,
		GroupKind:   groupKind(recipient.Kind),
		ObjectName:  recipient.Identity,
		Grantee:     grantee,
		AccessRight: right,
	}
}

func groupKind(kind types.RecipientKind) string {
	switch kind {
	case types.DistributionGroup:
		return "Distribution"
	case types.UnifiedGroup:
		return "Unified"
	default:
		return ""
	}
}

func rightsContain(rights []string, want string) bool {
	for _, r := range rights {
		if utils.NormalizeAddress(r) == utils.NormalizeAddress(want) {
			return true
		}
	}
	return false
}

// DelegateAccessCorrelatorLink fans recipient records out to a bounded
// worker pool running the Correlator. Grants stream downstream as they are
// found; Complete flushes the stats record once every worker has drained.
type DelegateAccessCorrelatorLink struct {
	*chain.Base

	dir        DirectoryClient
	correlator *Correlator
	target     string

	work    chan types.RecipientObject
	workers sync.WaitGroup

	mu        sync.Mutex
	processed int
	errors    int
	sendErr   error
}

func NewDelegateAccessCorrelatorLink(configs ...cfg.Config) chain.Link {
	l := &DelegateAccessCorrelatorLink{}
	l.Base = chain.NewBase(l, configs...)
	return l
}

func (l *DelegateAccessCorrelatorLink) Params() []cfg.Param {
	return []cfg.Param{
		options.M365Organization(),
		options.M365TargetAddress(),
		options.WorkerCount(),
	}
}

func (l *DelegateAccessCorrelatorLink) Process(input any) error {
	switch v := input.(type) {
	case TenantInfo:
		// Pass through for the aggregator.
		return l.Send(v)
	case types.RecipientObject:
		if err := l.ensureStarted(); err != nil {
			return err
		}
		l.work <- v
		return nil
	default:
		return fmt.Errorf("expected RecipientObject, got %T", input)
	}
}

func (l *DelegateAccessCorrelatorLink) ensureStarted() error {
	if l.work != nil {
		return nil
	}

	target, err := cfg.As[string](l.Arg("target"))
	if err != nil || target == "" {
		return fmt.Errorf("target address is required: %w", err)
	}
	l.target = target

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
	l.correlator = NewCorrelator(l.dir)

	workers, err := cfg.As[int](l.Arg("workers"))
	if err != nil || workers < 1 {
		workers = 5
	}

	l.work = make(chan types.RecipientObject, workers)
	for i := 0; i < workers; i++ {
		l.workers.Add(1)
		go l.worker()
	}

	slog.Info("correlating delegate access", "target", l.target, "workers", workers)
	return nil
}

func (l *DelegateAccessCorrelatorLink) worker() {
	defer l.workers.Done()
	ctx := l.Context()

	for recipient := range l.work {
		if ctx.Err() != nil {
			// Cooperative abort: stop issuing directory calls but keep
			// draining so Complete can flush what was already computed.
			continue
		}

		grants, warnings := l.correlator.Correlate(ctx, l.target, recipient)

		l.mu.Lock()
		l.processed++
		l.errors += warnings
		for _, grant := range grants {
			if err := l.Send(grant); err != nil && l.sendErr == nil {
				l.sendErr = err
			}
		}
		l.mu.Unlock()
	}
}

func (l *DelegateAccessCorrelatorLink) Complete() error {
	if l.work == nil {
		// No recipients at all still produces a well-formed empty report.
		target, _ := cfg.As[string](l.Arg("target"))
		return l.Send(CorrelationStats{Target: target})
	}

	close(l.work)
	l.workers.Wait()

	if l.sendErr != nil {
		return l.sendErr
	}

	slog.Info("delegate access correlation complete", "processed", l.processed, "warnings", l.errors)
	return l.Send(CorrelationStats{Target: l.target, Processed: l.processed, Errors: l.errors})
}
