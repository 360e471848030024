package m365

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/lanternsec/lantern/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory is an in-memory DirectoryClient for correlator tests.
type fakeDirectory struct {
	permissions map[string][]types.ExplicitPermission
	permErr     error

	refs   map[string]string
	refErr map[string]error

	resolveCalls atomic.Int64
}

func (f *fakeDirectory) ListPrincipals(ctx context.Context) ([]types.Principal, error) {
	return nil, nil
}

func (f *fakeDirectory) ListAuthPolicies(ctx context.Context) ([]types.AuthPolicy, error) {
	return nil, nil
}

func (f *fakeDirectory) ListRecipients(ctx context.Context, kind types.RecipientKind) ([]types.RecipientObject, error) {
	return nil, nil
}

func (f *fakeDirectory) ResolveDelegateReference(ctx context.Context, ref string) (string, bool, error) {
	f.resolveCalls.Add(1)
	if err, ok := f.refErr[ref]; ok {
		return "", false, err
	}
	address, ok := f.refs[ref]
	return address, ok, nil
}

func (f *fakeDirectory) GetExplicitPermissions(ctx context.Context, recipientID string) ([]types.ExplicitPermission, error) {
	if f.permErr != nil {
		return nil, f.permErr
	}
	return f.permissions[recipientID], nil
}

func (f *fakeDirectory) AuthMethods(ctx context.Context, principalID string) ([]string, error) {
	return nil, nil
}

func (f *fakeDirectory) TenantModernAuthEnabled(ctx context.Context) (bool, error) {
	return true, nil
}

const target = "alice@contoso.com"

func TestCorrelateSendAs(t *testing.T) {
	dir := &fakeDirectory{
		permissions: map[string][]types.ExplicitPermission{
			"shared-box": {
				{Holder: "Alice@Contoso.com", Rights: []string{"SendAs"}},
				{Holder: "bob@contoso.com", Rights: []string{"SendAs"}},
				{Holder: "alice@contoso.com", Rights: []string{"SendAs"}, Inherited: true},
			},
		},
	}

	recipient := types.RecipientObject{Identity: "shared-box", Kind: types.SharedMailbox}
	grants, warnings := NewCorrelator(dir).Correlate(context.Background(), target, recipient)

	assert.Zero(t, warnings)
	require.Len(t, grants, 1)
	assert.Equal(t, types.AccessSendAs, grants[0].AccessRight)
	assert.Equal(t, "shared-box", grants[0].ObjectName)
	assert.Equal(t, target, grants[0].Grantee)
}

func TestCorrelateInheritedRightsIgnored(t *testing.T) {
	dir := &fakeDirectory{
		permissions: map[string][]types.ExplicitPermission{
			"box": {
				{Holder: target, Rights: []string{"SendAs"}, Inherited: true},
				{Holder: target, Rights: []string{"FullAccess"}, Inherited: true},
			},
		},
	}

	recipient := types.RecipientObject{Identity: "box", Kind: types.UserMailbox}
	grants, warnings := NewCorrelator(dir).Correlate(context.Background(), target, recipient)

	assert.Zero(t, warnings)
	assert.Empty(t, grants)
}

func TestCorrelateFullAccess(t *testing.T) {
	dir := &fakeDirectory{
		permissions: map[string][]types.ExplicitPermission{
			"box": {
				{Holder: "CONTOSO\\alice@contoso.com", Rights: []string{"FullAccess", "ReadPermission"}},
			},
		},
	}

	recipient := types.RecipientObject{Identity: "box", Kind: types.UserMailbox}
	grants, warnings := NewCorrelator(dir).Correlate(context.Background(), target, recipient)

	assert.Zero(t, warnings)
	require.Len(t, grants, 1)
	assert.Equal(t, types.AccessFullAccess, grants[0].AccessRight)
}

func TestCorrelateFullAccessSkippedForGroups(t *testing.T) {
	// Group objects have no mailbox permission semantics, so even a
	// FullAccess-shaped row must not produce a finding.
	dir := &fakeDirectory{
		permissions: map[string][]types.ExplicitPermission{
			"dist-group": {
				{Holder: target, Rights: []string{"FullAccess"}},
			},
		},
	}

	recipient := types.RecipientObject{Identity: "dist-group", Kind: types.DistributionGroup}
	grants, warnings := NewCorrelator(dir).Correlate(context.Background(), target, recipient)

	assert.Zero(t, warnings)
	assert.Empty(t, grants)
}

func TestCorrelateSendOnBehalf(t *testing.T) {
	dir := &fakeDirectory{
		refs: map[string]string{
			"Alice Smith": "alice@contoso.com",
			"Bob Jones":   "bob@contoso.com",
		},
	}

	recipient := types.RecipientObject{
		Identity:     "dist-group",
		Kind:         types.DistributionGroup,
		DelegateRefs: []string{"Alice Smith", "Bob Jones"},
	}
	grants, warnings := NewCorrelator(dir).Correlate(context.Background(), target, recipient)

	assert.Zero(t, warnings)
	require.Len(t, grants, 1)
	assert.Equal(t, types.AccessSendOnBehalf, grants[0].AccessRight)
	assert.Equal(t, "Distribution", grants[0].GroupKind)
}

func TestCorrelateUnresolvableDelegateRef(t *testing.T) {
	dir := &fakeDirectory{
		refs: map[string]string{"Alice Smith": "alice@contoso.com"},
	}

	recipient := types.RecipientObject{
		Identity:     "box",
		Kind:         types.UserMailbox,
		DelegateRefs: []string{"Ghost User", "Alice Smith"},
	}
	grants, warnings := NewCorrelator(dir).Correlate(context.Background(), target, recipient)

	// The dangling reference is a warning; the resolvable one still lands.
	assert.Equal(t, 1, warnings)
	require.Len(t, grants, 1)
	assert.Equal(t, types.AccessSendOnBehalf, grants[0].AccessRight)
}

func TestCorrelateChecksAreIndependent(t *testing.T) {
	// Permission lookups fail, so SendAs and FullAccess each raise a warning,
	// but the SendOnBehalf check still produces its finding.
	dir := &fakeDirectory{
		permErr: errors.New("transient directory error"),
		refs:    map[string]string{"Alice Smith": "alice@contoso.com"},
	}

	recipient := types.RecipientObject{
		Identity:     "box",
		Kind:         types.UserMailbox,
		DelegateRefs: []string{"Alice Smith"},
	}
	grants, warnings := NewCorrelator(dir).Correlate(context.Background(), target, recipient)

	assert.Equal(t, 2, warnings)
	require.Len(t, grants, 1)
	assert.Equal(t, types.AccessSendOnBehalf, grants[0].AccessRight)
}

func TestCorrelateNoFindings(t *testing.T) {
	dir := &fakeDirectory{}

	recipient := types.RecipientObject{Identity: "box", Kind: types.UserMailbox}
	grants, warnings := NewCorrelator(dir).Correlate(context.Background(), target, recipient)

	assert.Zero(t, warnings)
	assert.Empty(t, grants)
}

func TestDelegateResolverCachesHitsAndMisses(t *testing.T) {
	dir := &fakeDirectory{
		refs: map[string]string{"Alice Smith": "alice@contoso.com"},
	}
	resolver := NewDelegateResolver(dir)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		address, found, err := resolver.Resolve(ctx, "Alice Smith")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "alice@contoso.com", address)

		_, found, err = resolver.Resolve(ctx, "Ghost User")
		require.NoError(t, err)
		assert.False(t, found)
	}

	// One lookup per distinct reference; repeats are served from cache.
	assert.Equal(t, int64(2), dir.resolveCalls.Load())
}

func TestDelegateResolverDoesNotCacheErrors(t *testing.T) {
	dir := &fakeDirectory{
		refErr: map[string]error{"Flaky Ref": errors.New("throttled")},
	}
	resolver := NewDelegateResolver(dir)
	ctx := context.Background()

	_, _, err := resolver.Resolve(ctx, "Flaky Ref")
	require.Error(t, err)

	_, _, err = resolver.Resolve(ctx, "Flaky Ref")
	require.Error(t, err)

	assert.Equal(t, int64(2), dir.resolveCalls.Load())
}
