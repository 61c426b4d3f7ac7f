package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/passport/cache"
	"go.pilab.hu/passport/directory"
	"go.pilab.hu/passport/domain"
	joinerrors "go.pilab.hu/passport/errors"
)

type joinFixture struct {
	svc       *JoinService
	passports *MockPassportRepository
	policies  *MockPolicyRepository
	tokens    *MockDelegatedTokenRepository
	dir       *MockDirectory
	now       time.Time
}

func newJoinFixture(t *testing.T) *joinFixture {
	t.Helper()

	passports := new(MockPassportRepository)
	policies := new(MockPolicyRepository)
	rules := new(MockAutoIssueRuleRepository)
	tokens := new(MockDelegatedTokenRepository)
	dir := new(MockDirectory)

	tokenCache := cache.NewMemoryTokenCache(time.Minute)
	t.Cleanup(tokenCache.Stop)

	passportSvc := NewPassportService(passports, policies, rules)
	svc := NewJoinService(passportSvc, tokens, tokenCache, dir, "join-secret", "http://localhost:3000")

	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }

	return &joinFixture{
		svc:       svc,
		passports: passports,
		policies:  policies,
		tokens:    tokens,
		dir:       dir,
		now:       now,
	}
}

// grantAccess arranges the stores so that user-1 holds a passport from s1
// and s2 accepts it with the given role.
func (f *joinFixture) grantAccess(ctx context.Context, roleID string) {
	f.passports.On("ListByHolder", ctx, "user-1").Return([]*domain.Passport{
		{HolderID: "user-1", IssuerID: "s1", IssuedAt: time.Unix(1000, 0)},
	}, nil)
	f.policies.On("GetByServerAndIssuer", ctx, "s2", "s1").Return(&domain.AcceptancePolicy{
		ServerID: "s2", IssuerID: "s1", RoleID: roleID,
	}, nil)
}

func TestAttemptJoinNoPassport(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.passports.On("ListByHolder", ctx, "user-1").Return([]*domain.Passport{}, nil)

	result := f.svc.AttemptJoin(ctx, "user-1", "s2")
	assert.False(t, result.Success)
	assert.False(t, result.NeedsAuth)
	require.NotNil(t, result.Err)
	assert.Equal(t, joinerrors.NoValidPassport, result.Err.Code)
}

func TestAttemptJoinAlreadyMember(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.grantAccess(ctx, "")
	f.dir.On("IsMember", ctx, "s2", "user-1").Return(true, nil)

	result := f.svc.AttemptJoin(ctx, "user-1", "s2")
	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, joinerrors.AlreadyMember, result.Err.Code)
}

func TestAttemptJoinNeverAuthorized(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.grantAccess(ctx, "")
	f.dir.On("IsMember", ctx, "s2", "user-1").Return(false, nil)
	f.tokens.On("GetByUser", ctx, "user-1").Return(nil, domain.ErrNotFound)

	result := f.svc.AttemptJoin(ctx, "user-1", "s2")
	assert.False(t, result.Success)
	assert.True(t, result.NeedsAuth)
	require.NotNil(t, result.Err)
	assert.Equal(t, joinerrors.AuthorizationRequired, result.Err.Code)
}

func TestAttemptJoinExpiredTokenDeleted(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.grantAccess(ctx, "")
	f.dir.On("IsMember", ctx, "s2", "user-1").Return(false, nil)
	f.tokens.On("GetByUser", ctx, "user-1").Return(&domain.DelegatedToken{
		UserID:      "user-1",
		AccessToken: "stale",
		ExpiresAt:   f.now.Add(-time.Hour),
	}, nil)
	f.tokens.On("DeleteByUser", ctx, "user-1").Return(nil)

	result := f.svc.AttemptJoin(ctx, "user-1", "s2")
	assert.False(t, result.Success)
	assert.True(t, result.NeedsAuth)
	require.NotNil(t, result.Err)
	assert.Equal(t, joinerrors.AuthorizationExpired, result.Err.Code)
	f.tokens.AssertCalled(t, "DeleteByUser", ctx, "user-1")
	f.dir.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAttemptJoinDirectoryRejectsToken(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.grantAccess(ctx, "")
	f.dir.On("IsMember", ctx, "s2", "user-1").Return(false, nil)
	f.tokens.On("GetByUser", ctx, "user-1").Return(&domain.DelegatedToken{
		UserID:      "user-1",
		AccessToken: "revoked-upstream",
		ExpiresAt:   f.now.Add(time.Hour),
	}, nil)
	f.dir.On("AddMember", ctx, "s2", "user-1", "revoked-upstream", "").
		Return(nil, &directory.Error{Code: directory.CodeInvalidToken, Message: "bad token"})
	f.tokens.On("DeleteByUser", ctx, "user-1").Return(nil)

	result := f.svc.AttemptJoin(ctx, "user-1", "s2")
	assert.False(t, result.Success)
	assert.True(t, result.NeedsAuth)
	require.NotNil(t, result.Err)
	assert.Equal(t, joinerrors.AuthorizationInvalid, result.Err.Code)
	f.tokens.AssertCalled(t, "DeleteByUser", ctx, "user-1")
}

func TestAttemptJoinGenericDirectoryError(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.grantAccess(ctx, "")
	f.dir.On("IsMember", ctx, "s2", "user-1").Return(false, nil)
	f.tokens.On("GetByUser", ctx, "user-1").Return(&domain.DelegatedToken{
		UserID:      "user-1",
		AccessToken: "good",
		ExpiresAt:   f.now.Add(time.Hour),
	}, nil)
	f.dir.On("AddMember", ctx, "s2", "user-1", "good", "").
		Return(nil, &directory.Error{Code: "rate_limited", Message: "slow down"})

	result := f.svc.AttemptJoin(ctx, "user-1", "s2")
	assert.False(t, result.Success)
	assert.False(t, result.NeedsAuth)
	require.NotNil(t, result.Err)
	assert.Equal(t, joinerrors.ProviderError, result.Err.Code)
	f.tokens.AssertNotCalled(t, "DeleteByUser", mock.Anything, mock.Anything)
}

func TestAttemptJoinSuccessWithRole(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.grantAccess(ctx, "role-r")
	f.dir.On("IsMember", ctx, "s2", "user-1").Return(false, nil)
	f.tokens.On("GetByUser", ctx, "user-1").Return(&domain.DelegatedToken{
		UserID:      "user-1",
		AccessToken: "good",
		ExpiresAt:   f.now.Add(time.Hour),
	}, nil)
	f.dir.On("AddMember", ctx, "s2", "user-1", "good", "role-r").
		Return(&directory.Member{Username: "alice"}, nil)
	f.dir.On("ServerName", ctx, "s2").Return("Target Server", true)
	f.dir.On("ServerName", ctx, "s1").Return("Source Server", true)

	result := f.svc.AttemptJoin(ctx, "user-1", "s2")
	assert.True(t, result.Success)
	assert.True(t, result.RoleAssigned)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, "Target Server", result.ServerName)
	assert.Equal(t, "Source Server", result.SourceServerName)
	assert.Nil(t, result.Err)
}

func TestJoinWithTokenSkipsStoredLookup(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.grantAccess(ctx, "")
	f.dir.On("IsMember", ctx, "s2", "user-1").Return(false, nil)
	f.dir.On("AddMember", ctx, "s2", "user-1", "fresh-token", "").
		Return(&directory.Member{Username: "alice"}, nil)
	f.dir.On("ServerName", ctx, mock.Anything).Return("", false)

	result := f.svc.JoinWithToken(ctx, "user-1", "s2", "fresh-token")
	assert.True(t, result.Success)
	assert.False(t, result.RoleAssigned)
	f.tokens.AssertNotCalled(t, "GetByUser", mock.Anything, mock.Anything)
}

func TestGenerateJoinLinkRequiresAccess(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.passports.On("ListByHolder", ctx, "user-1").Return([]*domain.Passport{}, nil)

	link, err := f.svc.GenerateJoinLink(ctx, "user-1", "s2")
	require.NoError(t, err)
	assert.Empty(t, link)
}

func TestGenerateJoinLinkVerifiable(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.grantAccess(ctx, "")

	link, err := f.svc.GenerateJoinLink(ctx, "user-1", "s2")
	require.NoError(t, err)

	prefix := "http://localhost:3000/join/s2/user-1/"
	require.True(t, len(link) > len(prefix), "unexpected link %q", link)
	assert.Equal(t, prefix, link[:len(prefix)])

	token := link[len(prefix):]
	assert.True(t, f.svc.VerifyJoinToken("user-1", "s2", token))
	assert.False(t, f.svc.VerifyJoinToken("user-2", "s2", token))
}

func TestAttemptJoinStoreOutageFailsClosed(t *testing.T) {
	f := newJoinFixture(t)
	ctx := context.Background()

	f.passports.On("ListByHolder", ctx, "user-1").Return(nil, fmt.Errorf("primary stepped down"))

	result := f.svc.AttemptJoin(ctx, "user-1", "s2")
	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, joinerrors.NoValidPassport, result.Err.Code)
	f.dir.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
