package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go.pilab.hu/passport/directory"
	"go.pilab.hu/passport/domain"
)

// --- MockPassportRepository ---

type MockPassportRepository struct {
	mock.Mock
}

func (m *MockPassportRepository) Create(ctx context.Context, passport *domain.Passport) error {
	args := m.Called(ctx, passport)
	return args.Error(0)
}

func (m *MockPassportRepository) GetByHolderAndIssuer(ctx context.Context, holderID, issuerID string) (*domain.Passport, error) {
	args := m.Called(ctx, holderID, issuerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Passport), args.Error(1)
}

func (m *MockPassportRepository) ListByHolder(ctx context.Context, holderID string) ([]*domain.Passport, error) {
	args := m.Called(ctx, holderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Passport), args.Error(1)
}

func (m *MockPassportRepository) ListByIssuer(ctx context.Context, issuerID string) ([]*domain.Passport, error) {
	args := m.Called(ctx, issuerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Passport), args.Error(1)
}

func (m *MockPassportRepository) Delete(ctx context.Context, holderID, issuerID string) (bool, error) {
	args := m.Called(ctx, holderID, issuerID)
	return args.Bool(0), args.Error(1)
}

// --- MockPolicyRepository ---

type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) Create(ctx context.Context, policy *domain.AcceptancePolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *MockPolicyRepository) GetByServerAndIssuer(ctx context.Context, serverID, issuerID string) (*domain.AcceptancePolicy, error) {
	args := m.Called(ctx, serverID, issuerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AcceptancePolicy), args.Error(1)
}

func (m *MockPolicyRepository) ListByServer(ctx context.Context, serverID string) ([]*domain.AcceptancePolicy, error) {
	args := m.Called(ctx, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AcceptancePolicy), args.Error(1)
}

func (m *MockPolicyRepository) ListByIssuer(ctx context.Context, issuerID string) ([]*domain.AcceptancePolicy, error) {
	args := m.Called(ctx, issuerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AcceptancePolicy), args.Error(1)
}

func (m *MockPolicyRepository) Delete(ctx context.Context, serverID, issuerID string) (bool, error) {
	args := m.Called(ctx, serverID, issuerID)
	return args.Bool(0), args.Error(1)
}

// --- MockAutoIssueRuleRepository ---

type MockAutoIssueRuleRepository struct {
	mock.Mock
}

func (m *MockAutoIssueRuleRepository) Create(ctx context.Context, rule *domain.AutoIssueRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockAutoIssueRuleRepository) GetByServerAndRole(ctx context.Context, serverID, triggerRoleID string) (*domain.AutoIssueRule, error) {
	args := m.Called(ctx, serverID, triggerRoleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AutoIssueRule), args.Error(1)
}

func (m *MockAutoIssueRuleRepository) ListByServer(ctx context.Context, serverID string) ([]*domain.AutoIssueRule, error) {
	args := m.Called(ctx, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AutoIssueRule), args.Error(1)
}

func (m *MockAutoIssueRuleRepository) Delete(ctx context.Context, serverID, triggerRoleID string) (bool, error) {
	args := m.Called(ctx, serverID, triggerRoleID)
	return args.Bool(0), args.Error(1)
}

// --- MockDelegatedTokenRepository ---

type MockDelegatedTokenRepository struct {
	mock.Mock
}

func (m *MockDelegatedTokenRepository) Upsert(ctx context.Context, token *domain.DelegatedToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockDelegatedTokenRepository) GetByUser(ctx context.Context, userID string) (*domain.DelegatedToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DelegatedToken), args.Error(1)
}

func (m *MockDelegatedTokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- MockDirectory ---

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) IsMember(ctx context.Context, serverID, userID string) (bool, error) {
	args := m.Called(ctx, serverID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) AddMember(ctx context.Context, serverID, userID, accessToken, roleID string) (*directory.Member, error) {
	args := m.Called(ctx, serverID, userID, accessToken, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Member), args.Error(1)
}

func (m *MockDirectory) ServerName(ctx context.Context, serverID string) (string, bool) {
	args := m.Called(ctx, serverID)
	return args.String(0), args.Bool(1)
}
