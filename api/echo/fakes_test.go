package echo

import (
	"context"
	"sort"
	"sync"

	"go.pilab.hu/passport/directory"
	"go.pilab.hu/passport/domain"
)

// In-memory store fakes backing the handler tests.

type fakePassportRepo struct {
	mu        sync.Mutex
	passports []*domain.Passport
}

func (f *fakePassportRepo) Create(_ context.Context, passport *domain.Passport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.passports {
		if p.HolderID == passport.HolderID && p.IssuerID == passport.IssuerID {
			return domain.ErrDuplicate
		}
	}
	f.passports = append(f.passports, passport)
	return nil
}

func (f *fakePassportRepo) GetByHolderAndIssuer(_ context.Context, holderID, issuerID string) (*domain.Passport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.passports {
		if p.HolderID == holderID && p.IssuerID == issuerID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePassportRepo) ListByHolder(_ context.Context, holderID string) ([]*domain.Passport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Passport
	for _, p := range f.passports {
		if p.HolderID == holderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePassportRepo) ListByIssuer(_ context.Context, issuerID string) ([]*domain.Passport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Passport
	for _, p := range f.passports {
		if p.IssuerID == issuerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (f *fakePassportRepo) Delete(_ context.Context, holderID, issuerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.passports {
		if p.HolderID == holderID && p.IssuerID == issuerID {
			f.passports = append(f.passports[:i], f.passports[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakePolicyRepo struct {
	policies []*domain.AcceptancePolicy
}

func (f *fakePolicyRepo) Create(_ context.Context, policy *domain.AcceptancePolicy) error {
	for _, p := range f.policies {
		if p.ServerID == policy.ServerID && p.IssuerID == policy.IssuerID {
			return domain.ErrDuplicate
		}
	}
	f.policies = append(f.policies, policy)
	return nil
}

func (f *fakePolicyRepo) GetByServerAndIssuer(_ context.Context, serverID, issuerID string) (*domain.AcceptancePolicy, error) {
	for _, p := range f.policies {
		if p.ServerID == serverID && p.IssuerID == issuerID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePolicyRepo) ListByServer(_ context.Context, serverID string) ([]*domain.AcceptancePolicy, error) {
	var out []*domain.AcceptancePolicy
	for _, p := range f.policies {
		if p.ServerID == serverID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePolicyRepo) ListByIssuer(_ context.Context, issuerID string) ([]*domain.AcceptancePolicy, error) {
	var out []*domain.AcceptancePolicy
	for _, p := range f.policies {
		if p.IssuerID == issuerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePolicyRepo) Delete(_ context.Context, serverID, issuerID string) (bool, error) {
	for i, p := range f.policies {
		if p.ServerID == serverID && p.IssuerID == issuerID {
			f.policies = append(f.policies[:i], f.policies[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeRuleRepo struct {
	rules []*domain.AutoIssueRule
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *domain.AutoIssueRule) error {
	for _, r := range f.rules {
		if r.ServerID == rule.ServerID && r.TriggerRoleID == rule.TriggerRoleID {
			return domain.ErrDuplicate
		}
	}
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeRuleRepo) GetByServerAndRole(_ context.Context, serverID, triggerRoleID string) (*domain.AutoIssueRule, error) {
	for _, r := range f.rules {
		if r.ServerID == serverID && r.TriggerRoleID == triggerRoleID {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRuleRepo) ListByServer(_ context.Context, serverID string) ([]*domain.AutoIssueRule, error) {
	var out []*domain.AutoIssueRule
	for _, r := range f.rules {
		if r.ServerID == serverID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) Delete(_ context.Context, serverID, triggerRoleID string) (bool, error) {
	for i, r := range f.rules {
		if r.ServerID == serverID && r.TriggerRoleID == triggerRoleID {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.DelegatedToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*domain.DelegatedToken)}
}

func (f *fakeTokenRepo) Upsert(_ context.Context, token *domain.DelegatedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token.UserID] = token
	return nil
}

func (f *fakeTokenRepo) GetByUser(_ context.Context, userID string) (*domain.DelegatedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return token, nil
}

func (f *fakeTokenRepo) DeleteByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, userID)
	return nil
}

type fakeDirectory struct {
	mu      sync.Mutex
	members map[string]map[string]bool // serverID -> userID
	names   map[string]string
	addErr  error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		members: make(map[string]map[string]bool),
		names:   make(map[string]string),
	}
}

func (f *fakeDirectory) IsMember(_ context.Context, serverID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[serverID][userID], nil
}

func (f *fakeDirectory) AddMember(_ context.Context, serverID, userID, _, _ string) (*directory.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return nil, f.addErr
	}
	if f.members[serverID] == nil {
		f.members[serverID] = make(map[string]bool)
	}
	f.members[serverID][userID] = true
	return &directory.Member{Username: "member-" + userID}, nil
}

func (f *fakeDirectory) ServerName(_ context.Context, serverID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[serverID]
	return name, ok
}
