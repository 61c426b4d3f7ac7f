package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/passport/cache"
	"go.pilab.hu/passport/directory"
	"go.pilab.hu/passport/domain"
	joinerrors "go.pilab.hu/passport/errors"
	"go.pilab.hu/passport/jointoken"
)

// JoinResult is the outcome of a join attempt.
type JoinResult struct {
	Success      bool
	NeedsAuth    bool
	RoleAssigned bool
	Err          *joinerrors.JoinError

	Username         string
	ServerName       string
	SourceServerName string
}

// JoinService orchestrates joining a user to a server: access resolution,
// membership check, delegated-token lookup, and the directory add-member
// call. It also mints the capability-bearing join links handed out in chat.
type JoinService struct {
	passports *PassportService
	tokens    domain.DelegatedTokenRepository
	cache     cache.TokenCache
	directory directory.Directory

	secret        string
	publicBaseURL string
	now           func() time.Time
}

// NewJoinService creates a JoinService. secret signs capability tokens;
// publicBaseURL is the externally reachable base of this service.
func NewJoinService(
	passports *PassportService,
	tokens domain.DelegatedTokenRepository,
	tokenCache cache.TokenCache,
	dir directory.Directory,
	secret string,
	publicBaseURL string,
) *JoinService {
	return &JoinService{
		passports:     passports,
		tokens:        tokens,
		cache:         tokenCache,
		directory:     dir,
		secret:        secret,
		publicBaseURL: publicBaseURL,
		now:           time.Now,
	}
}

// AttemptJoin tries to join userID to serverID using their stored delegated
// token. When no usable token exists the result carries NeedsAuth and an
// error distinguishing never-authorized from expired or rejected
// authorization; all three mean "send the user through the join link again".
func (s *JoinService) AttemptJoin(ctx context.Context, userID, serverID string) *JoinResult {
	return s.attempt(ctx, userID, serverID, "")
}

// JoinWithToken runs the direct-join path with a freshly exchanged access
// token, bypassing the stored-token lookup. Used by the OAuth coordinator
// right after a successful code exchange.
func (s *JoinService) JoinWithToken(ctx context.Context, userID, serverID, accessToken string) *JoinResult {
	return s.attempt(ctx, userID, serverID, accessToken)
}

func (s *JoinService) attempt(ctx context.Context, userID, serverID, explicitToken string) *JoinResult {
	decision, err := s.passports.ResolveAccess(ctx, userID, serverID)
	if err != nil {
		// Fail closed: a store outage must read as "no access", never as
		// a grant.
		log.Warn().Err(err).Str("user_id", userID).Str("server_id", serverID).
			Msg("Access resolution unavailable, denying join")
		return &JoinResult{Err: joinerrors.NewNoValidPassport()}
	}
	if !decision.Granted {
		return &JoinResult{Err: joinerrors.NewNoValidPassport()}
	}

	member, err := s.directory.IsMember(ctx, serverID, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("server_id", serverID).
			Msg("Directory membership check failed")
		return &JoinResult{Err: joinerrors.NewProviderError("could not check membership")}
	}
	if member {
		return &JoinResult{Err: joinerrors.NewAlreadyMember()}
	}

	accessToken := explicitToken
	if accessToken == "" {
		token, jerr := s.lookupDelegatedToken(ctx, userID)
		if jerr != nil {
			needsAuth := jerr.Code == joinerrors.AuthorizationRequired ||
				jerr.Code == joinerrors.AuthorizationExpired
			return &JoinResult{NeedsAuth: needsAuth, Err: jerr}
		}
		accessToken = token.AccessToken
	}

	added, err := s.directory.AddMember(ctx, serverID, userID, accessToken, decision.RoleID)
	if err != nil {
		if directory.IsTokenRejected(err) {
			// The token is unusable; drop it so the next attempt asks for
			// re-authorization instead of retrying a dead token.
			s.dropDelegatedToken(ctx, userID)
			log.Info().Err(err).Str("user_id", userID).Msg("Deleted delegated token after directory rejection")
			return &JoinResult{NeedsAuth: true, Err: joinerrors.NewAuthorizationInvalid()}
		}
		log.Error().Err(err).Str("user_id", userID).Str("server_id", serverID).
			Msg("Directory add-member failed")
		return &JoinResult{Err: joinerrors.NewProviderError(err.Error())}
	}

	serverName, _ := s.directory.ServerName(ctx, serverID)
	sourceName, _ := s.directory.ServerName(ctx, decision.IssuerID)

	log.Info().
		Str("user_id", userID).
		Str("username", added.Username).
		Str("server_id", serverID).
		Str("source_server_id", decision.IssuerID).
		Bool("role_assigned", decision.RoleID != "").
		Msg("User joined server via passport")

	return &JoinResult{
		Success:          true,
		RoleAssigned:     decision.RoleID != "",
		Username:         added.Username,
		ServerName:       serverName,
		SourceServerName: sourceName,
	}
}

// lookupDelegatedToken fetches the user's stored token, read-through the
// cache. Expired tokens are deleted on sight and reported as
// authorization_expired.
func (s *JoinService) lookupDelegatedToken(ctx context.Context, userID string) (*domain.DelegatedToken, *joinerrors.JoinError) {
	token, err := s.cache.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("user_id", userID).Msg("Token cache read failed")
		}
		token, err = s.tokens.GetByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, joinerrors.NewAuthorizationRequired()
			}
			log.Error().Err(err).Str("user_id", userID).Msg("Store error loading delegated token")
			return nil, joinerrors.NewStoreUnavailable("could not load delegated token")
		}
		if cerr := s.cache.Set(ctx, token); cerr != nil {
			log.Warn().Err(cerr).Str("user_id", userID).Msg("Token cache write failed")
		}
	}

	if token.Expired(s.now()) {
		s.dropDelegatedToken(ctx, userID)
		log.Info().Str("user_id", userID).Msg("Deleted expired delegated token")
		return nil, joinerrors.NewAuthorizationExpired()
	}
	return token, nil
}

func (s *JoinService) dropDelegatedToken(ctx context.Context, userID string) {
	if err := s.tokens.DeleteByUser(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to delete delegated token")
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate token cache")
	}
}

// GenerateJoinLink mints a capability-bearing join URL for userID to join
// serverID. It returns empty without error when the user has no access; a
// link is never minted for a user the resolver denies.
func (s *JoinService) GenerateJoinLink(ctx context.Context, userID, serverID string) (string, error) {
	decision, err := s.passports.ResolveAccess(ctx, userID, serverID)
	if err != nil {
		return "", err
	}
	if !decision.Granted {
		log.Warn().Str("user_id", userID).Str("server_id", serverID).
			Msg("Join link requested without access")
		return "", nil
	}

	token := jointoken.Mint(userID, serverID, s.secret, s.now())
	return fmt.Sprintf("%s/join/%s/%s/%s", s.publicBaseURL, serverID, userID, token), nil
}

// VerifyJoinToken checks a capability token presented on the join endpoint.
func (s *JoinService) VerifyJoinToken(userID, serverID, token string) bool {
	return jointoken.Verify(userID, serverID, token, s.secret, s.now())
}

// HasAccess re-checks access for the join endpoint. Store failures read as
// "no access".
func (s *JoinService) HasAccess(ctx context.Context, userID, serverID string) bool {
	decision, err := s.passports.ResolveAccess(ctx, userID, serverID)
	return err == nil && decision.Granted
}
