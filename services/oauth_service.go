package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"go.pilab.hu/passport/cache"
	"go.pilab.hu/passport/domain"
	joinerrors "go.pilab.hu/passport/errors"
	"go.pilab.hu/passport/internal/authflow"
)

// sweepInterval is how often expired pending authorizations are collected.
const sweepInterval = 10 * time.Minute

// OAuthService coordinates the authorization-code flow: it tracks pending
// authorizations between the join redirect and the provider callback,
// exchanges the code for a delegated token, persists the token, and hands
// off to the join orchestrator's direct path.
type OAuthService struct {
	flows  *authflow.Store
	tokens domain.DelegatedTokenRepository
	cache  cache.TokenCache
	join   *JoinService
	oauth  *oauth2.Config
	now    func() time.Time
}

// NewOAuthService creates an OAuthService around the given oauth2 client
// configuration.
func NewOAuthService(
	flows *authflow.Store,
	tokens domain.DelegatedTokenRepository,
	tokenCache cache.TokenCache,
	join *JoinService,
	oauthCfg *oauth2.Config,
) *OAuthService {
	return &OAuthService{
		flows:  flows,
		tokens: tokens,
		cache:  tokenCache,
		join:   join,
		oauth:  oauthCfg,
		now:    time.Now,
	}
}

// BeginAuthorization registers a pending authorization for (userID,
// serverID) and returns the opaque state to embed in the provider authorize
// URL.
func (s *OAuthService) BeginAuthorization(userID, serverID string) string {
	state := s.flows.Begin(serverID, userID, s.now())
	log.Debug().Str("user_id", userID).Str("server_id", serverID).Msg("Authorization flow started")
	return state
}

// AuthorizeURL builds the provider's authorization URL carrying state.
func (s *OAuthService) AuthorizeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// CompleteAuthorization consumes the pending authorization for state (single
// use: a duplicated callback fails after the first success), exchanges the
// code for a delegated token, upserts it, and runs the direct join with the
// fresh token. Exchange failures are not retried here; authorization codes
// are single-use at the provider, so the caller must restart the flow.
func (s *OAuthService) CompleteAuthorization(ctx context.Context, code, state string) (*JoinResult, error) {
	pa, err := s.flows.Consume(state, s.now())
	if err != nil {
		log.Warn().Err(err).Str("state", state).Msg("Callback with invalid or expired state")
		return nil, joinerrors.NewInvalidOrExpiredState()
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			log.Error().
				Int("status", retrieveErr.Response.StatusCode).
				Str("user_id", pa.UserID).
				Msg("Provider token exchange failed")
			return nil, joinerrors.NewTokenExchangeFailed(
				fmt.Sprintf("provider returned status %d", retrieveErr.Response.StatusCode))
		}
		log.Error().Err(err).Str("user_id", pa.UserID).Msg("Token exchange failed")
		return nil, joinerrors.NewTokenExchangeFailed("could not exchange authorization code")
	}

	if token.AccessToken == "" || token.Expiry.IsZero() {
		log.Error().Str("user_id", pa.UserID).Msg("Provider token response missing required fields")
		return nil, joinerrors.NewTokenExchangeFailed("provider response missing required fields")
	}

	delegated := &domain.DelegatedToken{
		UserID:       pa.UserID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if err := s.tokens.Upsert(ctx, delegated); err != nil {
		return nil, joinerrors.NewStoreUnavailable("could not store delegated token")
	}
	if err := s.cache.Delete(ctx, pa.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", pa.UserID).Msg("Failed to invalidate token cache after exchange")
	}

	log.Info().Str("user_id", pa.UserID).Str("server_id", pa.ServerID).
		Msg("Authorization code exchanged, attempting join")

	return s.join.JoinWithToken(ctx, pa.UserID, pa.ServerID, token.AccessToken), nil
}

// StartSweeper runs the pending-authorization garbage collector until ctx is
// cancelled. Entries older than the flow TTL are removed whether or not a
// callback ever arrived.
func (s *OAuthService) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.flows.Sweep(s.now()); removed > 0 {
					log.Debug().Int("removed", removed).Msg("Swept expired pending authorizations")
				}
			}
		}
	}()
}
