// Package echo binds the passport service's inbound HTTP surface: the
// capability-protected join redirect, the OAuth callback, the
// membership-event webhook, and a health probe.
package echo

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/passport/domain"
	joinerrors "go.pilab.hu/passport/errors"
	"go.pilab.hu/passport/services"
)

// PassportAPI holds the HTTP handlers' dependencies.
type PassportAPI struct {
	join      *services.JoinService
	oauth     *services.OAuthService
	autoIssue *services.AutoIssueService
}

// NewPassportAPI initializes the passport HTTP API.
func NewPassportAPI(
	join *services.JoinService,
	oauth *services.OAuthService,
	autoIssue *services.AutoIssueService,
) *PassportAPI {
	return &PassportAPI{
		join:      join,
		oauth:     oauth,
		autoIssue: autoIssue,
	}
}

// RegisterRoutes registers the passport routes.
func (a *PassportAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/join/:serverId/:userId/:token", a.JoinHandler)
	e.GET("/callback", a.CallbackHandler)
	e.POST("/events/member-roles", a.MemberRolesHandler)
	e.GET("/health", a.HealthHandler)
}

// JoinHandler verifies the capability token on a join link, re-checks
// access, and redirects to the provider's authorize URL with a fresh opaque
// state. Invalid or expired links and missing access both answer 403.
func (a *PassportAPI) JoinHandler(c echo.Context) error {
	serverID := c.Param("serverId")
	userID := c.Param("userId")
	token := c.Param("token")

	if !a.join.VerifyJoinToken(userID, serverID, token) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Invalid or expired join link"})
	}

	if !a.join.HasAccess(c.Request().Context(), userID, serverID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "No valid passport for this server"})
	}

	state := a.oauth.BeginAuthorization(userID, serverID)
	return c.Redirect(http.StatusFound, a.oauth.AuthorizeURL(state))
}

// CallbackHandler completes the authorization flow and renders a
// human-readable result page. Missing parameters and unknown or expired
// state answer 400.
func (a *PassportAPI) CallbackHandler(c echo.Context) error {
	code := c.QueryParam("code")
	state := c.QueryParam("state")

	if code == "" || state == "" {
		log.Warn().Bool("has_code", code != "").Bool("has_state", state != "").
			Msg("Callback missing parameters")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing or invalid code or state"})
	}

	result, err := a.oauth.CompleteAuthorization(c.Request().Context(), code, state)
	if err != nil {
		var jerr *joinerrors.JoinError
		if errors.As(err, &jerr) && jerr.Code == joinerrors.InvalidOrExpiredState {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": jerr.Description})
		}
		return c.HTML(http.StatusBadGateway, errorPage("There was an error joining the server. Please try again later."))
	}

	if !result.Success {
		message := "Failed to join server"
		if result.Err != nil {
			message = result.Err.Description
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": message})
	}

	return c.HTML(http.StatusOK, successPage(result))
}

// MemberRolesHandler ingests a membership role-change notification from the
// directory's event feed and runs the auto-issue reconciler. Delivery is
// at-least-once; the reconciler is idempotent, so redeliveries are harmless.
func (a *PassportAPI) MemberRolesHandler(c echo.Context) error {
	var event domain.RoleChangeEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Malformed event payload"})
	}
	if event.ServerID == "" || event.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Event must carry server_id and user_id"})
	}

	if err := a.autoIssue.HandleRoleChange(c.Request().Context(), &event); err != nil {
		log.Error().Err(err).
			Str("server_id", event.ServerID).
			Str("user_id", event.UserID).
			Msg("Role-change reconciliation finished with errors")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Reconciliation incomplete"})
	}
	return c.NoContent(http.StatusNoContent)
}

// HealthHandler answers the health probe.
func (a *PassportAPI) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
