package echo

import (
	"fmt"
	"html"

	"go.pilab.hu/passport/services"
)

func successPage(result *services.JoinResult) string {
	serverName := result.ServerName
	if serverName == "" {
		serverName = "the server"
	}
	sourceName := result.SourceServerName
	if sourceName == "" {
		sourceName = "another server"
	}

	roleNote := ""
	if result.RoleAssigned {
		roleNote = `<p class="info">You have been assigned the appropriate role.</p>`
	}

	return fmt.Sprintf(`<html>
<head>
    <title>Passport - Success</title>
    <style>
        body { font-family: Arial, sans-serif; text-align: center; margin-top: 50px; }
        .success { color: #28a745; }
        .info { color: #6c757d; margin-top: 20px; }
    </style>
</head>
<body>
    <h1 class="success">Successfully Joined!</h1>
    <p>You have successfully joined <strong>%s</strong> using your passport from <strong>%s</strong>.</p>
    %s
    <p class="info">You can now close this tab.</p>
</body>
</html>`, html.EscapeString(serverName), html.EscapeString(sourceName), roleNote)
}

func errorPage(message string) string {
	return fmt.Sprintf(`<html>
<head>
    <title>Passport - Error</title>
    <style>
        body { font-family: Arial, sans-serif; text-align: center; margin-top: 50px; }
        .error { color: #dc3545; }
    </style>
</head>
<body>
    <h1 class="error">Error</h1>
    <p>%s</p>
</body>
</html>`, html.EscapeString(message))
}
