package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return "TBC"
		}
		return t.Format("Monday 2 January 2006")
	},
}

var templates = template.Must(template.New("mail").Funcs(funcs).Parse(`
{{define "carnival_subject"}}{{if .New}}New carnival{{else}}Carnival updated{{end}}: {{.Event.CarnivalTitle}}{{end}}
{{define "carnival_body"}}Hello,

{{if .New}}A new Masters carnival has been listed in {{.Event.State}}.{{else}}A Masters carnival in {{.Event.State}} has been updated.{{end}}

  {{.Event.CarnivalTitle}}
  {{date .Event.CarnivalDate}}

Details: {{.BaseURL}}/carnivals/{{.Event.CarnivalID}}

You are receiving this because you subscribed to carnival notifications for {{.Event.State}}.
Unsubscribe: {{.BaseURL}}/unsubscribe/{{.UnsubscribeToken}}
{{end}}

{{define "delegate_invite_subject"}}You are invited to join {{.Event.ClubName}}{{end}}
{{define "delegate_invite_body"}}Hello,

{{.Event.InviterName}} has invited you to become a delegate of {{.Event.ClubName}}.

Accept the invitation: {{.BaseURL}}/invitations/delegate/{{.Event.Token}}

This link can be used once and expires on {{date .Event.TokenExpiresAt}}.
{{end}}

{{define "proxy_invite_subject"}}Claim {{.Event.ClubName}} on the Masters carnival directory{{end}}
{{define "proxy_invite_body"}}Hello,

{{.Event.InviterName}} has listed {{.Event.ClubName}} on your behalf.
{{with .Event.CustomMessage}}
Message from {{$.Event.InviterName}}:
{{.}}
{{end}}
Claim the club and become its primary delegate: {{.BaseURL}}/clubs/{{.Event.ClubID}}/claim?token={{.Event.Token}}

This link can be used once and expires on {{date .Event.TokenExpiresAt}}.
{{end}}

{{define "carnival_claimed_subject"}}You now manage {{.Event.CarnivalTitle}}{{end}}
{{define "carnival_claimed_body"}}Hello,

You have claimed {{.Event.CarnivalTitle}} ({{date .Event.CarnivalDate}}). You can now edit its details and manage attending clubs.

Manage it: {{.BaseURL}}/carnivals/{{.Event.CarnivalID}}
{{end}}

{{define "club_claimed_subject"}}You are now primary delegate of {{.Event.ClubName}}{{end}}
{{define "club_claimed_body"}}Hello,

You have claimed {{.Event.ClubName}} and are now its primary delegate. The club is listed publicly.

Club profile: {{.BaseURL}}/clubs/{{.Event.ClubID}}
{{end}}
`))

// render executes the "<name>_subject" and "<name>_body" templates.
func render(name string, data any) (subject, body string, err error) {
	var sb, bb bytes.Buffer
	if err := templates.ExecuteTemplate(&sb, name+"_subject", data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := templates.ExecuteTemplate(&bb, name+"_body", data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return sb.String(), bb.String(), nil
}
