package mail

import (
	"bytes"
	"html/template"
)

// OTPEmailData fills the one-time code email.
type OTPEmailData struct {
	Code       string
	Email      string
	IsDataroom bool
}

// ViewedEmailData fills the owner notification sent after a visit.
type ViewedEmailData struct {
	Title        string
	Kind         string // "document" or "dataroom"
	ViewerEmail  string
	LinkName     string
	Location     string
	DashboardURL string
}

var otpTmpl = template.Must(template.New("otp_email").Parse(`
<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8" /><title>Verification code</title></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; color: #111827;">
	<h1 style="font-size: 20px;">Your verification code</h1>
	<p>Use the code below to access the {{if .IsDataroom}}dataroom{{else}}document{{end}} shared with {{.Email}}.</p>
	<p style="font-size: 32px; letter-spacing: 8px; font-weight: 600;">{{.Code}}</p>
	<p style="color: #6b7280;">The code expires in 10 minutes. If you did not request it you can ignore this email.</p>
</body>
</html>
`))

var viewedTmpl = template.Must(template.New("viewed_email").Parse(`
<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8" /><title>{{.Title}}</title></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; color: #111827;">
	<h1 style="font-size: 20px;">Your {{.Kind}} was viewed</h1>
	<p>
		<strong>{{.Title}}</strong> was just opened
		{{- if .ViewerEmail}} by <strong>{{.ViewerEmail}}</strong>{{end}}
		{{- if .LinkName}} through the link <em>{{.LinkName}}</em>{{end}}.
	</p>
	{{if .Location}}<p>Location: {{.Location}}</p>{{end}}
	{{if .DashboardURL}}<p><a href="{{.DashboardURL}}">See the visit</a></p>{{end}}
</body>
</html>
`))

// RenderOTPEmail expands the one-time code template.
func RenderOTPEmail(data OTPEmailData) (string, error) {
	var buf bytes.Buffer
	if err := otpTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderViewedEmail expands the owner notification template.
func RenderViewedEmail(data ViewedEmailData) (string, error) {
	if data.Kind == "" {
		data.Kind = "document"
	}
	var buf bytes.Buffer
	if err := viewedTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
