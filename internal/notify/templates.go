package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"letterdesk/internal/model"
)

const timestampLayout = "2006-01-02 15:04:05"

type templateData struct {
	Company    string
	Heading    string
	Color      string
	Number     string
	Document   string
	ActorLabel string
	ActorName  string
	TimeLabel  string
	Timestamp  string
	StatusText string
	Comments   string
	Link       string
	LinkLabel  string
}

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: {{.Color}}; border-bottom: 2px solid {{.Color}}; padding-bottom: 10px;">{{.Heading}}</h2>
    <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px; margin: 20px 0;">
      <h3 style="color: #495057; margin-top: 0;">Letter Details:</h3>
      <table style="width: 100%; border-collapse: collapse;">
        <tr><td style="padding: 8px; font-weight: bold;">Letter Number:</td><td style="padding: 8px;">{{.Number}}</td></tr>
        <tr><td style="padding: 8px; font-weight: bold;">Document:</td><td style="padding: 8px;">{{.Document}}</td></tr>
        {{- if .StatusText}}
        <tr><td style="padding: 8px; font-weight: bold;">Status:</td><td style="padding: 8px; color: {{.Color}}; font-weight: bold;">{{.StatusText}}</td></tr>
        {{- end}}
        <tr><td style="padding: 8px; font-weight: bold;">{{.ActorLabel}}:</td><td style="padding: 8px;">{{.ActorName}}</td></tr>
        <tr><td style="padding: 8px; font-weight: bold;">{{.TimeLabel}}:</td><td style="padding: 8px;">{{.Timestamp}}</td></tr>
      </table>
    </div>
    {{- if .Comments}}
    <div style="background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0;">
      <h4 style="margin-top: 0; color: #856404;">Comments:</h4>
      <p style="margin-bottom: 0;">{{.Comments}}</p>
    </div>
    {{- end}}
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{.Link}}" style="background-color: #3498db; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">{{.LinkLabel}}</a>
    </div>
    <p style="color: #7f8c8d; font-size: 14px; margin-top: 30px;">This is an automated notification from {{.Company}} Document Management System.</p>
  </div>
</body>
</html>
`))

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`{{.Heading}}

Letter Number: {{.Number}}
Document: {{.Document}}
{{- if .StatusText}}
Status: {{.StatusText}}
{{- end}}
{{.ActorLabel}}: {{.ActorName}}
{{.TimeLabel}}: {{.Timestamp}}
{{- if .Comments}}

Comments: {{.Comments}}
{{- end}}

{{.LinkLabel}}: {{.Link}}

This is an automated notification from {{.Company}} Document Management System.
`))

var testHTMLBody = htmltemplate.Must(htmltemplate.New("test-html").Parse(`<html><body>
<h2>Email Test Successful</h2>
<p>This is a test email from your {{.Company}} Document Management System.<br>Test timestamp: {{.Timestamp}}</p>
</body></html>
`))

var testTextBody = texttemplate.Must(texttemplate.New("test-text").Parse(`Email Test Successful

This is a test email from your {{.Company}} Document Management System.
Test timestamp: {{.Timestamp}}
`))

// renderTest builds the configuration test email.
func renderTest(company, stamp string) (subject, html, text string, err error) {
	data := templateData{Company: company, Timestamp: stamp}
	var hb, tb bytes.Buffer
	if err := testHTMLBody.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("render html body: %w", err)
	}
	if err := testTextBody.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("render text body: %w", err)
	}
	return fmt.Sprintf("[%s] Email Configuration Test", company), hb.String(), tb.String(), nil
}

// render builds subject and both bodies for ev.
func render(ev Event, company, baseURL string) (subject, html, text string, err error) {
	data := templateData{
		Company:   company,
		Number:    ev.LetterNumber,
		Document:  ev.DocumentName,
		ActorName: ev.ActorName,
		Timestamp: ev.Timestamp.Format(timestampLayout),
		Comments:  ev.Comments,
	}

	switch ev.Kind {
	case EventSubmittedForReview:
		subject = fmt.Sprintf("[%s] New Letter Requires CEO Approval - %s", company, ev.LetterNumber)
		data.Heading = "Letter Approval Required"
		data.Color = "#2c3e50"
		data.ActorLabel = "Uploaded by"
		data.TimeLabel = "Upload Date"
		data.Link = baseURL + "ceo_verify/" + ev.LetterNumber
		data.LinkLabel = "Review & Approve Letter"
	case EventAdjudicated:
		data.StatusText = "REJECTED"
		data.Color = "#e74c3c"
		if ev.Status == model.LetterStatusVerified {
			data.StatusText = "APPROVED"
			data.Color = "#27ae60"
		}
		subject = fmt.Sprintf("[%s] Letter %s - %s", company, data.StatusText, ev.LetterNumber)
		data.Heading = "Letter " + data.StatusText
		data.ActorLabel = "Reviewed by"
		data.TimeLabel = "Review Date"
		data.Link = baseURL + "view_letter/" + ev.LetterNumber
		data.LinkLabel = "View Letter Details"
	default:
		return "", "", "", fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	var hb, tb bytes.Buffer
	if err := htmlBody.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("render html body: %w", err)
	}
	if err := textBody.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("render text body: %w", err)
	}
	return subject, hb.String(), tb.String(), nil
}
