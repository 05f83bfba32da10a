package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type campaignEmailData struct {
	baseEmailData
	LeadName    string
	Description string
}

func renderCampaign(subject string, msg CampaignMessage) (string, error) {
	name := msg.LeadName
	if name == "" {
		name = greetingFallbackName
	}
	heading := msg.Title
	if heading == "" {
		heading = subject
	}
	return renderEmailTemplate("campaign.html", campaignEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: heading},
		LeadName:      name,
		Description:   msg.Description,
	})
}

type passwordResetEmailData struct {
	baseEmailData
	Name     string
	ResetURL string
}

func renderPasswordReset(name, resetURL string) (string, error) {
	if name == "" {
		name = greetingFallbackName
	}
	return renderEmailTemplate("password_reset.html", passwordResetEmailData{
		baseEmailData: baseEmailData{Title: subjectPasswordReset, Heading: subjectPasswordReset},
		Name:          name,
		ResetURL:      resetURL,
	})
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
