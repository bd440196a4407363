// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

// TemplateSet holds HTML and text versions of a template
type TemplateSet struct {
	HTML *template.Template
	Text *template.Template
}

// MeetingTemplates holds all meeting-related templates
type MeetingTemplates struct {
	Invitation   TemplateSet
	Cancellation TemplateSet
}

// Templates holds all template categories
type Templates struct {
	Meeting MeetingTemplates
}

// templateConfig defines a template to be loaded
type templateConfig struct {
	name string
	path string
}

// loadMeetingTemplates loads every template the service renders.
func loadMeetingTemplates() (Templates, error) {
	templateConfigs := map[string]templateConfig{
		"invitationHTML":   {"meeting_invitation.html", "templates/meeting_invitation.html"},
		"invitationText":   {"meeting_invitation.txt", "templates/meeting_invitation.txt"},
		"cancellationHTML": {"meeting_cancellation.html", "templates/meeting_cancellation.html"},
		"cancellationText": {"meeting_cancellation.txt", "templates/meeting_cancellation.txt"},
	}

	loadedTemplates := make(map[string]*template.Template)
	for key, cfg := range templateConfigs {
		tmpl, err := loadTemplate(cfg)
		if err != nil {
			return Templates{}, err
		}
		loadedTemplates[key] = tmpl
	}

	return Templates{
		Meeting: MeetingTemplates{
			Invitation: TemplateSet{
				HTML: loadedTemplates["invitationHTML"],
				Text: loadedTemplates["invitationText"],
			},
			Cancellation: TemplateSet{
				HTML: loadedTemplates["cancellationHTML"],
				Text: loadedTemplates["cancellationText"],
			},
		},
	}, nil
}

// loadTemplate loads a single template with the shared function map
func loadTemplate(config templateConfig) (*template.Template, error) {
	tmpl, err := template.New(config.name).Funcs(template.FuncMap{
		"formatTime":         formatTime,
		"formatTimeRange":    formatTimeRange,
		"newLineToBreakLine": newLineToBreakLine,
	}).ParseFS(templateFS, config.path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", config.name, err)
	}
	return tmpl, nil
}

// renderTemplate renders any template with the provided data
func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatTime formats a time for display in emails.
// Format: Tuesday, March 10th, 09:00 UTC
func formatTime(t time.Time) string {
	utc := t.UTC()

	day := utc.Day()
	var suffix string
	switch {
	case day >= 11 && day <= 13:
		suffix = "th"
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	default:
		suffix = "th"
	}

	return fmt.Sprintf("%s, %s %d%s, %s UTC",
		utc.Format("Monday"),
		utc.Format("January"),
		day,
		suffix,
		utc.Format("15:04"))
}

// formatTimeRange formats a meeting's time span for display in emails.
func formatTimeRange(start, end time.Time) string {
	minutes := int(end.Sub(start).Minutes())
	return fmt.Sprintf("%s (%s)", formatTime(start), formatMinutes(minutes))
}

// formatMinutes formats a duration in minutes to a human-readable string
func formatMinutes(minutes int) string {
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}

	hours := minutes / 60
	remainingMinutes := minutes % 60

	if remainingMinutes == 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}

	hourLabel := "hours"
	if hours == 1 {
		hourLabel = "hour"
	}
	minuteLabel := "minutes"
	if remainingMinutes == 1 {
		minuteLabel = "minute"
	}
	return fmt.Sprintf("%d %s %d %s", hours, hourLabel, remainingMinutes, minuteLabel)
}

// newLineToBreakLine converts newlines to HTML break tags for proper email formatting
func newLineToBreakLine(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	replaced := strings.ReplaceAll(escaped, "\n", "<br>")
	// Return as template.HTML to prevent double escaping
	return template.HTML(replaced)
}
