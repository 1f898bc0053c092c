package service

import (
	"strings"

	"github.com/apexsend/sequence-engine/internal/model"
)

// RenderTemplate substitutes {placeholder} variables with recipient data.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "<unknown>"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

func recipientVars(rec *model.Recipient) map[string]string {
	return map[string]string{
		"first_name": rec.FirstName,
		"last_name":  rec.LastName,
		"location":   rec.Location,
		"email":      rec.Email,
		"phone":      rec.Phone,
	}
}

// RenderStepBody renders the step's body text for its channel. Email steps
// prefer the text body for the snapshot column; HTML is rendered separately
// at send time.
func RenderStepBody(content model.StepContent, rec *model.Recipient) string {
	vars := recipientVars(rec)
	if content.Kind == model.ChannelEmail && strings.TrimSpace(content.Text) == "" {
		return RenderTemplate(content.HTML, vars)
	}
	return RenderTemplate(content.Text, vars)
}

// RenderStepSubject renders the email subject; empty for SMS.
func RenderStepSubject(content model.StepContent, rec *model.Recipient) string {
	if content.Kind != model.ChannelEmail {
		return ""
	}
	return RenderTemplate(content.Subject, recipientVars(rec))
}
