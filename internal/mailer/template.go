package mailer

import (
	"fmt"
	"html"
	"strings"

	"taskmanager/backend/internal/models"
)

// renderReminder builds the notification body. The template is
// trigger-agnostic: a reminder-time match and a due-date match render the
// same content.
func renderReminder(task models.Task, frontendURL string) string {
	var sb strings.Builder

	sb.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	sb.WriteString(`<h2 style="color: #4F46E5;">Task Reminder</h2>`)
	sb.WriteString(`<p>Hello! This is a reminder for your task due today:</p>`)

	sb.WriteString(`<div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">`)
	sb.WriteString(fmt.Sprintf(`<h3 style="color: #1F2937; margin-top: 0;">%s</h3>`, html.EscapeString(task.Title)))
	if task.Description != "" {
		sb.WriteString(fmt.Sprintf(`<p style="color: #4B5563;">%s</p>`, html.EscapeString(task.Description)))
	}
	sb.WriteString(fmt.Sprintf(`<p style="color: #4B5563;"><strong>Priority:</strong> %s</p>`, html.EscapeString(task.Priority)))
	sb.WriteString(fmt.Sprintf(`<p style="color: #4B5563;"><strong>Category:</strong> %s</p>`, html.EscapeString(task.Category)))
	sb.WriteString(fmt.Sprintf(`<p style="color: #4B5563;"><strong>Due:</strong> %s</p>`, dueLabel(task)))
	sb.WriteString(`</div>`)

	sb.WriteString(fmt.Sprintf(`<a href="%s/" style="background-color: #4F46E5; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">View Task</a>`, frontendURL))
	sb.WriteString(`<p style="color: #6B7280; margin-top: 20px;">Stay productive!</p>`)
	sb.WriteString(`</div>`)

	return sb.String()
}

func dueLabel(task models.Task) string {
	switch {
	case task.DueDate != nil:
		return task.DueDate.Format("Monday, January 2, 2006 3:04 PM")
	case task.ReminderTime != nil:
		return task.ReminderTime.Format("Monday, January 2, 2006 3:04 PM")
	default:
		return "No due date"
	}
}
