// Package message renders extracted record fields into the approval request
// text sent to Telegram (legacy Markdown parse mode).
package message

import (
	"strings"

	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/record"
)

// Header is the first line of every approval request.
const Header = "*PERMINTAAN APPROVAL DELIVERABLE*"

// Line is one labeled line of the template.
type Line struct {
	Emoji string
	Label string
	Value func(f record.Fields) string
}

// Lines is the fixed template, in rendering order.
var Lines = []Line{
	{Emoji: "📅", Label: "Tanggal Upload", Value: func(f record.Fields) string { return f.UploadedAt }},
	{Emoji: "✅", Label: "Nama Deliverable", Value: func(f record.Fields) string { return f.DeliverableName }},
	{Emoji: "📁", Label: "Nama Project", Value: func(f record.Fields) string { return f.ProjectName }},
	{Emoji: "📦", Label: "Work Package", Value: func(f record.Fields) string { return f.WorkPackage }},
	{Emoji: "📄", Label: "Nama Activity", Value: func(f record.Fields) string { return f.ActivityName }},
	{Emoji: "🆔", Label: "ID Activity", Value: func(f record.Fields) string { return f.ActivityID }},
	{Emoji: "👤", Label: "Diupload oleh", Value: func(f record.Fields) string { return f.Uploader }},
	{Emoji: "📎", Label: "Link Informasi Activity", Value: func(f record.Fields) string { return f.ActivityLink }},
	{Emoji: "📎", Label: "Link Form Approval", Value: func(f record.Fields) string { return f.ApprovalLink }},
}

var markdownEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

// EscapeMarkdown escapes the characters Telegram's legacy Markdown treats as
// entity markers.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Render formats f into the approval request for Telegram's Markdown parse
// mode. It is pure: every line is always present and nothing is truncated.
func Render(f record.Fields) string {
	return render(f, true)
}

// RenderPlain is Render without Markdown markers or escaping, for chats
// sent with no parse mode.
func RenderPlain(f record.Fields) string {
	return render(f, false)
}

func render(f record.Fields, markdown bool) string {
	var b strings.Builder
	if markdown {
		b.WriteString(Header)
	} else {
		b.WriteString(strings.Trim(Header, "*"))
	}
	b.WriteString("\n\n")
	for _, l := range Lines {
		b.WriteString(l.Emoji)
		v := l.Value(f)
		if markdown {
			b.WriteString(" *")
			b.WriteString(l.Label)
			b.WriteString(":* ")
			v = EscapeMarkdown(v)
		} else {
			b.WriteString(" ")
			b.WriteString(l.Label)
			b.WriteString(": ")
		}
		b.WriteString(v)
		b.WriteString("\n")
	}
	return b.String()
}
