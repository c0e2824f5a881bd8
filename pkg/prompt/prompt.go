// Package prompt assembles the prompts sent to the page generator.
package prompt

import (
	"strings"

	"portfolioai/pkg/domain"
)

// SystemInstruction is sent as the system message on every generation call.
const SystemInstruction = `You are a portfolio webpage generator chatbot.
Task: using the resume data provided, generate a static HTML and CSS portfolio page with a professional and visually appealing design.

Give higher priority to user input than any other information.

Features:
- Include a header with the person's name, title, and navigation links (About, Projects, Contact).
- Add a hero section with an engaging introduction based on the resume data.
- Showcase skills using visually appealing elements such as badges, icons, or progress bars.
- Include an experience section with job titles, company names, employment periods, and key achievements presented as cards, timelines, or lists.
- Include a projects section with project titles and descriptions.
- Include a contact section with the person's contact details.
- The design should be dark, modern, and minimalistic, with purple as the accent color.
- The layout must be fully responsive on desktop and mobile.
- Add smooth scrolling and simple animations such as hover effects and fade-ins.
- Use internal CSS and JavaScript only. Do not rely on external files or libraries.
- All code must be in a single file named index.html.

Do not include explanations, comments, or any text other than the HTML, CSS, and JavaScript code.`

// Initial builds the first-turn prompt from the extracted resume and the
// user's free-form description.
func Initial(resumeText, description string) string {
	var sb strings.Builder
	sb.WriteString("Using my resume, generate a static HTML and CSS portfolio page with a good-looking UI. ")
	sb.WriteString("Only provide the code, no explanations or other text. ")
	sb.WriteString("Keep everything in a single file (index.html) and use internal CSS and JS.\n")
	sb.WriteString("Additional Description: ")
	sb.WriteString(strings.TrimSpace(description))
	sb.WriteString("\n\nResume Text:\n")
	sb.WriteString(resumeText)
	return sb.String()
}

// Turn builds a follow-up prompt. transcript must already be in
// chronological order.
func Turn(transcript, userMessage, resumeText string) string {
	var sb strings.Builder
	if transcript != "" {
		sb.WriteString(transcript)
		sb.WriteString("\n")
	}
	sb.WriteString("Resume Data: ")
	sb.WriteString(strings.TrimSpace(resumeText))
	sb.WriteString("\nUser Input: ")
	sb.WriteString(strings.TrimSpace(userMessage))
	return sb.String()
}

// Transcript renders messages as "sender: text" lines in the given order.
func Transcript(messages []domain.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, string(msg.Sender)+": "+msg.Text)
	}
	return strings.Join(lines, "\n")
}
