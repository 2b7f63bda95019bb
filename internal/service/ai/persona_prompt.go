package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	"github.com/zhouzirui/moodmate/backend/internal/model/persona"
)

// BuildSystemPrompt renders the persona directive for the given display name.
// It is rebuilt for every request so a renamed user is addressed correctly.
func BuildSystemPrompt(p persona.Persona, displayName string) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "You are %s, %s.\n", p.Name, p.Title)
	fmt.Fprintf(&builder, "The user's name is %s.\n", chat.NormalizeDisplayName(displayName))

	for i, step := range p.Steps {
		fmt.Fprintf(&builder, "Step %d: %s\n", i+1, step)
	}
	for _, reply := range p.MoodReplies {
		builder.WriteString("  - ")
		builder.WriteString(reply)
		builder.WriteString("\n")
	}
	if p.Closing != "" {
		builder.WriteString(p.Closing)
	}

	return strings.TrimRight(builder.String(), "\n")
}
