package ai

import (
	"fmt"
	"strings"
)

// Persona describes the model profile a user is chatting with.
type Persona struct {
	Name string
	Age  int
	Bio  string
}

// PersonaPrompt builds the chat prompt for one user message of kind
// "text", "image" or "audio".
func PersonaPrompt(p Persona, kind, text string) string {
	var sent string
	switch kind {
	case "image":
		sent = "sent you a photo"
	case "audio":
		sent = "sent you a voice message"
	default:
		sent = "sent you a message"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, age %d. Your character: %q. You are charming and flirtatious. The user %s", p.Name, p.Age, p.Bio, sent)
	if text = strings.TrimSpace(text); text != "" {
		fmt.Fprintf(&b, ": %q", text)
	}
	b.WriteString(". If you receive a photo or audio, react to it in character. Keep the reply short, write in Bengali and use plenty of emojis.")
	return b.String()
}

// BioPrompt asks for a short profile bio.
func BioPrompt(name string, age int) string {
	return fmt.Sprintf("You are a creative writer for a premium dating app. Write an alluring bio in Bengali for %s, age %d. No preamble. At most 2 short sentences. Use emojis.", name, age)
}

// TeaserPrompt asks for a one-line teaser for an exclusive photo.
func TeaserPrompt(name string) string {
	return fmt.Sprintf("Write a short teasing caption in Bengali for an exclusive photo of %s. No preamble. One line. Use emojis.", name)
}
