package negotiate

import (
	"fmt"
	"strings"
)

// DisplayPrompt renders the text shown to the human. Choices are listed one
// per line with their 1-based number so the reply can be either.
func DisplayPrompt(prompt string, choices []string) string {
	if len(choices) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nOptions:\n")
	for i, choice := range choices {
		fmt.Fprintf(&b, "%d) %s\n", i+1, choice)
	}
	b.WriteString("(Type the value or its number)")
	return b.String()
}
