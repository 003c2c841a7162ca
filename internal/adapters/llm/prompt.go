package llm

import (
	"fmt"
	"strings"

	"go.trai.ch/tome/internal/core/domain"
)

const systemPrompt = "You are a senior engineer documenting a codebase. " +
	"Answer with a single JSON object and nothing else unless asked otherwise."

// renderPrompt turns a PromptSpec into the system and user messages for one
// chat-completion call.
func renderPrompt(spec domain.PromptSpec) (system, user string) {
	var b strings.Builder

	switch spec.Kind {
	case domain.PromptStructureScan:
		fmt.Fprintf(&b, "Scan the repository at %q. ", spec.Path)
		b.WriteString(`Report {"fileCount": <approximate number of files>, ` +
			`"areas": [{"name", "path", "description"}], ` +
			`"project": {"name", "description"}}. ` +
			"Areas are the top-level regions of the tree.")
	case domain.PromptFullDiscovery:
		fmt.Fprintf(&b, "Discover the components of the repository at %q. ", spec.Path)
		b.WriteString(graphSchema)
	case domain.PromptAreaDiscovery:
		fmt.Fprintf(&b, "Discover the components of the %q area rooted at %q. ", spec.Subject, spec.Path)
		b.WriteString(graphSchema)
	case domain.PromptAnalyzeUnit:
		fmt.Fprintf(&b, "Analyze the component %q at %q. ", spec.Subject, spec.Path)
		b.WriteString(`Report {"summary", "details", "interfaces": [...], "risks": [...]}.`)
	case domain.PromptWriteArticle:
		fmt.Fprintf(&b, "Write a documentation article for the component %q. ", spec.Subject)
		b.WriteString(`Report {"title", "body"} where body is Markdown.`)
	}

	if spec.Context != "" {
		b.WriteString("\n\nContext:\n")
		b.WriteString(spec.Context)
	}
	if spec.Amendment != "" {
		b.WriteString("\n\nYour previous answer could not be parsed: ")
		b.WriteString(spec.Amendment)
		b.WriteString("\nAnswer again with only the JSON object.")
	}

	return systemPrompt, b.String()
}

const graphSchema = `Report {"project": {"name", "description", "architectureNotes": [...]}, ` +
	`"units": [{"id", "name", "path", "purpose", "complexity": "low|medium|high", ` +
	`"category", "dependencies": [...ids]}], ` +
	`"categories": [{"name", "description"}]}.`
