package ai

import (
	"fmt"
	"strings"

	"github.com/v0xg/webexplore/internal/crawler"
)

const systemPrompt = `You are an autonomous web application explorer. Your goal is to discover as many distinct pages of the application as possible within a limited number of interactions.

You will receive:
1. The current page identity (URL, title, headings)
2. Coverage progress (pages reached so far versus the target)
3. A list of recent interactions that must NOT be repeated
4. A numbered list of interactive elements on the page

Choose exactly ONE element to interact with next. Prefer elements that:
- Navigate to pages that have not been visited yet
- Reveal new sections of the application (menus, tabs, listings, detail views)
- Move a workflow forward (search, continue, next, view)

Avoid elements that:
- Repeat a recent interaction
- Log the user out, delete data, or leave the application
- Are purely decorative or lead back to the current page

Respond with a single JSON object and nothing else:
{"elementIndex": <number from the element list>, "reasoning": "<one sentence>", "priority": "high" | "medium" | "low", "expectedOutcome": "<what should happen>"}`

// buildUserPrompt renders the page context. Elements and recent
// interactions must already be cut to the prompt budget.
func buildUserPrompt(pc PageContext) string {
	var b strings.Builder

	b.WriteString("Page:\n")
	fmt.Fprintf(&b, "  URL: %s\n", pc.URL)
	if pc.Title != "" {
		fmt.Fprintf(&b, "  Title: %s\n", pc.Title)
	}
	if len(pc.Headings) > 0 {
		fmt.Fprintf(&b, "  Headings: %s\n", strings.Join(pc.Headings, " | "))
	}

	b.WriteString("\nCoverage:\n")
	if pc.TargetNavigations > 0 {
		fmt.Fprintf(&b, "  %d/%d page navigations achieved\n", pc.CurrentNavigations, pc.TargetNavigations)
	} else {
		fmt.Fprintf(&b, "  %d page navigations achieved\n", pc.CurrentNavigations)
	}
	fmt.Fprintf(&b, "  %d distinct pages visited\n", len(pc.VisitedURLs))

	if len(pc.RecentInteractions) > 0 {
		b.WriteString("\nDo not repeat these recent interactions:\n")
		for _, key := range pc.RecentInteractions {
			fmt.Fprintf(&b, "  - %s\n", key)
		}
	}

	b.WriteString("\nElements:\n")
	for i, el := range pc.Elements {
		b.WriteString(formatElement(i, el))
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\nPick one elementIndex between 0 and %d.", len(pc.Elements)-1)
	return b.String()
}

// formatElement renders `index: type - "text" (href)`.
func formatElement(i int, el crawler.Element) string {
	line := fmt.Sprintf("%d: %s - %q", i, el.Type, el.Label())
	if el.Href != "" {
		line += " (" + el.Href + ")"
	}
	return line
}
