package ui

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/target"
	"github.com/charmbracelet/glamour"
)

// Describe writes a markdown summary of d: what it is made of and which
// of its artifacts are present locally. Readiness is judged by presence
// only; hashes are not computed.
func Describe(d *dataset.Dataset) string {
	var b strings.Builder
	spec := d.Spec()

	fmt.Fprintf(&b, "# %s\n\n", d.Name())
	if spec.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(spec.Description))
	}

	fmt.Fprintf(&b, "- **root**: `%s`\n", d.Root())
	if d.CloudRoot() != "" {
		fmt.Fprintf(&b, "- **cloud**: `%s`\n", d.CloudRoot())
	} else {
		b.WriteString("- **cloud**: _not configured_\n")
	}
	fmt.Fprintf(&b, "- **pack strategy**: %s\n", d.Strategy().Name())
	if spec.PostProcess != "" {
		fmt.Fprintf(&b, "- **post-process**: %s\n", spec.PostProcess)
	}
	if spec.Loader != "" {
		fmt.Fprintf(&b, "- **loader**: %s\n", spec.Loader)
	}

	b.WriteString("\n## Sources\n\n| path | url | extract | present |\n|---|---|---|---|\n")
	for _, s := range d.Sources() {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", s.RelPath(), s.URL(), s.Extract(), presence(s.LocalTarget))
	}

	b.WriteString("\n## Builds\n\n| path | present |\n|---|---|\n")
	for _, t := range d.Builds() {
		fmt.Fprintf(&b, "| `%s` | %s |\n", t.RelPath(), presence(t))
	}

	if packs := d.Packs(); len(packs) > 0 {
		b.WriteString("\n## Packs\n\n| path | members | present |\n|---|---|---|\n")
		for _, p := range packs {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", p.RelPath(), strings.Join(p.Members(), ", "), presence(p.LocalTarget))
		}
	}

	return b.String()
}

func presence(t *target.LocalTarget) string {
	if t.Exists() {
		return "yes"
	}
	return "no"
}

// RenderMarkdown renders md for a terminal. When interactive is false, or
// rendering fails, the markdown is returned as is.
func RenderMarkdown(md string, width int, interactive bool) string {
	if !interactive {
		return md
	}

	options := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		options = append(options, glamour.WithWordWrap(width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return md
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return rendered
}
