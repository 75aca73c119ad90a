package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
)

const maxGroupWeight = 999

// Templates are the unresolved presentation templates applied to every client.
type Templates struct {
	DisplayName string
	Header      []string
	Footer      []string
}

// DefaultTemplates mirrors the stock tab layout.
func DefaultTemplates() Templates {
	return Templates{
		DisplayName: "{prefix}{name}{suffix}",
		Header:      []string{"{animation:hearts}", "Welcome, {name}"},
		Footer:      []string{"{animation:time}", "{animation:loading}"},
	}
}

// TemplateRenderer substitutes profile tokens into the configured templates.
// Animation placeholders are left untouched for the animation engine.
type TemplateRenderer struct {
	displayName string
	header      string
	footer      string
}

// NewTemplateRenderer creates a new template renderer
func NewTemplateRenderer(t Templates) *TemplateRenderer {
	return &TemplateRenderer{
		displayName: t.DisplayName,
		header:      strings.Join(t.Header, "\n"),
		footer:      strings.Join(t.Footer, "\n"),
	}
}

// Render returns the presentation of client with profile tokens substituted.
func (r *TemplateRenderer) Render(client identity.Client, profile identity.Profile) presentation.Snapshot {
	replacer := strings.NewReplacer(
		"{name}", client.Name,
		"{prefix}", profile.Prefix,
		"{suffix}", profile.Suffix,
		"{group}", profile.GroupName,
		"{weight}", strconv.Itoa(profile.Weight),
	)

	return presentation.Snapshot{
		DisplayName: replacer.Replace(r.displayName),
		Header:      replacer.Replace(r.header),
		Footer:      replacer.Replace(r.footer),
		GroupKey:    GroupKey(profile),
	}
}

// GroupKey orders clients by descending group weight, then by group name.
func GroupKey(profile identity.Profile) string {
	weight := min(max(profile.Weight, 0), maxGroupWeight)
	return fmt.Sprintf("%03d_%s", maxGroupWeight-weight, profile.GroupName)
}
