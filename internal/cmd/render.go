package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/bizdir/internal/api"
	"github.com/felixgeelhaar/bizdir/internal/errors"
	"github.com/felixgeelhaar/bizdir/internal/store"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

// renderError adds context for the error kinds a user can act on.
func renderError(err error) string {
	e, ok := errors.As(err)
	if !ok {
		return err.Error()
	}
	switch e.Kind {
	case errors.KindBlocked:
		msg := warnStyle.Render("Account temporarily blocked.")
		if !e.ResumeAt.IsZero() {
			msg += mutedStyle.Render(fmt.Sprintf(" Try again after %s.", e.ResumeAt.Format(time.RFC1123)))
		}
		return msg
	case errors.KindValidation:
		var b strings.Builder
		b.WriteString(e.Message)
		for field, problem := range e.Fields {
			b.WriteString("\n  " + mutedStyle.Render(field+": ") + problem)
		}
		return b.String()
	default:
		return e.Message
	}
}

func companyBadges(c store.Company) string {
	var badges []string
	if c.Premium {
		badges = append(badges, badgeStyle.Render("premium"))
	}
	if c.Verified {
		badges = append(badges, successStyle.Render("verified"))
	}
	if c.Blocked {
		badges = append(badges, warnStyle.Render("blocked"))
	}
	if len(badges) == 0 {
		return ""
	}
	return " [" + strings.Join(badges, " ") + "]"
}

func renderCompanies(items []store.Company, meta *api.Meta) string {
	if len(items) == 0 {
		return mutedStyle.Render("No companies found.")
	}
	var b strings.Builder
	for _, c := range items {
		b.WriteString(titleStyle.Render(c.Name))
		b.WriteString(companyBadges(c))
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %.1f★ (%d reviews)", c.Rating, c.ReviewCount)))
		b.WriteString("\n  " + mutedStyle.Render(c.ID+"  /"+c.Slug) + "\n")
	}
	b.WriteString(renderMeta(meta))
	return b.String()
}

func renderCompany(c store.Company) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Name) + companyBadges(c) + "\n")
	b.WriteString(mutedStyle.Render("id:     ") + c.ID + "\n")
	b.WriteString(mutedStyle.Render("slug:   ") + c.Slug + "\n")
	b.WriteString(mutedStyle.Render("type:   ") + c.TypeID + "\n")
	b.WriteString(mutedStyle.Render("owner:  ") + c.OwnerID + "\n")
	b.WriteString(mutedStyle.Render("rating: ") + fmt.Sprintf("%.1f (%d reviews)", c.Rating, c.ReviewCount) + "\n")
	if c.Description != "" {
		b.WriteString("\n" + c.Description + "\n")
	}
	return b.String()
}

func renderUsers(items []store.User, meta *api.Meta) string {
	if len(items) == 0 {
		return mutedStyle.Render("No users found.")
	}
	var b strings.Builder
	for _, u := range items {
		b.WriteString(titleStyle.Render(u.Username))
		b.WriteString(mutedStyle.Render("  <" + u.Email + ">  ") + badgeStyle.Render(string(u.Role)))
		if u.Blocked {
			b.WriteString("  " + warnStyle.Render("blocked"))
		}
		b.WriteString("\n  " + mutedStyle.Render(u.ID) + "\n")
	}
	b.WriteString(renderMeta(meta))
	return b.String()
}

func renderContacts(items []store.Contact, meta *api.Meta) string {
	if len(items) == 0 {
		return mutedStyle.Render("No inquiries found.")
	}
	var b strings.Builder
	for _, c := range items {
		b.WriteString(titleStyle.Render(c.Subject))
		b.WriteString(mutedStyle.Render("  from "+c.Name) + "  " + badgeStyle.Render(c.Status))
		b.WriteString("\n  " + mutedStyle.Render(c.ID+"  company="+c.CompanyID) + "\n")
	}
	b.WriteString(renderMeta(meta))
	return b.String()
}

func renderMeta(meta *api.Meta) string {
	if meta == nil {
		return ""
	}
	return mutedStyle.Render(fmt.Sprintf("page %d/%d, %d total", meta.Page, meta.TotalPages, meta.Total))
}
