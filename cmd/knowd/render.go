package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/knowd/internal/knowledge"
)

// Lipgloss styles for terminal output.
var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("13"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// shortID returns the display prefix of an entry ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderEntry formats one entry for list and get output.
func renderEntry(e knowledge.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", idStyle.Render(shortID(e.ID)), e.Content)
	meta := []string{e.CreatedAt.Local().Format(time.DateTime)}
	if len(e.Tags) > 0 {
		meta = append(meta, tagStyle.Render("["+strings.Join(e.Tags, ", ")+"]"))
	}
	fmt.Fprintf(&b, "  %s\n", dimStyle.Render(strings.Join(meta, "  ")))
	return b.String()
}

// renderSearchResult formats one search hit with its rank and score.
func renderSearchResult(r knowledge.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n",
		titleStyle.Render(fmt.Sprintf("%d.", r.Rank)),
		idStyle.Render(shortID(r.Entry.ID)),
		r.Entry.Content,
	)
	meta := []string{fmt.Sprintf("score %.3f", r.Score)}
	if len(r.Entry.Tags) > 0 {
		meta = append(meta, tagStyle.Render("["+strings.Join(r.Entry.Tags, ", ")+"]"))
	}
	fmt.Fprintf(&b, "   %s\n", dimStyle.Render(strings.Join(meta, "  ")))
	return b.String()
}

// renderProjectInfo formats project statistics.
func renderProjectInfo(info knowledge.ProjectInfo) string {
	var b strings.Builder
	fmt.Fprintln(&b, titleStyle.Render(info.Name))
	fmt.Fprintf(&b, "  Entries:      %d\n", info.TotalEntries)
	fmt.Fprintf(&b, "  Created:      %s\n", info.CreatedAt.Local().Format(time.DateTime))
	if info.LastUpdated != nil {
		fmt.Fprintf(&b, "  Last updated: %s\n", info.LastUpdated.Local().Format(time.DateTime))
	}
	return b.String()
}
