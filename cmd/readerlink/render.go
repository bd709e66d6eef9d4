package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/search"
	"github.com/pders01/readerlink/internal/storage"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))
	titleStyle = lipgloss.NewStyle().
			Bold(true)
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA86B"))
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1D3"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

func renderAccounts(w io.Writer, accounts []*storage.Account) {
	fmt.Fprintln(w, headerStyle.Render("Accounts"))
	if len(accounts) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  none"))
		return
	}
	for _, acc := range accounts {
		name := acc.DisplayName
		if name == "" {
			name = acc.UserName
		}
		fmt.Fprintf(w, "  %s  %s %s\n",
			titleStyle.Render(acc.ID),
			name,
			dimStyle.Render("(updated "+acc.UpdatedAt.Format(time.DateTime)+")"))
	}
}

func feedTitle(f reader.ExternalFeed) string {
	if f.Title != "" {
		return f.Title
	}
	return f.FeedID
}

func renderFeeds(w io.Writer, account *storage.Account, feeds []reader.ExternalFeed) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Feeds of %s (%d)", account.ID, len(feeds))))
	for _, f := range feeds {
		line := "  " + titleStyle.Render(feedTitle(f)) + " " + dimStyle.Render(f.FeedID)
		if len(f.Categories) > 0 {
			line += " " + countStyle.Render("["+strings.Join(f.Categories, ", ")+"]")
		}
		fmt.Fprintln(w, line)
	}
}

func renderCounts(w io.Writer, counts map[string]int, titles map[string]string) {
	ids := make([]string, 0, len(counts))
	total := 0
	for id, n := range counts {
		ids = append(ids, id)
		total += n
	}
	sort.Strings(ids)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Unread (%d)", total)))
	for _, id := range ids {
		title := titles[id]
		if title == "" {
			title = id
		}
		fmt.Fprintf(w, "  %s %s\n", countStyle.Render(fmt.Sprintf("%5d", counts[id])), title)
	}
}

func renderEntries(w io.Writer, unread map[string][]reader.FeedEntry, titles map[string]string) {
	ids := make([]string, 0, len(unread))
	for id := range unread {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Unread entries (%d)", reader.Count(unread))))
	for _, id := range ids {
		title := titles[id]
		if title == "" {
			title = id
		}
		fmt.Fprintln(w, titleStyle.Render(title))
		for _, e := range unread[id] {
			published := ""
			if !e.Published.IsZero() {
				published = e.Published.Local().Format(time.DateTime)
			}
			fmt.Fprintf(w, "  %s %s\n", dimStyle.Render(published), e.Title)
			fmt.Fprintf(w, "    %s %s\n", dimStyle.Render(e.ID), e.URL)
		}
	}
}

func renderResults(w io.Writer, query string, results []*search.Result) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Results for %q (%d)", query, len(results))))
	for _, r := range results {
		fmt.Fprintf(w, "  %s %s\n", countStyle.Render(fmt.Sprintf("%.2f", r.Score)), titleStyle.Render(r.Entry.Title))
		fmt.Fprintf(w, "    %s %s\n", dimStyle.Render(r.Entry.AccountID+" "+r.Entry.ID), r.Entry.URL)
	}
}
