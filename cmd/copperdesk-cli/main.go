// Command copperdesk-cli is a terminal client for the ticket service. It
// polls the retrieval endpoint, applies locally persisted filters, and
// renders the result as a list or kanban board.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/copperdesk/copperdesk/pkg/observability"
	"github.com/copperdesk/copperdesk/pkg/prefs"
	"github.com/copperdesk/copperdesk/pkg/ticketview"
	"github.com/copperdesk/copperdesk/pkg/tickets"
)

var (
	serverURL    = flag.String("server", getEnv("COPPERDESK_SERVER", "http://localhost:8080"), "Server base URL")
	token        = flag.String("token", os.Getenv("COPPERDESK_TOKEN"), "Session token")
	prefsPath    = flag.String("prefs", defaultPrefsPath(), "Preference file path")
	pollInterval = flag.Duration("interval", 5*time.Second, "Poll interval")
	watch        = flag.Bool("watch", false, "Keep polling and re-render on every update")

	viewMode   = flag.String("view", "", "View mode: list or kanban (persisted)")
	sortBy     = flag.String("sort", "", "Sort key: newest, oldest, priority, status (persisted)")
	grouping   = flag.String("group", "", "Kanban grouping: status or assignee (persisted)")
	togglePrio = flag.String("toggle-priority", "", "Toggle a priority filter value")
	toggleStat = flag.String("toggle-status", "", "Toggle a status filter value")
	toggleAssn = flag.String("toggle-assignee", "", "Toggle an assignee filter value")
	clearAll   = flag.Bool("clear-filters", false, "Clear all filter selections")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	if *token == "" {
		log.Fatal("no session token: pass --token or set COPPERDESK_TOKEN")
	}

	logger := observability.NewLogger(observability.WarnLevel, os.Stderr)
	store, err := prefs.Open(*prefsPath, logger)
	if err != nil {
		// Preferences are best-effort; run with defaults instead of failing.
		log.WithError(err).Warn("preference store unavailable, using defaults")
		store = nil
	}

	filters := ticketview.LoadFilterState(kv(store))
	settings := ticketview.LoadViewSettings(kv(store))
	applyFlagOverrides(log, filters, &settings)

	if err := ticketview.SaveFilterState(kv(store), filters); err != nil {
		log.WithError(err).Warn("failed to persist filter selections")
	}
	if err := ticketview.SaveViewSettings(kv(store), settings); err != nil {
		log.WithError(err).Warn("failed to persist view settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := ticketview.NewClient(*serverURL, *token, nil)

	// The poller and the preference watcher call render from different
	// goroutines; stateMu keeps filters and settings consistent per render
	// and keeps whole renders from interleaving on stdout.
	var stateMu sync.Mutex
	render := func(all []tickets.Ticket) {
		stateMu.Lock()
		defer stateMu.Unlock()
		filtered := ticketview.ApplyFilters(all, filters)
		view := ticketview.DeriveView(filtered, settings)
		printView(view, settings, len(all))
	}

	if !*watch {
		all, err := client.FetchTickets(ctx)
		if err != nil {
			log.WithError(err).Fatal("ticket fetch failed")
		}
		render(all)
		return
	}

	onError := func(err error) {
		log.WithError(err).Warn("poll failed, keeping last result")
	}
	poller := ticketview.NewPoller(client, *pollInterval, logger, render, onError)

	// Re-render when another process rewrites the preference file.
	if store != nil {
		closeWatch, err := store.Watch(func() {
			stateMu.Lock()
			filters = ticketview.LoadFilterState(store)
			settings = ticketview.LoadViewSettings(store)
			stateMu.Unlock()
			if current := poller.Current(); current != nil {
				render(current)
			}
		})
		if err != nil {
			log.WithError(err).Warn("preference watch unavailable")
		} else {
			defer closeWatch()
		}
	}

	log.WithField("server", *serverURL).Info("watching tickets")
	poller.Run(ctx)
}

// kv keeps a typed nil *prefs.Store from sneaking into the KV interface.
func kv(store *prefs.Store) ticketview.KV {
	if store == nil {
		return nil
	}
	return store
}

func applyFlagOverrides(log *logrus.Logger, filters *ticketview.FilterState, settings *ticketview.ViewSettings) {
	if *clearAll {
		filters.Clear()
	}
	if *togglePrio != "" {
		filters.TogglePriority(*togglePrio)
	}
	if *toggleStat != "" {
		filters.ToggleStatus(*toggleStat)
	}
	if *toggleAssn != "" {
		filters.ToggleAssignee(*toggleAssn)
	}

	switch *viewMode {
	case "":
	case ticketview.ViewList, ticketview.ViewKanban:
		settings.ViewMode = *viewMode
	default:
		log.Warnf("unknown view mode %q, keeping %q", *viewMode, settings.ViewMode)
	}
	switch *sortBy {
	case "":
	case ticketview.SortNewest, ticketview.SortOldest, ticketview.SortPriority, ticketview.SortStatus:
		settings.SortBy = *sortBy
	default:
		log.Warnf("unknown sort key %q, keeping %q", *sortBy, settings.SortBy)
	}
	switch *grouping {
	case "":
	case ticketview.GroupByStatus, ticketview.GroupByAssignee:
		settings.KanbanGrouping = *grouping
	default:
		log.Warnf("unknown grouping %q, keeping %q", *grouping, settings.KanbanGrouping)
	}
}

func printView(view ticketview.View, settings ticketview.ViewSettings, total int) {
	fmt.Printf("\n=== %s | sort: %s | %d/%d tickets ===\n",
		time.Now().Format(time.TimeOnly), settings.SortBy, len(view.Sorted), total)

	if settings.ViewMode == ticketview.ViewKanban {
		for _, col := range view.Columns {
			if len(col.Tickets) == 0 {
				continue
			}
			fmt.Printf("\n[%s] (%d)\n", col.Title, len(col.Tickets))
			for _, t := range col.Tickets {
				fmt.Printf("  %s\n", formatTicket(&t))
			}
		}
		return
	}

	for _, t := range view.Sorted {
		fmt.Println(formatTicket(&t))
	}
}

func formatTicket(t *tickets.Ticket) string {
	assignee := "unassigned"
	if t.AssignedTo != nil {
		assignee = t.AssignedTo.Name
	} else if t.AssigneeID != "" {
		assignee = t.AssigneeID
	}

	parts := []string{
		t.ID,
		fmt.Sprintf("%-8s", t.Priority),
		fmt.Sprintf("%-13s", t.Status),
		assignee,
		t.Title,
	}
	return strings.Join(parts, "  ")
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "copperdesk", "prefs.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
