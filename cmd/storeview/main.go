package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/amaumene/streamscout/internal/storage"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorBold   = "\033[1m"
)

type storeStats struct {
	TrackingRecords int
	TrackedShows    int
	Malformed       int
	Users           int
	UsersWithTokens int
	Tokens          int
	WatchlistItems  int
	StaleItems      int
}

type snapshot struct {
	tracked   []domain.TrackedSubject
	profiles  []domain.UserProfile
	watchlist []domain.WatchlistItem
}

type colorizer func(color, text string) string

func main() {
	var (
		dbPath       = flag.String("db", "", "Path to the database file (required)")
		importPath   = flag.String("import", "", "Import a JSON fixture into the database before viewing")
		showStats    = flag.Bool("stats", false, "Show only statistics")
		showSubjects = flag.Bool("subjects", false, "Show tracked shows and their audience")
		showProfiles = flag.Bool("profiles", false, "Show user profiles")
		showWatch    = flag.Bool("watchlist", false, "Show watchlist entries")
		staleAfter   = flag.Duration("stale-after", 30*24*time.Hour, "Age after which a watchlist entry counts as stale")
		noColor      = flag.Bool("no-color", false, "Disable colored output")
	)
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -db <database-path> [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -db /data/streamscout.db -stats\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -db /data/streamscout.db -import fixture.json -subjects\n", os.Args[0])
		os.Exit(1)
	}

	if *importPath == "" {
		if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: Database file '%s' does not exist\n", *dbPath)
			os.Exit(1)
		}
	}

	store, err := storage.OpenBolt(*dbPath, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	colorize := getColorizer(*noColor)

	if *importPath != "" {
		if err := importFixture(ctx, store, *importPath, colorize); err != nil {
			fmt.Fprintf(os.Stderr, "Error importing fixture: %v\n", err)
			os.Exit(1)
		}
	}

	snap, err := loadSnapshot(ctx, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading database: %v\n", err)
		os.Exit(1)
	}
	stats := calculateStats(snap, time.Now(), *staleAfter)

	printHeader(colorize, *dbPath)
	if *showStats {
		printStatistics(colorize, stats)
		return
	}

	all := !*showSubjects && !*showProfiles && !*showWatch
	if all || *showSubjects {
		printSubjects(colorize, snap.tracked)
	}
	if all || *showProfiles {
		printProfiles(colorize, snap.profiles)
	}
	if all || *showWatch {
		printWatchlist(colorize, snap.watchlist, time.Now(), *staleAfter)
	}

	fmt.Println(colorize("cyan", "=== SUMMARY ==="))
	printStatistics(colorize, stats)
}

func importFixture(ctx context.Context, store *storage.BoltStore, path string, colorize colorizer) error {
	fixture, err := storage.LoadFixture(path)
	if err != nil {
		return err
	}
	imported, err := store.Import(ctx, fixture)
	if err != nil {
		return err
	}
	fmt.Printf("%s %d tracking records, %d watchlist items, %d users\n\n",
		colorize("green", "Imported:"), imported.TrackedSubjects, imported.WatchlistItems, imported.Users)
	return nil
}

func loadSnapshot(ctx context.Context, store *storage.BoltStore) (*snapshot, error) {
	tracked, err := store.ListTrackedSubjects(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := store.ListUserProfiles(ctx)
	if err != nil {
		return nil, err
	}
	watchlist, err := store.ListWatchlistItems(ctx)
	if err != nil {
		return nil, err
	}
	return &snapshot{tracked: tracked, profiles: profiles, watchlist: watchlist}, nil
}

func calculateStats(snap *snapshot, now time.Time, staleAfter time.Duration) storeStats {
	stats := storeStats{
		TrackingRecords: len(snap.tracked),
		Users:           len(snap.profiles),
		WatchlistItems:  len(snap.watchlist),
	}

	shows := make(map[int64]struct{})
	for _, record := range snap.tracked {
		if !record.Valid() {
			stats.Malformed++
			continue
		}
		shows[record.SubjectID] = struct{}{}
	}
	stats.TrackedShows = len(shows)

	for _, profile := range snap.profiles {
		if profile.HasTokens() {
			stats.UsersWithTokens++
		}
		for _, token := range profile.DeliveryTokens {
			if token != "" {
				stats.Tokens++
			}
		}
	}

	threshold := now.Add(-staleAfter)
	for _, item := range snap.watchlist {
		if !item.AddedAt.IsZero() && item.AddedAt.Before(threshold) {
			stats.StaleItems++
		}
	}
	return stats
}

// groupAudience mirrors what the episode scan sees: one entry per show,
// each user counted once.
func groupAudience(tracked []domain.TrackedSubject) (map[int64][]string, []int64) {
	sets := make(map[int64]domain.UserSet)
	for _, record := range tracked {
		if !record.Valid() {
			continue
		}
		if _, ok := sets[record.SubjectID]; !ok {
			sets[record.SubjectID] = domain.NewUserSet()
		}
		sets[record.SubjectID].Add(record.OwnerUserID)
	}

	audience := make(map[int64][]string, len(sets))
	ids := make([]int64, 0, len(sets))
	for id, users := range sets {
		audience[id] = users.Sorted()
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return audience, ids
}

func getColorizer(noColor bool) colorizer {
	if noColor {
		return func(color, text string) string { return text }
	}

	colors := map[string]string{
		"red":    colorRed,
		"green":  colorGreen,
		"yellow": colorYellow,
		"blue":   colorBlue,
		"purple": colorPurple,
		"cyan":   colorCyan,
		"white":  colorWhite,
		"bold":   colorBold,
	}

	return func(color, text string) string {
		if c, ok := colors[color]; ok {
			return c + text + colorReset
		}
		return text
	}
}

func printHeader(colorize colorizer, dbPath string) {
	line := strings.Repeat("=", 60)
	fmt.Println(colorize("bold", line))
	fmt.Println(colorize("cyan", "  STREAMSCOUT STORE VIEWER"))
	fmt.Println(colorize("bold", line))
	fmt.Printf("%s %s\n", colorize("yellow", "Database:"), filepath.Base(dbPath))
	fmt.Printf("%s %s\n\n", colorize("yellow", "Scanned:"), time.Now().Format("2006-01-02 15:04:05"))
}

func printStatistics(colorize colorizer, stats storeStats) {
	fmt.Println(colorize("bold", "STORE STATISTICS"))
	fmt.Printf("  Tracking records:  %s\n", colorize("white", fmt.Sprintf("%d", stats.TrackingRecords)))
	fmt.Printf("  Tracked shows:     %s\n", colorize("purple", fmt.Sprintf("%d", stats.TrackedShows)))
	if stats.Malformed > 0 {
		fmt.Printf("  Malformed records: %s\n", colorize("red", fmt.Sprintf("%d", stats.Malformed)))
	}
	fmt.Printf("  Users:             %s\n", colorize("white", fmt.Sprintf("%d", stats.Users)))
	fmt.Printf("  Users with tokens: %s\n", colorize("green", fmt.Sprintf("%d", stats.UsersWithTokens)))
	fmt.Printf("  Delivery tokens:   %s\n", colorize("green", fmt.Sprintf("%d", stats.Tokens)))
	fmt.Printf("  Watchlist items:   %s\n", colorize("blue", fmt.Sprintf("%d", stats.WatchlistItems)))
	fmt.Printf("  Stale items:       %s\n", colorize("yellow", fmt.Sprintf("%d", stats.StaleItems)))
	fmt.Println()
}

func printSubjects(colorize colorizer, tracked []domain.TrackedSubject) {
	fmt.Println(colorize("bold", "TRACKED SHOWS"))
	audience, ids := groupAudience(tracked)
	for _, id := range ids {
		users := audience[id]
		fmt.Printf("  %s %s\n",
			colorize("purple", fmt.Sprintf("[%d]", id)),
			colorize("white", fmt.Sprintf("%d users: %s", len(users), strings.Join(users, ", "))))
	}
	fmt.Println()
}

func printProfiles(colorize colorizer, profiles []domain.UserProfile) {
	fmt.Println(colorize("bold", "USER PROFILES"))
	for _, profile := range profiles {
		status := colorize("green", fmt.Sprintf("%d tokens", len(profile.DeliveryTokens)))
		if !profile.HasTokens() {
			status = colorize("red", "no tokens")
		}
		fmt.Printf("  %s %s\n", colorize("bold", profile.UserID), status)
	}
	fmt.Println()
}

func printWatchlist(colorize colorizer, items []domain.WatchlistItem, now time.Time, staleAfter time.Duration) {
	fmt.Println(colorize("bold", "WATCHLIST"))
	threshold := now.Add(-staleAfter)
	for _, item := range items {
		marker := colorize("green", "fresh")
		if item.AddedAt.IsZero() {
			marker = colorize("white", "undated")
		} else if item.AddedAt.Before(threshold) {
			marker = colorize("yellow", "stale")
		}
		fmt.Printf("  %s %s %s %s\n",
			colorize("white", item.OwnerUserID),
			colorize("bold", item.Title),
			colorize("blue", fmt.Sprintf("(%s %s)", item.MediaType, item.MediaID)),
			marker)
	}
	fmt.Println()
}
