// Viewer dumps the user directory of a running (or stopped) gateway.
// It opens BadgerDB in read-only mode so it can run next to the server.
package main

import (
	"log"
	"os"
	"strings"

	"chat-gateway/internal"
	"chat-gateway/repositories"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (the gateway) holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	users, err := repositories.NewUserRepository(db).ListUsers()
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	color.New(color.BgBlack, color.FgGreen).Printf("  ====== %d user(s) ======\n", len(users))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Username", "Email", "Google", "Roles", "Created"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, row := range lo.Map(users, toRow) {
		table.Append(row)
	}
	table.Render()
}

func toRow(user repositories.User, _ int) []string {
	// Show the first 8 characters of the id for readability
	displayID := user.ID
	if len(displayID) > 8 {
		displayID = displayID[:8]
	}

	linked := "-"
	if user.GoogleID != "" {
		linked = "yes"
	}

	return []string{
		displayID,
		user.Username,
		user.Email,
		linked,
		strings.Join(user.Roles, ","),
		user.CreatedAt.Format("2006-01-02 15:04"),
	}
}
