// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/vctrack/internal/api/connect"
	"github.com/osa030/vctrack/internal/domain/report"
)

var (
	app    = kingpin.New("vctrack-admincli", "vctrack admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Get session status")

	// watch command
	watchCmd = app.Command("watch", "Stream session events")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewAdminClient(http.DefaultClient, *server, *token)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

func status(ctx context.Context, client *apiconnect.AdminClient) {
	s, err := client.GetStatus(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== CURRENT SESSION STATUS ===")
	printStatus(s)
	fmt.Println()
}

func printStatus(s *apiconnect.StatusView) {
	fmt.Printf("Phase: %s\n", s.Phase)
	fmt.Printf("Target Channel: %s\n", s.ChannelID)
	fmt.Printf("Watchers: %d\n", s.Subscribers)
	if s.Host != nil {
		fmt.Printf("Host: cpu=%.1f%% memory=%.1f%%\n", s.Host.CPUPercent, s.Host.MemoryPercent)
	}

	if s.Phase != "active" {
		fmt.Println("\nNo active tracking session")
		return
	}

	fmt.Println("\nSession Info:")
	fmt.Printf("  Session ID: %s\n", s.SessionID)
	fmt.Printf("  Started At: %s\n", s.StartedAt)
	fmt.Printf("  Mode: %s\n", s.Mode)
	if len(s.Scope) > 0 {
		fmt.Printf("  Scope: %v\n", s.Scope)
	}

	fmt.Printf("\nTracked Users (%d):\n", len(s.Users))
	for _, u := range s.Users {
		presence := "away"
		if u.Present {
			presence = "in channel"
		}
		boost := ""
		if u.BoostPercent > 0 {
			boost = fmt.Sprintf(" (%d%% boost)", u.BoostPercent)
		}
		fmt.Printf("  %-24s %-12s %-12s %d coins%s\n",
			u.DisplayName, presence, formatSeconds(u.ElapsedSeconds), u.Coins, boost)
	}
	fmt.Printf("\nTotal: %s, %d coins\n", formatSeconds(s.TotalElapsedSeconds), s.TotalCoins)
}

func watch(ctx context.Context, client *apiconnect.AdminClient) {
	err := client.Watch(ctx, func(ev *apiconnect.EventView) error {
		if ev.Type == "initial_state" {
			fmt.Println("=== INITIAL STATE ===")
			if ev.Status != nil {
				printStatus(ev.Status)
			}
			fmt.Println("\n=== EVENTS ===")
			return nil
		}

		line := fmt.Sprintf("[%d] %s %s", ev.SequenceNo, ev.Time, ev.Event)
		if ev.UserID != "" {
			line += fmt.Sprintf(" user=%s (%s)", ev.DisplayName, ev.UserID)
		}
		fmt.Println(line)
		return nil
	})
	if err != nil && ctx.Err() == nil && connect.CodeOf(err) != connect.CodeCanceled {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func formatSeconds(sec int64) string {
	return report.FormatDuration(time.Duration(sec) * time.Second)
}
