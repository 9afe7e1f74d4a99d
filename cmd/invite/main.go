// Package main provides the bot installation tool.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

const (
	authURL  = "https://discord.com/oauth2/authorize"
	tokenURL = "https://discord.com/api/oauth2/token"

	// botPermissions are the channel permissions the bot needs to answer commands.
	botPermissions = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks
)

var (
	app          = kingpin.New("vctrack-invite", "Install the vctrack bot into a Discord server")
	clientID     = app.Flag("client-id", "Discord application ID").Envar("DISCORD_APPLICATION_ID").Required().String()
	clientSecret = app.Flag("client-secret", "Discord application client secret").Envar("DISCORD_CLIENT_SECRET").Required().String()
	guildID      = app.Flag("guild-id", "Preselect this server").Envar("DISCORD_GUILD_ID").String()
	port         = app.Flag("port", "Callback server port").Default("8888").Int()

	ch = make(chan *oauth2.Token)
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	conf := oauthConfig(*clientID, *clientSecret, fmt.Sprintf("http://127.0.0.1:%d/callback", *port))
	state := uuid.New().String()

	http.HandleFunc("/callback", completeAuth(conf, state))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	fmt.Println("Please visit the following URL to add the bot to your server:")
	fmt.Println("")
	fmt.Println(installURL(conf, state, *guildID))
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	token := <-ch

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown server: %v", err)
	}

	fmt.Println("")
	fmt.Println("=== Installation Successful ===")
	fmt.Println("")
	if id, name := guildOf(token); id != "" {
		fmt.Printf("Server: %s (%s)\n", name, id)
		fmt.Println("")
		fmt.Println("Add this to your config.yaml:")
		fmt.Println("")
		fmt.Println("discord:")
		fmt.Printf("  guild_id: \"%s\"\n", id)
		fmt.Println("")
		fmt.Println("Or set as environment variable:")
		fmt.Printf("export DISCORD_GUILD_ID=\"%s\"\n", id)
	}
}

func oauthConfig(id, secret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     id,
		ClientSecret: secret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"bot", "applications.commands"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// installURL builds the advanced bot authorization URL.
func installURL(conf *oauth2.Config, state, guild string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("permissions", strconv.FormatInt(botPermissions, 10)),
	}
	if guild != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("guild_id", guild),
			oauth2.SetAuthURLParam("disable_guild_select", "true"),
		)
	}
	return conf.AuthCodeURL(state, opts...)
}

// guildOf reads the guild Discord attaches to a bot authorization token.
func guildOf(token *oauth2.Token) (id, name string) {
	guild, ok := token.Extra("guild").(map[string]any)
	if !ok {
		return "", ""
	}
	id, _ = guild["id"].(string)
	name, _ = guild["name"].(string)
	return id, name
}

func completeAuth(conf *oauth2.Config, state string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st := r.FormValue("state"); st != state {
			http.Error(w, "State mismatch", http.StatusForbidden)
			log.Printf("State mismatch: %s != %s", st, state)
			return
		}
		if e := r.FormValue("error"); e != "" {
			http.Error(w, "Authorization denied", http.StatusForbidden)
			log.Printf("Authorization denied: %s", e)
			return
		}

		token, err := conf.Exchange(r.Context(), r.FormValue("code"))
		if err != nil {
			http.Error(w, "Failed to get token", http.StatusForbidden)
			log.Printf("Failed to get token: %v", err)
			return
		}

		fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>vctrack - Installation Complete</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #5865F2;
            color: white;
        }
        .container {
            text-align: center;
            padding: 40px;
            background: rgba(0, 0, 0, 0.3);
            border-radius: 16px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>Installation Complete</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)

		ch <- token
	}
}
