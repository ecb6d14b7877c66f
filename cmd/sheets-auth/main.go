// Command sheets-auth runs the one-off OAuth consent flow for the Google
// Sheets importer and writes the resulting token to GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"walletwatcher/internal/cli"
	"walletwatcher/internal/log"
	gsheet "walletwatcher/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	clientFile := os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")
	if clientFile == "" {
		fatal(logger, "set GOOGLE_OAUTH_CLIENT_FILE", nil)
	}
	b, err := os.ReadFile(clientFile)
	if err != nil {
		fatal(logger, "read client file", err)
	}
	cfg, err := google.ConfigFromJSON(b, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		fatal(logger, "oauth config", err)
	}

	// The OAuth client must list this redirect URI.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: "localhost:" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Callback server failed", log.FieldError, err)
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)

	select {
	case code := <-codeCh:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			fatal(logger, "token exchange", err)
		}
		outFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
		if outFile == "" {
			outFile = "token.json"
		}
		if err := gsheet.SaveToken(outFile, tok); err != nil {
			fatal(logger, "save token", err)
		}
		logger.Info("Saved OAuth token", "path", outFile)
	case <-time.After(5 * time.Minute):
		fatal(logger, "authorization timed out", nil)
	case <-interrupted:
		fatal(logger, "interrupted", nil)
	}
}

func fatal(logger *log.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, log.FieldError, err)
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}
