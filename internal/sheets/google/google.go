package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"walletwatcher/internal/importer"
	"walletwatcher/internal/log"
	ports "walletwatcher/internal/sheets"
)

// DefaultRange covers the five import columns of a "Transactions" tab.
const DefaultRange = "Transactions!A:E"

var _ ports.RowReader = (*Client)(nil)

// Config selects the spreadsheet and how to authenticate. Service account
// credentials win over an OAuth client/token pair.
type Config struct {
	SpreadsheetID      string
	Range              string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientFile    string
	OAuthTokenFile     string
}

// valuesGetter is the single Sheets call the importer needs.
type valuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type serviceValues struct{ svc *gsheet.Service }

func (s serviceValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

type Client struct {
	values        valuesGetter
	spreadsheetID string
	rng           string
	logger        *log.Logger
}

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceValues{svc: svc}, cfg, logger), nil
}

func newClient(v valuesGetter, cfg Config, logger *log.Logger) *Client {
	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = DefaultRange
	}
	return &Client{values: v, spreadsheetID: cfg.SpreadsheetID, rng: rng, logger: logger}
}

// ReadRows fetches the configured range and maps it through the import header contract.
func (c *Client) ReadRows(ctx context.Context) ([]importer.Row, error) {
	start := time.Now()
	values, err := c.values.Get(ctx, c.spreadsheetID, c.rng)
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", c.rng, err)
	}
	rows, err := importer.RowsFromTable(toTable(values))
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Read spreadsheet rows",
		"range", c.rng,
		log.FieldCount, len(rows),
		log.FieldDuration, time.Since(start).Milliseconds())
	return rows, nil
}

func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	saJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	saFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if saJSON == "" && saFile == "" {
		saFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case saJSON != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		return serviceAccountService(ctx, []byte(saJSON))
	case saFile != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", saFile)
		b, err := os.ReadFile(saFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return serviceAccountService(ctx, b)
	case cfg.OAuthClientFile != "" && cfg.OAuthTokenFile != "":
		logger.InfoContext(ctx, "Using OAuth client credentials", "token_file", cfg.OAuthTokenFile)
		return oauthService(ctx, cfg.OAuthClientFile, cfg.OAuthTokenFile)
	}
	return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or GOOGLE_OAUTH_CLIENT_FILE with GOOGLE_OAUTH_TOKEN_FILE)")
}

func serviceAccountService(ctx context.Context, credentials []byte) (*gsheet.Service, error) {
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func oauthService(ctx context.Context, clientFile, tokenFile string) (*gsheet.Service, error) {
	clientJSON, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	oc, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}

	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauth2.NewClient(base, oc.TokenSource(base, tok))
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok to path readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// newHTTPClientWithPooling is the transport used underneath the OAuth client.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}
