// This file holds the request decoding helpers shared by the API handlers:
// bounded JSON bodies, lenient amount fields and path/query parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"walletwatcher/internal/aggregate"
	"walletwatcher/internal/core"
)

const (
	// maxJSONBody bounds API request bodies.
	maxJSONBody = 1 << 20
	// maxUploadBody bounds spreadsheet uploads.
	maxUploadBody = 10 << 20
)

var errEmptyBody = errors.New("request body is empty")

// Amount accepts either a JSON number or a human-formatted string such as "₹1,234.50".
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = 0
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		return &core.ValidationError{Field: "amount", Message: fmt.Sprintf("unparseable amount %q", raw)}
	}
	*a = Amount(d.InexactFloat64())
	return nil
}

// DecodeJSON reads a bounded JSON body into dst. Malformed bodies become
// validation errors so they surface as 422.
func DecodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxJSONBody {
		return &core.ValidationError{Message: "request body too large"}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &core.ValidationError{Message: errEmptyBody.Error()}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return &core.ValidationError{Message: "malformed JSON: " + err.Error()}
	}
	return nil
}

// ReadUpload returns the bytes of a spreadsheet upload. Multipart forms use
// the "file" field; any other content type is read as the raw body.
func ReadUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, &core.ValidationError{Field: "file", Message: "missing upload"}
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &core.ValidationError{Field: "file", Message: err.Error()}
	}
	if len(body) == 0 {
		return nil, &core.ValidationError{Field: "file", Message: errEmptyBody.Error()}
	}
	return body, nil
}

// PathID parses a positive integer path value.
func PathID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: name, Message: fmt.Sprintf("invalid id %q", v)}
	}
	return id, nil
}

// ViewParams holds the period selection of a dashboard request.
type ViewParams struct {
	Period      core.Period
	Granularity aggregate.Granularity
}

// ParseViewParams reads period and granularity, defaulting to a monthly view.
func ParseViewParams(query url.Values) (ViewParams, error) {
	period, err := core.ParsePeriod(query.Get("period"))
	if err != nil {
		return ViewParams{}, &core.ValidationError{Field: "period", Message: err.Error()}
	}
	granularity, err := aggregate.ParseGranularity(query.Get("granularity"))
	if err != nil {
		return ViewParams{}, err
	}
	return ViewParams{Period: period, Granularity: granularity}, nil
}

// QueryInt returns a bounded integer query value, or def when absent or invalid.
func QueryInt(query url.Values, key string, def, lo, hi int) int {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return max(lo, min(n, hi))
}

type onboardingRequest struct {
	Username string `json:"username"`
	Country  string `json:"country"`
}

type transactionRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	Type        string `json:"type"`
	CategoryID  int64  `json:"categoryId"`
}

func (req transactionRequest) toTransaction(now time.Time, loc *time.Location) (core.Transaction, error) {
	date := now
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := core.ParseTimestamp(req.Date, loc)
		if err != nil {
			return core.Transaction{}, err
		}
		date = parsed
	}
	txType, err := core.ParseTxType(req.Type)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "type", Message: err.Error()}
	}
	return core.Transaction{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      float64(req.Amount),
		Type:        txType,
		CategoryID:  req.CategoryID,
	}, nil
}

type budgetRequest struct {
	Amount     Amount `json:"amount"`
	Recurrence string `json:"recurrence"`
}

type goalRequest struct {
	Name         string `json:"name"`
	TargetAmount Amount `json:"targetAmount"`
	Recurrence   string `json:"recurrence"`
}

type fundsRequest struct {
	Amount Amount `json:"amount"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

type qrImportRequest struct {
	Payload string `json:"payload"`
}

// parseRecurrence treats an empty value as absent.
func parseRecurrence(s string) (core.Recurrence, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	r, err := core.ParseRecurrence(s)
	if err != nil {
		return "", &core.ValidationError{Field: "recurrence", Message: err.Error()}
	}
	return r, nil
}
