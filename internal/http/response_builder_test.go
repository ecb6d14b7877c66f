package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"walletwatcher/internal/core"
	"walletwatcher/internal/services"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "1").
		Data(map[string]int{"id": 3}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", got)
	}
	if rr.Header().Get("X-Custom") != "1" {
		t.Error("custom header missing")
	}
	var body map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["id"] != 3 {
		t.Errorf("body = %s (%v)", rr.Body.String(), err)
	}
}

func TestJSONResponseBuilderRaw(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Raw("application/pdf", []byte("%PDF-1.3")).Attachment("s.pdf").Write(rr)

	if rr.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
	}
	if rr.Header().Get("Content-Disposition") != `attachment; filename="s.pdf"` {
		t.Errorf("disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	if rr.Body.String() != "%PDF-1.3" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &core.ValidationError{Field: "amount", Message: "bad"}, http.StatusUnprocessableEntity},
		{"wrapped validation", fmt.Errorf("add: %w", &core.ValidationError{Message: "bad"}), http.StatusUnprocessableEntity},
		{"goal not found", core.ErrGoalNotFound, http.StatusNotFound},
		{"no profile", services.ErrNoProfile, http.StatusNotFound},
		{"already initialized", core.ErrAlreadyInitialized, http.StatusConflict},
		{"upstream", &core.UpstreamFetchError{URL: "x", StatusCode: 500}, http.StatusBadGateway},
		{"storage", &core.StorageError{Op: "insert", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFromErrorHidesInternalMessages(t *testing.T) {
	rr := httptest.NewRecorder()
	FromError(&core.StorageError{Op: "insert", Err: errors.New("/var/lib/wallet.db: disk full")}).Write(rr)

	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "internal error" {
		t.Errorf("leaked message %q", body.Error)
	}

	rr = httptest.NewRecorder()
	FromError(&core.ValidationError{Field: "name", Message: "name cannot be empty"}).Write(rr)
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusUnprocessableEntity || body.Field != "name" || body.Error != "name cannot be empty" {
		t.Errorf("got %d %+v", rr.Code, body)
	}
}
