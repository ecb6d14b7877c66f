package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"walletwatcher/internal/core"
	"walletwatcher/internal/importer"
	"walletwatcher/internal/log"
	"walletwatcher/internal/services"
)

const (
	defaultAssetDays = 30
	maxAssetDays     = 365
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// fail writes err as a response, logging it when the client cannot be blamed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	resp := FromError(err)
	if status := statusFor(err); status >= http.StatusInternalServerError {
		s.structured.LogError(r.Context(), "Request failed", err, operation, nil)
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, operation, log.FieldError, err)
	}
	resp.Write(w)
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(core.Countries()).Write(w)
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	profile, err := s.wallet.Onboard(r.Context(), sanitizeInput(req.Username), sanitizeInput(req.Country))
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(profile).Write(w)
}

// handleState reloads the wallet, running due maintenance first. A missing
// profile is not an error here: the client uses it to show onboarding.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if err := s.wallet.Load(r.Context()); err != nil && !errors.Is(err, services.ErrNoProfile) {
		s.fail(w, r, log.OpLoad, err)
		return
	}
	NewJSONResponse().Data(s.wallet.Snapshot()).Write(w)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	params, err := ParseViewParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	ref, err := s.referenceTime(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(s.wallet.View(params.Period, params.Granularity, ref)).Write(w)
}

// referenceTime reads the optional "date" query value, defaulting to now.
func (s *Server) referenceTime(r *http.Request) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		return s.wallet.Now(), nil
	}
	return core.ParseTimestamp(v, s.location)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	tx, err := req.toTransaction(s.wallet.Now(), s.location)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.wallet.AddTransaction(r.Context(), tx)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(saved).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	categoryID, err := PathID(r, "categoryID")
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	var req budgetRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	recurrence, err := parseRecurrence(req.Recurrence)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	budget, err := s.wallet.SetBudget(r.Context(), categoryID, float64(req.Amount), recurrence)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(budget).Write(w)
}

func (s *Server) handleCompleteBudget(w http.ResponseWriter, r *http.Request) {
	categoryID, err := PathID(r, "categoryID")
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if err := s.wallet.MarkBudgetComplete(r.Context(), categoryID); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	recurrence, err := parseRecurrence(req.Recurrence)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	goal, err := s.wallet.AddSavingsGoal(r.Context(), sanitizeInput(req.Name), float64(req.TargetAmount), recurrence)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(goal).Write(w)
}

func (s *Server) handleAddFunds(w http.ResponseWriter, r *http.Request) {
	goalID, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	var req fundsRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	goal, err := s.wallet.AddFundsToSavingsGoal(r.Context(), goalID, float64(req.Amount))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(goal).Write(w)
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request) {
	goalID, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if err := s.wallet.MarkSavingsGoalComplete(r.Context(), goalID); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	theme, err := core.ParseTheme(req.Theme)
	if err != nil {
		s.fail(w, r, log.OpUpdate, &core.ValidationError{Field: "theme", Message: err.Error()})
		return
	}
	if err := s.wallet.UpdateTheme(r.Context(), theme); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(themeRequest{Theme: string(theme)}).Write(w)
}

func (s *Server) handleImportXLSX(w http.ResponseWriter, r *http.Request) {
	body, err := ReadUpload(w, r)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	rows, err := importer.ReadXLSX(bytes.NewReader(body), s.location)
	if err != nil {
		s.fail(w, r, log.OpImport, &core.ValidationError{Field: "file", Message: err.Error()})
		return
	}
	s.importRows(w, r, "xlsx", rows)
}

func (s *Server) handleImportQR(w http.ResponseWriter, r *http.Request) {
	var req qrImportRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	rows, err := importer.DecodeReport([]byte(req.Payload))
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	s.importRows(w, r, "qr", rows)
}

func (s *Server) handleImportSheets(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		ErrorResponse(http.StatusServiceUnavailable, "sheets import is not configured").Write(w)
		return
	}
	rows, err := s.sheets.ReadRows(r.Context())
	if err != nil {
		var upstream *core.UpstreamFetchError
		if !errors.As(err, &upstream) && !core.IsValidation(err) {
			err = &core.UpstreamFetchError{URL: "sheets", Err: err}
		}
		s.fail(w, r, log.OpImport, err)
		return
	}
	s.importRows(w, r, "sheets", rows)
}

func (s *Server) importRows(w http.ResponseWriter, r *http.Request, source string, rows []importer.Row) {
	result, err := s.wallet.ImportTransactions(r.Context(), source, rows)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	NewJSONResponse().Data(result).Write(w)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := importer.WriteXLSX(&buf, s.wallet.ExportRows()); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	NewJSONResponse().
		Raw(xlsxContentType, buf.Bytes()).
		Attachment("wallet-watcher-transactions.xlsx").
		Write(w)
}

func (s *Server) handleExportQR(w http.ResponseWriter, r *http.Request) {
	payload, err := importer.EncodeReport(s.wallet.ExportRows())
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	NewJSONResponse().Raw("application/json; charset=utf-8", payload).Write(w)
}

func (s *Server) handleExportQRImage(w http.ResponseWriter, r *http.Request) {
	payload, err := importer.EncodeReport(s.wallet.ExportRows())
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	size := QueryInt(r.URL.Query(), "size", importer.DefaultQRSize, 128, 2048)
	png, err := importer.RenderQR(payload, size)
	if err != nil {
		// Payloads beyond QR capacity are the client's to shrink.
		s.fail(w, r, log.OpExport, &core.ValidationError{Message: err.Error()})
		return
	}
	NewJSONResponse().Raw("image/png", png).Write(w)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	params, err := ParseViewParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	ref, err := s.referenceTime(r)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	st, err := s.wallet.Statement(params.Period, ref)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	doc, err := importer.BuildStatementPDF(st)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	NewJSONResponse().
		Raw("application/pdf", doc).
		Attachment("wallet-watcher-" + string(params.Period) + ".pdf").
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.wallet.Logout(r.Context()); err != nil {
		s.fail(w, r, log.OpPurge, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMetals proxies the upstream price document from the shared cache.
func (s *Server) handleMetals(w http.ResponseWriter, r *http.Request) {
	if s.prices == nil {
		ErrorResponse(http.StatusServiceUnavailable, "price feed is not configured").Write(w)
		return
	}
	raw, err := s.prices.Raw(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRefresh, err)
		return
	}
	NewJSONResponse().Raw("application/json; charset=utf-8", raw).Write(w)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	days := QueryInt(r.URL.Query(), "days", defaultAssetDays, 1, maxAssetDays)
	assets, err := s.wallet.Assets(r.Context(), days)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(assets).Write(w)
}

func (s *Server) handleSecurityStats(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.metrics.snapshot()).Write(w)
}
