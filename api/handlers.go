/*
handlers.go - HTTP API handlers for the group health system

PURPOSE:
  Exposes the pricing and claims engines via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Configurations:
    POST   /api/pricing/configurations                 Create configuration
    GET    /api/pricing/configurations                 List (status/company/limit/offset)
    GET    /api/pricing/configurations/{id}            Get configuration

  Benefits & T&C:
    GET    /api/pricing/configurations/{id}/benefits           List selections
    POST   /api/pricing/configurations/{id}/benefits           Toggle category
    POST   /api/pricing/configurations/{id}/benefits/override  Override a limit
    GET    /api/pricing/configurations/{id}/factors            List T&C selections
    POST   /api/pricing/configurations/{id}/factors            Update a factor
    GET    /api/pricing/configurations/{id}/factors/{code}/options Applicable options

  Members:
    GET    /api/pricing/configurations/{id}/members            List (status=)
    POST   /api/pricing/configurations/{id}/members            Add member
    POST   /api/pricing/configurations/{id}/members/import     Multipart CSV import
    DELETE /api/pricing/configurations/{id}/members/{memberID} Terminate

  Calculation & workflow:
    POST   /api/pricing/configurations/{id}/calculate?save=    Calculate premium
    GET    /api/pricing/configurations/{id}/calculations/history?limit=
    POST   /api/pricing/configurations/{id}/submit
    POST   /api/pricing/configurations/{id}/approve
    POST   /api/pricing/configurations/{id}/reject
    POST   /api/pricing/configurations/{id}/revision
    GET    /api/pricing/configurations/{id}/approvals
    GET    /api/pricing/configurations/{id}/quote              Quote document

  Claims:
    POST   /api/claims/validate     Run the validation engine
    POST   /api/claims/accumulate   Idempotent accumulator increment

ERROR HANDLING:
  Domain errors map to HTTP status via the pricing error taxonomy:
  - 400: ValidationError, malformed input
  - 404: not-found sentinels
  - 409: StateError, number collision after retries
  - 500: DependencyError (catalog data bug), everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - cmd/server/main.go: Wiring
*/
package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medena/grouphealth/accumulator"
	"github.com/medena/grouphealth/catalog"
	"github.com/medena/grouphealth/claims"
	"github.com/medena/grouphealth/pricing"
)

// maxImportErrors caps how many row errors an import response carries.
const maxImportErrors = 10

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// ClaimsStore is the persistence surface the claims endpoints need.
type ClaimsStore interface {
	accumulator.Store
	claims.HistoryStore
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Pricing *pricing.Engine
	Claims  *claims.Engine
	Catalog catalog.Catalog
	Store   ClaimsStore
}

// NewHandler creates a handler over the engines and store.
func NewHandler(pricingEngine *pricing.Engine, claimsEngine *claims.Engine, cat catalog.Catalog, store ClaimsStore) *Handler {
	return &Handler{
		Pricing: pricingEngine,
		Claims:  claimsEngine,
		Catalog: cat,
		Store:   store,
	}
}

// =============================================================================
// CONFIGURATION HANDLERS
// =============================================================================

// CreateConfiguration creates a DRAFT configuration with defaults.
func (h *Handler) CreateConfiguration(w http.ResponseWriter, r *http.Request) {
	var req CreateConfigurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.Parse("2006-01-02", req.CoverageStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coverage_start format (use YYYY-MM-DD)", err)
		return
	}
	end, err := time.Parse("2006-01-02", req.CoverageEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coverage_end format (use YYYY-MM-DD)", err)
		return
	}

	cfg, err := h.Pricing.CreateConfiguration(r.Context(), pricing.CreateParams{
		CompanyName:      req.CompanyName,
		IndustryType:     req.IndustryType,
		ParticipantCount: req.ParticipantCount,
		ClassCount:       req.ClassCount,
		CoverageStart:    start,
		CoverageEnd:      end,
		PricingMethod:    pricing.PricingMethod(req.PricingMethod),
		CreatedBy:        req.CreatedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConfigurationDTO(cfg))
}

// GetConfiguration returns a single configuration.
func (h *Handler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Pricing.GetConfiguration(r.Context(), configID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigurationDTO(cfg))
}

// ListConfigurations returns configurations newest first.
func (h *Handler) ListConfigurations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := pricing.ListFilter{
		Status:      pricing.Status(q.Get("status")),
		CompanyName: q.Get("company_name"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	configs, err := h.Pricing.ListConfigurations(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]ConfigurationDTO, len(configs))
	for i, cfg := range configs {
		dtos[i] = toConfigurationDTO(cfg)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BENEFIT HANDLERS
// =============================================================================

// ListBenefits returns the configuration's benefit selections.
func (h *Handler) ListBenefits(w http.ResponseWriter, r *http.Request) {
	selections, err := h.Pricing.GetBenefitSelections(r.Context(), configID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]BenefitSelectionDTO, len(selections))
	for i, sel := range selections {
		dtos[i] = toBenefitSelectionDTO(sel)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ToggleBenefit selects or deselects one benefit category.
func (h *Handler) ToggleBenefit(w http.ResponseWriter, r *http.Request) {
	var req ToggleBenefitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sel, err := h.Pricing.ToggleBenefit(r.Context(), configID(r),
		catalog.BenefitCategory(strings.ToUpper(req.Category)), req.IsSelected)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBenefitSelectionDTO(sel))
}

// OverrideBenefitLimit customizes one benefit limit for the quote.
func (h *Handler) OverrideBenefitLimit(w http.ResponseWriter, r *http.Request) {
	var req OverrideLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	o, err := h.Pricing.OverrideBenefitLimit(r.Context(), configID(r),
		req.BenefitCode, decimalFromFloat(req.NewLimit), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BenefitOverrideDTO{
		BenefitCode:   o.BenefitCode,
		OriginalLimit: o.OriginalLimit.InexactFloat64(),
		OverrideLimit: o.OverrideLimit.InexactFloat64(),
		Reason:        o.Reason,
	})
}

// =============================================================================
// T&C FACTOR HANDLERS
// =============================================================================

// ListFactors returns the configuration's T&C selections.
func (h *Handler) ListFactors(w http.ResponseWriter, r *http.Request) {
	selections, err := h.Pricing.GetTCSelections(r.Context(), configID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]TCSelectionDTO, len(selections))
	for i, sel := range selections {
		dtos[i] = toTCSelectionDTO(sel)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateFactor switches one T&C factor to a different option and returns the
// recalculated premium.
func (h *Handler) UpdateFactor(w http.ResponseWriter, r *http.Request) {
	var req UpdateFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sel, calc, err := h.Pricing.UpdateTCFactor(r.Context(), configID(r), req.FactorCode, req.OptionValue)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	premium := toPremiumCalcDTO(calc)
	writeJSON(w, http.StatusOK, UpdateFactorResponse{
		Selection: toTCSelectionDTO(sel),
		Premium:   &premium,
	})
}

// ListFactorOptions returns the options valid for the config's group size.
func (h *Handler) ListFactorOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.Pricing.ApplicableTCOptions(r.Context(), configID(r), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	type optionDTO struct {
		Value      string  `json:"value"`
		Label      string  `json:"label"`
		Multiplier float64 `json:"multiplier"`
		IsDefault  bool    `json:"is_default"`
	}
	dtos := make([]optionDTO, len(options))
	for i, opt := range options {
		dtos[i] = optionDTO{
			Value:      opt.OptionValue,
			Label:      opt.OptionLabel,
			Multiplier: opt.Multiplier.InexactFloat64(),
			IsDefault:  opt.IsDefault,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// ListMembers returns the configuration's members, optionally by status.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	status := pricing.MemberStatus(strings.ToUpper(r.URL.Query().Get("status")))
	members, err := h.Pricing.ListMembers(r.Context(), configID(r), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddMember enrolls one member.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_of_birth format (use YYYY-MM-DD)", err)
		return
	}

	m, err := h.Pricing.AddMember(r.Context(), configID(r), pricing.MemberParams{
		FullName:    req.FullName,
		DateOfBirth: dob,
		Gender:      catalog.Gender(strings.ToUpper(req.Gender)),
		MemberType:  pricing.MemberType(strings.ToUpper(req.MemberType)),
		Relation:    req.Relation,
		ClassCode:   req.ClassCode,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(m))
}

// TerminateMember marks a member TERMINATED.
func (h *Handler) TerminateMember(w http.ResponseWriter, r *http.Request) {
	memberID := pricing.MemberID(chi.URLParam(r, "memberID"))
	m, err := h.Pricing.TerminateMember(r.Context(), configID(r), memberID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// ImportMembers bulk-enrolls members from a multipart CSV upload.
// Expected columns: full_name, date_of_birth, gender, member_type, and
// optionally relationship and class_code. Column order follows the header.
func (h *Handler) ImportMembers(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	records, err := parseImportCSV(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid CSV", err)
		return
	}

	result, err := h.Pricing.ImportMembers(r.Context(), configID(r), records)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := ImportResultDTO{
		ImportedCount: len(result.Imported),
		ErrorCount:    len(result.Errors),
		Errors:        []ImportErrorDTO{},
	}
	for _, e := range result.Errors {
		if len(dto.Errors) >= maxImportErrors {
			break
		}
		dto.Errors = append(dto.Errors, ImportErrorDTO{Row: e.Row, Error: e.Error})
	}
	if result.Premium != nil {
		p := toPremiumCalcDTO(*result.Premium)
		dto.PremiumUpdate = &p
	}
	writeJSON(w, http.StatusOK, dto)
}

// parseImportCSV reads header-addressed CSV rows into import records.
func parseImportCSV(f io.Reader) ([]pricing.ImportRecord, error) {
	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New("missing header row")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	field := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := col[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	var records []pricing.ImportRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, pricing.ImportRecord{
			FullName:    field(row, "full_name", "name"),
			DateOfBirth: field(row, "date_of_birth", "dob"),
			Gender:      field(row, "gender"),
			MemberType:  field(row, "member_type"),
			Relation:    field(row, "relationship", "relation"),
			ClassCode:   field(row, "class_code"),
		})
	}
	return records, nil
}

// =============================================================================
// CALCULATION & WORKFLOW HANDLERS
// =============================================================================

// CalculatePremium runs the premium calculation. ?save=true appends to the
// audit log.
func (h *Handler) CalculatePremium(w http.ResponseWriter, r *http.Request) {
	save := r.URL.Query().Get("save") == "true"
	res, err := h.Pricing.CalculatePremium(r.Context(), configID(r), save)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPremiumCalcDTO(res))
}

// GetCalculationHistory returns saved calculations newest first.
func (h *Handler) GetCalculationHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.Pricing.GetCalculationHistory(r.Context(), configID(r), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CalculationLogDTO, len(logs))
	for i, l := range logs {
		dtos[i] = toCalculationLogDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Submit validates the DRAFT configuration and moves it to QUOTED.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.Pricing.Submit(r.Context(), configID(r), req.SubmittedBy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigurationDTO(cfg))
}

// Approve approves one pending workflow step.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApprovalActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.Pricing.Approve(r.Context(), configID(r), req.ApproverID, req.StepName, req.Comments)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigurationDTO(cfg))
}

// Reject rejects one pending workflow step, blocking advancement.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolveStep(w, r, h.Pricing.Reject)
}

// RequestRevision sends the quote back for revision.
func (h *Handler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	h.resolveStep(w, r, h.Pricing.RequestRevision)
}

func (h *Handler) resolveStep(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id pricing.ConfigID, approverID, stepName, comments string) (pricing.WorkflowStep, error)) {
	var req ApprovalActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	step, err := fn(r.Context(), configID(r), req.ApproverID, req.StepName, req.Comments)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkflowStepDTO(step))
}

// GetApprovals returns the workflow steps in step order.
func (h *Handler) GetApprovals(w http.ResponseWriter, r *http.Request) {
	steps, err := h.Pricing.GetApprovals(r.Context(), configID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]WorkflowStepDTO, len(steps))
	for i, step := range steps {
		dtos[i] = toWorkflowStepDTO(step)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetQuoteDocument returns the assembled quote document.
func (h *Handler) GetQuoteDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Pricing.GenerateQuoteDocument(r.Context(), configID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDocumentDTO(doc))
}

// =============================================================================
// CLAIMS HANDLERS
// =============================================================================

// ValidateClaim runs the validation engine against a submitted claim.
// The accumulator snapshot and prior-claim history come from the store;
// everything else from the request body.
func (h *Handler) ValidateClaim(w http.ResponseWriter, r *http.Request) {
	var req ValidateClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	benefit, ok := h.Catalog.BenefitConfig(req.BenefitCode)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown benefit code", nil)
		return
	}

	cc, err := h.buildClaimContext(r, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid claim context", err)
		return
	}

	results := h.Claims.Validate(r.Context(), cc, benefit)
	writeJSON(w, http.StatusOK, ValidateClaimResponse{
		ClaimID:           req.ClaimID,
		Results:           toValidationResultDTOs(results),
		CanAutoAdjudicate: claims.CanAutoAdjudicate(results),
		PendReasons:       claims.PendReasons(results),
		AllowedAmount:     claims.CalculateAllowedAmount(cc, benefit).InexactFloat64(),
	})
}

func (h *Handler) buildClaimContext(r *http.Request, req ValidateClaimRequest) (claims.ClaimContext, error) {
	serviceDate, err := time.Parse("2006-01-02", req.ServiceDate)
	if err != nil {
		return claims.ClaimContext{}, errors.New("invalid service_date (use YYYY-MM-DD)")
	}
	memberSince, err := time.Parse("2006-01-02", req.MemberSince)
	if err != nil {
		return claims.ClaimContext{}, errors.New("invalid member_since (use YYYY-MM-DD)")
	}
	coverageStart, err := time.Parse("2006-01-02", req.CoverageStart)
	if err != nil {
		return claims.ClaimContext{}, errors.New("invalid coverage_start (use YYYY-MM-DD)")
	}
	coverageEnd, err := time.Parse("2006-01-02", req.CoverageEnd)
	if err != nil {
		return claims.ClaimContext{}, errors.New("invalid coverage_end (use YYYY-MM-DD)")
	}

	cc := claims.ClaimContext{
		Claim: claims.Claim{
			ID:             req.ClaimID,
			MemberID:       req.MemberID,
			BenefitCode:    req.BenefitCode,
			ServiceDate:    serviceDate,
			ClaimedAmount:  decimalFromFloat(req.ClaimedAmount),
			DiagnosisCodes: req.Diagnoses,
			Channel:        claims.Channel(strings.ToUpper(req.Channel)),
			IsEmergency:    req.IsEmergency,
			HasPreauth:     req.HasPreauth,
			PreauthNumber:  req.PreauthNumber,
		},
		MemberAge:     req.MemberAge,
		Gender:        catalog.Gender(strings.ToUpper(req.Gender)),
		MemberSince:   memberSince,
		CoverageStart: coverageStart,
		CoverageEnd:   coverageEnd,
	}
	if req.AdmissionDate != "" {
		t, err := time.Parse("2006-01-02", req.AdmissionDate)
		if err != nil {
			return claims.ClaimContext{}, errors.New("invalid admission_date (use YYYY-MM-DD)")
		}
		cc.Claim.AdmissionDate = &t
	}
	if req.DischargeDate != "" {
		t, err := time.Parse("2006-01-02", req.DischargeDate)
		if err != nil {
			return claims.ClaimContext{}, errors.New("invalid discharge_date (use YYYY-MM-DD)")
		}
		cc.Claim.DischargeDate = &t
	}

	acc, err := h.Store.Get(r.Context(), req.MemberID, req.BenefitCode, coverageStart)
	if err == nil {
		cc.Accumulator = claims.AccumulatorSnapshot{UsedAmount: acc.UsedAmount, UsedCount: acc.UsedCount}
	} else if !errors.Is(err, accumulator.ErrNotFound) {
		return claims.ClaimContext{}, err
	}

	history, err := h.Store.MemberHistory(r.Context(), req.MemberID)
	if err != nil {
		return claims.ClaimContext{}, err
	}
	cc.History = history

	return cc, nil
}

// Accumulate applies one claim to an accumulator. Safe to retry.
func (h *Handler) Accumulate(w http.ResponseWriter, r *http.Request) {
	var req AccumulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.MemberID == "" || req.BenefitCode == "" || req.ClaimID == "" {
		writeError(w, http.StatusBadRequest, "member_id, benefit_code, and claim_id are required", nil)
		return
	}

	start, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_start format (use YYYY-MM-DD)", err)
		return
	}
	end, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_end format (use YYYY-MM-DD)", err)
		return
	}

	acc, err := h.Store.Apply(r.Context(), req.MemberID, req.BenefitCode,
		start, end, req.ClaimID, decimalFromFloat(req.Amount))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply accumulator", err)
		return
	}
	writeJSON(w, http.StatusOK, AccumulatorDTO{
		MemberID:    acc.MemberID,
		BenefitCode: acc.BenefitCode,
		PeriodStart: acc.PeriodStart.Format("2006-01-02"),
		PeriodEnd:   acc.PeriodEnd.Format("2006-01-02"),
		UsedAmount:  acc.UsedAmount.InexactFloat64(),
		UsedCount:   acc.UsedCount,
		UpdatedAt:   acc.UpdatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func configID(r *http.Request) pricing.ConfigID {
	return pricing.ConfigID(chi.URLParam(r, "id"))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the pricing error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case pricing.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case pricing.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case pricing.IsStateError(err) || errors.Is(err, pricing.ErrNumberCollision):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case pricing.IsDependencyError(err):
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
