package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/go-playground/validator/v10"
)

// Request is the caller-facing set of run options shared by the CLI and the
// HTTP API.
type Request struct {
	Start               string `json:"start" validate:"required_with=End,omitempty,datetime=2006-01-02"`
	End                 string `json:"end" validate:"required_with=Start,omitempty,datetime=2006-01-02"`
	Days                int    `json:"days" validate:"gte=0,lte=3660"`
	PreferLedgerRevenue bool   `json:"prefer_ledger_revenue"`
	Health              bool   `json:"health"`
	RecordsOnly         bool   `json:"records_only" validate:"excluded_with=SummaryOnly"`
	SummaryOnly         bool   `json:"summary_only"`
	Format              string `json:"format" validate:"omitempty,oneof=json xlsx"`
}

var validate = validator.New()

// InvalidRequestError lists the fields of a Request that failed validation
// and the rule each one broke.
type InvalidRequestError struct {
	Fields map[string]string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + describe(e.Fields)
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &InvalidRequestError{Fields: ValidationErrors(verrs)}
		}
		return err
	}
	return nil
}

// ValidationErrors maps each failing field to the rule it broke.
func ValidationErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func describe(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" failed "+fields[k])
	}
	return strings.Join(parts, ", ")
}

// Apply validates the request and copies it onto base.
func (r Request) Apply(base Options) (Options, error) {
	if err := r.Validate(); err != nil {
		return base, err
	}
	filter, err := common.ParseDateRange(r.Start, r.End)
	if err != nil {
		return base, fmt.Errorf("invalid date range: %w", err)
	}
	base.Filter = filter
	base.DaysInPeriod = r.Days
	base.PreferLedgerRevenue = r.PreferLedgerRevenue
	base.IncludeHealth = r.Health
	return base, nil
}
