package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Organization is the company profile used to fill standard placeholders.
type Organization struct {
	Profile struct {
		Name      string `yaml:"name"`
		LegalName string `yaml:"legal_name"`
		ShortName string `yaml:"short_name"`
		Industry  string `yaml:"industry"`
	} `yaml:"profile"`
	Contact struct {
		Digital struct {
			Email   string `yaml:"email"`
			Website string `yaml:"website"`
		} `yaml:"digital"`
		Phone struct {
			Main      string `yaml:"main"`
			Emergency string `yaml:"emergency"`
		} `yaml:"phone"`
		Address struct {
			Street     string `yaml:"street"`
			Area       string `yaml:"area"`
			City       string `yaml:"city"`
			PostalCode string `yaml:"postal_code"`
			Country    string `yaml:"country"`
		} `yaml:"address"`
	} `yaml:"contact"`
	Legal struct {
		Jurisdiction string `yaml:"jurisdiction"`
	} `yaml:"legal"`
	Operations struct {
		BusinessHours struct {
			Days     string `yaml:"days"`
			Weekdays string `yaml:"weekdays"`
		} `yaml:"business_hours"`
		FiscalYear struct {
			Start string `yaml:"start"`
			End   string `yaml:"end"`
		} `yaml:"fiscal_year"`
	} `yaml:"operations"`
	Policies struct {
		Classification string `yaml:"classification"`
	} `yaml:"policies"`
}

const defaultScopeEmployees = "All employees, contractors, and temporary staff"

var (
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	phonePattern = regexp.MustCompile(`^\+\d{10,15}$`)
)

// Variables derives the standard placeholder values. Empty values are omitted.
func (o Organization) Variables() map[string]string {
	phone := o.Contact.Phone.Main
	emergency := o.Contact.Phone.Emergency
	if emergency == "" {
		emergency = phone
	}
	classification := o.Policies.Classification
	if classification == "" {
		classification = "Internal Use"
	}

	a := o.Contact.Address
	vars := map[string]string{
		"COMPANY_NAME":            o.Profile.Name,
		"COMPANY_LEGAL_NAME":      o.Profile.LegalName,
		"COMPANY_SHORT_NAME":      o.Profile.ShortName,
		"COMPANY_EMAIL":           o.Contact.Digital.Email,
		"COMPANY_WEBSITE":         o.Contact.Digital.Website,
		"COMPANY_PHONE":           phone,
		"EMERGENCY_CONTACT":       emergency,
		"COMPANY_ADDRESS":         joinNonEmpty(", ", a.Street, a.Area, a.City, a.PostalCode, a.Country),
		"JURISDICTION":            o.Legal.Jurisdiction,
		"BUSINESS_HOURS":          joinNonEmpty(", ", o.Operations.BusinessHours.Days, o.Operations.BusinessHours.Weekdays),
		"FISCAL_YEAR":             joinNonEmpty(" to ", o.Operations.FiscalYear.Start, o.Operations.FiscalYear.End),
		"DOCUMENT_CLASSIFICATION": classification,
		"SCOPE_EMPLOYEES":         defaultScopeEmployees,
	}
	for k, v := range vars {
		if strings.TrimSpace(v) == "" {
			delete(vars, k)
		}
	}
	return vars
}

// ValidationResult collects blocking errors and advisory warnings.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks contact and date fields of the profile.
func (o Organization) Validate() ValidationResult {
	var r ValidationResult
	if email := o.Contact.Digital.Email; email != "" && !emailPattern.MatchString(email) {
		r.Errors = append(r.Errors, fmt.Sprintf("invalid email format: %s", email))
	}
	if phone := o.Contact.Phone.Main; phone != "" && !phonePattern.MatchString(phone) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("phone number should include country code: %s", phone))
	}
	start, end := o.Operations.FiscalYear.Start, o.Operations.FiscalYear.End
	if start != "" && end != "" {
		if !isMonthDay(start) || !isMonthDay(end) {
			r.Errors = append(r.Errors, "invalid fiscal year date format, use 'Month DD'")
		}
	}
	return r
}

func isMonthDay(s string) bool {
	_, err := time.Parse("January 2", strings.TrimSpace(s))
	return err == nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
