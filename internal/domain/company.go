package domain

import (
	"fmt"
	"strings"
	"time"
)

// CompanySize is a coarse headcount bucket shown on company profiles.
type CompanySize string

const (
	CompanySizeMicro      CompanySize = "1-10"
	CompanySizeSmall      CompanySize = "11-50"
	CompanySizeMedium     CompanySize = "51-200"
	CompanySizeLarge      CompanySize = "201-500"
	CompanySizeXLarge     CompanySize = "501-1000"
	CompanySizeEnterprise CompanySize = "1000+"
)

func (s CompanySize) Valid() bool {
	switch s {
	case CompanySizeMicro, CompanySizeSmall, CompanySizeMedium, CompanySizeLarge, CompanySizeXLarge, CompanySizeEnterprise:
		return true
	}
	return false
}

// Company owns job postings. OwnerID is the recruiter who set up the profile.
type Company struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	LogoURL     string      `json:"logo_url,omitempty"`
	Industry    string      `json:"industry,omitempty"`
	Size        CompanySize `json:"size,omitempty"`
	Website     string      `json:"website,omitempty"`
	Description string      `json:"description,omitempty"`
	OwnerID     string      `json:"owner_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Validate checks if the company profile is valid.
func (c *Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Msg: "company name cannot be empty"}
	}
	if c.Size != "" && !c.Size.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("invalid company size: %q", c.Size)}
	}
	return nil
}
