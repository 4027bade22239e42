package configstore

import (
	"encoding/json"
	"fmt"
)

// InvoiceSettings is the typed view of the invoiceCreator module.
type InvoiceSettings struct {
	DefaultCurrency   string   `json:"defaultCurrency"`
	InvoiceTemplate   string   `json:"invoiceTemplate"`
	ShowLogo          bool     `json:"showLogo"`
	AutoSend          bool     `json:"autoSend"`
	CCAddress         string   `json:"ccAddress"`
	TaxRate           float64  `json:"taxRate"`
	TaxLabel          string   `json:"taxLabel"`
	PricesIncludeTax  bool     `json:"pricesIncludeTax"`
	TaxNumber         string   `json:"taxNumber"`
	PaymentTermDays   float64  `json:"paymentTermDays"`
	LateFeePercent    float64  `json:"lateFeePercent"`
	PaymentMethods    []string `json:"paymentMethods"`
	InvoicePrefix     string   `json:"invoicePrefix"`
	NextInvoiceNumber float64  `json:"nextInvoiceNumber"`
	NumberPadding     float64  `json:"numberPadding"`
}

// ClientSettings is the typed view of the clientManager module.
type ClientSettings struct {
	DefaultClientType      string   `json:"defaultClientType"`
	DefaultPaymentTermDays float64  `json:"defaultPaymentTermDays"`
	PreferredChannel       string   `json:"preferredChannel"`
	SendWelcomeEmail       bool     `json:"sendWelcomeEmail"`
	PortalEnabled          bool     `json:"portalEnabled"`
	PortalDomain           string   `json:"portalDomain"`
	PortalFeatures         []string `json:"portalFeatures"`
}

// ProjectSettings is the typed view of the projectManagement module.
type ProjectSettings struct {
	MilestoneReminderDays    float64  `json:"milestoneReminderDays"`
	RequireMilestoneApproval bool     `json:"requireMilestoneApproval"`
	BillOnMilestone          bool     `json:"billOnMilestone"`
	MilestoneDepositPercent  float64  `json:"milestoneDepositPercent"`
	DefaultProjectStatus     string   `json:"defaultProjectStatus"`
	DefaultBudgetType        string   `json:"defaultBudgetType"`
	DefaultHourlyBudget      float64  `json:"defaultHourlyBudget"`
	BoardColumns             []string `json:"boardColumns"`
	WIPLimit                 float64  `json:"wipLimit"`
	ShowAssigneeAvatars      bool     `json:"showAssigneeAvatars"`
}

// ProposalSettings is the typed view of the proposalGenerator module.
type ProposalSettings struct {
	ValidityDays       float64 `json:"validityDays"`
	IncludeCaseStudies bool    `json:"includeCaseStudies"`
	ProposalTone       string  `json:"proposalTone"`
	ProposalTemplate   string  `json:"proposalTemplate"`
	CoverTitle         string  `json:"coverTitle"`
	IncludeTerms       bool    `json:"includeTerms"`
	PricingModel       string  `json:"pricingModel"`
	DiscountPercent    float64 `json:"discountPercent"`
	ShowPriceBreakdown bool    `json:"showPriceBreakdown"`
}

// TimeTrackingSettings is the typed view of the timeTracking module.
type TimeTrackingSettings struct {
	RoundingMinutes    float64 `json:"roundingMinutes"`
	IdleTimeoutMinutes float64 `json:"idleTimeoutMinutes"`
	TrackWeekends      bool    `json:"trackWeekends"`
	DefaultHourlyRate  float64 `json:"defaultHourlyRate"`
	OvertimeMultiplier float64 `json:"overtimeMultiplier"`
	BillableByDefault  bool    `json:"billableByDefault"`
	ReminderEnabled    bool    `json:"reminderEnabled"`
	ReminderDay        string  `json:"reminderDay"`
	ReminderTime       string  `json:"reminderTime"`
}

// Decode converts a module's flat values into a typed settings struct.
// Missing keys keep their zero value.
func Decode[T any](values map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(values)
	if err != nil {
		return out, fmt.Errorf("failed to encode values: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode settings: %w", err)
	}
	return out, nil
}
