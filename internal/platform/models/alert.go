package models

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const AlertTemperatureViolation = "temperature_violation"

type ComplianceAlert struct {
	ID                     string   `json:"id" db:"id"`
	DocketID               string   `json:"delivery_record_id" db:"docket_id"`
	TenantID               string   `json:"client_id" db:"tenant_id"`
	AlertType              string   `json:"alert_type" db:"alert_type"`
	Severity               Severity `json:"severity" db:"severity"`
	TemperatureValue       *float64 `json:"temperature_value,omitempty" db:"temperature_value"`
	TemperatureUnit        *string  `json:"temperature_unit,omitempty" db:"temperature_unit"`
	SupplierName           *string  `json:"supplier_name,omitempty" db:"supplier_name"`
	Message                string   `json:"message" db:"message"`
	RequiresAcknowledgment bool     `json:"requires_acknowledgment" db:"requires_acknowledgment"`
	AcknowledgedBy         *string  `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt         *int64   `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	ResolvedAt             *int64   `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy             *string  `json:"resolved_by,omitempty" db:"resolved_by"`
	CorrectiveActions      *string  `json:"corrective_actions,omitempty" db:"corrective_actions"`
	CreatedAt              int64    `json:"created_at" db:"created_at"`
}

func (a *ComplianceAlert) IsOpen() bool {
	return a.ResolvedAt == nil
}

// DocketSummary is the slice of the source docket shown next to an alert.
type DocketSummary struct {
	DocketNumber *string `json:"docket_number" db:"docket_number"`
	SupplierName *string `json:"supplier_name" db:"supplier_name"`
	CreatedAt    int64   `json:"created_at" db:"created_at"`
}

// OpenAlert is an unresolved alert joined with its docket.
type OpenAlert struct {
	ComplianceAlert
	DeliveryRecord DocketSummary `json:"delivery_records" db:"docket"`
}
