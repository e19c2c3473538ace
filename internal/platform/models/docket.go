package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type DocketStatus string

const (
	DocketPending   DocketStatus = "pending"
	DocketCompleted DocketStatus = "completed"
	DocketFailed    DocketStatus = "failed"
)

// CanTransition allows pending->completed and pending->failed only.
func (s DocketStatus) CanTransition(to DocketStatus) bool {
	return s == DocketPending && (to == DocketCompleted || to == DocketFailed)
}

type Product struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
}

// Products is stored as a JSON text column.
type Products []Product

func (p Products) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Products) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("products: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*p = nil
		return nil
	}
	return json.Unmarshal(raw, p)
}

type Docket struct {
	ID              string       `json:"id" db:"id"`
	TenantID        string       `json:"tenant_id" db:"tenant_id"`
	UploaderID      *string      `json:"uploader_id,omitempty" db:"uploader_id"`
	StoragePath     string       `json:"storage_path" db:"storage_path"`
	Status          DocketStatus `json:"processing_status" db:"processing_status"`
	SupplierName    *string      `json:"supplier_name,omitempty" db:"supplier_name"`
	DocketNumber    *string      `json:"docket_number,omitempty" db:"docket_number"`
	DeliveryDate    *string      `json:"delivery_date,omitempty" db:"delivery_date"`
	RawText         *string      `json:"raw_extracted_text,omitempty" db:"raw_text"`
	Products        Products     `json:"products" db:"products"`
	ItemCount       int          `json:"item_count" db:"item_count"`
	ConfidenceScore float64      `json:"confidence_score" db:"confidence_score"`
	ErrorMessage    *string      `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       int64        `json:"created_at" db:"created_at"`
	UpdatedAt       int64        `json:"updated_at" db:"updated_at"`
}

type TemperatureReading struct {
	ID          string  `json:"id" db:"id"`
	DocketID    string  `json:"docket_id" db:"docket_id"`
	TenantID    string  `json:"tenant_id" db:"tenant_id"`
	Value       float64 `json:"value" db:"value"`
	Unit        string  `json:"unit" db:"unit"`
	ProductType string  `json:"product_type" db:"product_type"`
	Context     string  `json:"context" db:"context"`
	InRange     bool    `json:"in_range" db:"in_range"`
	CreatedAt   int64   `json:"created_at" db:"created_at"`
}
