// Package compliance evaluates delivery temperatures against food-safety
// bands and manages the resulting alerts.
package compliance

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"docketflow/internal/platform/config"
	"docketflow/internal/platform/models"
)

const (
	ProductChilled      = "chilled"
	ProductFrozen       = "frozen"
	ProductAmbient      = "ambient"
	ProductUnclassified = "unclassified"
)

// Readings above these are critical regardless of configured thresholds.
const (
	chilledCritical = 7.0
	frozenCritical  = -15.0
	ambientCritical = 30.0
)

type Thresholds struct {
	ChilledMax float64
	FrozenMax  float64
	AmbientMax float64
}

func ThresholdsFrom(cfg config.ComplianceConfig) Thresholds {
	return Thresholds{ChilledMax: cfg.ChilledMax, FrozenMax: cfg.FrozenMax, AmbientMax: cfg.AmbientMax}
}

var DefaultThresholds = Thresholds{ChilledMax: 4, FrozenMax: -18, AmbientMax: 25}

type Violation struct {
	Severity  models.Severity
	Celsius   float64
	Threshold float64
	Message   string
}

// Evaluation is the verdict for one reading.
type Evaluation struct {
	Celsius     float64
	ProductType string
	InRange     bool
	Violation   *Violation
}

func ToCelsius(value float64, unit string) float64 {
	if strings.EqualFold(unit, "F") {
		return (value - 32) * 5 / 9
	}
	return value
}

// Classify keeps an explicit product type and otherwise infers one from the
// temperature band the reading falls in.
func Classify(productType string, celsius float64) string {
	switch productType {
	case ProductChilled, ProductFrozen, ProductAmbient:
		return productType
	}
	switch {
	case celsius < -5:
		return ProductFrozen
	case celsius >= 0 && celsius <= 10:
		return ProductChilled
	case celsius > 15:
		return ProductAmbient
	default:
		return ProductUnclassified
	}
}

func (t Thresholds) Evaluate(value float64, unit, productType string) Evaluation {
	c := ToCelsius(value, unit)
	ev := Evaluation{Celsius: c, ProductType: Classify(productType, c), InRange: true}

	var (
		limit, critical float64
		what            string
	)
	switch ev.ProductType {
	case ProductChilled:
		limit, critical, what = t.ChilledMax, chilledCritical, "exceeds safe limit for chilled products"
	case ProductFrozen:
		limit, critical, what = t.FrozenMax, frozenCritical, "too high for frozen products"
	case ProductAmbient:
		limit, critical, what = t.AmbientMax, ambientCritical, "too high for ambient storage"
	default:
		return ev
	}

	if c <= limit {
		return ev
	}

	severity := models.SeverityWarning
	if c > critical {
		severity = models.SeverityCritical
	}
	ev.InRange = false
	ev.Violation = &Violation{
		Severity:  severity,
		Celsius:   c,
		Threshold: limit,
		Message:   fmt.Sprintf("Temperature %s°C %s (max %s°C)", formatTemp(c), what, formatTemp(limit)),
	}
	return ev
}

func formatTemp(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
