package extraction

import (
	"strings"
	"testing"
)

const sampleDocket = `DELIVERY DOCKET
Fresh Produce Co.
Docket No: DK-20931
Date: 14/03/2025
Chilled goods temp: 3.5°C
Frozen peas temperature -16°C
Milk 2L x 12
Chicken breast 5kg
`

func TestParse_SampleDocket(t *testing.T) {
	res := Parse(sampleDocket)

	if res.SupplierName == nil || *res.SupplierName != "Fresh Produce Co." {
		t.Errorf("Expected supplier Fresh Produce Co., got %v", res.SupplierName)
	}
	if res.DocketNumber == nil || *res.DocketNumber != "DK-20931" {
		t.Errorf("Expected docket number DK-20931, got %v", res.DocketNumber)
	}
	if res.DeliveryDate == nil || *res.DeliveryDate != "2025-03-14" {
		t.Errorf("Expected delivery date 2025-03-14, got %v", res.DeliveryDate)
	}
	if len(res.Temperatures) != 2 {
		t.Fatalf("Expected 2 temperatures, got %+v", res.Temperatures)
	}
	if res.Temperatures[0].Value != 3.5 || res.Temperatures[0].Unit != "C" {
		t.Errorf("Unexpected first reading %+v", res.Temperatures[0])
	}
	if res.Temperatures[1].Value != -16 {
		t.Errorf("Unexpected second reading %+v", res.Temperatures[1])
	}
	if res.Temperatures[1].ProductType != "frozen" {
		t.Errorf("Expected frozen product type, got %q", res.Temperatures[1].ProductType)
	}
	if res.Confidence != 1.0 {
		t.Errorf("Expected confidence 1.0, got %v", res.Confidence)
	}
	if res.ItemCount != len(res.Products) || res.ItemCount == 0 {
		t.Errorf("Expected item count from products, got %d (%d products)", res.ItemCount, len(res.Products))
	}
}

func TestConfidence(t *testing.T) {
	long := strings.Repeat("x", 101)
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0.5},
		{"long text", long, 0.7},
		{"mentions temp", "temp check ok", 0.6},
		{"degree reading", "5°C", 0.7},
		{"temp and reading", "Temp 5°C", 0.8},
		{"everything", long + " temp 5°C", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(tt.text); got != tt.want {
				t.Errorf("Confidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSupplier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labelled", "Supplier: Bay Meats\nother", "Bay Meats"},
		{"delivered by", "Delivered by - Coastal Fish\n", "Coastal Fish"},
		{"company suffix", "Invoice from Harbour Foods Ltd today", "Harbour Foods Ltd"},
		{"after header", "DELIVERY DOCKET\nNorthside Grocers\n", "Northside Grocers"},
		{"known supplier", "service foods order 1", "SERVICE FOODS"},
		{"gilmours", "GILMOURS WHOLESALE", "Gilmours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSupplier(tt.text)
			if got == nil || *got != tt.want {
				t.Errorf("parseSupplier() = %v, want %q", got, tt.want)
			}
		})
	}

	if got := parseSupplier("nothing useful"); got != nil {
		t.Errorf("Expected nil supplier, got %q", *got)
	}
}

func TestParseDeliveryDate(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Delivered 3/7/2024", "2024-07-03"},
		{"2025-01-31", "2025-01-31"},
		{"date 9-11-2023", "2023-11-09"},
		{"old 01/01/2019 then 02/02/2022", "2022-02-02"},
		{"bad 31/02/2024", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := parseDeliveryDate(tt.text)
			if tt.want == "" {
				if got != nil {
					t.Errorf("Expected nil, got %q", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("parseDeliveryDate() = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTemperatures(t *testing.T) {
	temps := parseTemperatures("Temp: 38°F on arrival, ambient shelf 5.05 °C and 5.0°c again, temperature 2")
	if len(temps) != 3 {
		t.Fatalf("Expected 3 readings after de-duplication, got %+v", temps)
	}
	if temps[0].Value != 38 || temps[0].Unit != "F" {
		t.Errorf("Expected 38F first, got %+v", temps[0])
	}
	if temps[1].Value != 5.05 || temps[1].Unit != "C" {
		t.Errorf("Expected 5.05C second, got %+v", temps[1])
	}
	if temps[2].Value != 2 || temps[2].Unit != "C" {
		t.Errorf("Expected bare temperature defaulting to C, got %+v", temps[2])
	}
}

func TestCountItems_Capped(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("ABC123 widget\n")
	}
	if got := countItems(b.String(), nil); got != 50 {
		t.Errorf("Expected item count capped at 50, got %d", got)
	}
}

func TestSurrounding_RuneSafe(t *testing.T) {
	text := strings.Repeat("é", 40) + "5°C" + strings.Repeat("ü", 40)
	ctx := surrounding(text, strings.Index(text, "5°C"))
	if !strings.Contains(ctx, "5°C") {
		t.Errorf("Expected context to include reading, got %q", ctx)
	}
	for _, r := range ctx {
		if r == '�' {
			t.Fatal("context split a multi-byte rune")
		}
	}
}

func TestParseTemperatures_ProductTypeFromLine(t *testing.T) {
	temps := parseTemperatures(sampleDocket)
	if len(temps) != 2 {
		t.Fatalf("Expected 2 readings, got %+v", temps)
	}
	if temps[0].ProductType != "chilled" {
		t.Errorf("Expected chilled for first reading, got %q", temps[0].ProductType)
	}
	if temps[1].ProductType != "frozen" {
		t.Errorf("Expected frozen for second reading, got %q", temps[1].ProductType)
	}
}
