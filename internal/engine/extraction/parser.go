package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"docketflow/internal/platform/models"
)

const (
	maxItemCount  = 50
	contextRadius = 50
)

var (
	labelledSupplier = regexp.MustCompile(`(?im)^[ \t]*(?:supplier|vendor|delivered by|company|from)[ \t]*[:\-][ \t]*(.+?)[ \t]*$`)
	suffixSupplier   = regexp.MustCompile(`\b([A-Z][A-Za-z&']+(?:[ \t]+[A-Z][A-Za-z&']+)*[ \t]+(?:Co\.|Ltd\.?|Limited|Inc\.?|Corporation|Company))`)
	headerSupplier   = regexp.MustCompile(`(?i)DELIVERY DOCKET[ \t]*\r?\n[ \t]*([^\r\n]+)`)

	docketNumber = regexp.MustCompile(`(?i)\b(?:docket|invoice|ref)(?:[ \t]*(?:no\.?|number))?[ \t]*[:#]?[ \t]*([A-Z0-9][A-Z0-9\-]*[0-9][A-Z0-9\-]*)`)

	dateDMYSlash = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dateISO      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dateDMYDash  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`)

	// Ordered by specificity; later matches within 0.1 of an earlier one are dropped.
	temperaturePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)temp(?:erature)?[ \t:]*(-?\d+(?:\.\d+)?)[ \t]*°?[ \t]*([cf])\b`),
		regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)[ \t]*°[ \t]*([cf])\b`),
		regexp.MustCompile(`(?i)temperature[ \t:]*(-?\d+(?:\.\d+)?)`),
	}
	degreeReading = regexp.MustCompile(`(?i)\d+[ \t]*°[ \t]*[cf]`)

	productCode = regexp.MustCompile(`^[A-Z]{2,4}\d+`)
)

var knownSuppliers = []struct{ match, name string }{
	{"SERVICE FOODS", "SERVICE FOODS"},
	{"GILMOUR", "Gilmours"},
	{"FRESH DIRECT", "Fresh Direct"},
	{"BIDFOOD", "Bidfood"},
}

var productKeywords = []string{
	"milk", "dairy", "cheese", "butter", "cream",
	"meat", "beef", "chicken", "pork", "lamb",
	"fish", "seafood", "salmon", "tuna",
	"vegetables", "lettuce", "tomato", "onion",
	"bread", "flour", "pasta",
	"frozen", "ice cream",
}

var productTypeKeywords = []struct {
	productType string
	keywords    []string
}{
	{"frozen", []string{"frozen", "freezer", "ice cream"}},
	{"ambient", []string{"ambient", "dry goods", "shelf"}},
	{"chilled", []string{"chilled", "chiller", "fridge", "refrigerated", "dairy", "milk", "meat", "chicken", "fish", "seafood"}},
}

// Parse extracts docket fields from OCR text.
func Parse(text string) *Result {
	res := &Result{
		RawText:      text,
		SupplierName: parseSupplier(text),
		DocketNumber: parseDocketNumber(text),
		DeliveryDate: parseDeliveryDate(text),
		Temperatures: parseTemperatures(text),
		Products:     parseProducts(text),
		Confidence:   Confidence(text),
	}
	res.ItemCount = countItems(text, res.Products)
	return res
}

// Confidence scores OCR text quality between 0.5 and 1.0.
func Confidence(text string) float64 {
	score := 0.5
	if len(text) > 100 {
		score += 0.2
	}
	if strings.Contains(strings.ToLower(text), "temp") {
		score += 0.1
	}
	if degreeReading.MatchString(text) {
		score += 0.2
	}
	// round away float noise such as 0.7999999
	return math.Min(1.0, math.Round(score*100)/100)
}

func parseSupplier(text string) *string {
	for _, re := range []*regexp.Regexp{labelledSupplier, suffixSupplier, headerSupplier} {
		if m := re.FindStringSubmatch(text); m != nil {
			if s := strings.TrimSpace(m[1]); len(s) > 2 {
				return &s
			}
		}
	}

	upper := strings.ToUpper(text)
	for _, k := range knownSuppliers {
		if strings.Contains(upper, k.match) {
			name := k.name
			return &name
		}
	}
	return nil
}

func parseDocketNumber(text string) *string {
	m := docketNumber.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n := strings.ToUpper(strings.TrimSpace(m[1]))
	return &n
}

// parseDeliveryDate returns the first plausible date as YYYY-MM-DD.
func parseDeliveryDate(text string) *string {
	candidates := []struct {
		re          *regexp.Regexp
		y, mon, day int
	}{
		{dateDMYSlash, 3, 2, 1},
		{dateISO, 1, 2, 3},
		{dateDMYDash, 3, 2, 1},
	}

	for _, c := range candidates {
		for _, m := range c.re.FindAllStringSubmatch(text, -1) {
			year, _ := strconv.Atoi(m[c.y])
			month, _ := strconv.Atoi(m[c.mon])
			day, _ := strconv.Atoi(m[c.day])
			if year < 2020 {
				continue
			}
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			// time.Date normalises 31/02 into March; reject those
			if d.Year() != year || int(d.Month()) != month || d.Day() != day {
				continue
			}
			s := d.Format("2006-01-02")
			return &s
		}
	}
	return nil
}

func parseTemperatures(text string) []Temperature {
	temps := []Temperature{}
	for _, re := range temperaturePatterns {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			value, err := strconv.ParseFloat(text[idx[2]:idx[3]], 64)
			if err != nil {
				continue
			}
			if duplicateReading(temps, value) {
				continue
			}

			unit := "C"
			if len(idx) > 4 && idx[4] >= 0 && strings.EqualFold(text[idx[4]:idx[5]], "f") {
				unit = "F"
			}

			temps = append(temps, Temperature{
				Value:       value,
				Unit:        unit,
				Context:     surrounding(text, idx[0]),
				ProductType: productTypeFor(lineAt(text, idx[0])),
			})
		}
	}
	return temps
}

func duplicateReading(temps []Temperature, value float64) bool {
	for _, t := range temps {
		if math.Abs(t.Value-value) < 0.1 {
			return true
		}
	}
	return false
}

// surrounding returns up to contextRadius bytes either side of pos, trimmed
// to rune boundaries.
func surrounding(text string, pos int) string {
	start := pos - contextRadius
	if start < 0 {
		start = 0
	}
	end := pos + contextRadius
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

func lineAt(text string, pos int) string {
	start := strings.LastIndexByte(text[:pos], '\n') + 1
	end := strings.IndexByte(text[pos:], '\n')
	if end < 0 {
		return text[start:]
	}
	return text[start : pos+end]
}

// productTypeFor infers the storage class from keywords on a reading's line.
// Empty means no keyword matched.
func productTypeFor(line string) string {
	lower := strings.ToLower(line)
	for _, group := range productTypeKeywords {
		for _, k := range group.keywords {
			if strings.Contains(lower, k) {
				return group.productType
			}
		}
	}
	return ""
}

func parseProducts(text string) models.Products {
	lower := strings.ToLower(text)
	products := models.Products{}
	for _, k := range productKeywords {
		if strings.Contains(lower, k) {
			products = append(products, models.Product{Name: k})
		}
	}
	return products
}

// countItems counts lines that look like coded product lines, falling back
// to the number of product keywords found.
func countItems(text string, products models.Products) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		l := strings.ToUpper(strings.TrimSpace(line))
		if productCode.MatchString(l) || strings.Contains(l, "VEGF") {
			count++
		}
	}
	if count == 0 {
		count = len(products)
	}
	if count > maxItemCount {
		count = maxItemCount
	}
	return count
}
