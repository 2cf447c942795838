package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"variantcart/internal/domain"
)

// ParsePrice converts a raw price field into a usable amount. Strings are
// stripped of everything except digits and the decimal point before parsing.
// Missing, unparsable, negative and non-finite values yield nil.
func ParsePrice(raw interface{}) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return finite(float64(v))
	case int32:
		return finite(float64(v))
	case int64:
		return finite(float64(v))
	case json.Number:
		return ParsePrice(v.String())
	case decimal.Decimal:
		return finite(v.InexactFloat64())
	case string:
		cleaned := stripNonNumeric(v)
		if cleaned == "" {
			return nil
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return nil
		}
		return finite(d.InexactFloat64())
	}
	return nil
}

// ParseStock converts a raw stock field into a non-negative count.
func ParseStock(raw interface{}) int {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		return ParseStock(v.String())
	case string:
		s := strings.TrimSpace(v)
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			n = parsed
			break
		}
		if p := ParsePrice(s); p != nil {
			n = *p
		}
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// SanitizeCondition maps a raw condition token onto the condition enum.
// Unknown and legacy tokens (such as "poor") become new. The second return
// value is false when the token is missing or not a string, which excludes
// the variant from resolution.
func SanitizeCondition(raw interface{}) (domain.Condition, bool) {
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	token := strings.ToLower(strings.TrimSpace(s))
	if token == "" {
		return "", false
	}
	token = strings.NewReplacer(" ", "_", "-", "_").Replace(token)
	switch c := domain.Condition(token); c {
	case domain.ConditionNew, domain.ConditionLikeNew, domain.ConditionGood, domain.ConditionFair:
		return c, true
	case "likenew":
		return domain.ConditionLikeNew, true
	}
	return domain.ConditionNew, true
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}

func stripNonNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseBool(raw interface{}, def bool) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}
