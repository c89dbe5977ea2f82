package recommend

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"krishighor/internal/domain"
)

// FeatureSchema identifies the layout produced by features. Bump it whenever
// the layout changes so persisted indexes are retrained instead of misread.
const FeatureSchema = 1

// Dims is the length of every feature vector:
// name length, price, quantity, vegetable, fruit, rice, price per unit.
const Dims = 7

type Vector []float64

// features projects a catalog or cart entry into feature space. A quantity
// of zero or less yields a price-per-unit of 0.
func features(name, typ string, price decimal.Decimal, qty int) Vector {
	p := price.InexactFloat64()
	q := float64(qty)
	perUnit := 0.0
	if qty > 0 {
		perUnit = p / q
	}
	t := strings.ToLower(typ)
	return Vector{
		float64(utf8.RuneCountInString(name)),
		p,
		q,
		flag(strings.Contains(t, "vegetable")),
		flag(strings.Contains(t, "fruit")),
		flag(strings.Contains(t, "rice")),
		perUnit,
	}
}

func CropVector(c domain.Crop) Vector {
	return features(c.Name, c.Type, c.Price, c.Quantity)
}

func CartVector(it domain.CartItem) Vector {
	return features(it.Name, it.Type, it.Price, it.Qty())
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// cosineDistance is 1 - cos(a, b). A zero vector is at distance 1 from
// everything.
func cosineDistance(a, b Vector) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	return math.Max(0, math.Min(2, d))
}
