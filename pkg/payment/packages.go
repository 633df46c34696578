package payment

import "github.com/shopspring/decimal"

const Currency = "IDR"

type Package struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Credits int             `json:"credits"`
	Price   decimal.Decimal `json:"price"`
}

var catalog = []Package{
	{ID: "basic", Name: "Basic", Credits: 5, Price: decimal.NewFromInt(49000)},
	{ID: "standard", Name: "Standard", Credits: 15, Price: decimal.NewFromInt(129000)},
	{ID: "premium", Name: "Premium", Credits: 50, Price: decimal.NewFromInt(399000)},
}

// Packages returns a copy of the catalog in display order.
func Packages() []Package {
	out := make([]Package, len(catalog))
	copy(out, catalog)
	return out
}

func FindPackage(id string) (Package, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}
