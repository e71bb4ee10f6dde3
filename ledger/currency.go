package ledger

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"THB": "฿",
	"AUD": "A$",
	"CAD": "C$",
	"SGD": "S$",
}

// SymbolFor returns the display symbol for a currency code. Used only for
// human-readable strings; all arithmetic stays on the stored amounts.
func SymbolFor(code string) string {
	if s, ok := currencySymbols[code]; ok {
		return s
	}
	return code + " "
}
