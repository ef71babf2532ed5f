package market

import "strings"

// SymbolKey turns "GBP/USD" into the storage key "GBP_USD".
func SymbolKey(pair string) string {
	return strings.ReplaceAll(pair, "/", "_")
}

// PairFromKey is the inverse of SymbolKey.
func PairFromKey(key string) string {
	return strings.ReplaceAll(key, "_", "/")
}

// IsJPY reports whether the pair is quoted with JPY on either side.
func IsJPY(pair string) bool {
	return strings.Contains(pair, "JPY")
}

// PriceDecimals is the number of decimals prices are quoted with: 3 for JPY
// pairs, 5 otherwise.
func PriceDecimals(pair string) int32 {
	if IsJPY(pair) {
		return 3
	}
	return 5
}
