package domain

import "strings"

// SizeLabels lists the offered sizes in display order.
var SizeLabels = []string{"S", "M", "L", "XL", "XXL"}

// VariantID is the stable id of a product color, e.g. "shirt-linen-sky-blue".
func VariantID(productID, color string) string {
	return strings.ToLower(productID + "-" + strings.ReplaceAll(color, " ", "-"))
}

// SizeID is the stable id of a size entry, e.g. "tee-classic-black-m".
func SizeID(productID, color, size string) string {
	return strings.ToLower(VariantID(productID, color) + "-" + size)
}

// Slug turns a product name into an id: lowercase letters and digits joined by single dashes.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}

// ImagePaths is the default front/back image pair for a variant.
func ImagePaths(variantID string) []string {
	return []string{"products/" + variantID + "/front.jpg", "products/" + variantID + "/back.jpg"}
}
