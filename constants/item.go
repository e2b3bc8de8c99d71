package constants

import "strings"

// ItemKind classifies a requested purchase intent.
type ItemKind string

// Stable values (these exact strings travel through LLM output and DB rows).
const (
	KindLens      ItemKind = "lente"
	KindFrame     ItemKind = "montura"
	KindAccessory ItemKind = "accesorio"
	KindService   ItemKind = "servicio"
)

var allItemKinds = []ItemKind{KindLens, KindFrame, KindAccessory, KindService}

// LensCategory is the optical category of a lens item.
type LensCategory string

const (
	CategoryProgressive  LensCategory = "progresivo"
	CategorySingleVision LensCategory = "monofocal"
	CategoryBifocal      LensCategory = "bifocal"
	CategoryOccupational LensCategory = "ocupacional"
)

// ItemKindFromString maps free-form LLM output to a known kind.
// Unknown input returns ("", false); callers decide the fallback.
func ItemKindFromString(input string) (ItemKind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, k := range allItemKinds {
		if normalized == string(k) {
			return k, true
		}
	}
	return "", false
}

// ItemKindsAsStrings returns the closed set for prompt/schema construction.
func ItemKindsAsStrings() []string {
	result := make([]string, len(allItemKinds))
	for i, k := range allItemKinds {
		result[i] = string(k)
	}
	return result
}
