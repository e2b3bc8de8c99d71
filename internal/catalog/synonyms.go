package catalog

import "strings"

// Material and treatment synonym maps for Colombian optical industry
// terminology. All keys and surface forms are lowercase.

var materialSynonyms = map[string][]string{
	"policarbonato": {"poly", "poli", "policarbonato", "airwear"},
	"cr":            {"cr", "cr-39", "cr39", "resina"},
	"trivex":        {"trivex"},
	"cristal":       {"cristal", "glass", "vidrio"},
	"hi-index":      {"hi-index", "alto indice", "1.67", "1.74"},
}

var treatmentSynonyms = map[string][]string{
	"transitions": {"transitions", "fotocromático", "fotocromatico", "fotosensible", "photochromic"},
	"blue block":  {"blue block", "blue", "blue/verde", "blue uv", "blue cut", "blue light"},
	"crizal":      {"crizal", "crizal easy", "crizal easy pro", "crizal sapphire", "crizal prevencia"},
	"antireflejo": {"antireflejo", "ar", "anti reflejo", "anti-reflejo"},
	"verde":       {"verde", "green"},
}

// NormalizeMaterial maps a free-form material hint to its canonical group
// key. Unknown hints pass through lowercased so they still work as a plain
// substring filter.
func NormalizeMaterial(hint string) string {
	if hint == "" {
		return ""
	}
	lower := strings.ToLower(strings.TrimSpace(hint))
	for canonical, synonyms := range materialSynonyms {
		for _, syn := range synonyms {
			if lower == syn {
				return canonical
			}
		}
	}
	return lower
}

// NormalizeTreatment maps a free-form treatment hint to its canonical
// group key, matching by substring containment in either direction
// ("Transitions Gen8" → "transitions").
func NormalizeTreatment(hint string) string {
	if hint == "" {
		return ""
	}
	lower := strings.ToLower(strings.TrimSpace(hint))
	for canonical, synonyms := range treatmentSynonyms {
		for _, syn := range synonyms {
			if lower == syn || strings.Contains(lower, syn) || strings.Contains(syn, lower) {
				return canonical
			}
		}
	}
	return lower
}

// materialPatterns expands a canonical material to every surface form used
// for row matching.
func materialPatterns(canonical string) []string {
	if canonical == "" {
		return nil
	}
	if synonyms, ok := materialSynonyms[canonical]; ok {
		return synonyms
	}
	return []string{canonical}
}

func treatmentPatterns(canonical string) []string {
	if canonical == "" {
		return nil
	}
	if synonyms, ok := treatmentSynonyms[canonical]; ok {
		return synonyms
	}
	return []string{canonical}
}
