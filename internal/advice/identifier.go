package advice

import (
	"regexp"
	"strings"
)

// markerSubstrings are the recognized vendor prefix markers. Every valid
// identifier contains one of them. Order matters where alternation is built:
// HBT must precede HB so the longer marker wins.
var markerSubstrings = []string{"EXT", "HBT", "HB"}

const markerAlt = `(?:EXT|HBT|HB)`

// minIdentifierLength is the minimum normalized length for tier candidates;
// shorter candidates are discarded as noise.
const minIdentifierLength = 8

// Tier patterns, ranked. Go's regexp has no lookahead, so the guards the
// tiers need (token boundaries, slash adjacency) are enforced in code next to
// each pattern.
var (
	// Tier 1: complete token on one line, e.g. "23EXT2526/2834". Greedy digit
	// runs stop at the first non-digit, which keeps an adjacent unrelated
	// number out of the suffix.
	sameLineRe = regexp.MustCompile(`(?i)(\d{1,2}` + markerAlt + `\d+/\d+)`)

	// Tier 2: prefix ends a line with a bare trailing slash; the continuation
	// is on a following line. Requiring end-of-line after the slash keeps
	// same-line slash-then-date text out of this tier.
	trailingSlashRe = regexp.MustCompile(`(?i)(\d{1,2}` + markerAlt + `\d+)/\s*$`)

	// Tier 3: slash followed by interstitial same-line content (dates, other
	// amounts), with the continuation as the first digit run on the next line.
	interstitialRe = regexp.MustCompile(`(?i)(\d{1,2}` + markerAlt + `\d+)/[^\n]*\n[^\d\n]*(\d+)`)

	// Tier 4: prefix and trailing digit run separated by whitespace, no slash.
	spaceSeparatedRe = regexp.MustCompile(`(?i)(\d{1,2}` + markerAlt + `\d+)[ \t\r\n]+(\d+)`)

	// Tier 5: unanchored catch-all, loosest form of the prefix families.
	unanchoredRe = regexp.MustCompile(`(?i)(\d{0,2}` + markerAlt + `\d+(?:/\d+)?)`)

	// Final fallback: a generic invoice-number label followed by an
	// alphanumeric token.
	genericLabelRe = regexp.MustCompile(`(?i)(?:invoice|inv|bill)\s*(?:no\.?|number|num|#)?\s*[:#\-]?\s*([A-Za-z0-9][A-Za-z0-9/\-]{3,})`)

	digitRunRe = regexp.MustCompile(`\d+`)
)

// FindAllIdentifiers extracts every invoice identifier from free text,
// normalized (uppercase, no internal whitespace, slash-joined suffix) and
// deduplicated in insertion order.
//
// Tiers run top to bottom. Tiers 1 and 2 always run; tier 3 runs only when
// tiers 1-2 produced nothing anywhere in the document; tier 5 only when no
// earlier tier matched at all. The generic label fallback is a last resort
// when every tier came up empty.
//
// Known limitation, preserved deliberately: because the tier-3 fallback is
// scoped to the whole document rather than per candidate line, a document
// mixing a clean same-line token with an interstitial-split token elsewhere
// will silently drop the second identifier.
func FindAllIdentifiers(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(text, "\n")

	candidates := findSameLine(text)
	candidates = append(candidates, findSplitTrailingSlash(lines)...)

	if len(candidates) == 0 {
		candidates = findSplitInterstitial(text)
	}

	candidates = append(candidates, findSpaceSeparated(text)...)

	if len(candidates) == 0 {
		candidates = findUnanchored(text)
	}

	identifiers := normalizeCandidates(candidates)

	if len(identifiers) == 0 {
		identifiers = normalizeGeneric(findGenericLabeled(text))
	}

	return identifiers
}

// findSameLine is tier 1: complete prefix/suffix tokens on a single line.
func findSameLine(text string) []string {
	var out []string
	for _, m := range sameLineRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// findSplitTrailingSlash is tier 2: a prefix with a bare trailing slash at
// end of line, continued by the first digit run on the next non-empty line.
func findSplitTrailingSlash(lines []string) []string {
	var out []string
	for i, line := range lines {
		m := trailingSlashRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "" {
				continue
			}
			if run := digitRunRe.FindString(lines[j]); run != "" {
				out = append(out, m[1]+"/"+run)
			}
			break
		}
	}
	return out
}

// findSplitInterstitial is tier 3: slash, interstitial same-line content,
// then the continuation on the next line. Only consulted when tiers 1-2
// found nothing in the whole document.
func findSplitInterstitial(text string) []string {
	var out []string
	for _, m := range interstitialRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1]+"/"+m[2])
	}
	return out
}

// findSpaceSeparated is tier 4: prefix and suffix separated by whitespace
// with no slash. The pattern itself cannot match a slash-joined token (the
// character after the prefix digits must be whitespace), and a slash right
// after the candidate span disqualifies it as well.
func findSpaceSeparated(text string) []string {
	var out []string
	for _, idx := range spaceSeparatedRe.FindAllStringSubmatchIndex(text, -1) {
		end := idx[1]
		if end < len(text) && text[end] == '/' {
			continue
		}
		prefix := text[idx[2]:idx[3]]
		suffix := text[idx[4]:idx[5]]
		out = append(out, prefix+"/"+suffix)
	}
	return out
}

// findUnanchored is tier 5: the loosest form of each prefix family, used
// only when nothing above matched anything.
func findUnanchored(text string) []string {
	var out []string
	for _, m := range unanchoredRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// findGenericLabeled is the final fallback: label-anchored tokens after
// "invoice"/"inv"/"bill" markers.
func findGenericLabeled(text string) []string {
	var out []string
	for _, m := range genericLabelRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// NormalizeIdentifier uppercases a candidate and strips internal whitespace.
func NormalizeIdentifier(raw string) string {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(normalized), "")
}

// HasMarker reports whether a normalized identifier contains one of the
// recognized vendor marker substrings.
func HasMarker(identifier string) bool {
	for _, marker := range markerSubstrings {
		if strings.Contains(identifier, marker) {
			return true
		}
	}
	return false
}

// ValidIdentifier applies the acceptance rules for tier candidates:
// normalized length at least 8 and a recognized marker substring present.
func ValidIdentifier(identifier string) bool {
	return len(identifier) >= minIdentifierLength && HasMarker(identifier)
}

// normalizeCandidates normalizes, validates and deduplicates tier candidates
// preserving insertion order.
func normalizeCandidates(candidates []string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, candidate := range candidates {
		normalized := NormalizeIdentifier(candidate)
		if !ValidIdentifier(normalized) {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}

	return out
}

// normalizeGeneric validates generic-label fallback candidates: mixed
// alphanumeric content and a recognized marker substring are required on top
// of normalization.
func normalizeGeneric(candidates []string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, candidate := range candidates {
		normalized := NormalizeIdentifier(candidate)
		if !mixedAlphanumeric(normalized) || !HasMarker(normalized) {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}

	return out
}

func mixedAlphanumeric(s string) bool {
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}
