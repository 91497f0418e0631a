package renderer

import "strings"

// Labels recognized as dedicated signature lines. Detection is a heuristic
// text scan over the resolved body, not a structured-markup feature, and
// downstream templates depend on exactly this behavior.
var (
	clientAnchorLabels     = []string{"Client:", "Owner:"}
	contractorAnchorLabels = []string{"Contractor:"}
)

// Anchors holds the indices of the first dedicated signature-label line per
// role, or -1 when the body contains none.
type Anchors struct {
	ClientLine     int
	ContractorLine int
}

// DetectAnchors scans resolved contract lines for the first dedicated
// client and contractor signature-label lines. A label mentioned in prose
// ("the Contractor shall...") is not an anchor; only exact trailing-colon
// label forms count, optionally followed by a blank rule.
func DetectAnchors(lines []string) Anchors {
	anchors := Anchors{ClientLine: -1, ContractorLine: -1}
	for i, line := range lines {
		if anchors.ClientLine < 0 && matchesAnyAnchorLabel(line, clientAnchorLabels) {
			anchors.ClientLine = i
		}
		if anchors.ContractorLine < 0 && matchesAnyAnchorLabel(line, contractorAnchorLabels) {
			anchors.ContractorLine = i
		}
		if anchors.ClientLine >= 0 && anchors.ContractorLine >= 0 {
			break
		}
	}
	return anchors
}

func matchesAnyAnchorLabel(line string, labels []string) bool {
	for _, label := range labels {
		if isAnchorLine(line, label) {
			return true
		}
	}
	return false
}

// isAnchorLine reports whether the line is the given trailing-colon label,
// alone or followed only by whitespace and underscore rules.
func isAnchorLine(line, label string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, label) {
		return false
	}
	rest := trimmed[len(label):]
	for _, r := range rest {
		if r != '_' && r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}
