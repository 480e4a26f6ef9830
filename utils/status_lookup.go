package utils

import (
	"strings"

	"proposal-management-api/models"
)

var (
	statusSynonyms = map[models.ProposalStatus][]string{
		models.StatusDraft:     {"draft", "draf"},
		models.StatusSubmitted: {"submitted", "diajukan", "submit"},
		models.StatusReview:    {"review", "in_review", "under_review", "direview"},
		models.StatusApproved:  {"approved", "disetujui", "diterima", "accepted"},
		models.StatusRejected:  {"rejected", "ditolak"},
		models.StatusRevision:  {"revision", "revisi", "needs_revision", "needs_more_info"},
		models.StatusCompleted: {"completed", "selesai", "closed"},
	}
	statusAliasToCanonical = buildStatusAliasMap()
)

func buildStatusAliasMap() map[string]models.ProposalStatus {
	aliasMap := make(map[string]models.ProposalStatus)
	for canonical, synonyms := range statusSynonyms {
		aliasMap[normalizeStatusCode(string(canonical))] = canonical
		for _, alias := range synonyms {
			if normalized := normalizeStatusCode(alias); normalized != "" {
				aliasMap[normalized] = canonical
			}
		}
	}
	return aliasMap
}

func normalizeStatusCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.NewReplacer("-", "_", " ", "_").Replace(code)
}

// ParseProposalStatus resolves a canonical status or one of its aliases.
func ParseProposalStatus(raw string) (models.ProposalStatus, bool) {
	status, ok := statusAliasToCanonical[normalizeStatusCode(raw)]
	return status, ok
}

// ParseProposalStatuses resolves a comma separated filter; unknown entries
// are reported back.
func ParseProposalStatuses(raw string) ([]models.ProposalStatus, []string) {
	var out []models.ProposalStatus
	var unknown []string
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if s, ok := ParseProposalStatus(part); ok {
			out = append(out, s)
		} else {
			unknown = append(unknown, part)
		}
	}
	return out, unknown
}
