package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"proposal-management-api/models"
	"proposal-management-api/services"
	"proposal-management-api/utils"
)

type statusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

type assignReviewerRequest struct {
	ReviewerID uint `json:"reviewer_id"`
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return v, true
}

// GetProposals lists proposals visible to the caller.
// Query: status (comma separated, aliases accepted), year, scheme_id, search, limit, offset.
func GetProposals(c *gin.Context) {
	statuses, unknown := utils.ParseProposalStatuses(c.Query("status"))
	if len(unknown) > 0 {
		badRequest(c, "Unknown status: "+strings.Join(unknown, ", "))
		return
	}
	year, ok := queryInt(c, "year", 0)
	if !ok {
		return
	}
	schemeID, ok := queryInt(c, "scheme_id", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	rows, total, err := current().Proposals.List(c.Request.Context(), actor(c), services.ListParams{
		Statuses: statuses,
		Year:     year,
		SchemeID: uint(schemeID),
		Search:   c.Query("search"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"proposals": rows,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

func GetProposal(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	p, err := current().Proposals.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"proposal":         p,
		"allowed_statuses": services.NextStatuses(p.Status),
	})
}

func CreateProposal(c *gin.Context) {
	var in services.ProposalInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := current().Proposals.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"proposal": p, "message": "Proposal created"})
}

func UpdateProposal(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in services.ProposalInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := current().Proposals.Update(c.Request.Context(), actor(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"proposal": p, "message": "Proposal updated"})
}

func DeleteProposal(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := current().Proposals.Delete(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Proposal deleted"})
}

func SubmitProposal(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	p, err := current().Proposals.Submit(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"proposal": p, "message": "Proposal submitted"})
}

// UpdateProposalStatus records a review decision. The status accepts the
// same aliases as the listing filter ("revisi", "needs_revision", ...).
func UpdateProposalStatus(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	to, known := utils.ParseProposalStatus(req.Status)
	if !known {
		to = models.ProposalStatus(req.Status)
	}
	p, err := current().Proposals.UpdateStatus(c.Request.Context(), actor(c), id, to, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"proposal": p, "message": "Status updated"})
}

func AssignReviewer(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req assignReviewerRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := current().Proposals.AssignReviewer(c.Request.Context(), actor(c), id, req.ReviewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"proposal": p, "message": "Reviewer assigned"})
}

func CompleteProposal(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	p, err := current().Proposals.Complete(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"proposal": p, "message": "Proposal completed"})
}

func GetProposalHistory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	rows, err := current().Proposals.History(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"history": rows, "total": len(rows)})
}
