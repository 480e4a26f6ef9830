package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"proposal-management-api/models"
	"proposal-management-api/services"
)

func recommendationQuery(c *gin.Context) (models.Recommendation, bool) {
	raw := strings.ToUpper(strings.TrimSpace(c.Query("recommendation")))
	if raw == "" {
		return "", true
	}
	rec := models.Recommendation(raw)
	if !rec.Valid() {
		badRequest(c, "Invalid recommendation")
		return "", false
	}
	return rec, true
}

// GetReviews lists the reviews visible to the caller with per-recommendation
// counts. Query: proposal_id, recommendation.
func GetReviews(c *gin.Context) {
	proposalID, ok := queryInt(c, "proposal_id", 0)
	if !ok {
		return
	}
	rec, ok := recommendationQuery(c)
	if !ok {
		return
	}
	list, err := current().Reviews.List(c.Request.Context(), actor(c), uint(proposalID), rec)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"reviews": list.Reviews, "summary": list.Summary})
}

func GetReviewStats(c *gin.Context) {
	proposalID, ok := queryInt(c, "proposal_id", 0)
	if !ok {
		return
	}
	stats, err := current().Reviews.Stats(c.Request.Context(), actor(c), uint(proposalID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"stats": stats})
}

func GetPendingReviews(c *gin.Context) {
	rows, err := current().Reviews.ProposalsToReview(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"proposals": rows, "total": len(rows)})
}

func CreateReview(c *gin.Context) {
	var in services.ReviewInput
	if !bindJSON(c, &in) {
		return
	}
	in.Recommendation = models.Recommendation(strings.ToUpper(strings.TrimSpace(string(in.Recommendation))))
	r, err := current().Reviews.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"review": r, "message": "Review saved"})
}

func UpdateReview(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var patch services.ReviewPatch
	if !bindJSON(c, &patch) {
		return
	}
	r, err := current().Reviews.Update(c.Request.Context(), actor(c), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"review": r, "message": "Review updated"})
}
