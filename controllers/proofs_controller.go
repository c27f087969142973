package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	config "github.com/phillip/community-goals-go/config"
	models "github.com/phillip/community-goals-go/models"
	utils "github.com/phillip/community-goals-go/utils"
)

const maxProofFiles = 5

// ---------------- UPLOAD ----------------
// UploadProof hosts proof files so they can be attached to a contribution
// submission as proofOfContribution.
func UploadProof(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		goalID, ok := objectIDParam(c, "id", "goal")
		if !ok {
			return
		}
		if cfg.Uploader == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "proof uploads are not configured"})
			return
		}
		if _, err := cfg.Goals.GetGoal(c.Request.Context(), goalID); err != nil {
			respondError(c, cfg, err)
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}
		files := form.File["files"] // key must be "files"
		if len(files) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
			return
		}
		if len(files) > maxProofFiles {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many files"})
			return
		}

		proofs := make([]models.Proof, 0, len(files))
		for _, fileHeader := range files {
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
				return
			}

			uploaded, err := cfg.Uploader.Upload(c.Request.Context(), goalID.Hex(), userID.Hex(), file, fileHeader)
			file.Close()
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Error("proof upload failed", "error", err, "goal_id", goalID.Hex(), "file", fileHeader.Filename)
				}
				c.JSON(http.StatusBadGateway, gin.H{
					"error": "proof upload failed",
					"file":  fileHeader.Filename,
				})
				return
			}

			proofs = append(proofs, models.Proof{
				FileType:   uploaded.FileType,
				FileURL:    uploaded.FileURL,
				UploadedAt: time.Now(),
			})
		}

		c.JSON(http.StatusCreated, gin.H{"proofOfContribution": proofs})
	}
}

// ---------------- DELETE ----------------
// DeleteProof removes a file uploaded to this goal. Only its uploader or the
// goal creator may remove it, and never while a contribution references it.
func DeleteProof(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		goalID, ok := objectIDParam(c, "id", "goal")
		if !ok {
			return
		}
		if cfg.Uploader == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "proof uploads are not configured"})
			return
		}

		var input struct {
			FileURL string `json:"fileUrl" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fileUrl is required"})
			return
		}

		publicID, err := utils.ExtractPublicID(input.FileURL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fileUrl"})
			return
		}
		loc, ok := utils.ParseProofID(publicID)
		if !ok || loc.GoalID != goalID.Hex() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is not a proof of this goal"})
			return
		}

		goal, err := cfg.Goals.GetGoal(c.Request.Context(), goalID)
		if err != nil {
			respondError(c, cfg, err)
			return
		}
		if loc.Owner != userID.Hex() && goal.Creator != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the uploader or the goal creator can delete this proof"})
			return
		}
		for _, ctn := range goal.Contributions {
			for _, p := range ctn.ProofOfContribution {
				if p.FileURL == input.FileURL {
					c.JSON(http.StatusBadRequest, gin.H{"error": "proof is attached to a contribution"})
					return
				}
			}
		}

		if err := cfg.Uploader.Delete(c.Request.Context(), input.FileURL); err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("proof delete failed", "error", err, "goal_id", goalID.Hex(), "user_id", userID.Hex())
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not delete proof"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "proof deleted"})
	}
}
