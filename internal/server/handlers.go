package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/pipeline"
	"github.com/ppiankov/alethia/internal/retrieve"
	"github.com/ppiankov/alethia/internal/store"
)

// API holds the handlers for the v1 endpoints
type API struct {
	pipeline *pipeline.Pipeline
}

// NewAPI wires the handlers to a pipeline
func NewAPI(p *pipeline.Pipeline) API {
	return API{pipeline: p}
}

// Commit builds and persists a commitment over the posted claim texts.
// The response carries everything a future challenger needs: the root,
// the claim count, the timestamp and one inclusion proof per claim.
func (a API) Commit(c *gin.Context) {
	var req struct {
		Claims []string `json:"claims" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	batch, err := a.pipeline.CommitTexts(req.Claims)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	proofs := make([][]model.ProofStep, len(batch.Claims))
	for i, claim := range batch.Claims {
		proofs[i] = claim.MerkleProof
	}

	c.JSON(http.StatusCreated, gin.H{
		"root":        batch.Commitment.Root,
		"claim_count": batch.Commitment.ClaimCount,
		"timestamp":   batch.Commitment.Timestamp,
		"proofs":      proofs,
	})
}

// Verify runs the check battery on one claim with caller-supplied
// evidence. Root and proof are optional; when a root is present the claim
// must also prove membership in that commitment.
func (a API) Verify(c *gin.Context) {
	var req struct {
		Claim    string               `json:"claim" binding:"required"`
		Evidence []model.EvidenceItem `json:"evidence"`
		Root     model.Hash           `json:"root"`
		Proof    []model.ProofStep    `json:"proof"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	claim := model.Claim{
		ID:          uuid.NewString(),
		Text:        req.Claim,
		MerkleProof: req.Proof,
	}
	evidence := retrieve.SanitizeItems(req.Evidence)

	result := a.pipeline.VerifyClaim(c.Request.Context(), claim, evidence, req.Root)
	c.JSON(http.StatusOK, result)
}

// Challenge disputes one claim of a committed batch. Evidence is optional;
// when absent the configured searcher retrieves a fresh set.
func (a API) Challenge(c *gin.Context) {
	var req struct {
		Root     string               `json:"root" binding:"required"`
		Index    int                  `json:"index" binding:"min=0"`
		Evidence []model.EvidenceItem `json:"evidence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var evidence []model.EvidenceItem
	if len(req.Evidence) > 0 {
		evidence = retrieve.SanitizeItems(req.Evidence)
	}

	result, err := a.pipeline.Challenge(c.Request.Context(), model.Hash(req.Root), req.Index, evidence)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
		case errors.Is(err, pipeline.ErrIndexOutOfRange):
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Health reports process liveness
func (a API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
