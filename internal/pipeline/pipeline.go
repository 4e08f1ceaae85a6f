package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/alethia/internal/cache"
	"github.com/ppiankov/alethia/internal/extract"
	"github.com/ppiankov/alethia/internal/llm"
	"github.com/ppiankov/alethia/internal/merkle"
	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/retrieve"
	"github.com/ppiankov/alethia/internal/store"
	"github.com/ppiankov/alethia/internal/util"
	"github.com/ppiankov/alethia/internal/verify"
	"github.com/ppiankov/alethia/internal/worker"
)

// ErrIndexOutOfRange reports a challenge against a claim index the
// committed batch does not contain
var ErrIndexOutOfRange = errors.New("claim index out of range")

// AnswerGenerator produces LLM answers. Satisfied by *llm.Generator.
type AnswerGenerator interface {
	IsEnabled() bool
	GenerateAnswer(ctx context.Context, question string) (*llm.AnswerResult, error)
}

// Pipeline orchestrates the complete commit-and-verify process
type Pipeline struct {
	generator      AnswerGenerator
	claimExtractor *extract.ClaimExtractor
	evidExtractor  *extract.EvidenceExtractor
	fetcher        *Fetcher
	robots         *util.RobotsChecker
	limiter        *worker.Limiter
	searcher       retrieve.Searcher
	verifier       *verify.Verifier
	store          *store.CommitmentStore
	renderer       *Renderer
	config         *model.Config
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	verifier, err := verify.NewVerifier(cfg)
	if err != nil {
		return nil, err
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.Burst)

	var searcher retrieve.Searcher = retrieve.NewHTTPSearcher(cfg, limiter)
	if cfg.Cache.Enabled {
		layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		searcher = retrieve.NewCachedSearcher(searcher, layered, cfg.Cache.DiskTTL)
	}

	var generator AnswerGenerator
	if cfg.LLM.Provider != "" {
		g, err := llm.NewGenerator(llm.ConfigFromModel(cfg))
		if err != nil {
			return nil, fmt.Errorf("init LLM provider: %w", err)
		}
		generator = g
	}

	var st *store.CommitmentStore
	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
	}

	return &Pipeline{
		generator:      generator,
		claimExtractor: extract.NewClaimExtractor(),
		evidExtractor:  extract.NewEvidenceExtractor(),
		fetcher: NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
			cfg.HTTP.InsecureTLS, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		robots:   util.NewRobotsChecker(cfg.HTTP.UserAgent, 10*time.Second),
		limiter:  limiter,
		searcher: searcher,
		verifier: verifier,
		store:    st,
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		config:   cfg,
	}, nil
}

// Close releases the commitment store, if one is open
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// Store exposes the commitment store, nil when persistence is disabled
func (p *Pipeline) Store() *store.CommitmentStore {
	return p.store
}

// Ask answers a question with the configured LLM, commits the answer's
// claims and verifies each one against retrieved evidence.
func (p *Pipeline) Ask(ctx context.Context, question string) (*model.BatchReport, error) {
	if p.generator == nil || !p.generator.IsEnabled() {
		return nil, errors.New("no LLM provider configured (set llm.provider or --llm-provider)")
	}

	// 1. Generate answer
	answer, err := p.generator.GenerateAnswer(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if answer == nil || answer.Answer == "" {
		if answer != nil && len(answer.Warnings) > 0 {
			return nil, fmt.Errorf("no answer generated: %s", answer.Warnings[0])
		}
		return nil, errors.New("no answer generated")
	}

	// 2. Split the answer into claims
	claims := p.claimExtractor.FromText(answer.Answer)
	if len(claims) == 0 {
		return nil, errors.New("no claims extracted")
	}

	// 3. Commit, persist, verify
	batch, err := p.commitClaims(claims)
	if err != nil {
		return nil, err
	}

	results := p.verifyAll(ctx, batch, nil)

	report := &model.BatchReport{
		Question:    question,
		Answer:      answer.Answer,
		Commitment:  &batch.Commitment,
		Claims:      batch.Claims,
		Results:     results,
		Summary:     model.CountVerdicts(results),
		GeneratedAt: time.Now().UTC(),
		LLM:         answer.Meta(),
	}
	return report, nil
}

// CheckPage fetches a page, commits the claims found in it and verifies
// them against the page's own outbound links as seed evidence. No search
// is performed; the page must carry its own support.
func (p *Pipeline) CheckPage(ctx context.Context, url string) (*model.BatchReport, error) {
	// 1. robots.txt gate
	allowed, crawlDelay, err := p.robots.CanFetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("robots check: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("blocked by robots.txt: %s", url)
	}
	if p.limiter != nil {
		if err := p.limiter.WaitWithDelay(ctx, url, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	// 2. Fetch HTML
	fetchResult, err := p.fetcher.FetchWithRetry(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	// 3. Extract claims
	claims, err := p.claimExtractor.FromHTML(fetchResult.HTML)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	if len(claims) == 0 {
		return nil, errors.New("no claims extracted")
	}

	// 4. Extract seed evidence from outbound links
	seeds, err := p.evidExtractor.FromHTML(fetchResult.HTML, fetchResult.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("extract evidence: %w", err)
	}
	seeds = retrieve.SanitizeItems(seeds)

	// 5. Commit, persist, verify against the seed set
	batch, err := p.commitClaims(claims)
	if err != nil {
		return nil, err
	}

	results := p.verifyAll(ctx, batch, seeds)

	report := &model.BatchReport{
		SourceURL:   fetchResult.FinalURL,
		Commitment:  &batch.Commitment,
		Claims:      batch.Claims,
		Results:     results,
		Summary:     model.CountVerdicts(results),
		GeneratedAt: time.Now().UTC(),
	}
	return report, nil
}

// CommitTexts builds and persists a commitment over raw claim texts.
// Used by the commit command and the HTTP API; no verification happens.
func (p *Pipeline) CommitTexts(texts []string) (*model.CommittedBatch, error) {
	claims := make([]model.Claim, len(texts))
	for i, text := range texts {
		claims[i] = model.Claim{
			ID:   uuid.NewString(),
			Text: text,
		}
	}
	return p.commitClaims(claims)
}

// Challenge loads a committed batch and re-verifies one claim in it.
// Evidence may be supplied by the challenger; when absent the searcher
// retrieves a fresh set.
func (p *Pipeline) Challenge(ctx context.Context, root model.Hash, index int, evidence []model.EvidenceItem) (*model.VerificationResult, error) {
	if p.store == nil {
		return nil, errors.New("commitment store is disabled (set store.path)")
	}
	batch, err := p.store.GetBatch(root)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(batch.Claims) {
		return nil, fmt.Errorf("%w: index %d, batch has %d claims", ErrIndexOutOfRange, index, len(batch.Claims))
	}

	claim := batch.Claims[index]
	if evidence == nil && p.searcher != nil {
		evidence, err = p.searcher.Search(ctx, claim.Text)
		if err != nil {
			// Checks degrade to their no-evidence branches
			fmt.Fprintf(os.Stderr, "Warning: evidence search failed: %v\n", err)
			evidence = nil
		}
	}

	result := p.verifier.RunChecksAgainstRoot(ctx, claim, evidence, root)
	return &result, nil
}

// VerifyClaim runs the battery on a caller-supplied claim. When root is
// non-empty the claim's membership in that commitment is checked first and
// a failed membership skips the battery entirely.
func (p *Pipeline) VerifyClaim(ctx context.Context, claim model.Claim, evidence []model.EvidenceItem, root model.Hash) model.VerificationResult {
	if root != "" {
		return p.verifier.RunChecksAgainstRoot(ctx, claim, evidence, root)
	}
	return p.verifier.RunChecks(ctx, claim, evidence)
}

// commitClaims builds the Merkle commitment, attaches index and proof to
// every claim and persists the batch when a store is open.
func (p *Pipeline) commitClaims(claims []model.Claim) (*model.CommittedBatch, error) {
	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}

	commitment, proofs, err := merkle.Commit(texts)
	if err != nil {
		return nil, fmt.Errorf("commit claims: %w", err)
	}

	for i := range claims {
		claims[i].MerkleIndex = i
		claims[i].MerkleProof = proofs[i]
	}

	batch := &model.CommittedBatch{
		Commitment: *commitment,
		Claims:     claims,
	}

	if p.store != nil {
		if err := p.store.SaveBatch(batch); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("save batch: %w", err)
		}
	}
	return batch, nil
}

// verifyJob verifies one committed claim on the worker pool
type verifyJob struct {
	pipeline *Pipeline
	claim    model.Claim
	root     model.Hash
	seeds    []model.EvidenceItem
}

// Execute runs evidence retrieval and the check battery for one claim
func (j *verifyJob) Execute(ctx context.Context) worker.Result {
	evidence := j.seeds
	if evidence == nil && j.pipeline.searcher != nil {
		var err error
		evidence, err = j.pipeline.searcher.Search(ctx, j.claim.Text)
		if err != nil {
			// Checks degrade to their no-evidence branches
			fmt.Fprintf(os.Stderr, "Warning: evidence search for claim %d failed: %v\n", j.claim.MerkleIndex, err)
			evidence = nil
		}
	}

	result := j.pipeline.verifier.RunChecksAgainstRoot(ctx, j.claim, evidence, j.root)
	return &verifyJobResult{index: j.claim.MerkleIndex, result: result}
}

type verifyJobResult struct {
	index  int
	result model.VerificationResult
}

// GetError always returns nil: verification results are complete even
// when every check failed
func (r *verifyJobResult) GetError() error {
	return nil
}

// verifyAll fans per-claim verification out on the worker pool and
// reassembles the results in claim order. When seeds is non-nil every
// claim is verified against that same set instead of searching.
func (p *Pipeline) verifyAll(ctx context.Context, batch *model.CommittedBatch, seeds []model.EvidenceItem) []model.VerificationResult {
	pool := worker.NewPool(p.config.Concurrency.VerifyWorkers)
	pool.Start(ctx)

	for i := range batch.Claims {
		pool.Submit(&verifyJob{
			pipeline: p,
			claim:    batch.Claims[i],
			root:     batch.Commitment.Root,
			seeds:    seeds,
		})
	}

	ordered := make([]model.VerificationResult, len(batch.Claims))
	for _, r := range pool.Wait() {
		jr := r.(*verifyJobResult)
		ordered[jr.index] = jr.result
	}
	return ordered
}

// RenderReport renders the report to the specified outputs
func (p *Pipeline) RenderReport(report *model.BatchReport, jsonPath string, mdPath string, verbose bool) error {
	// Render JSON
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	// Render Markdown
	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	// Print summary to stdout
	p.renderer.RenderSummary(report)

	return nil
}
