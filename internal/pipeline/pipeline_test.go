package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/alethia/internal/extract"
	"github.com/ppiankov/alethia/internal/llm"
	"github.com/ppiankov/alethia/internal/merkle"
	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/store"
	"github.com/ppiankov/alethia/internal/util"
	"github.com/ppiankov/alethia/internal/verify"
	"github.com/ppiankov/alethia/internal/worker"
)

// mockGenerator implements AnswerGenerator
type mockGenerator struct {
	answer      string
	err         error
	unavailable bool
}

func (m *mockGenerator) IsEnabled() bool { return true }

func (m *mockGenerator) GenerateAnswer(ctx context.Context, question string) (*llm.AnswerResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.unavailable {
		return &llm.AnswerResult{
			Provider: "mock",
			Warnings: []string{"LLM provider mock is not available - check configuration and connectivity"},
		}, nil
	}
	return &llm.AnswerResult{
		Enabled:    true,
		Answer:     m.answer,
		Provider:   "mock",
		Model:      "mock-1",
		TokensUsed: 42,
		Warnings:   []string{"Tokens used: 42"},
	}, nil
}

// stubSearcher implements retrieve.Searcher
type stubSearcher struct {
	items []model.EvidenceItem
	err   error
	calls atomic.Int32
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]model.EvidenceItem, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func newTestPipeline(t *testing.T, generator AnswerGenerator, searcher *stubSearcher) *Pipeline {
	t.Helper()

	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Checks.ProbeTimeout = 2 * time.Second
	cfg.Concurrency.VerifyWorkers = 2
	cfg.RateLimiting.RequestsPerSecond = 100
	cfg.RateLimiting.Burst = 100

	verifier, err := verify.NewVerifier(cfg)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	p := &Pipeline{
		claimExtractor: extract.NewClaimExtractor(),
		evidExtractor:  extract.NewEvidenceExtractor(),
		fetcher:        NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", ""),
		robots:         util.NewRobotsChecker("test-agent", 2*time.Second),
		limiter:        worker.NewLimiter(100, 100),
		verifier:       verifier,
		store:          st,
		renderer:       NewRenderer(false),
		config:         cfg,
	}
	if generator != nil {
		p.generator = generator
	}
	if searcher != nil {
		p.searcher = searcher
	}
	return p
}

// evidenceServer answers 200 to every probe except robots.txt
func evidenceServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	t.Cleanup(server.Close)
	return server
}

func supportingEvidence(baseURL string) []model.EvidenceItem {
	return []model.EvidenceItem{
		{
			Title:   "Eiffel Tower history",
			Snippet: "The Eiffel Tower was completed in 1889 for the World's Fair.",
			URL:     baseURL + "/eiffel",
		},
		{
			Title:   "Paris landmarks",
			Snippet: "Among them the Eiffel Tower, finished in 1889.",
			URL:     baseURL + "/paris",
		},
		{
			Title:   "Statue of Liberty",
			Snippet: "Dedicated in 1886, the Statue of Liberty stands in New York.",
			URL:     baseURL + "/liberty",
		},
	}
}

func TestPipeline_Ask(t *testing.T) {
	server := evidenceServer(t)

	generator := &mockGenerator{
		answer: "The Eiffel Tower was completed in 1889. The Statue of Liberty was dedicated in 1886.",
	}
	searcher := &stubSearcher{items: supportingEvidence(server.URL)}
	p := newTestPipeline(t, generator, searcher)

	report, err := p.Ask(context.Background(), "When was the Eiffel Tower completed?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if report.Question != "When was the Eiffel Tower completed?" {
		t.Errorf("Expected question to carry through, got %q", report.Question)
	}
	if report.Answer != generator.answer {
		t.Errorf("Expected answer to carry through, got %q", report.Answer)
	}
	if report.Commitment == nil {
		t.Fatal("Expected a commitment in the report")
	}
	if report.Commitment.ClaimCount != 2 {
		t.Errorf("Expected 2 committed claims, got %d", report.Commitment.ClaimCount)
	}
	if len(report.Claims) != 2 {
		t.Fatalf("Expected 2 claims, got %d", len(report.Claims))
	}
	if len(report.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(report.Results))
	}

	for i, claim := range report.Claims {
		if claim.MerkleIndex != i {
			t.Errorf("Expected claim %d to carry merkle index %d, got %d", i, i, claim.MerkleIndex)
		}
		if len(claim.MerkleProof) != 1 {
			t.Errorf("Expected 1 proof step for a 2-leaf tree, got %d", len(claim.MerkleProof))
		}
		if !merkle.VerifyMembership(claim.Text, claim.MerkleProof, report.Commitment.Root) {
			t.Errorf("Expected claim %d to prove membership in the report's commitment", i)
		}
	}

	for i, result := range report.Results {
		if result.Verdict != model.VerdictVerified {
			t.Errorf("Expected claim %d VERIFIED, got %s (%s)", i, result.Verdict, result.Reasoning)
		}
	}
	if report.Summary.Verified != 2 {
		t.Errorf("Expected summary verified 2, got %d", report.Summary.Verified)
	}

	if report.LLM == nil {
		t.Fatal("Expected LLM metadata in the report")
	}
	if report.LLM.Provider != "mock" {
		t.Errorf("Expected provider mock, got %s", report.LLM.Provider)
	}

	// The batch must be retrievable by root for later challenges
	batch, err := p.store.GetBatch(report.Commitment.Root)
	if err != nil {
		t.Fatalf("GetBatch(%s) error = %v", report.Commitment.Root, err)
	}
	if len(batch.Claims) != 2 {
		t.Errorf("Expected 2 persisted claims, got %d", len(batch.Claims))
	}
}

func TestPipeline_Ask_NoGenerator(t *testing.T) {
	p := newTestPipeline(t, nil, &stubSearcher{})

	_, err := p.Ask(context.Background(), "Who wrote Hamlet?")
	if err == nil {
		t.Fatal("Expected error without a generator, got nil")
	}
	if !strings.Contains(err.Error(), "no LLM provider configured") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestPipeline_Ask_ProviderUnavailable(t *testing.T) {
	p := newTestPipeline(t, &mockGenerator{unavailable: true}, &stubSearcher{})

	_, err := p.Ask(context.Background(), "Who wrote Hamlet?")
	if err == nil {
		t.Fatal("Expected error when no answer was generated, got nil")
	}
	if !strings.Contains(err.Error(), "no answer generated") {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "not available") {
		t.Errorf("Expected the provider warning in the error, got: %v", err)
	}
}

func TestPipeline_Ask_GeneratorError(t *testing.T) {
	p := newTestPipeline(t, &mockGenerator{err: errors.New("API rate limit exceeded")}, &stubSearcher{})

	_, err := p.Ask(context.Background(), "Who wrote Hamlet?")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "generate answer") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestPipeline_Ask_NoClaims(t *testing.T) {
	// Too short and keyword-free: nothing survives extraction
	p := newTestPipeline(t, &mockGenerator{answer: "Nice weather."}, &stubSearcher{})

	_, err := p.Ask(context.Background(), "How is the weather?")
	if err == nil {
		t.Fatal("Expected error for an answer without claims, got nil")
	}
	if err.Error() != "no claims extracted" {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestPipeline_Ask_SearchFailureDegrades(t *testing.T) {
	generator := &mockGenerator{answer: "The Eiffel Tower was completed in 1889."}
	searcher := &stubSearcher{err: errors.New("search backend down")}
	p := newTestPipeline(t, generator, searcher)

	report, err := p.Ask(context.Background(), "When was the Eiffel Tower completed?")
	if err != nil {
		t.Fatalf("Ask() should degrade, not fail: %v", err)
	}

	// No evidence means the critical URL check fails: fraud
	if report.Summary.FraudProven != 1 {
		t.Errorf("Expected 1 fraud verdict, got %+v", report.Summary)
	}
	result := report.Results[0]
	if result.Verdict != model.VerdictFraudProven {
		t.Fatalf("Expected FRAUD_PROVEN, got %s", result.Verdict)
	}
	if result.FraudProof == nil {
		t.Error("Expected a fraud proof for the failed claim")
	}
	if result.Confidence != 10 {
		t.Errorf("Expected confidence 10, got %d", result.Confidence)
	}
}

func TestPipeline_Ask_SearchWarningGoesToStderr(t *testing.T) {
	generator := &mockGenerator{answer: "The Eiffel Tower was completed in 1889."}
	searcher := &stubSearcher{err: errors.New("search backend down")}
	p := newTestPipeline(t, generator, searcher)

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stderr = w

	_, askErr := p.Ask(context.Background(), "When was the Eiffel Tower completed?")

	os.Stderr = oldStderr
	_ = w.Close()
	captured, _ := io.ReadAll(r)

	if askErr != nil {
		t.Fatalf("Ask() should degrade, not fail: %v", askErr)
	}
	if !strings.Contains(string(captured), "Warning: evidence search") {
		t.Error("Expected the search warning on stderr")
	}
}

func TestPipeline_Ask_StoreDisabled(t *testing.T) {
	server := evidenceServer(t)
	generator := &mockGenerator{answer: "The Eiffel Tower was completed in 1889."}
	p := newTestPipeline(t, generator, &stubSearcher{items: supportingEvidence(server.URL)})
	p.store = nil

	report, err := p.Ask(context.Background(), "When was the Eiffel Tower completed?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if report.Commitment == nil || report.Commitment.Root == "" {
		t.Error("Expected a commitment even without persistence")
	}
}

func TestPipeline_CommitTexts(t *testing.T) {
	p := newTestPipeline(t, nil, nil)

	texts := []string{
		"The Eiffel Tower was completed in 1889.",
		"Water boils at 100 degrees Celsius at sea level.",
		"The Great Wall of China is visible from low orbit.",
	}
	batch, err := p.CommitTexts(texts)
	if err != nil {
		t.Fatalf("CommitTexts() error = %v", err)
	}

	if batch.Commitment.Root == "" {
		t.Fatal("Expected a non-empty root")
	}
	if batch.Commitment.ClaimCount != 3 {
		t.Errorf("Expected claim count 3, got %d", batch.Commitment.ClaimCount)
	}
	for i, claim := range batch.Claims {
		if claim.ID == "" {
			t.Errorf("Expected claim %d to carry an ID", i)
		}
		if claim.MerkleIndex != i {
			t.Errorf("Expected merkle index %d, got %d", i, claim.MerkleIndex)
		}
		if len(claim.MerkleProof) != 2 {
			t.Errorf("Expected 2 proof steps for a 3-leaf tree, got %d", len(claim.MerkleProof))
		}
	}

	// Committing the same texts again hits the same root; not an error
	again, err := p.CommitTexts(texts)
	if err != nil {
		t.Fatalf("CommitTexts() second call error = %v", err)
	}
	if again.Commitment.Root != batch.Commitment.Root {
		t.Errorf("Expected deterministic root, got %s vs %s", again.Commitment.Root, batch.Commitment.Root)
	}
}

func TestPipeline_Challenge(t *testing.T) {
	server := evidenceServer(t)
	p := newTestPipeline(t, nil, &stubSearcher{items: supportingEvidence(server.URL)})

	batch, err := p.CommitTexts([]string{
		"The Eiffel Tower was completed in 1889.",
		"The Statue of Liberty was dedicated in 1886.",
	})
	if err != nil {
		t.Fatalf("CommitTexts() error = %v", err)
	}

	result, err := p.Challenge(context.Background(), batch.Commitment.Root, 0, supportingEvidence(server.URL))
	if err != nil {
		t.Fatalf("Challenge() error = %v", err)
	}
	if result.Verdict != model.VerdictVerified {
		t.Errorf("Expected VERIFIED, got %s (%s)", result.Verdict, result.Reasoning)
	}
}

func TestPipeline_Challenge_SearchesWhenNoEvidence(t *testing.T) {
	server := evidenceServer(t)
	searcher := &stubSearcher{items: supportingEvidence(server.URL)}
	p := newTestPipeline(t, nil, searcher)

	batch, err := p.CommitTexts([]string{"The Eiffel Tower was completed in 1889."})
	if err != nil {
		t.Fatalf("CommitTexts() error = %v", err)
	}

	result, err := p.Challenge(context.Background(), batch.Commitment.Root, 0, nil)
	if err != nil {
		t.Fatalf("Challenge() error = %v", err)
	}
	if searcher.calls.Load() == 0 {
		t.Error("Expected the searcher to be consulted")
	}
	if result.Verdict != model.VerdictVerified {
		t.Errorf("Expected VERIFIED, got %s (%s)", result.Verdict, result.Reasoning)
	}
}

func TestPipeline_Challenge_UnknownRoot(t *testing.T) {
	p := newTestPipeline(t, nil, nil)

	_, err := p.Challenge(context.Background(), "no-such-root", 0, nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestPipeline_Challenge_IndexOutOfRange(t *testing.T) {
	p := newTestPipeline(t, nil, nil)

	batch, err := p.CommitTexts([]string{"The Eiffel Tower was completed in 1889."})
	if err != nil {
		t.Fatalf("CommitTexts() error = %v", err)
	}

	for _, index := range []int{-1, 1, 99} {
		_, err := p.Challenge(context.Background(), batch.Commitment.Root, index, nil)
		if err == nil {
			t.Errorf("Expected error for index %d, got nil", index)
		}
	}
}

func TestPipeline_Challenge_TamperedClaim(t *testing.T) {
	server := evidenceServer(t)
	p := newTestPipeline(t, nil, &stubSearcher{items: supportingEvidence(server.URL)})

	// Build a batch, then store a version whose first claim text was
	// swapped after commitment
	commitment, proofs, err := merkle.Commit([]string{
		"The Eiffel Tower was completed in 1889.",
		"The Statue of Liberty was dedicated in 1886.",
	})
	if err != nil {
		t.Fatalf("commit error = %v", err)
	}
	tampered := &model.CommittedBatch{
		Commitment: *commitment,
		Claims: []model.Claim{
			{ID: "c0", Text: "The Eiffel Tower was completed in 1999.", MerkleIndex: 0, MerkleProof: proofs[0]},
			{ID: "c1", Text: "The Statue of Liberty was dedicated in 1886.", MerkleIndex: 1, MerkleProof: proofs[1]},
		},
	}
	if err := p.store.SaveBatch(tampered); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}

	result, err := p.Challenge(context.Background(), commitment.Root, 0, nil)
	if err != nil {
		t.Fatalf("Challenge() error = %v", err)
	}
	if result.Verdict != model.VerdictFraudProven {
		t.Fatalf("Expected FRAUD_PROVEN for tampered claim, got %s", result.Verdict)
	}
	if result.FraudProof == nil {
		t.Fatal("Expected a fraud proof")
	}
	if result.FraudProof.FailedCheck != "merkle_membership" {
		t.Errorf("Expected merkle_membership failure, got %s", result.FraudProof.FailedCheck)
	}

	// The untampered sibling still verifies
	sibling, err := p.Challenge(context.Background(), commitment.Root, 1, nil)
	if err != nil {
		t.Fatalf("Challenge() error = %v", err)
	}
	if sibling.Verdict != model.VerdictVerified {
		t.Errorf("Expected VERIFIED for intact claim, got %s (%s)", sibling.Verdict, sibling.Reasoning)
	}
}

func TestPipeline_Challenge_StoreDisabled(t *testing.T) {
	p := newTestPipeline(t, nil, nil)
	p.store = nil

	_, err := p.Challenge(context.Background(), "any", 0, nil)
	if err == nil {
		t.Fatal("Expected error with store disabled, got nil")
	}
	if !strings.Contains(err.Error(), "store is disabled") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestPipeline_CheckPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, `<html><body>
<p>The Eiffel Tower was completed in 1889. It was the tallest structure in the world at the time.</p>
<p>See <a href="/eiffel">Eiffel Tower history</a> and <a href="/paris">Paris landmarks</a> for background. The Eiffel Tower was built for the 1889 World Fair in Paris.</p>
</body></html>`)
		default:
			_, _ = fmt.Fprint(w, "OK")
		}
	}))
	defer server.Close()

	p := newTestPipeline(t, nil, nil)

	report, err := p.CheckPage(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("CheckPage() error = %v", err)
	}

	if report.SourceURL != server.URL+"/page" {
		t.Errorf("Expected source URL %s, got %s", server.URL+"/page", report.SourceURL)
	}
	if report.Commitment == nil {
		t.Fatal("Expected a commitment")
	}
	if len(report.Claims) != 3 {
		t.Fatalf("Expected 3 claims, got %d: %+v", len(report.Claims), claimTexts(report.Claims))
	}
	if len(report.Results) != len(report.Claims) {
		t.Fatalf("Expected results aligned with claims, got %d vs %d", len(report.Results), len(report.Claims))
	}
	for i, result := range report.Results {
		if result.Verdict != model.VerdictVerified {
			t.Errorf("Expected claim %d VERIFIED, got %s (%s)", i, result.Verdict, result.Reasoning)
		}
	}
}

func TestPipeline_CheckPage_RobotsBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		_, _ = fmt.Fprint(w, "<html>never fetched</html>")
	}))
	defer server.Close()

	p := newTestPipeline(t, nil, nil)

	_, err := p.CheckPage(context.Background(), server.URL+"/page")
	if err == nil {
		t.Fatal("Expected robots.txt block, got nil")
	}
	if !strings.Contains(err.Error(), "blocked by robots.txt") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestPipeline_CheckPage_NoClaims(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body><p>Hello.</p></body></html>")
	}))
	defer server.Close()

	p := newTestPipeline(t, nil, nil)

	_, err := p.CheckPage(context.Background(), server.URL+"/page")
	if err == nil {
		t.Fatal("Expected error for a page without claims, got nil")
	}
	if err.Error() != "no claims extracted" {
		t.Errorf("Unexpected error: %v", err)
	}
}

func claimTexts(claims []model.Claim) []string {
	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}
	return texts
}
