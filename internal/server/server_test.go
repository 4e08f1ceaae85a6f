package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/alethia/internal/checks"
	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/pipeline"
)

// evidenceBackend plays both roles the pipeline talks to: the search
// endpoint and the evidence URLs the battery probes.
type evidenceBackend struct {
	server      *httptest.Server
	searchCalls atomic.Int32
}

func newEvidenceBackend(t *testing.T) *evidenceBackend {
	t.Helper()
	b := &evidenceBackend{}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		b.searchCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Eiffel Tower - History", "content": "The Eiffel Tower was completed in 1889 for the World Fair in Paris.", "url": b.server.URL + "/eiffel/history"},
				{"title": "Eiffel Tower", "content": "Construction of the Eiffel Tower finished in 1889.", "url": b.server.URL + "/eiffel"},
				{"title": "Statue of Liberty", "content": "The Statue of Liberty was dedicated in 1886.", "url": b.server.URL + "/liberty"},
			},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

// evidence returns the same items the search endpoint serves, for tests
// that supply evidence inline instead of searching.
func (b *evidenceBackend) evidence() []model.EvidenceItem {
	return []model.EvidenceItem{
		{Title: "Eiffel Tower - History", Snippet: "The Eiffel Tower was completed in 1889 for the World Fair in Paris.", URL: b.server.URL + "/eiffel/history"},
		{Title: "Eiffel Tower", Snippet: "Construction of the Eiffel Tower finished in 1889.", URL: b.server.URL + "/eiffel"},
		{Title: "Statue of Liberty", Snippet: "The Statue of Liberty was dedicated in 1886.", URL: b.server.URL + "/liberty"},
	}
}

func newTestEngine(t *testing.T, backend *evidenceBackend) (*gin.Engine, *pipeline.Pipeline) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Store.Path = t.TempDir()
	cfg.Retrieve.BaseURL = backend.server.URL
	cfg.Checks.ProbeTimeout = 2 * time.Second
	cfg.Concurrency.VerifyWorkers = 2
	cfg.RateLimiting.RequestsPerSecond = 100
	cfg.RateLimiting.Burst = 100

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	return New(p), p
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) model.VerificationResult {
	t.Helper()
	var result model.VerificationResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return result
}

func TestHealthz(t *testing.T) {
	engine, _ := newTestEngine(t, newEvidenceBackend(t))

	w := doJSON(t, engine, http.MethodGet, "/healthz", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", resp["status"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header, got none")
	}
}

func TestRequestID_EchoesInbound(t *testing.T) {
	engine, _ := newTestEngine(t, newEvidenceBackend(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-1234")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "trace-1234" {
		t.Errorf("Expected echoed request ID trace-1234, got %q", got)
	}
}

func TestCommit(t *testing.T) {
	engine, p := newTestEngine(t, newEvidenceBackend(t))

	w := doJSON(t, engine, http.MethodPost, "/api/v1/commit", map[string]any{
		"claims": []string{
			"The Eiffel Tower was completed in 1889.",
			"The Statue of Liberty was dedicated in 1886.",
			"The Brooklyn Bridge opened in 1883.",
		},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Root       model.Hash          `json:"root"`
		ClaimCount int                 `json:"claim_count"`
		Timestamp  time.Time           `json:"timestamp"`
		Proofs     [][]model.ProofStep `json:"proofs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Root) != 64 {
		t.Errorf("Expected 64-char hex root, got %q", resp.Root)
	}
	if resp.ClaimCount != 3 {
		t.Errorf("Expected claim count 3, got %d", resp.ClaimCount)
	}
	if resp.Timestamp.IsZero() {
		t.Error("Expected a timestamp, got zero value")
	}
	if len(resp.Proofs) != 3 {
		t.Fatalf("Expected 3 proofs, got %d", len(resp.Proofs))
	}
	for i, proof := range resp.Proofs {
		if len(proof) != 2 {
			t.Errorf("Expected 2 proof steps for claim %d, got %d", i, len(proof))
		}
	}

	// The batch must be retrievable for later challenges
	batch, err := p.Store().GetBatch(resp.Root)
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	if batch.Commitment.ClaimCount != 3 {
		t.Errorf("Expected persisted claim count 3, got %d", batch.Commitment.ClaimCount)
	}
}

func TestCommit_BadRequest(t *testing.T) {
	engine, _ := newTestEngine(t, newEvidenceBackend(t))

	tests := []struct {
		name string
		body any
	}{
		{"missing claims", map[string]any{}},
		{"empty claims", map[string]any{"claims": []string{}}},
		{"no body", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, engine, http.MethodPost, "/api/v1/commit", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", w.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp["err"] == "" {
				t.Error("Expected err field in response, got none")
			}
		})
	}
}

func TestVerify_WithEvidence(t *testing.T) {
	backend := newEvidenceBackend(t)
	engine, _ := newTestEngine(t, backend)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/verify", map[string]any{
		"claim":    "The Eiffel Tower was completed in 1889.",
		"evidence": backend.evidence(),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeResult(t, w)
	if result.Verdict != model.VerdictVerified {
		t.Errorf("Expected VERIFIED, got %s (%s)", result.Verdict, result.Reasoning)
	}
	if result.Confidence != 80 {
		t.Errorf("Expected confidence 80, got %d", result.Confidence)
	}
	if len(result.Checks) != 5 {
		t.Errorf("Expected 5 checks, got %d", len(result.Checks))
	}
}

func TestVerify_NoEvidence(t *testing.T) {
	engine, _ := newTestEngine(t, newEvidenceBackend(t))

	w := doJSON(t, engine, http.MethodPost, "/api/v1/verify", map[string]any{
		"claim": "The Eiffel Tower was completed in 1889.",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeResult(t, w)
	if result.Verdict != model.VerdictFraudProven {
		t.Errorf("Expected FRAUD_PROVEN, got %s", result.Verdict)
	}
	if result.Confidence != 10 {
		t.Errorf("Expected confidence 10, got %d", result.Confidence)
	}
	if result.FraudProof == nil {
		t.Fatal("Expected fraud proof, got nil")
	}
	if result.FraudProof.FailedCheck != checks.CheckURLValidity {
		t.Errorf("Expected failed check %s, got %s", checks.CheckURLValidity, result.FraudProof.FailedCheck)
	}
}

func TestVerify_MembershipOverride(t *testing.T) {
	backend := newEvidenceBackend(t)
	engine, p := newTestEngine(t, backend)

	texts := []string{
		"The Eiffel Tower was completed in 1889.",
		"The Statue of Liberty was dedicated in 1886.",
	}
	batch, err := p.CommitTexts(texts)
	if err != nil {
		t.Fatalf("CommitTexts() error = %v", err)
	}
	root := batch.Commitment.Root

	// Correct proof plus supporting evidence verifies
	w := doJSON(t, engine, http.MethodPost, "/api/v1/verify", map[string]any{
		"claim":    texts[0],
		"evidence": backend.evidence(),
		"root":     root,
		"proof":    batch.Claims[0].MerkleProof,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeResult(t, w)
	if result.Verdict != model.VerdictVerified {
		t.Errorf("Expected VERIFIED with correct proof, got %s (%s)", result.Verdict, result.Reasoning)
	}

	// A sibling's proof fails membership regardless of the evidence
	w = doJSON(t, engine, http.MethodPost, "/api/v1/verify", map[string]any{
		"claim":    texts[0],
		"evidence": backend.evidence(),
		"root":     root,
		"proof":    batch.Claims[1].MerkleProof,
	})
	result = decodeResult(t, w)
	if result.Verdict != model.VerdictFraudProven {
		t.Fatalf("Expected FRAUD_PROVEN with wrong proof, got %s", result.Verdict)
	}
	if result.FraudProof == nil || result.FraudProof.FailedCheck != checks.CheckMerkleMembership {
		t.Errorf("Expected %s fraud proof, got %+v", checks.CheckMerkleMembership, result.FraudProof)
	}
}

func TestVerify_MissingClaim(t *testing.T) {
	engine, _ := newTestEngine(t, newEvidenceBackend(t))

	w := doJSON(t, engine, http.MethodPost, "/api/v1/verify", map[string]any{
		"evidence": []model.EvidenceItem{},
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
}

func TestVerify_DropsInvalidEvidence(t *testing.T) {
	engine, _ := newTestEngine(t, newEvidenceBackend(t))

	// The only item has an unusable URL, so sanitization drops it and the
	// battery runs its no-evidence branches.
	w := doJSON(t, engine, http.MethodPost, "/api/v1/verify", map[string]any{
		"claim": "The Eiffel Tower was completed in 1889.",
		"evidence": []model.EvidenceItem{
			{Title: "Bad", Snippet: "The Eiffel Tower was completed in 1889.", URL: "not a url"},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeResult(t, w)
	if result.Verdict != model.VerdictFraudProven {
		t.Errorf("Expected FRAUD_PROVEN after dropping invalid evidence, got %s", result.Verdict)
	}
}

func TestCommitThenChallenge(t *testing.T) {
	backend := newEvidenceBackend(t)
	engine, _ := newTestEngine(t, backend)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/commit", map[string]any{
		"claims": []string{"The Eiffel Tower was completed in 1889."},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var committed struct {
		Root model.Hash `json:"root"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &committed); err != nil {
		t.Fatalf("decode commit response: %v", err)
	}

	// The root from the commit response serves a challenge directly
	w = doJSON(t, engine, http.MethodPost, "/api/v1/challenge", map[string]any{
		"root":     committed.Root,
		"index":    0,
		"evidence": backend.evidence(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeResult(t, w)
	if result.Verdict != model.VerdictVerified {
		t.Errorf("Expected VERIFIED, got %s (%s)", result.Verdict, result.Reasoning)
	}
}

func TestChallenge_SearchesWhenNoEvidence(t *testing.T) {
	backend := newEvidenceBackend(t)
	engine, p := newTestEngine(t, backend)

	batch, err := p.CommitTexts([]string{"The Eiffel Tower was completed in 1889."})
	if err != nil {
		t.Fatalf("CommitTexts() error = %v", err)
	}

	w := doJSON(t, engine, http.MethodPost, "/api/v1/challenge", map[string]any{
		"root":  batch.Commitment.Root,
		"index": 0,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if backend.searchCalls.Load() == 0 {
		t.Error("Expected the challenge to search for evidence")
	}
	result := decodeResult(t, w)
	if result.Verdict != model.VerdictVerified {
		t.Errorf("Expected VERIFIED, got %s (%s)", result.Verdict, result.Reasoning)
	}
}

func TestChallenge_SuppliedEvidence(t *testing.T) {
	backend := newEvidenceBackend(t)
	engine, p := newTestEngine(t, backend)

	batch, err := p.CommitTexts([]string{"The Eiffel Tower was completed in 1889."})
	if err != nil {
		t.Fatalf("CommitTexts() error = %v", err)
	}

	w := doJSON(t, engine, http.MethodPost, "/api/v1/challenge", map[string]any{
		"root":     batch.Commitment.Root,
		"index":    0,
		"evidence": backend.evidence(),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := backend.searchCalls.Load(); got != 0 {
		t.Errorf("Expected no search with supplied evidence, got %d calls", got)
	}
	result := decodeResult(t, w)
	if result.Verdict != model.VerdictVerified {
		t.Errorf("Expected VERIFIED, got %s (%s)", result.Verdict, result.Reasoning)
	}
}

func TestChallenge_UnknownRoot(t *testing.T) {
	engine, _ := newTestEngine(t, newEvidenceBackend(t))

	w := doJSON(t, engine, http.MethodPost, "/api/v1/challenge", map[string]any{
		"root":  "deadbeef",
		"index": 0,
	})

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestChallenge_BadIndex(t *testing.T) {
	engine, p := newTestEngine(t, newEvidenceBackend(t))

	batch, err := p.CommitTexts([]string{"The Eiffel Tower was completed in 1889."})
	if err != nil {
		t.Fatalf("CommitTexts() error = %v", err)
	}

	for _, index := range []int{-1, 1, 99} {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/challenge", map[string]any{
			"root":  batch.Commitment.Root,
			"index": index,
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for index %d, got %d", index, w.Code)
		}
	}
}
