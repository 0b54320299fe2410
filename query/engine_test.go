package query

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/normqa/ai/mock"
	"github.com/poiesic/normqa/core"
	"github.com/poiesic/normqa/storage"
	badgerstore "github.com/poiesic/normqa/storage/badger"
)

var relevanceIDRe = regexp.MustCompile(`--- id: (\S+)`)

// scriptedLLM builds a MockLLM that answers the pipeline's structured calls
// deterministically: a fixed intent, fixed keyword terms, and a relevance
// verdict taken from the relevant map (ids absent from it come back null).
func scriptedLLM(intent string, keywords []string, relevant map[string]string, answer string) *mock.MockLLM {
	llm := mock.NewMockLLM()
	llm.GenerateJSONFunc = func(ctx context.Context, prompt, system string, out any) error {
		switch {
		case strings.Contains(system, "intent"):
			return json.Unmarshal([]byte(`{"intent":"`+intent+`"}`), out)
		case strings.Contains(system, "keywords"):
			payload, err := json.Marshal(keywords)
			if err != nil {
				return err
			}
			return json.Unmarshal(payload, out)
		case strings.Contains(system, "relevance"):
			verdict := make(map[string]*string)
			for _, m := range relevanceIDRe.FindAllStringSubmatch(prompt, -1) {
				id := m[1]
				if extract, ok := relevant[id]; ok {
					e := extract
					verdict[id] = &e
				} else {
					verdict[id] = nil
				}
			}
			payload, err := json.Marshal(verdict)
			if err != nil {
				return err
			}
			return json.Unmarshal(payload, out)
		case strings.Contains(system, "contradictions"):
			return json.Unmarshal([]byte(`{"conflicts":[]}`), out)
		}
		return fmt.Errorf("unexpected structured call: %s", system)
	}
	llm.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return answer, nil
	}
	return llm
}

// fixedEmbedder always returns the same vector for every text.
func fixedEmbedder(vector []float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return embedder
}

func newTestStore(t *testing.T) (storage.Store, storage.VectorIndex) {
	t.Helper()
	store, index, backend, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return store, index
}

func seedDensityCorpus(t *testing.T, store storage.Store, index storage.VectorIndex) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.PutDocuments(ctx, &core.Document{
		ID:        "BSI_EN_1991-1-1",
		Code:      "EN 1991-1-1",
		Name:      "Eurocode 1",
		Pages:     44,
		Status:    "current",
		KeyPrefix: "BSI_EN_1991-1-1",
	}))
	require.NoError(t, store.PutSections(ctx, &core.Section{
		ID:        "BSI_EN_1991-1-1_4.2.3",
		Code:      "4.2.3",
		Title:     "Density of construction materials",
		Page:      18,
		Content:   "Densities of concrete and reinforced concrete are given in Table A.1.",
		DocPrefix: "BSI_EN_1991-1-1",
	}))
	require.NoError(t, index.Upsert(ctx, "BSI_EN_1991-1-1_4.2.3", []float32{1, 0, 0}))
}

func TestEngineQuery_SingleCandidate(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)
	seedDensityCorpus(t, store, index)

	const secID = "BSI_EN_1991-1-1_4.2.3"
	llm := scriptedLLM(intentQuery,
		[]string{"density", "reinforced concrete"},
		map[string]string{secID: "The density of reinforced concrete shall be taken as 25 kN/m3."},
		"The density of reinforced concrete is 25 kN/m3 [Eurocode 1, Page 18, Section 4.2.3].")
	provider := mock.NewMockProviderWithServices(fixedEmbedder([]float32{1, 0, 0}), llm)

	engine, err := NewEngine(ctx, store, index, provider)
	require.NoError(t, err)
	defer engine.Close()

	result, err := engine.Query(ctx, "density of reinforced concrete", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, result.QueryID)
	assert.Contains(t, result.Answer, "Section 4.2.3")

	require.Len(t, result.References, 1)
	ref := result.References[0]
	assert.Equal(t, secID, ref.ID)
	assert.Equal(t, "4.2.3", ref.SectionCode)
	assert.Equal(t, 18, ref.Page)
	assert.Contains(t, ref.Extract, "25 kN/m3")
	assert.Contains(t, ref.HighlightText, "density")

	assert.Empty(t, result.MissingDocuments)
	assert.Empty(t, result.Precedence)
	assert.Empty(t, result.Conflicts)
	assert.Contains(t, result.Timings, "total")
	assert.Contains(t, result.Timings, "gather")
	assert.NotEmpty(t, result.Steps)
}

func TestEngineQuery_ReferenceCycle(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)

	require.NoError(t, store.PutDocuments(ctx, &core.Document{
		ID: "BSI_EN_1990", Code: "EN 1990", Name: "Eurocode 0", KeyPrefix: "BSI_EN_1990",
	}))
	idA := "BSI_EN_1990_6.4.1"
	idB := "BSI_EN_1990_6.4.2"
	require.NoError(t, store.PutSections(ctx,
		&core.Section{ID: idA, Code: "6.4.1", Title: "General", Page: 30, Content: "See 6.4.2 for partial factors.", DocPrefix: "BSI_EN_1990"},
		&core.Section{ID: idB, Code: "6.4.2", Title: "Values", Page: 31, Content: "As defined in 6.4.1.", DocPrefix: "BSI_EN_1990"},
	))
	require.NoError(t, store.PutReferences(ctx, idA, []string{idB}))
	require.NoError(t, store.PutReferences(ctx, idB, []string{idA}))
	require.NoError(t, index.Upsert(ctx, idA, []float32{1, 0, 0}))

	llm := scriptedLLM(intentQuery,
		[]string{"partial factors"},
		map[string]string{
			idA: "General rules for partial factors.",
			idB: "Partial factor values.",
		},
		"Partial factors are given in [Eurocode 0, Page 31, Section 6.4.2].")
	provider := mock.NewMockProviderWithServices(fixedEmbedder([]float32{1, 0, 0}), llm)

	engine, err := NewEngine(ctx, store, index, provider)
	require.NoError(t, err)
	defer engine.Close()

	result, err := engine.Query(ctx, "partial factors for actions", nil)
	require.NoError(t, err)

	// Both sections present exactly once despite the reference cycle.
	ids := make([]string, 0, len(result.References))
	for _, ref := range result.References {
		ids = append(ids, ref.ID)
	}
	assert.ElementsMatch(t, []string{idA, idB}, ids)
	assert.Empty(t, result.MissingDocuments)
}

func TestEngineQuery_MissingDocument(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)

	require.NoError(t, store.PutDocuments(ctx, &core.Document{
		ID: "BSI_EN_1990", Code: "EN 1990", Name: "Eurocode 0", KeyPrefix: "BSI_EN_1990",
	}))
	idA := "BSI_EN_1990_6.4.1"
	require.NoError(t, store.PutSections(ctx, &core.Section{
		ID: idA, Code: "6.4.1", Title: "General", Page: 30,
		Content: "Resistance shall be verified per EN 1992.", DocPrefix: "BSI_EN_1990",
	}))
	require.NoError(t, store.PutReferences(ctx, idA, []string{"EN_1992-1-1_6.1"}))
	require.NoError(t, index.Upsert(ctx, idA, []float32{1, 0, 0}))

	llm := scriptedLLM(intentQuery,
		[]string{"resistance"},
		map[string]string{idA: "Resistance shall be verified per EN 1992."},
		"Resistance verification is covered in [Eurocode 0, Page 30, Section 6.4.1].")
	provider := mock.NewMockProviderWithServices(fixedEmbedder([]float32{1, 0, 0}), llm)

	engine, err := NewEngine(ctx, store, index, provider)
	require.NoError(t, err)
	defer engine.Close()

	result, err := engine.Query(ctx, "how is resistance verified", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"EN_1992-1-1"}, result.MissingDocuments)
	assert.NotEmpty(t, result.Answer)
	require.Len(t, result.References, 1)
}

func TestEngineQuery_ChatIntent(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)
	seedDensityCorpus(t, store, index)

	// Chat intent short-circuits; the reply comes from GenerateChat, which
	// keeps the mock's default echo behavior here.
	llm := scriptedLLM(intentChat, nil, nil, "")
	embedder := fixedEmbedder([]float32{1, 0, 0})
	provider := mock.NewMockProviderWithServices(embedder, llm)

	engine, err := NewEngine(ctx, store, index, provider)
	require.NoError(t, err)
	defer engine.Close()

	messages := []core.Message{{Role: core.RoleUser, Content: "hi"}}
	result, err := engine.Query(ctx, "hi", messages)
	require.NoError(t, err)

	assert.NotEmpty(t, result.Answer)
	assert.Empty(t, result.References)
	assert.Contains(t, result.Timings, "classify")
	// No retrieval happened: the embedder was never called.
	assert.Equal(t, 0, embedder.CallCount())
}

func TestEngineQuery_RelevanceFilterFailure(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)

	require.NoError(t, store.PutDocuments(ctx, &core.Document{
		ID: "BSI_EN_1991-1-1", Code: "EN 1991-1-1", Name: "Eurocode 1", KeyPrefix: "BSI_EN_1991-1-1",
	}))
	const secID = "BSI_EN_1991-1-1_4.2.3"
	longContent := strings.Repeat("Densities of construction and stored materials are tabulated in Annex A. ", 12)
	require.Greater(t, len(longContent), DefaultTruncateLength)
	require.NoError(t, store.PutSections(ctx, &core.Section{
		ID: secID, Code: "4.2.3", Title: "Density", Page: 18,
		Content: longContent, DocPrefix: "BSI_EN_1991-1-1",
	}))
	require.NoError(t, index.Upsert(ctx, secID, []float32{1, 0, 0}))

	llm := scriptedLLM(intentQuery, []string{"density"}, nil,
		"Densities are tabulated in [Eurocode 1, Page 18, Section 4.2.3].")
	scripted := llm.GenerateJSONFunc
	llm.GenerateJSONFunc = func(ctx context.Context, prompt, system string, out any) error {
		if strings.Contains(system, "relevance") {
			return fmt.Errorf("provider unavailable")
		}
		return scripted(ctx, prompt, system, out)
	}
	provider := mock.NewMockProviderWithServices(fixedEmbedder([]float32{1, 0, 0}), llm)

	engine, err := NewEngine(ctx, store, index, provider)
	require.NoError(t, err)
	defer engine.Close()

	result, err := engine.Query(ctx, "density of stored materials", nil)
	require.NoError(t, err)

	// A failed relevance batch keeps its candidates rather than dropping
	// them; their extracts are the stored content cut to the preview length.
	require.Len(t, result.References, 1)
	ref := result.References[0]
	assert.Equal(t, secID, ref.ID)
	assert.Equal(t, longContent[:DefaultTruncateLength], ref.Extract)
	assert.NotEmpty(t, result.Answer)
}

func TestEngineQuery_ClassifierFailureDefaultsToSearch(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)
	seedDensityCorpus(t, store, index)

	const secID = "BSI_EN_1991-1-1_4.2.3"
	llm := scriptedLLM(intentQuery,
		[]string{"density"},
		map[string]string{secID: "Densities of concrete are given in Table A.1."},
		"Densities are given in [Eurocode 1, Page 18, Section 4.2.3].")
	scripted := llm.GenerateJSONFunc
	llm.GenerateJSONFunc = func(ctx context.Context, prompt, system string, out any) error {
		if strings.Contains(system, "intent") {
			return fmt.Errorf("provider unavailable")
		}
		return scripted(ctx, prompt, system, out)
	}
	embedder := fixedEmbedder([]float32{1, 0, 0})
	provider := mock.NewMockProviderWithServices(embedder, llm)

	engine, err := NewEngine(ctx, store, index, provider)
	require.NoError(t, err)
	defer engine.Close()

	// Non-empty history forces the intent call; its failure must fall back
	// to the full search pipeline, not to a chat reply.
	messages := []core.Message{{Role: core.RoleUser, Content: "density of concrete"}}
	result, err := engine.Query(ctx, "density of concrete", messages)
	require.NoError(t, err)

	require.Len(t, result.References, 1)
	assert.Equal(t, secID, result.References[0].ID)
	assert.Positive(t, embedder.CallCount())
	assert.Contains(t, result.Answer, "Section 4.2.3")
}

func TestEngineQuery_ExpansionSingleRound(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)

	require.NoError(t, store.PutDocuments(ctx, &core.Document{
		ID: "BSI_EN_TEST", Code: "EN TEST", Name: "Test Standard", KeyPrefix: "BSI_EN_TEST",
	}))

	// 12 sections ranked by descending similarity to the query vector {1,0}.
	ids := make([]string, 12)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("BSI_EN_TEST_%02d", i+1)
		ids[i] = id
		require.NoError(t, store.PutSections(ctx, &core.Section{
			ID: id, Code: fmt.Sprintf("%d", i+1), Title: "Clause", Page: i + 1,
			Content: "filler text", DocPrefix: "BSI_EN_TEST",
		}))
		angle := float64(i+1) * 0.1
		require.NoError(t, index.Upsert(ctx, id, []float32{
			float32(math.Cos(angle)), float32(math.Sin(angle)),
		}))
	}

	// Bottom two of the initial window (ranks 9 and 10) are relevant, so
	// exactly one expansion round fires; the newly revealed ids are not
	// relevant, and the index is exhausted at 12 hits anyway.
	relevant := map[string]string{
		ids[0]: "extract one",
		ids[8]: "extract nine",
		ids[9]: "extract ten",
	}
	llm := scriptedLLM(intentQuery, []string{"zzzz"}, relevant,
		"See [Test Standard, Page 1, Section 1].")
	provider := mock.NewMockProviderWithServices(fixedEmbedder([]float32{1, 0}), llm)

	engine, err := NewEngine(ctx, store, index, provider)
	require.NoError(t, err)
	defer engine.Close()

	result, err := engine.Query(ctx, "tail relevance widening", nil)
	require.NoError(t, err)

	var expansionStep *core.StepLog
	for i := range result.Steps {
		if result.Steps[i].Description == "widened vector search window" {
			expansionStep = &result.Steps[i]
		}
	}
	require.NotNil(t, expansionStep, "expected exactly one expansion round to be logged")
	assert.Equal(t, "1", expansionStep.Action)

	refIDs := make([]string, 0, len(result.References))
	for _, ref := range result.References {
		refIDs = append(refIDs, ref.ID)
	}
	assert.ElementsMatch(t, []string{ids[0], ids[8], ids[9]}, refIDs)
	assert.NotContains(t, refIDs, ids[10])
	assert.NotContains(t, refIDs, ids[11])
}

func TestEngineQuery_NoCandidates(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)

	require.NoError(t, store.PutDocuments(ctx, &core.Document{
		ID: "BSI_EN_1990", Code: "EN 1990", Name: "Eurocode 0", KeyPrefix: "BSI_EN_1990",
	}))

	llm := scriptedLLM(intentQuery, []string{"zzzz"}, nil, "should not be called")
	provider := mock.NewMockProviderWithServices(fixedEmbedder([]float32{1, 0}), llm)

	engine, err := NewEngine(ctx, store, index, provider)
	require.NoError(t, err)
	defer engine.Close()

	result, err := engine.Query(ctx, "anything at all", nil)
	require.NoError(t, err)

	assert.Contains(t, result.Answer, "No relevant sections")
	assert.Empty(t, result.References)
}

func TestEngineQuery_Deterministic(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)
	seedDensityCorpus(t, store, index)

	run := func() *core.QueryResult {
		llm := scriptedLLM(intentQuery,
			[]string{"density"},
			map[string]string{"BSI_EN_1991-1-1_4.2.3": "Density is 25 kN/m3."},
			"Density is 25 kN/m3 [Eurocode 1, Page 18, Section 4.2.3].")
		provider := mock.NewMockProviderWithServices(fixedEmbedder([]float32{1, 0, 0}), llm)

		engine, err := NewEngine(ctx, store, index, provider)
		require.NoError(t, err)
		defer engine.Close()

		result, err := engine.Query(ctx, "density of concrete", nil)
		require.NoError(t, err)

		// Timing values and the time-salted query id legitimately vary.
		result.QueryID = ""
		result.Timings = nil
		return result
	}

	assert.Equal(t, run(), run())
}

func TestEngineQuery_EmptyQuery(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)
	provider := mock.NewMockProvider()

	engine, err := NewEngine(ctx, store, index, provider)
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.Query(ctx, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestNewEngineValidation(t *testing.T) {
	ctx := context.Background()
	store, index := newTestStore(t)
	provider := mock.NewMockProvider()

	t.Run("nil store", func(t *testing.T) {
		_, err := NewEngine(ctx, nil, index, provider)
		assert.ErrorIs(t, err, ErrStoreRequired)
	})

	t.Run("nil vector index", func(t *testing.T) {
		_, err := NewEngine(ctx, store, nil, provider)
		assert.ErrorIs(t, err, ErrVectorIndexRequired)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewEngine(ctx, store, index, nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})
}
