package maple

import "testing"

func testInput(t *testing.T) Input {
	t.Helper()
	ref, err := NewReferenceFromLetters("ACGTACGTAC")
	if err != nil {
		t.Fatalf("reference build failed: %v", err)
	}
	return Input{
		Reference: ref,
		Sequences: []Sequence{
			{Name: "s1", Muts: []Mutation{{Type: StateG, Pos: 0, Length: 1}}},
			{Name: "s2", Muts: []Mutation{{Type: StateT, Pos: 1, Length: 1}}},
			{Name: "s3", Muts: []Mutation{{Type: StateA, Pos: 2, Length: 1}, {Type: StateC, Pos: 5, Length: 1}}},
		},
	}
}

func testPipelineConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logging.Prefix = t.TempDir() + "/maple-orchestrator-test"
	return cfg
}

func TestNewPipelineBuildsDefaultModel(t *testing.T) {
	p, err := NewPipeline(testPipelineConfig(t), testInput(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.Model().(*DNAModel); !ok {
		t.Errorf("default config should build a *DNAModel, got %T", p.Model())
	}
	if p.cfg.Placement.DefaultBlength <= 0 {
		t.Error("NewPipeline should default placement.default_blength to 1/L")
	}
}

func TestNewPipelineRateVariantModel(t *testing.T) {
	cfg := testPipelineConfig(t)
	cfg.Model.Name = "rate-variant-scalar"
	p, err := NewPipeline(cfg, testInput(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rv, ok := p.Model().(*RateVariantModel)
	if !ok {
		t.Fatalf("expected *RateVariantModel, got %T", p.Model())
	}
	if rv.entryMode {
		t.Error("rate-variant-scalar should not enable entry mode")
	}
}

func TestPipelineLoadInputValidatesSequences(t *testing.T) {
	input := testInput(t)
	input.Sequences[0].Muts = []Mutation{{Type: StateG, Pos: 0, Length: 1}, {Type: StateT, Pos: 0, Length: 1}}
	p, err := NewPipeline(testPipelineConfig(t), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.LoadInput(); err == nil {
		t.Error("LoadInput should surface an invalid sequence's validation error")
	}
}

func TestPipelineRunProducesATreeWithAllSamples(t *testing.T) {
	input := testInput(t)
	p, err := NewPipeline(testPipelineConfig(t), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tree, err := p.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Leaves()) != len(input.Sequences) {
		t.Errorf("expected %d leaves, got %d", len(input.Sequences), len(tree.Leaves()))
	}
}
