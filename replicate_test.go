package maple

import "testing"

func TestResampleInputKeepsWithinOriginalMutations(t *testing.T) {
	input := testInput(t)
	resampled := resampleInput(input)
	if len(resampled.Sequences) != len(input.Sequences) {
		t.Fatalf("resampleInput should preserve sequence count, got %d want %d", len(resampled.Sequences), len(input.Sequences))
	}
	for i, s := range resampled.Sequences {
		orig := map[int]Mutation{}
		for _, m := range input.Sequences[i].Muts {
			orig[m.Pos] = m
		}
		for _, m := range s.Muts {
			o, ok := orig[m.Pos]
			if !ok || o.Type != m.Type {
				t.Errorf("resampled mutation %+v was not present in the original sequence %q", m, s.Name)
			}
		}
	}
}

func TestCladeKeyOrderIndependent(t *testing.T) {
	a := cladeKey([]string{"x", "y", "z"})
	b := cladeKey([]string{"z", "x", "y"})
	if a != b {
		t.Errorf("cladeKey should be order-independent: %q vs %q", a, b)
	}
}

func TestCladeIndexAndLeafNamesUnder(t *testing.T) {
	tree, _ := newTestTree(t)
	root := tree.NewSingleton("leaf1", seqRegionsAllR(10))
	internal, leaf2, err := tree.AttachSibling(root, 0, 0.01, 0.01, "leaf2", seqRegionsAllR(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := leafNamesUnder(tree, internal)
	if len(names) != 2 {
		t.Fatalf("expected 2 leaf names under the root, got %v", names)
	}

	index := cladeIndex(tree)
	if id, ok := index[cladeKey(names)]; !ok || id != internal {
		t.Errorf("cladeIndex should map the whole-tree clade to the internal node, got %d, %v", id, ok)
	}
	_ = leaf2
}

func TestApplySupportLabels(t *testing.T) {
	tree, _ := newTestTree(t)
	root := tree.NewSingleton("leaf1", seqRegionsAllR(10))
	internal, _, err := tree.AttachSibling(root, 0, 0.01, 0.01, "leaf2", seqRegionsAllR(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ApplySupportLabels(tree, map[int]float64{internal: 0.42})
	if tree.Node(internal).Name() != "0.420" {
		t.Errorf("ApplySupportLabels should stamp the support fraction as the node's name, got %q", tree.Node(internal).Name())
	}
}

func TestReplicateSetProducesSupportForEveryClade(t *testing.T) {
	input := testInput(t)
	cfg := testPipelineConfig(t)
	p, err := NewPipeline(cfg, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	finished, err := p.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	support, err := ReplicateSet(cfg, input, finished, 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clades := cladeIndex(finished)
	validIDs := map[int]bool{}
	for _, id := range clades {
		validIDs[id] = true
	}
	for id, frac := range support {
		if !validIDs[id] {
			t.Errorf("support reported for node %d which is not an internal clade of the finished tree", id)
		}
		if frac < 0 || frac > 1 {
			t.Errorf("support fraction for node %d out of [0,1]: %g", id, frac)
		}
	}
	// The whole-tree clade (the root) is recovered by every replicate,
	// since every replicate shares the same leaf set.
	rootClade := cladeKey(leafNamesUnder(finished, finished.Root()))
	rootID := clades[rootClade]
	if support[rootID] != 1.0 {
		t.Errorf("the root clade should have support 1.0 across replicates sharing the same leaf set, got %g", support[rootID])
	}
}

func TestNopRunLoggerDrainsChannels(t *testing.T) {
	var l nopRunLogger
	if err := l.Init(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	placements := make(chan PlacementEvent, 1)
	placements <- PlacementEvent{SampleName: "x"}
	close(placements)
	l.WritePlacements(placements) // must not block or panic

	rounds := make(chan TopologyEvent, 1)
	rounds <- TopologyEvent{Round: 1}
	close(rounds)
	l.WriteTopologyRounds(rounds)

	if err := l.WriteRateMatrix(nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := l.WriteCountMatrix(nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
