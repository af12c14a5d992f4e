package maple

import "sync"

// Input is the already-parsed dataset a Pipeline runs over: a
// reference genome and the named mutation lists read from it, as
// produced by an external FASTA/PHYLIP/MAPLE-format reader (out of
// scope for this package, per spec.md §2's module boundary).
type Input struct {
	Reference Reference
	Sequences []Sequence
}

// Pipeline runs the five-stage orchestration of spec.md §4.8
// (loadInput -> preInference -> buildInitialTree -> optimizeTree ->
// postInference) as methods over one dataset, mirroring the way
// SISimulation/SIRSimulation expose Update/Process/Transmit/Record as
// separate steps a caller can also drive individually.
type Pipeline struct {
	cfg    *Config
	model  SubstModel
	tree   *Tree
	logger RunLogger

	input   Input
	ordered []Sequence
}

// NewPipeline builds a Pipeline from an Input and Config, constructing
// the substitution model named by cfg.Model.Name (spec.md §4.2).
func NewPipeline(cfg *Config, input Input) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Placement.DefaultBlength <= 0 {
		cfg.Placement.DefaultBlength = 1.0 / float64(input.Reference.Len())
	}

	model, err := newModelFor(cfg, input.Reference)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:    cfg,
		model:  model,
		input:  input,
		logger: NewRunLogger(cfg),
	}, nil
}

// newModelFor constructs the substitution model named by
// cfg.Model.Name, wrapping the uniform DNA model in a RateVariantModel
// when per-site rate variation is requested (spec.md §4.2).
func newModelFor(cfg *Config, ref Reference) (SubstModel, error) {
	switch cfg.Model.Name {
	case "rate-variant-scalar", "rate-variant-entry":
		base, err := NewJCMatrix()
		if err != nil {
			return nil, err
		}
		return NewRateVariantModel(cfg, ref, base, cfg.Model.Name == "rate-variant-entry")
	default:
		return NewDNAModel(ref, cfg.Model.Name, cfg)
	}
}

// Tree returns the pipeline's working tree, valid after buildInitialTree
// has run.
func (p *Pipeline) Tree() *Tree { return p.tree }

// Model returns the pipeline's substitution model.
func (p *Pipeline) Model() SubstModel { return p.model }

// LoadInput validates the input dataset against the reference, the
// first orchestrator stage (spec.md §4.8 step 1).
func (p *Pipeline) LoadInput() error {
	if err := p.logger.Init(); err != nil {
		return err
	}
	for i := range p.input.Sequences {
		if err := p.input.Sequences[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PreInference orders samples for incremental insertion by descending
// distance from the reference (spec.md §4.3 step 0), the second
// orchestrator stage.
func (p *Pipeline) PreInference() {
	p.ordered = OrderForInitialTree(p.input.Sequences, p.cfg.Placement.HammingWeight)
}

// BuildInitialTree incrementally places every ordered sample via
// SeekPlacement/InsertPlacement (spec.md §4.3), periodically triggering
// the model's empirical update (step 2), and streaming one
// PlacementEvent per sample to the run logger using the same
// producer/consumer-over-channel shape si_simulation.go uses to feed
// its DataLogger.
func (p *Pipeline) BuildInitialTree() error {
	if len(p.ordered) == 0 {
		p.ordered = p.input.Sequences
	}
	p.tree = NewTree(p.cfg, p.model, p.input.Reference)

	events := make(chan PlacementEvent)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.logger.WritePlacements(events)
	}()

	err := p.placeAll(events)
	close(events)
	wg.Wait()
	return err
}

func (p *Pipeline) placeAll(events chan<- PlacementEvent) error {
	for _, seq := range p.ordered {
		observed, err := seq.ToSeqRegions(p.input.Reference)
		if err != nil {
			return err
		}

		if p.tree.Root() < 0 {
			p.tree.NewSingleton(seq.Name, observed)
			continue
		}
		if err := p.tree.RefreshAll(); err != nil {
			return err
		}

		placement, err := p.tree.SeekPlacement(observed, p.cfg.Placement.DefaultBlength)
		if err != nil {
			return err
		}

		target := p.tree.Node(placement.Node)
		if target != nil {
			switch m := p.model.(type) {
			case *DNAModel:
				if err := m.AccumulatePseudocounts(target.lower, observed, p.input.Reference); err == nil {
					if err := m.MaybeUpdateEmpirical(p.cfg.Model.MutationUpdatePeriod); err != nil {
						return err
					}
				}
			case *RateVariantModel:
				if m.entryMode {
					if err := m.AccumulateEntryCounts(target.lower, observed, p.input.Reference, p.cfg.Placement.DefaultBlength, p.cfg.Model.WaitingTimePseudocount); err != nil {
						return err
					}
				} else if err := m.AccumulateScalarRate(target.lower, observed, p.input.Reference, p.cfg.Placement.DefaultBlength); err != nil {
					return err
				}
			}
		}

		_, err = p.tree.InsertPlacement(seq.Name, observed, placement, p.cfg.Placement.DefaultBlength)
		if err != nil {
			return err
		}
		events <- PlacementEvent{
			SampleName:   seq.Name,
			TargetNodeID: placement.Node,
			LogLHDelta:   placement.LHDiff,
			Attempts:     1,
		}
	}
	return nil
}

// OptimizeTree runs branch-length optimisation and SPR topology
// rearrangement in alternation (spec.md §4.6/§4.7), streaming one
// TopologyEvent per round to the run logger.
func (p *Pipeline) OptimizeTree() error {
	if p.tree == nil || p.tree.Root() < 0 {
		return nil
	}

	events := make(chan TopologyEvent)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.logger.WriteTopologyRounds(events)
	}()

	err := p.optimizeRounds(events)
	close(events)
	wg.Wait()
	return err
}

func (p *Pipeline) optimizeRounds(events chan<- TopologyEvent) error {
	for round := 0; round < p.cfg.Topology.NumTreeImprovement; round++ {
		if !p.cfg.Branch.FixedBlength {
			if err := p.tree.OptimizeAllBranches(); err != nil {
				return err
			}
		}
		delta, err := p.tree.OptimizeTopology(p.cfg.Topology.ShortRange)
		if err != nil {
			return err
		}
		events <- TopologyEvent{Round: round, NumApplied: 1, LogLHDelta: delta}
		if delta < p.cfg.Topology.ThreshEntireTreeImprovement {
			break
		}
	}
	return nil
}

// PostInference performs the final cache refresh and writes the
// model's rate/count matrices to the run logger (spec.md §6's optional
// .rateMatrices.txt/.countMatrices.txt output), the last orchestrator
// stage.
func (p *Pipeline) PostInference() error {
	if p.tree == nil {
		return nil
	}
	if err := p.tree.RefreshAll(); err != nil {
		return err
	}
	switch m := p.model.(type) {
	case *DNAModel:
		if err := p.logger.WriteRateMatrix(m.mat.q); err != nil {
			return err
		}
		if err := p.logger.WriteCountMatrix(m.counts.counts); err != nil {
			return err
		}
	case *RateVariantModel:
		if m.entryMode {
			if err := m.EstimateEntryRates(); err != nil {
				return err
			}
		} else {
			m.EstimateScalarRates()
		}
		if err := p.logger.WriteRateMatrix(m.base.q); err != nil {
			return err
		}
	}
	return nil
}

// Run executes all five orchestrator stages in order, returning the
// finished tree.
func (p *Pipeline) Run() (*Tree, error) {
	if err := p.LoadInput(); err != nil {
		return nil, err
	}
	p.PreInference()
	if err := p.BuildInitialTree(); err != nil {
		return nil, err
	}
	if err := p.OptimizeTree(); err != nil {
		return nil, err
	}
	if err := p.PostInference(); err != nil {
		return nil, err
	}
	return p.tree, nil
}
