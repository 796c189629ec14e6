package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/classify"
	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
	"github.com/joseph-ayodele/lab-interpreter/internal/interpret"
	"github.com/joseph-ayodele/lab-interpreter/internal/parse"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
	"github.com/joseph-ayodele/lab-interpreter/internal/safety"
	"github.com/joseph-ayodele/lab-interpreter/internal/symptom"
)

// RunSaver persists finished runs.
type RunSaver interface {
	Save(ctx context.Context, run *entity.Run) error
}

// Observer is told about every delivered report.
type Observer interface {
	ObserveReport(r *Report)
}

type Option func(*Processor)

// WithStore records each delivered run. Store failures are logged, never returned.
func WithStore(s RunSaver) Option {
	return func(p *Processor) { p.store = s }
}

func WithObserver(o Observer) Option {
	return func(p *Processor) { p.observer = o }
}

// Processor runs documents through extract, parse, classify, interpret and the
// safety gate. It holds only read-only state and is safe for concurrent use.
type Processor struct {
	Logger     *slog.Logger
	extractor  extract.TextExtractor
	parser     *parse.Parser
	classifier *classify.Classifier
	correlator *symptom.Correlator
	engine     *interpret.Engine
	gate       *safety.Gate
	store      RunSaver
	observer   Observer
}

// NewProcessor refuses to build without a complete rule set, since the safety
// gate depends on it.
func NewProcessor(set *rules.Set, extractor extract.TextExtractor, logger *slog.Logger, opts ...Option) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if set == nil || set.Ranges == nil || set.Symptoms == nil || set.Interpretation == nil || set.Safety == nil {
		return nil, common.ConfigError("incomplete rule set", nil)
	}
	if extractor == nil {
		return nil, common.ConfigError("no text extractor configured", nil)
	}
	p := &Processor{
		Logger:     logger,
		extractor:  extractor,
		parser:     parse.New(logger),
		classifier: classify.New(set.Ranges, logger),
		correlator: symptom.New(set.Symptoms, logger),
		engine:     interpret.New(set.Interpretation, logger),
		gate:       safety.New(set.Safety, logger),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process runs one document end to end. Extraction and parsing problems become
// unavailable data; the only error is a context that was already done.
func (p *Processor) Process(ctx context.Context, in Input) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	rep := &Report{
		ID:           uuid.New(),
		DocumentName: in.Document.Name,
		ContentHash:  in.Document.Hash(),
		CreatedAt:    start.UTC(),
	}
	rep.advance(constants.StageUploaded)
	ctx = common.WithRunID(ctx, rep.ID.String())
	log := p.Logger.With("run_id", rep.ID, "document", in.Document.Name)
	if reqID := common.RequestIDFromContext(ctx); reqID != "" {
		log = log.With("request_id", reqID)
	}

	rep.Extracted = p.extractor.Extract(ctx, in.Document)
	rep.advance(constants.StageExtracted)
	log.Info("pipeline.extract.ok",
		"method", rep.Extracted.Method,
		"confidence", rep.Extracted.Confidence,
		"pages", rep.Extracted.Pages,
	)

	p.interpret(rep, rep.Extracted.Text, in.Symptoms)
	log.Info("pipeline.safety.ok",
		"risk", rep.Result.OverallRiskLevel,
		"flagged", rep.Result.SafetyFlag != nil,
		"unresolved", len(rep.Unresolved),
	)

	rep.advance(constants.StageDelivered)
	rep.Duration = time.Since(start)
	p.save(ctx, rep, log)
	if p.observer != nil {
		p.observer.ObserveReport(rep)
	}
	return rep, nil
}

// Interpret runs every stage after extraction on already extracted text. Same
// text, symptoms and rules give the same result.
func (p *Processor) Interpret(text, symptoms string) entity.InterpretationResult {
	rep := &Report{}
	p.interpret(rep, text, symptoms)
	return rep.Result
}

func (p *Processor) interpret(rep *Report, text, symptoms string) {
	parsed := p.parser.Parse(text)
	rep.Demographics = parsed.Demographics
	rep.Unresolved = parsed.Unresolved
	rep.advance(constants.StageParsed)

	values := p.classifier.ClassifyAll(parsed.LabValues(), parsed.Demographics)
	rep.advance(constants.StageClassified)

	var notes []entity.SymptomNote
	if strings.TrimSpace(symptoms) != "" {
		notes = p.correlator.Correlate(symptoms, values)
	}
	result := p.engine.Interpret(values, notes)
	rep.advance(constants.StageInterpreted)

	rep.Result = p.gate.Apply(result, values, notes)
	rep.advance(constants.StageSafetyChecked)
}

func (p *Processor) save(ctx context.Context, rep *Report, log *slog.Logger) {
	if p.store == nil {
		return
	}
	run, err := rep.Run()
	if err == nil {
		err = p.store.Save(ctx, run)
	}
	if err != nil {
		log.Error("pipeline.store.failed", "error", err)
		return
	}
	log.Debug("pipeline.store.ok")
}
