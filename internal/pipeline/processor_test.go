package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
)

type fakeExtractor struct{ out extract.ExtractedText }

func (f fakeExtractor) Extract(context.Context, extract.Document) extract.ExtractedText { return f.out }

func direct(text string) fakeExtractor {
	return fakeExtractor{out: extract.ExtractedText{Text: text, Method: extract.MethodDirect, Confidence: 0.9, Format: "TEXT"}}
}

type memStore struct {
	mu   sync.Mutex
	runs []*entity.Run
	err  error
}

func (m *memStore) Save(_ context.Context, run *entity.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

type countingObserver struct{ reports []*Report }

func (o *countingObserver) ObserveReport(r *Report) { o.reports = append(o.reports, r) }

const anemicReport = `Patient: A. Example
Age: 30   Sex: Female
Hemoglobin   6.0 g/dL
MCV          70 fL
`

func newProcessor(t *testing.T, x extract.TextExtractor, opts ...Option) *Processor {
	t.Helper()
	set, err := rules.Default()
	require.NoError(t, err)
	p, err := NewProcessor(set, x, nil, opts...)
	require.NoError(t, err)
	return p
}

func doc(name string) Input {
	return Input{Document: extract.Document{Name: name, Data: []byte("stub")}}
}

func valueOf(t *testing.T, res entity.InterpretationResult, a constants.Analyte) entity.ClassifiedValue {
	t.Helper()
	for _, v := range res.Values {
		if v.Analyte == a {
			return v
		}
	}
	t.Fatalf("no value for %s", a)
	return entity.ClassifiedValue{}
}

func TestProcess_CriticalAnemia(t *testing.T) {
	p := newProcessor(t, direct(anemicReport))

	rep, err := p.Process(context.Background(), doc("cbc.txt"))
	require.NoError(t, err)

	res := rep.Result
	assert.Equal(t, entity.CriticalLow, valueOf(t, res, constants.Hemoglobin).Classification)
	assert.Equal(t, entity.Low, valueOf(t, res, constants.MCV).Classification)
	require.NotNil(t, res.SafetyFlag)
	assert.Equal(t, entity.RiskUrgent, res.SafetyFlag.Severity)
	assert.Equal(t, entity.RiskUrgent, res.OverallRiskLevel)
	assert.Equal(t, entity.TierSafety, res.Statements[0].Tier)

	require.NotNil(t, rep.Demographics.Age)
	assert.Equal(t, 30, *rep.Demographics.Age)
	assert.Equal(t, constants.Female, rep.Demographics.Gender)
	assert.Equal(t, constants.Stages, rep.Stages)
	assert.Equal(t, constants.StageDelivered, rep.Stage())
}

func TestProcess_NothingExtracted(t *testing.T) {
	p := newProcessor(t, fakeExtractor{out: extract.ExtractedText{Method: extract.MethodFailed}})

	rep, err := p.Process(context.Background(), doc("blank.pdf"))
	require.NoError(t, err)

	require.Len(t, rep.Result.Values, 6)
	for _, v := range rep.Result.Values {
		assert.Equal(t, entity.Unavailable, v.Classification)
	}
	assert.Len(t, rep.Unresolved, 6)
	assert.Nil(t, rep.Result.SafetyFlag)
	assert.Equal(t, entity.RiskUnavailable, rep.Result.OverallRiskLevel)

	var ids []string
	for _, s := range rep.Result.Statements {
		ids = append(ids, s.RuleID)
	}
	assert.Contains(t, ids, "insufficient-data")
	assert.Equal(t, constants.Stages, rep.Stages, "a failed extraction still reaches every stage")
}

func TestProcess_NormalHemoglobin(t *testing.T) {
	p := newProcessor(t, direct("Haemoglobin: 13.5 g/dL"))

	rep, err := p.Process(context.Background(), doc("hb.txt"))
	require.NoError(t, err)

	assert.Equal(t, entity.RiskNormal, rep.Result.OverallRiskLevel)
	assert.Nil(t, rep.Result.SafetyFlag)
	require.NotEmpty(t, rep.Result.Statements)
	assert.Equal(t, "single-normal", rep.Result.Statements[0].RuleID)
	assert.Contains(t, rep.Result.Statements[0].Text, "within the reference range")
}

func TestInterpret_Idempotent(t *testing.T) {
	p := newProcessor(t, direct(""))

	a := p.Interpret(anemicReport, "tired all the time")
	b := p.Interpret(anemicReport, "tired all the time")
	assert.Equal(t, a, b)
}

func TestInterpret_AdvisorySymptomsDoNotChangeRisk(t *testing.T) {
	p := newProcessor(t, direct(""))
	text := "Hb 10.9 g/dL\nMCV 92 fL\nAge 41\nGender: male"

	without := p.Interpret(text, "")
	with := p.Interpret(text, "I feel tired and dizzy, and my hands are always cold")

	assert.Equal(t, entity.RiskAbnormal, without.OverallRiskLevel)
	assert.Equal(t, without.OverallRiskLevel, with.OverallRiskLevel)
	assert.NotEmpty(t, with.Notes)
	assert.Empty(t, without.Notes)
	assert.Nil(t, with.SafetyFlag)
}

func TestInterpret_GlycatedHemoglobinNotFlagged(t *testing.T) {
	p := newProcessor(t, direct(""))

	res := p.Interpret("Age: 45\nSex: Male\nGlycated Hemoglobin (HbA1c) 5.6 %\nHemoglobin 14.2 g/dL", "")

	hb := valueOf(t, res, constants.Hemoglobin)
	require.NotNil(t, hb.Value)
	assert.InDelta(t, 14.2, *hb.Value, 1e-9)
	assert.Equal(t, entity.Normal, hb.Classification)
	assert.Nil(t, res.SafetyFlag)
	assert.Equal(t, entity.RiskNormal, res.OverallRiskLevel)
}

func TestInterpret_RedFlagSymptomForcesUrgent(t *testing.T) {
	p := newProcessor(t, direct(""))

	res := p.Interpret("Hb 14.1 g/dL", "crushing chest pain since this morning")

	require.NotNil(t, res.SafetyFlag)
	assert.Equal(t, "red-flag-symptom", res.SafetyFlag.Trigger)
	assert.Equal(t, entity.RiskUrgent, res.OverallRiskLevel)
}

func TestProcess_StoresRun(t *testing.T) {
	store := &memStore{}
	obs := &countingObserver{}
	p := newProcessor(t, direct(anemicReport), WithStore(store), WithObserver(obs))

	in := doc("cbc.txt")
	rep, err := p.Process(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, store.runs, 1)
	run := store.runs[0]
	assert.Equal(t, rep.ID, run.ID)
	assert.Equal(t, in.Document.Hash(), run.ContentHash)
	assert.Equal(t, "direct", run.ExtractionMethod)
	assert.Equal(t, entity.RiskUrgent, run.RiskLevel)
	require.NotNil(t, run.SafetyTrigger)
	assert.Equal(t, "critical-value", *run.SafetyTrigger)
	assert.Equal(t, string(constants.StageDelivered), run.Stage)
	assert.NotContains(t, string(run.ResultJSON), "Patient: A. Example", "raw text is not stored")

	require.Len(t, obs.reports, 1)
	assert.Same(t, rep, obs.reports[0])
}

func TestProcess_StoreFailureDoesNotBlockDelivery(t *testing.T) {
	p := newProcessor(t, direct(anemicReport), WithStore(&memStore{err: errors.New("disk full")}))

	rep, err := p.Process(context.Background(), doc("cbc.txt"))
	require.NoError(t, err)
	assert.NotNil(t, rep.Result.SafetyFlag)
}

func TestProcess_ConcurrentRunsAreIndependent(t *testing.T) {
	p := newProcessor(t, direct(anemicReport))

	var wg sync.WaitGroup
	reports := make([]*Report, 8)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rep, err := p.Process(context.Background(), doc("cbc.txt"))
			assert.NoError(t, err)
			reports[i] = rep
		}(i)
	}
	wg.Wait()

	for _, r := range reports[1:] {
		require.NotNil(t, r)
		assert.NotEqual(t, reports[0].ID, r.ID)
		assert.Equal(t, reports[0].Result.Texts(), r.Result.Texts())
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	p := newProcessor(t, direct(anemicReport))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, doc("cbc.txt"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProcessor_RequiresRules(t *testing.T) {
	_, err := NewProcessor(nil, direct(""), nil)
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))

	set, err := rules.Default()
	require.NoError(t, err)
	_, err = NewProcessor(&rules.Set{Ranges: set.Ranges}, direct(""), nil)
	assert.True(t, common.IsConfigError(err))

	_, err = NewProcessor(set, nil, nil)
	assert.True(t, common.IsConfigError(err))
}
