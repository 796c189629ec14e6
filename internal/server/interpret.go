package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
	"github.com/joseph-ayodele/lab-interpreter/internal/navigation"
	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
	"github.com/joseph-ayodele/lab-interpreter/internal/repository"
)

const (
	maxDocumentNameLen = 255
	maxSymptomsLen     = 4000
	defaultListLimit   = 20
)

// Processor runs one document through the pipeline.
type Processor interface {
	Process(ctx context.Context, in pipeline.Input) (*pipeline.Report, error)
}

type InterpretServer struct {
	proc   Processor
	runs   repository.RunRepository
	logger *slog.Logger
}

var _ InterpretServiceServer = (*InterpretServer)(nil)

// NewInterpretServer builds the RPC service. runs may be nil when no store is configured.
func NewInterpretServer(proc Processor, runs repository.RunRepository, logger *slog.Logger) *InterpretServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &InterpretServer{proc: proc, runs: runs, logger: logger}
}

// Interpret expects {document_name, document_base64, symptoms} and returns the
// report plus care navigation lines.
func (s *InterpretServer) Interpret(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	name := strings.TrimSpace(fields["document_name"].GetStringValue())
	encoded := fields["document_base64"].GetStringValue()
	symptoms := fields["symptoms"].GetStringValue()

	v := common.NewValidator().
		Field("document_name", name, common.MaxLength(maxDocumentNameLen)).
		Field("document_base64", encoded, common.Required, common.Base64).
		Field("symptoms", symptoms, common.MaxLength(maxSymptomsLen))
	if err := common.ValidateAndReturnError(v); err != nil {
		s.logger.Warn("server.interpret.invalid", "error", v.ErrorMessage())
		return nil, err
	}
	data, _ := base64.StdEncoding.DecodeString(encoded)

	s.logger.Info("server.interpret.start", "document", name, "bytes", len(data))
	rep, err := s.proc.Process(ctx, pipeline.Input{
		Document: extract.Document{Name: name, Data: data},
		Symptoms: symptoms,
	})
	if err != nil {
		s.logger.Error("server.interpret.failed", "document", name, "error", err)
		return nil, common.ToStatus(err)
	}

	out, err := toStruct(map[string]any{
		"report":     rep,
		"navigation": navigation.ForResult(rep.Result, strings.TrimSpace(symptoms) != ""),
	})
	if err != nil {
		return nil, common.InternalErrorf("encode report: %v", err)
	}
	return out, nil
}

// GetRun expects {id} and returns the stored run.
func (s *InterpretServer) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runs == nil {
		return nil, common.FailedPreconditionError("run store is not configured")
	}
	id := strings.TrimSpace(req.GetFields()["id"].GetStringValue())
	v := common.NewValidator().Field("id", id, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	run, err := s.runs.Get(ctx, uuid.MustParse(id))
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("server.get_run.failed", "run_id", id, "error", err)
		}
		return nil, common.ToStatus(err)
	}
	out, err := toStruct(runView(run))
	if err != nil {
		return nil, common.InternalErrorf("encode run: %v", err)
	}
	return out, nil
}

// ListRuns expects optional {limit} or {content_hash}.
func (s *InterpretServer) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runs == nil {
		return nil, common.FailedPreconditionError("run store is not configured")
	}
	fields := req.GetFields()

	var (
		runs []*entity.Run
		err  error
	)
	if hash := strings.TrimSpace(fields["content_hash"].GetStringValue()); hash != "" {
		runs, err = s.runs.ListByContentHash(ctx, hash)
	} else {
		limit := int(fields["limit"].GetNumberValue())
		if limit <= 0 {
			limit = defaultListLimit
		}
		runs, err = s.runs.ListRecent(ctx, limit)
	}
	if err != nil {
		s.logger.Error("server.list_runs.failed", "error", err)
		return nil, common.ToStatus(err)
	}

	views := make([]map[string]any, 0, len(runs))
	for _, r := range runs {
		views = append(views, runView(r))
	}
	out, err := toStruct(map[string]any{"runs": views})
	if err != nil {
		return nil, common.InternalErrorf("encode runs: %v", err)
	}
	return out, nil
}

// runView inlines the stored result JSON instead of returning it as a string.
func runView(r *entity.Run) map[string]any {
	view := map[string]any{
		"id":                    r.ID.String(),
		"document_name":         r.DocumentName,
		"content_hash":          r.ContentHash,
		"format":                r.Format,
		"extraction_method":     r.ExtractionMethod,
		"extraction_confidence": r.ExtractionConfidence,
		"risk_level":            r.RiskLevel,
		"stage":                 r.Stage,
		"created_at":            r.CreatedAt,
	}
	if r.SafetyTrigger != nil {
		view["safety_trigger"] = *r.SafetyTrigger
	}
	if len(r.ResultJSON) > 0 {
		view["result"] = r.ResultJSON
	}
	return view
}

// toStruct round-trips v through JSON so struct tags decide the field names.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("struct: %w", err)
	}
	return out, nil
}
