package server

import (
	"context"
	"encoding/base64"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
	"github.com/joseph-ayodele/lab-interpreter/internal/repository"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
)

const anemicReport = `Age: 30   Sex: Female
Hemoglobin   6.0 g/dL
MCV          70 fL
`

type textExtractor string

func (t textExtractor) Extract(context.Context, extract.Document) extract.ExtractedText {
	return extract.ExtractedText{Text: string(t), Method: extract.MethodDirect, Confidence: 1, Format: "TEXT"}
}

type harness struct {
	client *InterpretClient
	conn   *grpc.ClientConn
}

func newHarness(t *testing.T, withStore bool) *harness {
	t.Helper()
	ctx := context.Background()

	set, err := rules.Default()
	require.NoError(t, err)

	var (
		runs repository.RunRepository
		opts []pipeline.Option
	)
	if withStore {
		db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, DSN: ":memory:"}, nil)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close(nil) })
		require.NoError(t, repository.Migrate(ctx, db, nil))
		runs = repository.NewRunRepository(db, nil)
		opts = append(opts, pipeline.WithStore(runs))
	}
	proc, err := pipeline.NewProcessor(set, textExtractor(anemicReport), nil, opts...)
	require.NoError(t, err)

	srv := New(NewInterpretServer(proc, runs, nil), "", nil, nil)
	lis := bufconn.Listen(1 << 20)
	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(serveCtx, lis) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{client: NewInterpretClient(conn), conn: conn}
}

func interpretRequest(t *testing.T, text string) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(map[string]any{
		"document_name":   "cbc.txt",
		"document_base64": base64.StdEncoding.EncodeToString([]byte(text)),
		"symptoms":        "",
	})
	require.NoError(t, err)
	return req
}

func TestInterpret_CriticalReport(t *testing.T) {
	h := newHarness(t, false)

	out, err := h.client.Interpret(context.Background(), interpretRequest(t, "ignored"))
	require.NoError(t, err)

	result := out.GetFields()["report"].GetStructValue().GetFields()["result"].GetStructValue().GetFields()
	assert.Equal(t, "urgent", result["overall_risk_level"].GetStringValue())
	flag := result["safety_flag"].GetStructValue().GetFields()
	assert.Equal(t, "critical-value", flag["trigger"].GetStringValue())
	assert.Len(t, result["values"].GetListValue().GetValues(), 6)
	assert.NotEmpty(t, out.GetFields()["navigation"].GetListValue().GetValues())
}

func TestInterpret_InvalidRequest(t *testing.T) {
	h := newHarness(t, false)

	for name, fields := range map[string]map[string]any{
		"missing document": {"document_name": "x.pdf"},
		"bad base64":       {"document_base64": "not base64!!"},
	} {
		t.Run(name, func(t *testing.T) {
			req, err := structpb.NewStruct(fields)
			require.NoError(t, err)
			_, err = h.client.Interpret(context.Background(), req)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestGetRun_RoundTrip(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	out, err := h.client.Interpret(ctx, interpretRequest(t, "ignored"))
	require.NoError(t, err)
	id := out.GetFields()["report"].GetStructValue().GetFields()["id"].GetStringValue()
	require.NotEmpty(t, id)

	req, _ := structpb.NewStruct(map[string]any{"id": id})
	run, err := h.client.GetRun(ctx, req)
	require.NoError(t, err)
	fields := run.GetFields()
	assert.Equal(t, "urgent", fields["risk_level"].GetStringValue())
	assert.Equal(t, "critical-value", fields["safety_trigger"].GetStringValue())
	assert.Equal(t, "DELIVERED", fields["stage"].GetStringValue())
	assert.Equal(t, "urgent", fields["result"].GetStructValue().GetFields()["overall_risk_level"].GetStringValue())

	list, err := h.client.ListRuns(ctx, &structpb.Struct{})
	require.NoError(t, err)
	assert.Len(t, list.GetFields()["runs"].GetListValue().GetValues(), 1)

	missing, _ := structpb.NewStruct(map[string]any{"id": "7c1f4f2e-4d7a-4a8e-9f00-000000000000"})
	_, err = h.client.GetRun(ctx, missing)
	assert.Equal(t, codes.NotFound, status.Code(err))

	bad, _ := structpb.NewStruct(map[string]any{"id": "nope"})
	_, err = h.client.GetRun(ctx, bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetRun_NoStore(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.client.ListRuns(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestHealth(t *testing.T) {
	h := newHarness(t, false)
	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
