package grpcapi

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"voxguardian/internal/models"
	"voxguardian/internal/observability/metrics"
	"voxguardian/internal/schema"
	"voxguardian/internal/scoring"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "voxguardian.scoring.v1.ScoringService"

// Full method names, usable with grpc.ClientConn.Invoke.
const (
	MethodScoreCall     = "/" + ServiceName + "/ScoreCall"
	MethodQuickClassify = "/" + ServiceName + "/QuickClassify"
)

// ScoringServer is the server API for the scoring service.
type ScoringServer interface {
	ScoreCall(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QuickClassify(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server exposes the scoring engine over gRPC.
type Server struct {
	engine    *scoring.Engine
	validator *schema.Validator
	metrics   *metrics.Metrics
}

// Register attaches the scoring service to g. Nil dependencies fall back to
// the package defaults.
func Register(g grpc.ServiceRegistrar, engine *scoring.Engine, m *metrics.Metrics) *Server {
	if engine == nil {
		engine = scoring.NewEngine()
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	s := &Server{
		engine:    engine,
		validator: schema.New(),
		metrics:   m,
	}
	g.RegisterService(&ScoringServiceDesc, s)
	return s
}

// ScoreCall runs the fusion path. The request carries transcript,
// compression_ratio and duration_seconds.
func (s *Server) ScoreCall(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := scoreRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.validator.ValidateScoreRequest(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	score := s.engine.ScoreCall(req.Transcript, *req.CompressionRatio, *req.DurationSeconds)
	s.metrics.RecordScore(score.ConfidenceScore, score.EmergencyDetected,
		score.Signals.RepetitionPenalty < 0, score.Signals.SilencePenalty < 0)

	log.Debug().
		Float64("confidence", score.ConfidenceScore).
		Bool("emergency", score.EmergencyDetected).
		Str("strategy", string(scoring.StrategyFusion)).
		Msg("Scored call over gRPC")

	return structpb.NewStruct(map[string]any{
		"confidence_score":   score.ConfidenceScore,
		"emergency_detected": score.EmergencyDetected,
		"signals": map[string]any{
			"base":               score.Signals.Base,
			"density":            score.Signals.Density,
			"keywords":           score.Signals.Keywords,
			"repetition_penalty": score.Signals.RepetitionPenalty,
			"silence_penalty":    score.Signals.SilencePenalty,
		},
	})
}

// QuickClassify runs the keyword-only path on the request's transcript.
func (s *Server) QuickClassify(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	transcript, err := stringField(in, "transcript")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result := s.engine.QuickClassify(transcript)
	s.metrics.RecordQuickClassification(result.EmergencyDetected)

	return structpb.NewStruct(map[string]any{
		"emergency_detected": result.EmergencyDetected,
		"emotion_tone":       result.EmotionTone,
		"anomaly_score":      result.AnomalyScore,
	})
}

func scoreRequest(in *structpb.Struct) (models.ScoreRequest, error) {
	var req models.ScoreRequest
	t, err := stringField(in, "transcript")
	if err != nil {
		return req, err
	}
	req.Transcript = t
	if req.CompressionRatio, err = numberField(in, "compression_ratio"); err != nil {
		return req, err
	}
	req.DurationSeconds, err = numberField(in, "duration_seconds")
	return req, err
}

// stringField treats an absent or null field as the empty string.
func stringField(in *structpb.Struct, name string) (string, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return "", nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "", nil
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	default:
		return "", fmt.Errorf("%s must be a string", name)
	}
}

// numberField returns nil when the field is absent so the validator reports
// it as missing.
func numberField(in *structpb.Struct, name string) (*float64, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		return &n, nil
	default:
		return nil, fmt.Errorf("%s must be a number", name)
	}
}

func _ScoringService_ScoreCall_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).ScoreCall(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodScoreCall,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScoringServer).ScoreCall(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _ScoringService_QuickClassify_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).QuickClassify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodQuickClassify,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScoringServer).QuickClassify(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ScoringServiceDesc describes the scoring service. Messages are
// google.protobuf.Struct so no generated code is required.
var ScoringServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ScoreCall",
			Handler:    _ScoringService_ScoreCall_Handler,
		},
		{
			MethodName: "QuickClassify",
			Handler:    _ScoringService_QuickClassify_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
}
