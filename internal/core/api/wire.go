package api

import (
	"context"
	"fmt"
	"math"

	"github.com/solatis/linewarden/internal/rules"
	"github.com/solatis/linewarden/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages are google.protobuf.Struct so clients need no generated code;
// any gRPC client with the well-known types can call the service.
const (
	ServiceName          = "linewarden.validator.v1.Validator"
	ValidateMethod       = "/" + ServiceName + "/Validate"
	ListRuleSetsMethod   = "/" + ServiceName + "/ListRuleSets"
	validatorProtoSource = "linewarden/validator/v1/validator.proto"
)

// ValidatorServer is the server API for the Validator service.
type ValidatorServer interface {
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuleSets(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterValidatorServer registers srv on s.
func RegisterValidatorServer(s grpc.ServiceRegistrar, srv ValidatorServer) {
	s.RegisterService(&ValidatorServiceDesc, srv)
}

// ValidatorServiceDesc is the grpc.ServiceDesc for the Validator service.
var ValidatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValidatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: unaryHandler(ValidateMethod, ValidatorServer.Validate)},
		{MethodName: "ListRuleSets", Handler: unaryHandler(ListRuleSetsMethod, ValidatorServer.ListRuleSets)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: validatorProtoSource,
}

func unaryHandler(method string, call func(ValidatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ValidatorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ValidatorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ValidatorClient calls the Validator service.
type ValidatorClient struct {
	cc grpc.ClientConnInterface
}

// NewValidatorClient creates a client over cc.
func NewValidatorClient(cc grpc.ClientConnInterface) *ValidatorClient {
	return &ValidatorClient{cc: cc}
}

// Validate sends a raw Validate request.
func (c *ValidatorClient) Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRuleSets sends a raw ListRuleSets request.
func (c *ValidatorClient) ListRuleSets(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListRuleSetsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateRequest is the typed form of a Validate request.
type ValidateRequest struct {
	RuleSet       string
	Content       string
	MaxViolations *int // nil keeps the rule set's cap
}

// Struct encodes the request for the wire.
func (r ValidateRequest) Struct() *structpb.Struct {
	fields := map[string]*structpb.Value{
		"ruleset": structpb.NewStringValue(r.RuleSet),
		"content": structpb.NewStringValue(r.Content),
	}
	if r.MaxViolations != nil {
		fields["max_violations"] = structpb.NewNumberValue(float64(*r.MaxViolations))
	}
	return &structpb.Struct{Fields: fields}
}

// parseValidateRequest decodes and checks field types. Unknown fields are rejected.
func parseValidateRequest(s *structpb.Struct) (ValidateRequest, error) {
	var req ValidateRequest
	for key, v := range s.GetFields() {
		switch key {
		case "ruleset":
			sv, ok := v.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return req, fmt.Errorf("ruleset must be a string")
			}
			req.RuleSet = sv.StringValue
		case "content":
			sv, ok := v.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return req, fmt.Errorf("content must be a string")
			}
			req.Content = sv.StringValue
		case "max_violations":
			nv, ok := v.GetKind().(*structpb.Value_NumberValue)
			if !ok || nv.NumberValue != math.Trunc(nv.NumberValue) || math.Abs(nv.NumberValue) > math.MaxInt32 {
				return req, fmt.Errorf("max_violations must be an integer")
			}
			n := int(nv.NumberValue)
			req.MaxViolations = &n
		default:
			return req, fmt.Errorf("unknown field %q", key)
		}
	}
	if req.RuleSet == "" {
		return req, fmt.Errorf("ruleset is required")
	}
	return req, nil
}

// SignedContent returns the bytes covered by the request signature: the
// content of Validate requests. Other requests are not signed.
func SignedContent(req any) ([]byte, bool) {
	s, ok := req.(*structpb.Struct)
	if !ok {
		return nil, false
	}
	if _, isValidate := s.GetFields()["ruleset"]; !isValidate {
		return nil, false
	}
	return []byte(s.GetFields()["content"].GetStringValue()), true
}

// reportStruct encodes a report as the Validate response.
func reportStruct(r *rules.Report) *structpb.Struct {
	violations := make([]*structpb.Value, len(r.Violations))
	for i, v := range r.Violations {
		violations[i] = structpb.NewStructValue(violationStruct(v))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"run_id":      structpb.NewStringValue(string(r.RunID)),
		"state":       structpb.NewStringValue(r.State.String()),
		"lines":       structpb.NewNumberValue(float64(r.Lines)),
		"valid":       structpb.NewBoolValue(r.Valid()),
		"duration_ms": structpb.NewNumberValue(float64(r.Duration.Milliseconds())),
		"violations":  structpb.NewListValue(&structpb.ListValue{Values: violations}),
	}}
}

func violationStruct(v types.Violation) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"rule":    structpb.NewStringValue(v.Rule),
		"line":    structpb.NewNumberValue(float64(v.Line)),
		"column":  structpb.NewNumberValue(float64(v.Column)),
		"value":   structpb.NewStringValue(v.Value),
		"message": structpb.NewStringValue(v.Message),
	}}
}

// ValidateResponse is the typed form of a Validate response.
type ValidateResponse struct {
	RunID      string
	State      string
	Lines      int
	Valid      bool
	Violations []types.Violation
}

// ParseValidateResponse decodes a Validate response.
func ParseValidateResponse(s *structpb.Struct) ValidateResponse {
	f := s.GetFields()
	resp := ValidateResponse{
		RunID: f["run_id"].GetStringValue(),
		State: f["state"].GetStringValue(),
		Lines: int(f["lines"].GetNumberValue()),
		Valid: f["valid"].GetBoolValue(),
	}
	for _, item := range f["violations"].GetListValue().GetValues() {
		vf := item.GetStructValue().GetFields()
		resp.Violations = append(resp.Violations, types.Violation{
			Rule:    vf["rule"].GetStringValue(),
			Line:    int(vf["line"].GetNumberValue()),
			Column:  int(vf["column"].GetNumberValue()),
			Value:   vf["value"].GetStringValue(),
			Message: vf["message"].GetStringValue(),
		})
	}
	return resp
}
