// Package api provides the gRPC validation service for linewarden.
//
// Thin orchestration layer: requests name a registered rule set and carry
// the file content inline; the rules engine does the work.
package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/solatis/linewarden/internal/core/config"
	"github.com/solatis/linewarden/internal/logger"
	"github.com/solatis/linewarden/internal/rules"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RuleSets resolves rule set names. Implemented by *ruleset.Registry.
type RuleSets interface {
	Get(name string) (*rules.CompiledRuleSet, error)
	Names() []string
}

// ValidatorService implements ValidatorServer.
type ValidatorService struct {
	rulesets RuleSets
	engine   *rules.Engine
	cfg      config.ServerConfig
}

// NewValidatorService creates a service instance with dependencies.
func NewValidatorService(rulesets RuleSets, engine *rules.Engine, cfg config.ServerConfig) (*ValidatorService, error) {
	if rulesets == nil {
		return nil, fmt.Errorf("rulesets cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if cfg.RequestTimeout <= 0 || cfg.MaxContentSize <= 0 {
		return nil, fmt.Errorf("request_timeout and max_content_size must be positive")
	}
	return &ValidatorService{rulesets: rulesets, engine: engine, cfg: cfg}, nil
}

// Validate runs a registered rule set over the request content.
func (s *ValidatorService) Validate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := parseValidateRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(req.Content) > s.cfg.MaxContentSize {
		return nil, status.Errorf(codes.InvalidArgument, "content size %d exceeds maximum of %d bytes", len(req.Content), s.cfg.MaxContentSize)
	}

	rs, err := s.rulesets.Get(req.RuleSet)
	if err != nil {
		return nil, statusFor(err)
	}
	if req.MaxViolations != nil {
		rs = rs.WithMaxViolations(*req.MaxViolations)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	report, err := s.engine.Validate(ctx, strings.NewReader(req.Content), rs)
	if err != nil {
		return nil, statusFor(err)
	}

	logger.FromContext(ctx).Debug().
		Str("ruleset", rs.Name).
		Str("run_id", string(report.RunID)).
		Int("violations", len(report.Violations)).
		Msg("validate served")

	return reportStruct(report), nil
}

// ListRuleSets returns the names of every registered rule set.
func (s *ValidatorService) ListRuleSets(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if len(in.GetFields()) != 0 {
		return nil, status.Error(codes.InvalidArgument, "ListRuleSets takes no fields")
	}

	names := s.rulesets.Names()
	values := make([]*structpb.Value, len(names))
	for i, name := range names {
		values[i] = structpb.NewStringValue(name)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"rulesets": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}, nil
}
