package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
)

// Runner executes one analysis. analysis.Analyzer satisfies it.
type Runner interface {
	Run(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
}

// AnalysisTransformer implements Transformer by decoding the request message
// and running the analysis it describes.
type AnalysisTransformer struct {
	runner Runner
	logger *slog.Logger
}

// NewTransformer creates an AnalysisTransformer.
func NewTransformer(runner Runner, logger *slog.Logger) *AnalysisTransformer {
	return &AnalysisTransformer{runner: runner, logger: logger}
}

// Transform returns the analysis result, including failed ones. Only a message
// that does not decode, or a run interrupted by ctx, is an error.
func (t *AnalysisTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.AnalysisResult, error) {
	req, err := domain.ParseAnalysisRequest(raw)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("parse analysis request: %w", err)
	}

	result, err := t.runner.Run(ctx, req)
	if err != nil && ctx.Err() != nil {
		return domain.AnalysisResult{}, ctx.Err()
	}
	if err != nil {
		t.logger.Debug("analysis failed, publishing failure result",
			"analysis_id", result.ID, "error_kind", result.ErrorKind)
	}
	return result, nil
}
