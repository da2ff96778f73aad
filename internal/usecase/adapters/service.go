package adapters

import (
	"context"
	"stepgen/internal/entity"
	"stepgen/internal/feature"
)

type BrowserService interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool
}

type GeneratorService interface {
	Generate(ctx context.Context, featurePath string) (*entity.GenerationResult, error)
	GenerateAll(ctx context.Context, paths []string) ([]*entity.GenerationResult, error)
	Preview(ctx context.Context, featurePath string) (*entity.Feature, [][]entity.StepImplementation, error)
	Stop()
}

type AlignService interface {
	Align(ctx context.Context, generatedPath, featurePath string) ([]feature.Fix, error)
}
