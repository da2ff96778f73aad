package usecase

import (
	"stepgen/internal/config"
	"stepgen/internal/ports"
	"stepgen/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Generator adapters.GeneratorService
	Aligner   adapters.AlignService
	Browser   adapters.BrowserService
}

type Params struct {
	fx.In

	Logger      *zap.Logger
	Config      *config.Config
	Browser     ports.BrowserManager
	Crawler     ports.Crawler
	Synthesizer ports.Synthesizer
	Assembler   ports.Assembler
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Generator: factory.CreateGeneratorService(),
		Aligner:   factory.CreateAlignService(),
		Browser:   factory.CreateBrowserService(),
	}
}
