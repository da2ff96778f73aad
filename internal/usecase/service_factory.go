package usecase

import (
	"stepgen/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateGeneratorService() adapters.GeneratorService {
	return NewGeneratorService(GeneratorServiceParams{
		Config:      f.deps.Config,
		Logger:      f.deps.Logger,
		Browser:     f.deps.Browser,
		Crawler:     f.deps.Crawler,
		Synthesizer: f.deps.Synthesizer,
		Assembler:   f.deps.Assembler,
	})
}

func (f *serviceFactory) CreateAlignService() adapters.AlignService {
	return NewAlignService(AlignServiceParams{
		Config: f.deps.Config,
		Logger: f.deps.Logger,
	})
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}
