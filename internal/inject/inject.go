package inject

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/imagegen/internal/config"
	"github.com/dmorgan81/imagegen/internal/handler"
	"github.com/dmorgan81/imagegen/internal/image"
	"github.com/dmorgan81/imagegen/internal/log"
	"github.com/dmorgan81/imagegen/internal/param"
	"github.com/dmorgan81/imagegen/internal/report"
	"github.com/dmorgan81/imagegen/internal/store"
	"github.com/samber/do"
)

// Setup registers every service lazily. Nothing that depends on the resolved
// configuration can be invoked until Configure has been called.
func Setup(ctx context.Context, lookup param.LookupFunc) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, http.DefaultClient)

	do.ProvideNamedValue[param.Fetcher](injector, "env", &param.EnvFetcher{Lookup: lookup})
	do.ProvideNamed[param.Fetcher](injector, "ssm", param.NewParameterStoreFetcher)
	do.Provide[*config.Loader](injector, config.NewInjectedLoader)

	do.Provide[image.Generator](injector, func(i *do.Injector) (image.Generator, error) {
		switch cfg := do.MustInvoke[config.Config](i); cfg.Provider {
		case config.ProviderDezgo:
			return image.NewDezgoGenerator(i)
		case config.ProviderGemini:
			return image.NewGeminiGenerator(i)
		default:
			return nil, fmt.Errorf("no generator for provider %q", cfg.Provider)
		}
	})
	do.Provide[store.Store](injector, store.NewFileStore)
	do.Provide[*report.Templator](injector, report.NewTemplator)
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}

// Configure makes the resolved configuration available to the services that
// need it.
func Configure(injector *do.Injector, cfg config.Config) {
	do.ProvideValue[config.Config](injector, cfg)
	do.ProvideNamedValue[string](injector, "output_dir", cfg.OutputDirectory)
}
