package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmorgan81/imagegen/internal/errs"
	"github.com/dmorgan81/imagegen/internal/log"
	"github.com/dmorgan81/imagegen/internal/param"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sys/unix"
)

const (
	ProviderGemini = "gemini"
	ProviderDezgo  = "dezgo"

	DefaultModel             = "gemini-2.5-flash-image"
	DefaultDezgoModel        = "epic_realism"
	DefaultAspectRatio       = "3:2"
	DefaultImageSize         = "1K"
	DefaultTemperature       = float32(0.2)
	DefaultTopP              = float32(0.95)
	DefaultSystemInstruction = "You are a professional image creator. Generate high-quality images based on the user's request."

	envProvider    = "IMAGE_PROVIDER"
	envOutputDir   = "IMAGE_OUTPUT_DIR"
	envModel       = "GEMINI_MODEL"
	envDezgoModel  = "DEZGO_MODEL"
	envAspectRatio = "IMAGE_ASPECT_RATIO"
	envImageSize   = "IMAGE_SIZE"
	envTemperature = "IMAGE_TEMPERATURE"
	envTopP        = "IMAGE_TOP_P"
	paramSuffix    = "_PARAM"
)

var (
	AspectRatios = []string{"1:1", "2:3", "3:2", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9"}
	ImageSizes   = []string{"1K", "2K", "4K"}

	credentialEnv = map[string]string{
		ProviderGemini: "GEMINI_API_KEY",
		ProviderDezgo:  "DEZGO_API_KEY",
	}
)

// Config is resolved once per run and never changes afterwards.
type Config struct {
	Provider          string
	APIKey            string
	OutputDirectory   string
	Model             string
	AspectRatio       string
	ImageSize         string
	Temperature       float32
	TopP              float32
	SystemInstruction string
}

// Overrides carries command-line values that take precedence over the
// environment. Empty fields are ignored.
type Overrides struct {
	Model       string
	AspectRatio string
	ImageSize   string
}

type Loader struct {
	env     param.Fetcher
	secrets func() (param.Fetcher, error)
}

// NewLoader reads plain values from env. The secrets fetcher is only built
// when a credential has to come from a parameter path.
func NewLoader(env param.Fetcher, secrets func() (param.Fetcher, error)) *Loader {
	return &Loader{env: env, secrets: secrets}
}

func NewInjectedLoader(i *do.Injector) (*Loader, error) {
	return NewLoader(
		do.MustInvokeNamed[param.Fetcher](i, "env"),
		func() (param.Fetcher, error) { return do.InvokeNamed[param.Fetcher](i, "ssm") },
	), nil
}

func (l *Loader) Load(ctx context.Context, overrides Overrides) (Config, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("config")

	provider := strings.ToLower(l.get(ctx, envProvider))
	if provider == "" {
		provider = ProviderGemini
	}
	keyEnv, ok := credentialEnv[provider]
	if !ok {
		return Config{}, errs.New(errs.KindMissingConfiguration, "%s: unsupported provider %q", envProvider, provider)
	}

	apiKey, err := l.credential(ctx, keyEnv)
	if err != nil {
		return Config{}, err
	}

	dir, err := outputDirectory(l.get(ctx, envOutputDir))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Provider:          provider,
		APIKey:            apiKey,
		OutputDirectory:   dir,
		Model:             firstNonEmpty(overrides.Model, l.get(ctx, lo.Ternary(provider == ProviderDezgo, envDezgoModel, envModel)), lo.Ternary(provider == ProviderDezgo, DefaultDezgoModel, DefaultModel)),
		AspectRatio:       firstNonEmpty(overrides.AspectRatio, l.get(ctx, envAspectRatio), DefaultAspectRatio),
		ImageSize:         strings.ToUpper(firstNonEmpty(overrides.ImageSize, l.get(ctx, envImageSize), DefaultImageSize)),
		SystemInstruction: DefaultSystemInstruction,
	}
	if !lo.Contains(AspectRatios, cfg.AspectRatio) {
		return Config{}, errs.New(errs.KindMissingConfiguration, "%s: unsupported aspect ratio %q", envAspectRatio, cfg.AspectRatio)
	}
	if !lo.Contains(ImageSizes, cfg.ImageSize) {
		return Config{}, errs.New(errs.KindMissingConfiguration, "%s: unsupported image size %q", envImageSize, cfg.ImageSize)
	}
	if cfg.Temperature, err = l.float(ctx, envTemperature, DefaultTemperature); err != nil {
		return Config{}, err
	}
	if cfg.TopP, err = l.float(ctx, envTopP, DefaultTopP); err != nil {
		return Config{}, err
	}

	log.Info("configuration loaded", "provider", cfg.Provider, "model", cfg.Model, "output", cfg.OutputDirectory)
	return cfg, nil
}

func (l *Loader) get(ctx context.Context, name string) string {
	v, _ := l.env.Fetch(ctx, name)
	return strings.TrimSpace(v)
}

// credential prefers the plain variable and falls back to <name>_PARAM,
// which names a parameter store path.
func (l *Loader) credential(ctx context.Context, name string) (string, error) {
	if v := l.get(ctx, name); v != "" {
		return v, nil
	}
	path := l.get(ctx, name+paramSuffix)
	if path == "" {
		return "", errs.New(errs.KindMissingConfiguration, "%s is not set", name)
	}
	if l.secrets == nil {
		return "", errs.New(errs.KindMissingConfiguration, "%s%s is set but no parameter store is available", name, paramSuffix)
	}
	fetcher, err := l.secrets()
	if err != nil {
		return "", errs.Wrap(errs.KindMissingConfiguration, err, "%s%s", name, paramSuffix)
	}
	v, err := fetcher.Fetch(ctx, path)
	if err != nil {
		return "", errs.Wrap(errs.KindMissingConfiguration, err, "%s%s", name, paramSuffix)
	}
	if v = strings.TrimSpace(v); v == "" {
		return "", errs.New(errs.KindMissingConfiguration, "%s: parameter %s is empty", name, path)
	}
	return v, nil
}

func (l *Loader) float(ctx context.Context, name string, fallback float32) (float32, error) {
	raw := l.get(ctx, name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil || v < 0 {
		return 0, errs.New(errs.KindMissingConfiguration, "%s: invalid value %q", name, raw)
	}
	return float32(v), nil
}

// outputDirectory accepts a directory that does not exist yet; the store
// creates it before writing. Either the directory or its nearest existing
// ancestor must be writable. Nothing is written here.
func outputDirectory(raw string) (string, error) {
	if raw == "" {
		return "", errs.New(errs.KindMissingConfiguration, "%s is not set", envOutputDir)
	}
	dir, err := filepath.Abs(expandHome(raw))
	if err != nil {
		return "", errs.Wrap(errs.KindMissingConfiguration, err, "%s: resolve %q", envOutputDir, raw)
	}

	for path := dir; ; {
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir():
			return "", errs.New(errs.KindMissingConfiguration, "%s: %s is not a directory", envOutputDir, path)
		case err == nil:
			if err := unix.Access(path, unix.W_OK); err != nil {
				return "", errs.Wrap(errs.KindMissingConfiguration, err, "%s: %s is not writable", envOutputDir, path)
			}
			return dir, nil
		case !os.IsNotExist(err):
			return "", errs.Wrap(errs.KindMissingConfiguration, err, "%s: %s is not usable", envOutputDir, dir)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", errs.New(errs.KindMissingConfiguration, "%s: %s has no existing parent", envOutputDir, dir)
		}
		path = parent
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func firstNonEmpty(values ...string) string {
	v, _ := lo.Find(values, func(s string) bool { return strings.TrimSpace(s) != "" })
	return strings.TrimSpace(v)
}
