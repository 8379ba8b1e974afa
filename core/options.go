package core

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "PAYHOOKS_"

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	return cloneRaw(l.Values), nil
}

// YAMLFileLoader reads a YAML document from Path. A missing file yields an
// empty map unless Required is set.
type YAMLFileLoader struct {
	Path     string
	Required bool
}

func (l YAMLFileLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !l.Required {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("core: read config file %q: %w", path, err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("core: parse config file %q: %w", path, err)
	}
	return normalizeRaw(raw), nil
}

// EnvLoader maps PAYHOOKS_* variables onto known config keys. Nested keys are
// joined with a double underscore, e.g. PAYHOOKS_SHIPMENT__BASE_DELAY_MS.
// Values are coerced to the type of the matching default.
type EnvLoader struct {
	Prefix   string
	Defaults Config
	Lookup   func(string) (string, bool)
}

func (l EnvLoader) LoadRaw(context.Context) (map[string]any, error) {
	prefix := l.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	out := map[string]any{}
	for _, leaf := range flattenLeaves(configToLayerMap(l.Defaults, true), nil) {
		name := prefix + strings.ToUpper(strings.Join(leaf.path, "__"))
		value, ok := lookup(name)
		if !ok {
			continue
		}
		coerced, err := coerceLike(leaf.value, value)
		if err != nil {
			return nil, fmt.Errorf("core: env %s: %w", name, err)
		}
		setPath(out, leaf.path, coerced)
	}
	return out, nil
}

// ChainLoader merges the output of each loader in order; later loaders win.
type ChainLoader []RawConfigLoader

func (c ChainLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	for _, loader := range c {
		if loader == nil {
			continue
		}
		raw, err := loader.LoadRaw(ctx)
		if err != nil {
			return nil, err
		}
		mergeRaw(out, raw)
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// LoadConfig builds the runtime config from defaults, an optional YAML file and
// PAYHOOKS_* environment overrides.
func LoadConfig(ctx context.Context, path string) (Config, error) {
	defaults := DefaultConfig()
	provider := NewCfgxConfigProvider(ChainLoader{
		YAMLFileLoader{Path: path},
		EnvLoader{Defaults: defaults},
	})
	return provider.Load(ctx, defaults)
}

// configToLayerMap renders cfg as a nested map keyed like the YAML document.
// Without includeZero, zero leaves are dropped so they do not shadow lower layers.
func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return map[string]any{}
	}
	layer := map[string]any{}
	if err := yaml.Unmarshal(content, &layer); err != nil {
		return map[string]any{}
	}
	layer = normalizeRaw(layer)
	if includeZero {
		return layer
	}
	return pruneZero(layer)
}

type rawLeaf struct {
	path  []string
	value any
}

func flattenLeaves(raw map[string]any, prefix []string) []rawLeaf {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var leaves []rawLeaf
	for _, key := range keys {
		path := append(append([]string(nil), prefix...), key)
		if nested, ok := raw[key].(map[string]any); ok {
			leaves = append(leaves, flattenLeaves(nested, path)...)
			continue
		}
		leaves = append(leaves, rawLeaf{path: path, value: raw[key]})
	}
	return leaves
}

func coerceLike(sample any, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch sample.(type) {
	case int, int64:
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", value)
		}
		return parsed, nil
	case bool:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", value)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setPath(raw map[string]any, path []string, value any) {
	current := raw
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

func mergeRaw(dst map[string]any, src map[string]any) {
	for key, value := range src {
		srcNested, srcIsMap := value.(map[string]any)
		dstNested, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeRaw(dstNested, srcNested)
			continue
		}
		if srcIsMap {
			dst[key] = cloneRaw(srcNested)
			continue
		}
		dst[key] = value
	}
}

func pruneZero(raw map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range raw {
		switch typed := value.(type) {
		case map[string]any:
			if nested := pruneZero(typed); len(nested) > 0 {
				out[key] = nested
			}
		case string:
			if strings.TrimSpace(typed) != "" {
				out[key] = typed
			}
		case int:
			if typed != 0 {
				out[key] = typed
			}
		case bool:
			if typed {
				out[key] = typed
			}
		case nil:
		default:
			out[key] = typed
		}
	}
	return out
}

// normalizeRaw converts map[any]any nodes that YAML may produce into
// map[string]any so cfgx and the options stack see a uniform shape.
func normalizeRaw(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		out[key] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return normalizeRaw(typed)
	case map[any]any:
		converted := make(map[string]any, len(typed))
		for key, nested := range typed {
			converted[fmt.Sprint(key)] = normalizeValue(nested)
		}
		return converted
	default:
		return value
	}
}

func cloneRaw(raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		if nested, ok := value.(map[string]any); ok {
			out[key] = cloneRaw(nested)
			continue
		}
		out[key] = value
	}
	return out
}
