// Package config loads a WallSpec from a YAML file, a Kubernetes ConfigMap
// or the embedded default wall, overlays environment and command line values
// and validates the result.
package config

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/prometheus/common/model"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

const (
	// EnvPrefix prefixes every environment override, e.g. VISWALL_OUTPUT_PATH
	EnvPrefix = "VISWALL"

	// ConfigMapKey is the data key holding the wall document
	ConfigMapKey = "wall.yaml"
)

//go:embed default.yaml
var defaultWall []byte

// overrides maps viper keys to the command line flags that may set them
var overrides = map[string]string{
	"output.path":        "output",
	"output.latestLink":  "latest-link",
	"output.pushgateway": "pushgateway",
	"concurrency":        "concurrency",
}

// Options selects the document source. File wins over ConfigMap; with
// neither set the embedded default wall is used.
type Options struct {
	File string

	// ConfigMap is "<namespace>/<name>", read through Reader
	ConfigMap string
	Reader    client.Reader

	// Flags are bound with higher precedence than environment and document
	Flags *pflag.FlagSet
}

// Load reads, decodes, defaults and validates the wall configuration.
// Every failure is a *wallerr.ConfigError.
func Load(ctx context.Context, opts Options) (*wallv1alpha1.WallSpec, error) {
	logger := log.FromContext(ctx).WithName("config")

	doc, source, err := document(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.V(1).Info("Loading wall configuration", "source", source)

	spec, err := Decode(doc, opts.Flags)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded wall configuration", "source", source,
		"clusters", len(spec.Clusters), "panels", len(spec.Panels))
	return spec, nil
}

// Default returns the embedded default wall
func Default() (*wallv1alpha1.WallSpec, error) {
	return Decode(defaultWall, nil)
}

// Decode turns a YAML document into a validated WallSpec
func Decode(doc []byte, flags *pflag.FlagSet) (*wallv1alpha1.WallSpec, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewReader(doc)); err != nil {
		return nil, &wallerr.ConfigError{Field: "document", Reason: err.Error()}
	}

	for key, name := range overrides {
		if err := v.BindEnv(key); err != nil {
			return nil, &wallerr.ConfigError{Field: key, Reason: err.Error()}
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, &wallerr.ConfigError{Field: key, Reason: err.Error()}
			}
		}
	}

	spec := &wallv1alpha1.WallSpec{}
	if err := v.Unmarshal(spec, decoderOptions); err != nil {
		return nil, &wallerr.ConfigError{Field: "document", Reason: err.Error()}
	}

	applyDefaults(spec)
	if err := Validate(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func document(ctx context.Context, opts Options) ([]byte, string, error) {
	switch {
	case opts.File != "":
		doc, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, "", &wallerr.ConfigError{Field: "config", Reason: err.Error()}
		}
		return doc, opts.File, nil

	case opts.ConfigMap != "":
		doc, err := fromConfigMap(ctx, opts.Reader, opts.ConfigMap)
		if err != nil {
			return nil, "", err
		}
		return doc, "configmap/" + opts.ConfigMap, nil

	default:
		return defaultWall, "embedded default", nil
	}
}

func fromConfigMap(ctx context.Context, reader client.Reader, ref string) ([]byte, error) {
	namespace, name, ok := strings.Cut(ref, "/")
	if !ok || namespace == "" || name == "" {
		return nil, &wallerr.ConfigError{Field: "config-map", Reason: "expected <namespace>/<name>, got " + ref}
	}
	if reader == nil {
		return nil, &wallerr.ConfigError{Field: "config-map", Reason: "no Kubernetes client available"}
	}

	cm := &corev1.ConfigMap{}
	if err := reader.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, cm); err != nil {
		return nil, &wallerr.ConfigError{Field: "config-map", Reason: errors.Wrapf(err, "failed to get %s", ref).Error()}
	}
	doc, ok := cm.Data[ConfigMapKey]
	if !ok {
		return nil, &wallerr.ConfigError{Field: "config-map", Reason: "configmap " + ref + " has no " + ConfigMapKey + " key"}
	}
	return []byte(doc), nil
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "json"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		durationHook,
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationHook accepts Prometheus durations ("7d", "1h30m") and falls back
// to Go durations ("1.5h").
func durationHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	s := data.(string)
	if d, err := model.ParseDuration(s); err == nil {
		return time.Duration(d), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, errors.Newf("invalid duration %q", s)
	}
	return d, nil
}
