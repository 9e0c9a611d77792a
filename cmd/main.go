/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// so the ConfigMap source works from any kubeconfig.
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/config"
	"github.com/flatironinstitute/viswall-prom/internal/orchestrator"
	"github.com/flatironinstitute/viswall-prom/internal/publisher"
	"github.com/flatironinstitute/viswall-prom/internal/transport"
	transporthttp "github.com/flatironinstitute/viswall-prom/internal/transport/http"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
}

type options struct {
	configFile  string
	configMap   string
	output      string
	latestLink  string
	pushgateway string
	concurrency int
	logFile     string
	zap         zap.Options
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		setupLog.Error(err, "run failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(wallerr.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{
		zap: zap.Options{Development: true},
	}

	cmd := &cobra.Command{
		Use:   "viswall",
		Short: "Render a status wall of cluster usage from Prometheus",
		Long: "viswall queries one or more Prometheus servers, draws the configured panels " +
			"and writes the composed wall as a PNG. Without an output path it only checks " +
			"connectivity and prints what every query returns.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to the wall configuration (YAML)")
	flags.StringVar(&opts.configMap, "config-map", "",
		"Read the wall configuration from a ConfigMap, as <namespace>/<name>")
	flags.StringVarP(&opts.output, "output", "o", "", "PNG file to write. Empty runs a connectivity check only.")
	flags.StringVar(&opts.latestLink, "latest-link", "", "Symlink re-pointed at the output after a successful run")
	flags.StringVar(&opts.pushgateway, "pushgateway", "", "Pushgateway URL receiving run metrics")
	flags.IntVar(&opts.concurrency, "concurrency", 1, "Panels processed at once")
	flags.StringVar(&opts.logFile, "log-file", "", "Also write logs to this file, rotated")

	goFlags := flag.NewFlagSet("zap", flag.ExitOnError)
	opts.zap.BindFlags(goFlags)
	flags.AddGoFlagSet(goFlags)

	return cmd
}

func (o *options) run(cmd *cobra.Command) error {
	o.setupLogger()

	ctx := log.IntoContext(ctrl.SetupSignalHandler(), ctrl.Log)

	var reader client.Reader
	if o.configMap != "" && o.configFile == "" {
		restConfig, err := ctrl.GetConfig()
		if err != nil {
			return &wallerr.ConfigError{Field: "config-map", Reason: err.Error()}
		}
		c, err := client.New(restConfig, client.Options{Scheme: scheme})
		if err != nil {
			return &wallerr.ConfigError{Field: "config-map", Reason: err.Error()}
		}
		reader = c
	}

	spec, err := config.Load(ctx, config.Options{
		File:      o.configFile,
		ConfigMap: o.configMap,
		Reader:    reader,
		Flags:     cmd.Flags(),
	})
	if err != nil {
		return err
	}

	clients, err := newClients(spec)
	if err != nil {
		return err
	}
	defer closeClients(ctx, clients)

	orch := orchestrator.New(spec, clients)
	if spec.Output.Pushgateway != "" {
		orch.RunMetrics = publisher.NewRunMetrics(spec.Output.Pushgateway)
	}

	if spec.Output.Path == "" {
		setupLog.Info("No output path, running connectivity check")
		return orch.Check(ctx, cmd.OutOrStdout())
	}
	return orch.Publish(ctx, spec.Output.Path)
}

func (o *options) setupLogger() {
	if o.logFile != "" {
		o.zap.DestWriter = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		})
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&o.zap)))
}

func newClients(spec *wallv1alpha1.WallSpec) (map[string]transport.MetricsClient, error) {
	clients := make(map[string]transport.MetricsClient, len(spec.Clusters))
	for _, c := range spec.Clusters {
		pc, err := transporthttp.NewPrometheusClient(c)
		if err != nil {
			return nil, &wallerr.ConfigError{Field: "clusters." + c.Name, Reason: err.Error()}
		}
		clients[c.Name] = pc
		setupLog.V(1).Info("Configured cluster", "cluster", c.Name, "url", c.URL, "timeout", c.Timeout)
	}
	return clients, nil
}

func closeClients(ctx context.Context, clients map[string]transport.MetricsClient) {
	for name, c := range clients {
		if err := c.Close(); err != nil {
			log.FromContext(ctx).Error(err, "failed to close client", "cluster", name)
		}
	}
}
