package main

import (
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/voxelbird/scenesmith"
	"github.com/voxelbird/scenesmith/config"
	"github.com/voxelbird/scenesmith/observability"
	"github.com/voxelbird/scenesmith/pipeline"
)

type runFlags struct {
	configPath  string
	topic       string
	language    string
	sceneCount  int
	outputDir   string
	autonomous  bool
	metricsAddr string
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce a content package for a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProduce(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.topic, "topic", "t", "", "topic to produce content for (required)")
	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "script language (default from config)")
	cmd.Flags().IntVarP(&flags.sceneCount, "scenes", "s", 0, "number of scenes (default from config)")
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "directory for generated files")
	cmd.Flags().BoolVar(&flags.autonomous, "autonomous", false, "run one agent with all tools instead of the staged pipeline")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090)")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}

func runProduce(cmd *cobra.Command, flags runFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.outputDir != "" {
		cfg.OutputDir = flags.outputDir
	}

	var metrics *observability.Metrics
	if flags.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = observability.NewMetrics(reg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			_ = http.ListenAndServe(flags.metricsAddr, mux)
		}()
	}

	smith, err := scenesmith.New(cfg, func(o *scenesmith.Options) {
		o.Metrics = metrics
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := pipeline.Request{
		Topic:      flags.topic,
		Language:   flags.language,
		SceneCount: flags.sceneCount,
	}

	if flags.autonomous {
		res, err := smith.ProduceAutonomous(ctx, req)
		if err != nil {
			return err
		}
		cmd.Printf("completed in %d iterations, %d artifacts\n", res.Iterations, len(res.Artifacts))
		cmd.Println(res.FinalText)
		return nil
	}

	res, err := smith.Produce(ctx, req)
	if err != nil {
		return err
	}

	path, err := res.Save(cfg.OutputDir)
	if err != nil {
		return err
	}
	cmd.Printf("wrote %s (%d scenes, %d keywords, %d artifacts)\n",
		path, len(res.Script.Scenes), len(res.Keywords), len(res.Artifacts))
	return nil
}
