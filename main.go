package main

import (
	"flag"
	"os"
	"strings"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
	"github.com/anvil-platform/provisioner/controllers"
	"github.com/anvil-platform/provisioner/internal/provision"
	"github.com/anvil-platform/provisioner/internal/repository"
	"github.com/anvil-platform/provisioner/internal/resource"
	"github.com/anvil-platform/provisioner/internal/rpc"
	"github.com/anvil-platform/provisioner/internal/solver"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(provisionv1alpha1.AddToScheme(scheme))
}

func main() {
	var metricsAddr string
	var probeAddr string
	var grpcAddr string
	var enableLeaderElection bool
	var artifactBaseURL string
	var nestedNamespaces string
	var verify bool

	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.StringVar(&grpcAddr, "grpc-bind-address", ":9090", "The address the dry-run gRPC service binds to. Empty disables it.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", false, "Enable leader election for controller manager.")
	flag.StringVar(&artifactBaseURL, "artifact-base-url", repository.DefaultArtifactBaseURL, "Base URL recorded as the location of artifact resources. Empty disables the artifact repository.")
	flag.StringVar(&nestedNamespaces, "nested-namespaces", "identity,artifact", "Comma-separated requirement namespaces followed for newly selected resources.")
	flag.BoolVar(&verify, "verify", true, "Re-solve every satisfied result against the installed manifests.")

	opts := zap.Options{Development: true}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "provisioner.provision.platform",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	var repos []repository.Repository
	if artifactBaseURL != "" {
		repos = append(repos, repository.NewArtifact(repository.WithBaseURL(artifactBaseURL)))
	}
	engineOpts := []provision.Option{
		provision.WithNestedNamespaces(parseNamespaces(nestedNamespaces)...),
		provision.WithVerification(verify),
	}
	s := solver.NewGreedy()

	if err := (&controllers.ResourceManifestReconciler{
		Client:   mgr.GetClient(),
		Scheme:   mgr.GetScheme(),
		Recorder: mgr.GetEventRecorderFor("ResourceManifest"),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "ResourceManifest")
		os.Exit(1)
	}

	if err := (&controllers.ProvisionRequestReconciler{
		Client:        mgr.GetClient(),
		Scheme:        mgr.GetScheme(),
		Recorder:      mgr.GetEventRecorderFor("ProvisionRequest"),
		Solver:        s,
		Repositories:  repos,
		EngineOptions: engineOpts,
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "ProvisionRequest")
		os.Exit(1)
	}

	if grpcAddr != "" {
		srv := rpc.NewServer(mgr.GetClient(),
			rpc.WithSolver(s),
			rpc.WithRepositories(repos...),
			rpc.WithEngineOptions(engineOpts...),
		)
		if err := mgr.Add(&rpc.Runnable{Addr: grpcAddr, Server: srv}); err != nil {
			setupLog.Error(err, "unable to add gRPC server")
			os.Exit(1)
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager", "grpcBindAddress", grpcAddr, "artifactBaseURL", artifactBaseURL)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}

func parseNamespaces(raw string) []resource.Namespace {
	var out []resource.Namespace
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, resource.Namespace(part))
		}
	}
	return out
}
