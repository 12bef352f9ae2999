package controllers

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	provisionerControllerReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_controller_reconcile_total",
			Help: "Number of reconciliations by controller.",
		},
		[]string{"controller"},
	)
	provisionerControllerReconcileErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_controller_reconcile_error_total",
			Help: "Number of reconciliation errors by controller.",
		},
		[]string{"controller"},
	)

	provisionRequestUnsatisfied = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "provisioner_provisionrequest_unsatisfied",
			Help: "Number of unsatisfied requirements observed in the last ProvisionRequest reconcile.",
		},
	)
	provisionRequestResolutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provisioner_provisionrequest_resolution_duration_seconds",
			Help:    "Time taken to resolve a ProvisionRequest.",
			Buckets: prometheus.DefBuckets,
		},
	)
	provisionRequestResourcesInstalledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provisioner_provisionrequest_resources_installed_total",
			Help: "Total number of ResourceManifests marked Installed by ProvisionRequests.",
		},
	)

	resourceManifestInvalid = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provisioner_resourcemanifest_invalid",
			Help: "Number of invalid ResourceManifests per namespace.",
		},
		[]string{"namespace"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		provisionerControllerReconcileTotal,
		provisionerControllerReconcileErrorTotal,
		provisionRequestUnsatisfied,
		provisionRequestResolutionDuration,
		provisionRequestResourcesInstalledTotal,
		resourceManifestInvalid,
	)
}
