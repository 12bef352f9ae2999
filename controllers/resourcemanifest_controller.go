package controllers

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
	"github.com/anvil-platform/provisioner/internal/manifest"
)

// ResourceManifestReconciler validates ResourceManifests and publishes the
// outcome in their status.
//
// RBAC:
// +kubebuilder:rbac:groups=provision.platform,resources=resourcemanifests,verbs=get;list;watch
// +kubebuilder:rbac:groups=provision.platform,resources=resourcemanifests/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch;update
type ResourceManifestReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
}

func (r *ResourceManifestReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	provisionerControllerReconcileTotal.WithLabelValues("ResourceManifest").Inc()
	logger := log.FromContext(ctx).WithValues("controller", "ResourceManifest", "namespace", req.Namespace, "resourceManifest", req.Name)

	var m provisionv1alpha1.ResourceManifest
	if err := r.Get(ctx, req.NamespacedName, &m); err != nil {
		if client.IgnoreNotFound(err) == nil {
			return ctrl.Result{}, r.refreshInvalidGauge(ctx, req.Namespace)
		}
		provisionerControllerReconcileErrorTotal.WithLabelValues("ResourceManifest").Inc()
		return ctrl.Result{}, err
	}

	before := m.DeepCopy()
	m.Status.ObservedGeneration = m.Generation
	if _, err := manifest.ToResource(&m); err != nil {
		m.Status.Phase = provisionv1alpha1.ManifestPhaseInvalid
		m.Status.Message = err.Error()
		setManifestCondition(&m, metav1.Condition{
			Type:    ManifestConditionValid,
			Status:  metav1.ConditionFalse,
			Reason:  "InvalidManifest",
			Message: err.Error(),
		})
		if before.Status.Phase != provisionv1alpha1.ManifestPhaseInvalid {
			r.recordEventf(&m, "Warning", "InvalidManifest", "%v", err)
		}
		logger.Info("manifest is invalid", "error", err.Error())
	} else {
		if m.Status.Phase != provisionv1alpha1.ManifestPhaseInstalled {
			m.Status.Phase = provisionv1alpha1.ManifestPhaseAvailable
		}
		m.Status.Message = ""
		setManifestCondition(&m, metav1.Condition{
			Type:    ManifestConditionValid,
			Status:  metav1.ConditionTrue,
			Reason:  "Validated",
			Message: "Manifest converts to a resource",
		})
		logger.V(1).Info("manifest is valid", "phase", m.Status.Phase)
	}

	if err := r.Status().Patch(ctx, &m, client.MergeFrom(before)); err != nil {
		provisionerControllerReconcileErrorTotal.WithLabelValues("ResourceManifest").Inc()
		logger.Error(err, "failed to patch manifest status")
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, r.refreshInvalidGauge(ctx, req.Namespace)
}

func (r *ResourceManifestReconciler) refreshInvalidGauge(ctx context.Context, namespace string) error {
	var list provisionv1alpha1.ResourceManifestList
	if err := r.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return err
	}
	invalid := 0
	for i := range list.Items {
		if list.Items[i].Status.Phase == provisionv1alpha1.ManifestPhaseInvalid {
			invalid++
		}
	}
	resourceManifestInvalid.WithLabelValues(namespace).Set(float64(invalid))
	return nil
}

func (r *ResourceManifestReconciler) recordEventf(obj client.Object, eventType, reason, messageFmt string, args ...any) {
	if r.Recorder == nil || obj == nil {
		return
	}
	r.Recorder.Eventf(obj, eventType, reason, messageFmt, args...)
}

func (r *ResourceManifestReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&provisionv1alpha1.ResourceManifest{}).
		Complete(r)
}
