package controllers

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
	"github.com/anvil-platform/provisioner/internal/graph"
	"github.com/anvil-platform/provisioner/internal/manifest"
	"github.com/anvil-platform/provisioner/internal/provision"
	"github.com/anvil-platform/provisioner/internal/repository"
	"github.com/anvil-platform/provisioner/internal/resource"
	"github.com/anvil-platform/provisioner/internal/solver"
)

const managedByProvisionRequest = "provisionrequest"

// ProvisionRequestReconciler resolves ProvisionRequests against the
// ResourceManifests of their namespace and, when asked to, marks the resolved
// manifests as installed.
//
// RBAC:
// +kubebuilder:rbac:groups=provision.platform,resources=provisionrequests,verbs=get;list;watch
// +kubebuilder:rbac:groups=provision.platform,resources=provisionrequests/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=provision.platform,resources=resourcemanifests,verbs=get;list;watch;create
// +kubebuilder:rbac:groups=provision.platform,resources=resourcemanifests/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch;update
type ProvisionRequestReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder

	Solver solver.Solver
	// Repositories are consulted after the manifests of the request namespace.
	Repositories  []repository.Repository
	EngineOptions []provision.Option
}

func (r *ProvisionRequestReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	provisionerControllerReconcileTotal.WithLabelValues("ProvisionRequest").Inc()
	logger := log.FromContext(ctx).WithValues(
		"controller", "ProvisionRequest",
		"namespace", req.Namespace,
		"provisionRequest", req.Name,
	)
	ctx = log.IntoContext(ctx, logger)

	// 1) Load ProvisionRequest
	var pr provisionv1alpha1.ProvisionRequest
	if err := r.Get(ctx, req.NamespacedName, &pr); err != nil {
		if client.IgnoreNotFound(err) == nil {
			return ctrl.Result{}, nil
		}
		provisionerControllerReconcileErrorTotal.WithLabelValues("ProvisionRequest").Inc()
		return ctrl.Result{}, err
	}
	if pr.Status.Phase == provisionv1alpha1.RequestPhaseInstalled && pr.Status.ObservedGeneration == pr.Generation {
		logger.V(1).Info("request already installed")
		return ctrl.Result{}, nil
	}
	before := pr.DeepCopy()
	prevPhase := pr.Status.Phase

	// 2) Convert requested requirements
	reqs, err := manifest.ToRequirements(pr.Spec.Requirements)
	if err != nil {
		msg := fmt.Sprintf("InvalidRequirement: %v", err)
		if perr := r.patchRequestStatus(ctx, &pr, before, provisionv1alpha1.RequestPhaseError, msg,
			metav1.Condition{
				Type:    RequestConditionResolved,
				Status:  metav1.ConditionFalse,
				Reason:  "InvalidRequirement",
				Message: msg,
			},
		); perr != nil {
			logger.Error(perr, "failed to patch request status")
		}
		logger.Info("invalid requirement; marking request error")
		r.recordEventf(&pr, corev1.EventTypeWarning, "InvalidRequirement", "%s", msg)
		return ctrl.Result{}, nil
	}

	// 3) Load the catalog of the namespace
	cat, err := manifest.Load(ctx, r.Client, req.Namespace)
	if err != nil {
		provisionerControllerReconcileErrorTotal.WithLabelValues("ProvisionRequest").Inc()
		logger.Error(err, "failed to load catalog")
		return ctrl.Result{}, err
	}

	// 4) Resolve
	s := r.Solver
	if s == nil {
		s = solver.NewGreedy()
	}
	engine := provision.New(s, cat.Chain(r.Repositories...), r.EngineOptions...)
	start := time.Now()
	result, err := engine.Resolve(ctx, cat.Environment, reqs)
	provisionRequestResolutionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		provisionerControllerReconcileErrorTotal.WithLabelValues("ProvisionRequest").Inc()
		logger.Error(err, "resolution failed")
		return ctrl.Result{}, err
	}
	r.applyResult(&pr, cat, reqs, result)
	provisionRequestUnsatisfied.Set(float64(len(pr.Status.Unsatisfied)))

	logger.Info(
		"resolved request",
		"requirementCount", len(reqs),
		"resourceCount", len(pr.Status.Resources),
		"unsatisfiedCount", len(pr.Status.Unsatisfied),
		"invalidManifestCount", len(cat.Invalid),
	)

	// 5) Surface unsatisfied requirements
	if !result.Satisfied() {
		msg := summarizeUnsatisfied(pr.Status.Unsatisfied)
		conds := []metav1.Condition{{
			Type:    RequestConditionResolved,
			Status:  metav1.ConditionFalse,
			Reason:  "Unsatisfied",
			Message: msg,
		}}
		if pr.Spec.Install {
			conds = append(conds, metav1.Condition{
				Type:    RequestConditionInstalled,
				Status:  metav1.ConditionFalse,
				Reason:  "Unsatisfied",
				Message: "Nothing is installed while requirements are unsatisfied",
			})
		}
		if perr := r.patchRequestStatus(ctx, &pr, before, provisionv1alpha1.RequestPhaseUnsatisfied, msg, conds...); perr != nil {
			logger.Error(perr, "failed to patch request status")
			return ctrl.Result{}, perr
		}
		if prevPhase != provisionv1alpha1.RequestPhaseUnsatisfied {
			r.recordEventf(&pr, corev1.EventTypeWarning, "Unsatisfied", "%s", msg)
		}
		return ctrl.Result{}, nil
	}

	resolved := metav1.Condition{
		Type:    RequestConditionResolved,
		Status:  metav1.ConditionTrue,
		Reason:  "Resolved",
		Message: fmt.Sprintf("%d resource(s) resolved", len(pr.Status.Resources)),
	}
	if !pr.Spec.Install {
		if perr := r.patchRequestStatus(ctx, &pr, before, provisionv1alpha1.RequestPhaseResolved, resolved.Message, resolved); perr != nil {
			logger.Error(perr, "failed to patch request status")
			return ctrl.Result{}, perr
		}
		if prevPhase != provisionv1alpha1.RequestPhaseResolved {
			r.recordEventf(&pr, corev1.EventTypeNormal, "Resolved", "%s", resolved.Message)
		}
		return ctrl.Result{}, nil
	}

	// 6) Install in dependency order
	installed := 0
	for _, res := range graph.Build(result.Resources(), cat.Environment).InstallOrder() {
		name, changed, err := r.installResource(ctx, cat, &pr, res)
		if err != nil {
			msg := fmt.Sprintf("InstallFailed: %v", err)
			if perr := r.patchRequestStatus(ctx, &pr, before, provisionv1alpha1.RequestPhaseError, msg, resolved,
				metav1.Condition{
					Type:    RequestConditionInstalled,
					Status:  metav1.ConditionFalse,
					Reason:  "InstallFailed",
					Message: msg,
				},
			); perr != nil {
				logger.Error(perr, "failed to patch request status")
			}
			r.recordEventf(&pr, corev1.EventTypeWarning, "InstallFailed", "Failed to install %s: %v", res, err)
			provisionerControllerReconcileErrorTotal.WithLabelValues("ProvisionRequest").Inc()
			return ctrl.Result{}, err
		}
		if changed {
			installed++
			logger.V(1).Info("installed resource", "resourceManifest", name, "resource", res.String())
		}
	}
	if installed > 0 {
		provisionRequestResourcesInstalledTotal.Add(float64(installed))
	}

	msg := fmt.Sprintf("%d resource(s) installed", installed)
	if perr := r.patchRequestStatus(ctx, &pr, before, provisionv1alpha1.RequestPhaseInstalled, msg, resolved,
		metav1.Condition{
			Type:    RequestConditionInstalled,
			Status:  metav1.ConditionTrue,
			Reason:  "Installed",
			Message: msg,
		},
	); perr != nil {
		logger.Error(perr, "failed to patch request status")
		return ctrl.Result{}, perr
	}
	logger.Info("request installed", "installed", installed)
	r.recordEventf(&pr, corev1.EventTypeNormal, "Installed", "%s", msg)
	return ctrl.Result{}, nil
}

// applyResult copies the resolution into the request status.
func (r *ProvisionRequestReconciler) applyResult(pr *provisionv1alpha1.ProvisionRequest, cat *manifest.Catalog, reqs []*resource.Requirement, result *provision.Result) {
	pr.Status.Resources = nil
	for _, res := range result.Resources() {
		pr.Status.Resources = append(pr.Status.Resources, corev1.LocalObjectReference{Name: cat.ObjectName(res)})
	}
	pr.Status.Mapping = nil
	for i, req := range reqs {
		if provider, ok := result.Provider(req); ok {
			pr.Status.Mapping = append(pr.Status.Mapping, provisionv1alpha1.RequirementMapping{
				Requirement: pr.Spec.Requirements[i].String(),
				Provider:    cat.ObjectName(provider),
			})
		}
	}
	pr.Status.Unsatisfied = nil
	for _, req := range result.Unsatisfied() {
		pr.Status.Unsatisfied = append(pr.Status.Unsatisfied, cat.Describe(req))
	}
	now := metav1.Now()
	pr.Status.LastResolvedTime = &now
}

// installResource marks the manifest of res as installed, creating the
// manifest first when res came from a repository outside the catalog. It
// reports whether the manifest changed.
func (r *ProvisionRequestReconciler) installResource(ctx context.Context, cat *manifest.Catalog, pr *provisionv1alpha1.ProvisionRequest, res *resource.Resource) (string, bool, error) {
	name, ok := cat.NameOf(res)
	if !ok {
		created := manifest.FromResource(res, pr.Namespace, managedByProvisionRequest)
		if err := r.Create(ctx, created); err != nil && !apierrors.IsAlreadyExists(err) {
			return "", false, err
		}
		name = created.Name
	}

	var m provisionv1alpha1.ResourceManifest
	if err := r.Get(ctx, types.NamespacedName{Namespace: pr.Namespace, Name: name}, &m); err != nil {
		return name, false, err
	}
	if m.Status.Phase == provisionv1alpha1.ManifestPhaseInstalled {
		return name, false, nil
	}
	before := m.DeepCopy()
	now := metav1.Now()
	m.Status.Phase = provisionv1alpha1.ManifestPhaseInstalled
	m.Status.Message = ""
	m.Status.InstalledBy = pr.Name
	m.Status.InstalledTime = &now
	return name, true, r.Status().Patch(ctx, &m, client.MergeFrom(before))
}

func (r *ProvisionRequestReconciler) patchRequestStatus(ctx context.Context, pr, before *provisionv1alpha1.ProvisionRequest, phase, message string, conds ...metav1.Condition) error {
	pr.Status.ObservedGeneration = pr.Generation
	pr.Status.Phase = phase
	pr.Status.Message = message
	for _, c := range conds {
		setRequestCondition(pr, c)
	}
	return r.Status().Patch(ctx, pr, client.MergeFrom(before))
}

func (r *ProvisionRequestReconciler) recordEventf(obj client.Object, eventType, reason, messageFmt string, args ...any) {
	if r.Recorder == nil || obj == nil {
		return
	}
	r.Recorder.Eventf(obj, eventType, reason, messageFmt, args...)
}

func (r *ProvisionRequestReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&provisionv1alpha1.ProvisionRequest{}).
		Watches(
			&provisionv1alpha1.ResourceManifest{},
			enqueueRequestsForManifest(mgr.GetClient()),
		).
		Complete(r)
}

// enqueueRequestsForManifest enqueues every ProvisionRequest in the namespace
// of a changed ResourceManifest.
func enqueueRequestsForManifest(c client.Client) handler.EventHandler {
	return handler.EnqueueRequestsFromMapFunc(func(ctx context.Context, obj client.Object) []reconcile.Request {
		var requests provisionv1alpha1.ProvisionRequestList
		if err := c.List(ctx, &requests, client.InNamespace(obj.GetNamespace())); err != nil {
			return nil
		}
		out := make([]reconcile.Request, 0, len(requests.Items))
		for i := range requests.Items {
			pr := &requests.Items[i]
			out = append(out, reconcile.Request{NamespacedName: types.NamespacedName{Namespace: pr.Namespace, Name: pr.Name}})
		}
		return out
	})
}
