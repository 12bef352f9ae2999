package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/controller-runtime/pkg/client"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
)

var (
	scheme = runtime.NewScheme()
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(provisionv1alpha1.AddToScheme(scheme))
}

func main() {
	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	} else {
		kubeconfig = os.Getenv("KUBECONFIG")
	}
	flag.StringVar(&kubeconfig, "kubeconfig", kubeconfig, "absolute path to the kubeconfig file")

	var numRequests int
	var namespace string
	var identity string
	var constraint string
	var install bool
	var timeout time.Duration

	flag.IntVar(&numRequests, "requests", 10, "Number of ProvisionRequests to create")
	flag.StringVar(&namespace, "namespace", "default", "Namespace to create requests in")
	flag.StringVar(&identity, "identity", "org.example.app", "Identity every request requires")
	flag.StringVar(&constraint, "constraint", "", "Optional version constraint for the identity")
	flag.BoolVar(&install, "install", false, "Ask the controller to install the resolved manifests")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for each request")
	flag.Parse()

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		log.Fatalf("Error building kubeconfig: %v", err)
	}

	k8sClient, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		log.Fatalf("Error creating client: %v", err)
	}

	fmt.Printf("Starting load test: %d requests for %s in namespace %s\n", numRequests, identity, namespace)

	var wg sync.WaitGroup
	start := time.Now()
	latencies := make(chan time.Duration, numRequests)
	phases := make(chan string, numRequests)

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := "load-test-" + uuid.NewString()

			pr := &provisionv1alpha1.ProvisionRequest{
				ObjectMeta: metav1.ObjectMeta{
					Name:      name,
					Namespace: namespace,
				},
				Spec: provisionv1alpha1.ProvisionRequestSpec{
					Install: install,
					Requirements: []provisionv1alpha1.RequirementSpec{{
						Namespace:         provisionv1alpha1.NamespaceIdentity,
						Value:             identity,
						VersionConstraint: constraint,
					}},
				},
			}

			createStart := time.Now()
			if err := k8sClient.Create(context.Background(), pr); err != nil {
				fmt.Printf("Error creating request %s: %v\n", name, err)
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			for {
				select {
				case <-ctx.Done():
					fmt.Printf("Timeout waiting for request %s\n", name)
					phases <- "Timeout"
					return
				case <-time.After(500 * time.Millisecond):
					var current provisionv1alpha1.ProvisionRequest
					if err := k8sClient.Get(ctx, client.ObjectKey{Name: name, Namespace: namespace}, &current); err != nil {
						continue
					}
					if current.Status.Phase == "" || current.Status.ObservedGeneration != current.Generation {
						continue
					}
					latency := time.Since(createStart)
					latencies <- latency
					phases <- current.Status.Phase
					fmt.Printf("Request %s reached %s in %v\n", name, current.Status.Phase, latency)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(latencies)
	close(phases)
	totalDuration := time.Since(start)

	var all []time.Duration
	for l := range latencies {
		all = append(all, l)
	}
	counts := map[string]int{}
	for p := range phases {
		counts[p]++
	}

	if len(all) == 0 {
		fmt.Printf("Load test completed in %v. No request was reconciled.\n", totalDuration)
		return
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	var total time.Duration
	for _, l := range all {
		total += l
	}
	fmt.Printf("Load test completed in %v. Avg latency: %v, p50: %v, max: %v\n",
		totalDuration, total/time.Duration(len(all)), all[len(all)/2], all[len(all)-1])
	fmt.Printf("Phases: %v\n", counts)
}
