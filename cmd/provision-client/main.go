package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
	"github.com/anvil-platform/provisioner/internal/rpc"
)

// requirementFlags collects repeated -require values of the form
// [namespace=]value[@constraint].
type requirementFlags []provisionv1alpha1.RequirementSpec

func (r *requirementFlags) String() string {
	parts := make([]string, 0, len(*r))
	for _, spec := range *r {
		parts = append(parts, spec.String())
	}
	return strings.Join(parts, ",")
}

func (r *requirementFlags) Set(raw string) error {
	spec := provisionv1alpha1.RequirementSpec{Namespace: provisionv1alpha1.NamespaceIdentity}
	if ns, rest, ok := strings.Cut(raw, "="); ok {
		spec.Namespace, raw = ns, rest
	}
	if value, constraint, ok := strings.Cut(raw, "@"); ok {
		raw, spec.VersionConstraint = value, constraint
	}
	if raw == "" {
		return fmt.Errorf("empty requirement value")
	}
	spec.Value = raw
	*r = append(*r, spec)
	return nil
}

func main() {
	var target string
	var namespace string
	var timeout time.Duration
	var reqs requirementFlags
	flag.StringVar(&target, "target", "127.0.0.1:9090", "gRPC server address")
	flag.StringVar(&namespace, "namespace", "default", "namespace whose ResourceManifests are resolved against")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "call timeout")
	flag.Var(&reqs, "require", "requirement as [namespace=]value[@constraint]; repeatable")
	flag.Parse()

	if len(reqs) == 0 {
		fmt.Fprintln(os.Stderr, "at least one -require is needed")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Errorf("dial %s: %w", target, err))
	}
	defer conn.Close()

	resp, err := rpc.NewClient(conn).Resolve(ctx, rpc.Request{Namespace: namespace, Requirements: reqs})
	if err != nil {
		fmt.Printf("Resolve error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("request %s\n", resp.RequestID)
	fmt.Printf("resources (%d):\n", len(resp.Resources))
	for _, name := range resp.Resources {
		fmt.Printf("  %s\n", name)
	}
	keys := make([]string, 0, len(resp.Mapping))
	for k := range resp.Mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("mapping (%d):\n", len(keys))
	for _, k := range keys {
		fmt.Printf("  %s -> %s\n", k, resp.Mapping[k])
	}
	if len(resp.Unsatisfied) > 0 {
		fmt.Printf("unsatisfied (%d):\n", len(resp.Unsatisfied))
		for _, u := range resp.Unsatisfied {
			fmt.Printf("  %s\n", u)
		}
		os.Exit(3)
	}
}
