package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/anvil-platform/provisioner/internal/resource"
)

func TestMemory_AddIgnoresDuplicateIdentity(t *testing.T) {
	first := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	dup := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	other := resource.NewBuilder().AddIdentity("res1", "2.0.0").MustBuild()

	repo := NewMemory(first, dup, other)
	got := repo.Resources()
	if len(got) != 2 || got[0] != first || got[1] != other {
		t.Fatalf("expected [res1:1.0.0 res1:2.0.0], got %v", got)
	}
}

func TestMemory_FindProvidersAndRemove(t *testing.T) {
	res1 := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	repo := NewMemory(res1)
	req := resource.MustQuery(resource.NamespaceIdentity, "res1")

	caps, err := repo.FindProviders(context.Background(), req)
	if err != nil {
		t.Fatalf("FindProviders error: %v", err)
	}
	if len(caps) != 1 || caps[0].Resource() != res1 {
		t.Fatalf("expected res1, got %v", caps)
	}

	if !repo.Remove(res1) {
		t.Fatalf("expected Remove to report true")
	}
	if repo.Remove(res1) {
		t.Fatalf("expected second Remove to report false")
	}
	caps, _ = repo.FindProviders(context.Background(), req)
	if len(caps) != 0 {
		t.Fatalf("expected no providers after removal, got %v", caps)
	}
	// The identity slot is free again.
	repo.Add(resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild())
	if got := len(repo.Resources()); got != 1 {
		t.Fatalf("expected re-add to succeed, got %d resources", got)
	}
}

type failingRepository struct{ err error }

func (f failingRepository) FindProviders(context.Context, *resource.Requirement) ([]*resource.Capability, error) {
	return nil, f.err
}

func TestAggregate(t *testing.T) {
	boom := errors.New("boom")
	a := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	b := resource.NewBuilder().AddIdentity("res1", "2.0.0").MustBuild()
	req := resource.MustQuery(resource.NamespaceIdentity, "res1")

	agg := NewAggregate(NewMemory(a), failingRepository{err: boom}, NewMemory(b))
	caps, err := agg.FindProviders(context.Background(), req)
	if err != nil {
		t.Fatalf("expected failing delegate to be skipped, got %v", err)
	}
	if len(caps) != 2 || caps[0].Resource() != a || caps[1].Resource() != b {
		t.Fatalf("expected providers in delegate order, got %v", caps)
	}

	_, err = NewAggregate(failingRepository{err: boom}).FindProviders(context.Background(), req)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom when every delegate fails, got %v", err)
	}

	_, err = NewAggregate().FindProviders(context.Background(), req)
	if !errors.Is(err, ErrNoDelegates) {
		t.Fatalf("expected ErrNoDelegates, got %v", err)
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		raw     string
		want    Coordinate
		wantErr bool
	}{
		{raw: "org.jboss.spec:tx-api:1.0.1.Final", want: Coordinate{Group: "org.jboss.spec", Name: "tx-api", Version: "1.0.1.Final"}},
		{raw: "g:n", wantErr: true},
		{raw: "g::1.0", wantErr: true},
		{raw: "g:n:1:extra", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseCoordinate(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCoordinate) {
					t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCoordinate error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestArtifact_SynthesisesCachedResource(t *testing.T) {
	repo := NewArtifact(WithBaseURL("https://repo.example.com/maven/"))
	req := resource.MustQuery(resource.NamespaceArtifact, "org.jboss.spec:tx-api:1.0.1.Final")

	caps, err := repo.FindProviders(context.Background(), req)
	if err != nil {
		t.Fatalf("FindProviders error: %v", err)
	}
	if len(caps) != 1 {
		t.Fatalf("expected 1 capability, got %d", len(caps))
	}
	res := caps[0].Resource()
	if res.Name() != "org.jboss.spec.tx-api" {
		t.Fatalf("expected identity org.jboss.spec.tx-api, got %q", res.Name())
	}
	if res.Abstract() {
		t.Fatalf("expected a concrete resource")
	}
	loc, _ := caps[0].Attribute(LocationAttribute)
	want := "https://repo.example.com/maven/org/jboss/spec/tx-api/1.0.1.Final/tx-api-1.0.1.Final.jar"
	if loc != want {
		t.Fatalf("expected location %q, got %q", want, loc)
	}

	again, _ := repo.FindProviders(context.Background(), req)
	if len(again) != 1 || again[0].Resource() != res {
		t.Fatalf("expected the cached resource on repeated lookup")
	}
}

func TestArtifact_IgnoresOtherRequirements(t *testing.T) {
	repo := NewArtifact()
	for _, req := range []*resource.Requirement{
		resource.MustQuery(resource.NamespaceIdentity, "org.jboss.spec:tx-api:1.0.1.Final"),
		resource.MustQuery(resource.NamespaceArtifact, "not-a-coordinate"),
	} {
		caps, err := repo.FindProviders(context.Background(), req)
		if err != nil || len(caps) != 0 {
			t.Fatalf("expected nothing for %s, got %v (err=%v)", req, caps, err)
		}
	}
}
