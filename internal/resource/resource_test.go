package resource

import (
	"errors"
	"testing"
)

func TestBuild_IdentityAndAccessors(t *testing.T) {
	res := NewBuilder().
		AddIdentity("org.example.core", "1.2.0").
		AddCapability("package", "org.example.api", WithVersion("1.0"), WithAttribute("vendor", "example")).
		AddRequirement(NamespaceIdentity, "org.example.log", WithConstraint(">=1.0.0")).
		AddRequirement("package", "org.example.spi", WithResolution(ResolutionOptional)).
		MustBuild()

	if res.Name() != "org.example.core" {
		t.Fatalf("expected name org.example.core, got %q", res.Name())
	}
	if res.Version().String() != "1.2.0" {
		t.Fatalf("expected version 1.2.0, got %s", res.Version())
	}
	if res.Abstract() {
		t.Fatalf("expected concrete resource")
	}
	if got := len(res.Capabilities()); got != 2 {
		t.Fatalf("expected 2 capabilities, got %d", got)
	}
	if got := len(res.Capabilities("package")); got != 1 {
		t.Fatalf("expected 1 package capability, got %d", got)
	}
	if got := len(res.Requirements(NamespaceIdentity)); got != 1 {
		t.Fatalf("expected 1 identity requirement, got %d", got)
	}
	for _, c := range res.Capabilities() {
		if c.Resource() != res {
			t.Fatalf("capability %s not owned by its resource", c)
		}
	}
	opt := res.Requirements("package")[0]
	if !opt.Optional() {
		t.Fatalf("expected optional requirement")
	}
}

func TestBuild_ListsAreCopies(t *testing.T) {
	res := NewBuilder().AddIdentity("a", "1.0.0").AddRequirement(NamespaceIdentity, "b").MustBuild()

	reqs := res.Requirements()
	reqs[0] = nil
	if res.Requirements()[0] == nil {
		t.Fatalf("mutating the returned slice changed the resource")
	}
	attrs := res.IdentityCapability().Attributes()
	attrs["injected"] = "x"
	if _, ok := res.IdentityCapability().Attribute("injected"); ok {
		t.Fatalf("mutating the returned attributes changed the capability")
	}
}

func TestBuild_AliasIsAbstract(t *testing.T) {
	res := NewBuilder().
		AddIdentity("tx-api", "1.0.1", WithKind(DelegatesTo(NamespaceArtifact))).
		AddRequirement(NamespaceArtifact, "org.jboss.spec:tx-api:1.0.1.Final").
		MustBuild()

	if !res.Abstract() {
		t.Fatalf("expected alias resource to be abstract")
	}
	ns, ok := res.IdentityCapability().Kind().Delegate()
	if !ok || ns != NamespaceArtifact {
		t.Fatalf("expected delegate namespace %q, got %q (ok=%v)", NamespaceArtifact, ns, ok)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
		want error
	}{
		{"no identity", NewBuilder().AddCapability("package", "p"), ErrNoIdentity},
		{"bad version", NewBuilder().AddIdentity("a", "not.a.version.at.all"), ErrInvalidVersion},
		{"bad constraint", NewBuilder().AddIdentity("a", "1.0.0").AddRequirement(NamespaceIdentity, "b", WithConstraint(">=banana")), ErrInvalidConstraint},
		{"bad resolution", NewBuilder().AddIdentity("a", "1.0.0").AddRequirement(NamespaceIdentity, "b", WithResolution("sometimes")), ErrInvalidResolution},
		{"empty namespace", NewBuilder().AddIdentity("a", "1.0.0").AddCapability("", "x"), ErrEmptyNamespace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRequirementMatches(t *testing.T) {
	res := NewBuilder().
		AddIdentity("res1", "2.0.0", WithAttribute("type", "bundle")).
		MustBuild()
	icap := res.IdentityCapability()

	tests := []struct {
		name string
		req  *Requirement
		want bool
	}{
		{"name", MustQuery(NamespaceIdentity, "res1"), true},
		{"other name", MustQuery(NamespaceIdentity, "res2"), false},
		{"other namespace", MustQuery(NamespaceModule, "res1"), false},
		{"constraint ok", MustQuery(NamespaceIdentity, "res1", WithConstraint("^2.0.0")), true},
		{"constraint fails", MustQuery(NamespaceIdentity, "res1", WithConstraint("<2.0.0")), false},
		{"attribute ok", MustQuery(NamespaceIdentity, "res1", WithMatchAttribute("type", "bundle")), true},
		{"attribute fails", MustQuery(NamespaceIdentity, "res1", WithMatchAttribute("type", "fragment")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Matches(icap); got != tt.want {
				t.Fatalf("Matches(%s) = %v, want %v", tt.req, got, tt.want)
			}
		})
	}
}

func TestNewQuery(t *testing.T) {
	req := MustQuery(NamespaceIdentity, "res1")
	owner := req.Resource()
	if owner == nil || !owner.Query() {
		t.Fatalf("expected synthetic query owner")
	}
	if owner.Abstract() {
		t.Fatalf("query owners are not abstract")
	}
	if owner.IdentityCapability() != nil {
		t.Fatalf("query owners expose no identity capability")
	}
	if req.Resolution() != ResolutionMandatory {
		t.Fatalf("expected mandatory default, got %s", req.Resolution())
	}
}

func TestRequirementString_SortsAttributes(t *testing.T) {
	req := MustQuery(Namespace("package"), "p",
		WithMatchAttribute("vendor", "acme"),
		WithMatchAttribute("arch", "amd64"),
		WithResolution(ResolutionOptional),
	)
	want := `package=p;resolution:=optional;arch="amd64";vendor="acme"`
	if got := req.String(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
