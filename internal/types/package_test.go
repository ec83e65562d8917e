package types

import "testing"

func TestParsePackageReqBare(t *testing.T) {
	req, err := ParsePackageReq("openssl.org")
	if err != nil {
		t.Fatalf("ParsePackageReq: %v", err)
	}
	if req.Project != "openssl.org" {
		t.Errorf("Project = %q, want openssl.org", req.Project)
	}
	if req.Constraint.Format() != "*" {
		t.Errorf("Constraint = %q, want *", req.Constraint.Format())
	}
}

func TestParsePackageReqWithConstraint(t *testing.T) {
	req, err := ParsePackageReq("openssl.org@3.2")
	if err != nil {
		t.Fatalf("ParsePackageReq: %v", err)
	}
	if req.Project != "openssl.org" {
		t.Errorf("Project = %q, want openssl.org", req.Project)
	}
	if !req.Constraint.Satisfies(mustVersion(t, "3.2.1")) {
		t.Errorf("Constraint %q should satisfy 3.2.1", req.Constraint.Format())
	}
}

func TestParsePackageReqRejectsEmptyProject(t *testing.T) {
	if _, err := ParsePackageReq("^1.2.3"); err == nil {
		t.Error("ParsePackageReq with no project name should fail")
	}
}

func TestCondensePackageReqsMergesConstraints(t *testing.T) {
	reqs := []PackageReq{
		{Project: "zlib.org", Constraint: mustRange(t, "^1.0.0")},
		{Project: "curl.se", Constraint: Any()},
		{Project: "zlib.org", Constraint: mustRange(t, ">=1.2<1.5")},
	}

	out, err := CondensePackageReqs(reqs)
	if err != nil {
		t.Fatalf("CondensePackageReqs: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0].Project != "zlib.org" {
		t.Errorf("out[0].Project = %q, want zlib.org (insertion order preserved)", out[0].Project)
	}
	if !out[0].Constraint.Satisfies(mustVersion(t, "1.3.0")) {
		t.Error("merged zlib.org constraint should satisfy 1.3.0")
	}
	if out[0].Constraint.Satisfies(mustVersion(t, "1.9.0")) {
		t.Error("merged zlib.org constraint should not satisfy 1.9.0")
	}
}

func TestCondensePackageReqsFailsOnConflict(t *testing.T) {
	reqs := []PackageReq{
		{Project: "zlib.org", Constraint: mustRange(t, "=1.0.0")},
		{Project: "zlib.org", Constraint: mustRange(t, "=2.0.0")},
	}

	if _, err := CondensePackageReqs(reqs); err == nil {
		t.Error("CondensePackageReqs should fail when constraints conflict")
	}
}

func mustRange(t *testing.T, s string) VersionRange {
	t.Helper()
	r, err := ParseVersionRange(s)
	if err != nil {
		t.Fatalf("ParseVersionRange(%q): %v", s, err)
	}
	return r
}
