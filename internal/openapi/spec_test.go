package openapi

import (
	"encoding/json"
	"testing"
)

func TestGenerateSpec(t *testing.T) {
	spec := GenerateSpec("http://localhost:3000")

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("got OpenAPI version %q, want 3.1.0", spec.OpenAPI)
	}
	if spec.Info == nil || spec.Info.Title == "" {
		t.Error("expected a non-empty info title")
	}
	if len(spec.Servers) == 0 || spec.Servers[0].URL != "http://localhost:3000" {
		t.Error("expected the base URL as the first server entry")
	}

	wantPaths := []string{
		"/register",
		"/user",
		"/create",
		"/cekapi",
		"/healthz",
		"/readyz",
		"/openapi.json",
		"/admin/register",
		"/admin/login",
		"/admin/logout",
		"/admin/dashboard",
		"/admin/apikeys",
		"/admin/users",
		"/admin/apikey/{id}",
		"/admin/apikey/{id}/deactivate",
		"/admin/user/{id}",
	}
	for _, p := range wantPaths {
		if spec.Paths.Value(p) == nil {
			t.Errorf("spec missing path %s", p)
		}
	}

	// Privileged operations carry the session security requirement.
	dash := spec.Paths.Value("/admin/dashboard")
	if dash == nil || dash.Get == nil {
		t.Fatal("missing GET /admin/dashboard operation")
	}
	if dash.Get.Security == nil || len(*dash.Get.Security) == 0 {
		t.Error("expected security requirement on GET /admin/dashboard")
	}

	// Public validation carries none.
	cek := spec.Paths.Value("/cekapi")
	if cek == nil || cek.Post == nil {
		t.Fatal("missing POST /cekapi operation")
	}
	if cek.Post.Security != nil && len(*cek.Post.Security) > 0 {
		t.Error("did not expect security requirement on POST /cekapi")
	}
}

func TestGenerateSpecSerializes(t *testing.T) {
	spec := GenerateSpec("http://localhost:3000")

	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal spec: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal spec: %v", err)
	}
	if decoded["components"] == nil {
		t.Error("expected components in serialized spec")
	}
}
