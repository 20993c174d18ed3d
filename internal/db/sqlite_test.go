package db

import (
	"path/filepath"
	"testing"

	"github.com/subpipe/backend/internal/auth"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	d, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestEnsureAdmin(t *testing.T) {
	d := testDB(t)

	if err := d.EnsureAdmin("admin", "secret"); err != nil {
		t.Fatalf("EnsureAdmin returned error: %v", err)
	}
	// Second call must not create another admin or reset the password
	if err := d.EnsureAdmin("other", "different"); err != nil {
		t.Fatalf("EnsureAdmin second call returned error: %v", err)
	}

	user, err := d.GetUserByUsername("admin")
	if err != nil {
		t.Fatalf("GetUserByUsername returned error: %v", err)
	}
	if user.Role != "admin" {
		t.Errorf("role = %q, want admin", user.Role)
	}
	if !auth.CheckPassword("secret", user.Password) {
		t.Error("stored password does not verify")
	}
	if _, err := d.GetUserByUsername("other"); err == nil {
		t.Error("second EnsureAdmin call created a user")
	}
}

func TestSettings(t *testing.T) {
	d := testDB(t)

	if got := d.GetSetting("gemini_model", "fallback"); got != "fallback" {
		t.Errorf("GetSetting on empty store = %q, want fallback", got)
	}
	if err := d.SetSetting("gemini_model", "gemini-2.0-flash"); err != nil {
		t.Fatalf("SetSetting returned error: %v", err)
	}
	if err := d.SetSetting("gemini_model", "gemini-2.5-pro"); err != nil {
		t.Fatalf("SetSetting upsert returned error: %v", err)
	}
	if got := d.GetSetting("gemini_model", "fallback"); got != "gemini-2.5-pro" {
		t.Errorf("GetSetting = %q, want upserted value", got)
	}

	all, err := d.GetAllSettings()
	if err != nil {
		t.Fatalf("GetAllSettings returned error: %v", err)
	}
	if all["gemini_model"] != "gemini-2.5-pro" {
		t.Errorf("GetAllSettings = %v", all)
	}
}

func TestRunLifecycle(t *testing.T) {
	d := testDB(t)

	if err := d.InsertRun("run-1", "gemini", `{"target_seconds":300}`); err != nil {
		t.Fatalf("InsertRun returned error: %v", err)
	}
	if err := d.UpdateRunResult("run-1", "completed", true, `{"ok":true}`); err != nil {
		t.Fatalf("UpdateRunResult returned error: %v", err)
	}

	row, err := d.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if row.Status != "completed" || !row.OK || row.Result != `{"ok":true}` {
		t.Errorf("row = %+v", row)
	}

	if err := d.InsertRun("run-2", "ollama", `{}`); err != nil {
		t.Fatalf("InsertRun returned error: %v", err)
	}
	runs, err := d.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	for _, r := range runs {
		if r.Result != "" {
			t.Errorf("list leaked result blob for %s", r.ID)
		}
	}

	if _, err := d.GetRun("missing"); err == nil {
		t.Error("GetRun returned a row for an unknown id")
	}
}
