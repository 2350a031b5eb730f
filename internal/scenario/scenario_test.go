package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yourorg/paramsearch/internal/errors"
)

const sampleJSON = `{
  "configurationSpace": {
    "parameters": {
      "solver": {"items": ["cdcl", "lookahead"]},
      "restarts": {"items": [true, false]},
      "luby_const": {"items": [1, 2, 4]}
    },
    "conditionals": {
      "luby_const": [
        {"solver": {"items": ["cdcl"]}, "restarts": {"items": [true]}}
      ]
    }
  },
  "scenarioSpace": {
    "parameters": {
      "num": {"default": 1},
      "seed": {"default": 0}
    }
  },
  "implementation": {
    "instanceSpace": {"semantics": {"INSTANCE_FILE": "instance"}},
    "inputFormat": {"callstring": ["$instance$ --num $num$ --solver $solver$"]},
    "outputFormat": {
      "stdout": ["RESULT : $time$"],
      "stderr": ["ERROR : $msg$"]
    },
    "executable": "bin/solver"
  }
}`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write scenario fixture: %v", err)
	}
	return path
}

func TestLoad_ParsesParametersAndConditionals(t *testing.T) {
	path := writeScenario(t, sampleJSON)

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if sc.Registry.Count() != 3 {
		t.Fatalf("expected 3 interned parameters, got %d", sc.Registry.Count())
	}

	restarts := sc.Registry.Get("restarts")
	if restarts == nil {
		t.Fatal("expected restarts parameter to be interned")
	}
	wantBoolValues := map[string]bool{"True": false, "False": false}
	for _, v := range restarts.Values {
		wantBoolValues[v] = true
	}
	if len(restarts.Values) != 2 || !wantBoolValues["True"] || !wantBoolValues["False"] {
		t.Errorf("expected bool values stringified as True/False, got %v", restarts.Values)
	}

	luby := sc.Registry.Get("luby_const")
	if luby == nil {
		t.Fatal("expected luby_const parameter to be interned")
	}
	if len(luby.Conditions) != 1 || len(luby.Conditions[0]) != 2 {
		t.Fatalf("expected one clause group with two clauses, got %+v", luby.Conditions)
	}
	if !luby.FreeGiven(map[string]string{"solver": "cdcl", "restarts": "True"}) {
		t.Error("expected luby_const free when solver=cdcl, restarts=True")
	}
	if luby.FreeGiven(map[string]string{"solver": "lookahead", "restarts": "True"}) {
		t.Error("expected luby_const not free when solver=lookahead")
	}
}

func TestLoad_AugmentsStdoutWithInterrupted(t *testing.T) {
	path := writeScenario(t, sampleJSON)

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	found := false
	for _, p := range sc.StdoutPatterns {
		if p == interruptedPattern {
			found = true
		}
	}
	if !found {
		t.Errorf("expected stdout patterns to be augmented with %q, got %v", interruptedPattern, sc.StdoutPatterns)
	}
	if len(sc.StdoutPatterns) != 2 {
		t.Errorf("expected original pattern plus the augmentation, got %v", sc.StdoutPatterns)
	}
}

func TestLoad_ExposesConstantsCallstringAndExecutable(t *testing.T) {
	path := writeScenario(t, sampleJSON)

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if sc.Constants["num"] != "1" || sc.Constants["seed"] != "0" {
		t.Errorf("expected scenarioSpace defaults as string constants, got %+v", sc.Constants)
	}
	if sc.CallstringTemplate != "$instance$ --num $num$ --solver $solver$" {
		t.Errorf("unexpected callstring template: %q", sc.CallstringTemplate)
	}
	if sc.Executable != "bin/solver" {
		t.Errorf("unexpected executable: %q", sc.Executable)
	}
	if sc.InstanceVariable != "instance" {
		t.Errorf("unexpected instance variable: %q", sc.InstanceVariable)
	}
	if len(sc.StderrPatterns) != 1 || sc.StderrPatterns[0] != "ERROR : $msg$" {
		t.Errorf("unexpected stderr patterns: %v", sc.StderrPatterns)
	}
}

func TestLoad_MissingParametersField(t *testing.T) {
	path := writeScenario(t, `{"configurationSpace": {}}`)

	_, err := Load(path)
	if !errors.HasCode(err, errors.CodeScenario) {
		t.Fatalf("expected a scenario error, got %v", err)
	}
}

func TestLoad_MissingInstanceFileSemantics(t *testing.T) {
	path := writeScenario(t, `{
		"configurationSpace": {"parameters": {"a": {"items": ["1"]}}},
		"implementation": {
			"instanceSpace": {"semantics": {}},
			"inputFormat": {"callstring": ["$a$"]},
			"executable": "bin/solver"
		}
	}`)

	_, err := Load(path)
	if !errors.HasCode(err, errors.CodeScenario) {
		t.Fatalf("expected a scenario error for missing INSTANCE_FILE, got %v", err)
	}
}

func TestLoad_MissingExecutable(t *testing.T) {
	path := writeScenario(t, `{
		"configurationSpace": {"parameters": {"a": {"items": ["1"]}}},
		"implementation": {
			"instanceSpace": {"semantics": {"INSTANCE_FILE": "ins"}},
			"inputFormat": {"callstring": ["$a$"]}
		}
	}`)

	_, err := Load(path)
	if !errors.HasCode(err, errors.CodeScenario) {
		t.Fatalf("expected a scenario error for missing executable, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.HasCode(err, errors.CodeScenario) {
		t.Fatalf("expected a scenario error for missing file, got %v", err)
	}
}
