// Package scenario ingests the JSON configuration file describing a
// target solver: its parameter space with conditionals, the callstring
// template, output-capture patterns, and the instance variable. Only the
// fields paramsearch needs are consumed; the rest of the format is
// ignored.
package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/yourorg/paramsearch/internal/errors"
	"github.com/yourorg/paramsearch/internal/mctsparam"
)

// Scenario bundles everything read from the JSON configuration file: the
// interned parameter space, the Callstring template and its scenario-space
// constants, the target executable, the stdout/stderr capture patterns, and
// the instance variable name the instance selector feeds into the
// assignment before rendering.
type Scenario struct {
	Registry           *mctsparam.Registry
	CallstringTemplate string
	Executable         string
	StdoutPatterns     []string
	StderrPatterns     []string
	InstanceVariable   string
	Constants          map[string]string
}

// interruptedPattern is appended to the stdout pattern list at load time
// so a timed-out run's capture is detectable without a separate
// out-of-band timeout signal from the prefix wrapper.
const interruptedPattern = `INTERRUPTED : $interrupted$`

type rawDomain struct {
	Items   []any `json:"items"`
	Default any   `json:"default"`
}

type rawConfigurationSpace struct {
	Parameters   map[string]rawDomain            `json:"parameters"`
	Conditionals map[string][]map[string]rawDomain `json:"conditionals"`
}

type rawScenarioSpace struct {
	Parameters map[string]rawDomain `json:"parameters"`
}

type rawImplementation struct {
	InstanceSpace struct {
		Semantics map[string]string `json:"semantics"`
	} `json:"instanceSpace"`
	InputFormat struct {
		Callstring []string `json:"callstring"`
	} `json:"inputFormat"`
	OutputFormat struct {
		Stdout []string `json:"stdout"`
		Stderr []string `json:"stderr"`
	} `json:"outputFormat"`
	Executable string `json:"executable"`
}

type rawScenario struct {
	ConfigurationSpace rawConfigurationSpace `json:"configurationSpace"`
	ScenarioSpace      rawScenarioSpace      `json:"scenarioSpace"`
	Implementation     rawImplementation     `json:"implementation"`
}

// Load reads and parses the scenario JSON file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeScenario, "failed to read scenario file", err).WithDetail("path", path)
	}

	var raw rawScenario
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.CodeScenario, "failed to parse scenario JSON", err).WithDetail("path", path)
	}

	return fromRaw(&raw)
}

func fromRaw(raw *rawScenario) (*Scenario, error) {
	if len(raw.ConfigurationSpace.Parameters) == 0 {
		return nil, errors.ScenarioFieldMissing("configurationSpace.parameters")
	}

	conditionsByName := make(map[string][][]mctsparam.Clause, len(raw.ConfigurationSpace.Conditionals))
	for name, groups := range raw.ConfigurationSpace.Conditionals {
		for _, group := range groups {
			clauses := make([]mctsparam.Clause, 0, len(group))
			for depName, domain := range group {
				clauses = append(clauses, mctsparam.Clause{
					DepName: depName,
					Values:  stringifyAll(domain.Items),
				})
			}
			conditionsByName[name] = append(conditionsByName[name], clauses)
		}
	}

	registry := mctsparam.NewRegistry()
	for name, domain := range raw.ConfigurationSpace.Parameters {
		registry.Intern(&mctsparam.Parameter{
			Name:       name,
			Values:     stringifyAll(domain.Items),
			Conditions: conditionsByName[name],
		})
	}

	constants := make(map[string]string, len(raw.ScenarioSpace.Parameters))
	for name, domain := range raw.ScenarioSpace.Parameters {
		if domain.Default != nil {
			constants[name] = atomToString(domain.Default)
		}
	}

	instanceVar, ok := raw.Implementation.InstanceSpace.Semantics["INSTANCE_FILE"]
	if !ok || instanceVar == "" {
		return nil, errors.ScenarioFieldMissing("implementation.instanceSpace.semantics.INSTANCE_FILE")
	}

	if len(raw.Implementation.InputFormat.Callstring) == 0 {
		return nil, errors.ScenarioFieldMissing("implementation.inputFormat.callstring[0]")
	}
	template := raw.Implementation.InputFormat.Callstring[0]

	if raw.Implementation.Executable == "" {
		return nil, errors.ScenarioFieldMissing("implementation.executable")
	}

	stdout := make([]string, 0, len(raw.Implementation.OutputFormat.Stdout)+1)
	stdout = append(stdout, raw.Implementation.OutputFormat.Stdout...)
	stdout = append(stdout, interruptedPattern)

	return &Scenario{
		Registry:           registry,
		CallstringTemplate: template,
		Executable:         raw.Implementation.Executable,
		StdoutPatterns:     stdout,
		StderrPatterns:     append([]string{}, raw.Implementation.OutputFormat.Stderr...),
		InstanceVariable:   instanceVar,
		Constants:          constants,
	}, nil
}

func stringifyAll(items []any) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = atomToString(v)
	}
	return out
}

// atomToString renders a JSON scalar the way the scenario authors spell
// their domains: bool -> "True"/"False", integral floats -> no decimal
// point.
func atomToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
