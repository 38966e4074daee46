package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aretw0/scenestack/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Script is a scripted scene scenario: a catalog of scene behaviours and the steps driven
// against it.
type Script struct {
	Name   string                         `yaml:"name"`
	Scenes map[domain.SceneType]SceneSpec `yaml:"scenes"`
	Steps  []Step                         `yaml:"steps"`
}

// SceneSpec declares what a scripted scene does with its collaborators.
type SceneSpec struct {
	// Dialog registers the scene as a dialog. Scripted dialogs answer as soon as they
	// are shown: with Answer when set, otherwise with their argument.
	Dialog bool `yaml:"dialog"`
	Answer any  `yaml:"answer"`

	// EngineScene is loaded additively on enter and unloaded on exit.
	EngineScene string `yaml:"engine_scene"`
	// BGM is played on enter and on resume.
	BGM string `yaml:"bgm"`
	// StageBGM treats the entry argument as a stage id and plays that stage's BGM from
	// master data.
	StageBGM bool `yaml:"stage_bgm"`
	// FailEnter makes every enter fail after the collaborators were touched.
	FailEnter bool `yaml:"fail_enter"`
}

// Step is one scripted action plus optional expectations checked after it.
// Exactly one action field must be set.
type Step struct {
	Transition    domain.SceneType `yaml:"transition"`
	Dialog        domain.SceneType `yaml:"dialog"`
	Back          bool             `yaml:"back"`
	Terminate     domain.SceneType `yaml:"terminate"`
	TerminateLast bool             `yaml:"terminate_last"`
	Save          string           `yaml:"save"`
	Restore       string           `yaml:"restore"`
	Reset         bool             `yaml:"reset"`

	Arg          any    `yaml:"arg"`
	Ops          string `yaml:"ops"`
	ClearHistory bool   `yaml:"clear_history"`

	ExpectStack  []domain.SceneType `yaml:"expect_stack"`
	ExpectResult any                `yaml:"expect_result"`
	ExpectError  string             `yaml:"expect_error"`
}

// Action names the step's action.
func (s Step) Action() string {
	actions := s.actions()
	if len(actions) == 1 {
		return actions[0]
	}
	return ""
}

func (s Step) actions() []string {
	var out []string
	if s.Transition != "" {
		out = append(out, "transition")
	}
	if s.Dialog != "" {
		out = append(out, "dialog")
	}
	if s.Back {
		out = append(out, "back")
	}
	if s.Terminate != "" {
		out = append(out, "terminate")
	}
	if s.TerminateLast {
		out = append(out, "terminate_last")
	}
	if s.Save != "" {
		out = append(out, "save")
	}
	if s.Restore != "" {
		out = append(out, "restore")
	}
	if s.Reset {
		out = append(out, "reset")
	}
	return out
}

// Describe renders the step for output.
func (s Step) Describe() string {
	switch s.Action() {
	case "transition":
		ops := s.Ops
		if ops == "" {
			ops = "default"
		}
		return fmt.Sprintf("transition %s [%s]", s.Transition, ops)
	case "dialog":
		return fmt.Sprintf("dialog %s", s.Dialog)
	case "terminate":
		return fmt.Sprintf("terminate %s", s.Terminate)
	case "save":
		return fmt.Sprintf("save %s", s.Save)
	case "restore":
		return fmt.Sprintf("restore %s", s.Restore)
	default:
		return strings.ReplaceAll(s.Action(), "_", " ")
	}
}

// LoadScript reads and validates a YAML script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the scene references and step shapes.
func (s *Script) Validate() error {
	var errs []error
	if len(s.Scenes) == 0 {
		errs = append(errs, errors.New("script declares no scenes"))
	}
	for name, spec := range s.Scenes {
		if spec.Dialog && (spec.EngineScene != "" || spec.StageBGM) {
			errs = append(errs, fmt.Errorf("scene %s: dialogs cannot load engine scenes or stage BGM", name))
		}
	}
	for i, step := range s.Steps {
		actions := step.actions()
		switch len(actions) {
		case 0:
			errs = append(errs, fmt.Errorf("step %d: no action", i+1))
			continue
		case 1:
		default:
			errs = append(errs, fmt.Errorf("step %d: multiple actions %v", i+1, actions))
			continue
		}
		for _, ref := range []domain.SceneType{step.Transition, step.Dialog, step.Terminate} {
			if _, ok := s.Scenes[ref]; ref != "" && !ok {
				errs = append(errs, fmt.Errorf("step %d: undeclared scene %s", i+1, ref))
			}
		}
		if _, ok := domain.ParseOperations(step.Ops); !ok {
			errs = append(errs, fmt.Errorf("step %d: invalid ops %q", i+1, step.Ops))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid script: %w", err)
	}
	return nil
}

// SceneTypes returns the declared scene types in sorted order.
func (s *Script) SceneTypes() []domain.SceneType {
	out := make([]domain.SceneType, 0, len(s.Scenes))
	for name := range s.Scenes {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Script) needsMasterData() bool {
	for _, spec := range s.Scenes {
		if spec.StageBGM {
			return true
		}
	}
	return false
}
