package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/scenestack"
	"github.com/aretw0/scenestack/pkg/adapters/memory"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/ports"
	"github.com/aretw0/scenestack/pkg/registry"
	"github.com/aretw0/scenestack/pkg/scene"
)

// Environment is a Director wired to in-memory collaborators and a scripted catalog.
type Environment struct {
	Director *scenestack.Director
	Assets   *memory.AssetLoader
	Audio    *memory.AudioPlayer
}

// NewEnvironment builds the catalog declared by script and a Director over it. md may be
// nil when no scene uses stage lookups. The registry is finalized before returning.
func NewEnvironment(script *Script, md ports.MasterData, opts ...scenestack.Option) (*Environment, error) {
	env := &Environment{
		Assets: memory.NewAssetLoader(nil),
		Audio:  memory.NewAudioPlayer(),
	}

	reg := registry.New()
	registry.MustRegister[ports.AssetLoader](reg, scenestack.AssetsKey, env.Assets)
	registry.MustRegister[ports.AudioPlayer](reg, scenestack.AudioKey, env.Audio)
	audio := registry.NewHandle(reg, scenestack.AudioKey)

	var stages *registry.Handle[ports.MasterData]
	if script.needsMasterData() {
		stages = registry.NewHandle(reg, scenestack.MasterDataKey)
		if md != nil {
			registry.MustRegister(reg, scenestack.MasterDataKey, md)
		}
	}

	catalog := scene.NewCatalog()
	for _, name := range script.SceneTypes() {
		name := name
		spec := script.Scenes[name]
		var err error
		if spec.Dialog {
			err = catalog.RegisterDialog(name, func() scene.Node {
				return &scriptDialog{spec: spec, audio: audio}
			})
		} else {
			err = catalog.Register(name, func() scene.Node {
				return &scriptScene{name: name, spec: spec, env: env, audio: audio, stages: stages}
			})
		}
		if err != nil {
			return nil, err
		}
	}

	d, err := scenestack.New(catalog, append([]scenestack.Option{scenestack.WithRegistry(reg)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := d.Finalize(); err != nil {
		return nil, fmt.Errorf("failed to wire services: %w", err)
	}
	env.Director = d
	return env, nil
}

// scriptScene is a full scene driven by a SceneSpec.
type scriptScene struct {
	scene.Base
	name   domain.SceneType
	spec   SceneSpec
	env    *Environment
	audio  *registry.Handle[ports.AudioPlayer]
	stages *registry.Handle[ports.MasterData]

	handle ports.EngineSceneHandle
	bgm    string
}

func (s *scriptScene) Enter(ctx context.Context, arg any) error {
	if s.spec.EngineScene != "" {
		h, err := s.env.Director.LoadEngineScene(ctx, s.spec.EngineScene, ports.LoadAdditive, true)
		if err != nil {
			return err
		}
		s.handle = h
	}

	s.bgm = s.spec.BGM
	if s.spec.StageBGM {
		stage, err := s.stage(arg)
		if err != nil {
			return err
		}
		s.bgm = stage
	}
	if s.spec.FailEnter {
		return fmt.Errorf("scene %s refused to enter", s.name)
	}
	return s.play(ctx)
}

func (s *scriptScene) stage(arg any) (string, error) {
	id, err := toInt(arg)
	if err != nil {
		return "", fmt.Errorf("scene %s: stage id: %w", s.name, err)
	}
	db, err := s.stages.Get()
	if err != nil {
		return "", err
	}
	st, ok := db.Stage(id)
	if !ok {
		return "", fmt.Errorf("scene %s: unknown stage %d", s.name, id)
	}
	return st.BGM, nil
}

func (s *scriptScene) Resume(ctx context.Context) error {
	return s.play(ctx)
}

func (s *scriptScene) Exit(ctx context.Context) error {
	if s.handle.ID == "" {
		return nil
	}
	h := s.handle
	s.handle = ports.EngineSceneHandle{}
	return s.env.Director.UnloadEngineScene(ctx, h)
}

func (s *scriptScene) play(ctx context.Context) error {
	if s.bgm == "" {
		return nil
	}
	player, err := s.audio.Get()
	if err != nil {
		return err
	}
	return player.Play(ctx, "bgm", s.bgm)
}

// scriptDialog answers as soon as it is shown.
type scriptDialog struct {
	scene.DialogBase
	spec  SceneSpec
	audio *registry.Handle[ports.AudioPlayer]
}

func (d *scriptDialog) Enter(ctx context.Context, arg any) error {
	if d.spec.BGM != "" {
		player, err := d.audio.Get()
		if err != nil {
			return err
		}
		if err := player.Play(ctx, "se", d.spec.BGM); err != nil {
			return err
		}
	}
	if d.spec.FailEnter {
		return fmt.Errorf("dialog refused to open")
	}
	answer := d.spec.Answer
	if answer == nil {
		answer = arg
	}
	return d.Close(answer)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("%v (%T) is not a number", v, v)
	}
}
