/*
Package scenestack is the scene and service orchestration core of a game client.

It keeps a history stack of scene nodes, drives each node through its
enter/sleep/resume/exit lifecycle and overlays dialogs that return a typed result to
their caller. Collaborators (asset loading, audio, master data) are bound in a service
registry and resolved lazily, and settled transitions are announced on a typed message
broker.

# Concept

A scene type is registered in a scene.Catalog with a factory. Every transition builds a
fresh node from that factory. The active scene decides, through domain.Operations, whether
the scene it replaces is terminated, put to sleep for back-navigation, or rebuilt.

Only one transition runs at a time. A second request while one is in flight fails with
domain.ErrTransitionInProgress. A transition whose enter hook fails, or whose context is
cancelled before the enter hook settles, is rolled back: the stack is left exactly as it
was.

# Usage

	catalog := scene.NewCatalog()
	catalog.Register("title", func() scene.Node { return &TitleScene{} })
	catalog.RegisterDialog("confirm", func() scene.Node { return &ConfirmDialog{} })

	director, err := scenestack.New(catalog, scenestack.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	registry.MustRegister[ports.AssetLoader](director.Registry(), scenestack.AssetsKey, loader)

	ctx := context.Background()
	if err := director.TransitionTo(ctx, "title", nil); err != nil {
		log.Fatal(err)
	}

	ok, err := scenestack.TransitionDialog[bool](ctx, director, "confirm", "Quit?", nil)
*/
package scenestack
