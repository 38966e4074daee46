/*
Package registry is the process-wide service locator.

Capabilities are addressed by typed keys instead of reflection:

	var AssetsKey = registry.NewKey[ports.AssetLoader]("assets")

	reg := registry.New()
	assets := registry.NewHandle(reg, AssetsKey) // usable before binding
	registry.MustRegister(reg, AssetsKey, loader)
	if err := reg.Finalize(); err != nil { ... } // every handle resolved or reported

A Handle resolves once and caches forever.
*/
package registry
