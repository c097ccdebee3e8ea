package registry

import (
	"github.com/arthur-debert/dataprov/pkg/dataset"
)

var (
	hooks   = New[dataset.Hook]("post-process hook")
	loaders = New[dataset.Loader]("loader")
)

// RegisterHook makes a post-process hook available to specs by name.
func RegisterHook(name string, h dataset.Hook) error {
	return hooks.Register(name, h)
}

// Hook looks up a post-process hook.
func Hook(name string) (dataset.Hook, error) {
	return hooks.Get(name)
}

// Hooks lists the registered hook names.
func Hooks() []string {
	return hooks.List()
}

// RegisterLoader makes a loader available to specs by name.
func RegisterLoader(name string, l dataset.Loader) error {
	return loaders.Register(name, l)
}

// Loader looks up a loader.
func Loader(name string) (dataset.Loader, error) {
	return loaders.Get(name)
}

// Loaders lists the registered loader names.
func Loaders() []string {
	return loaders.List()
}
