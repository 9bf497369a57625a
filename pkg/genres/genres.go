// Package genres wires the built-in genre handlers into a registry.
package genres

import (
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/genres/ogc"
	"github.com/matzehuels/mapstack/pkg/genres/tile"
	"github.com/matzehuels/mapstack/pkg/genres/vector"
)

// Register adds every built-in genre to reg. The OGC genres fetch their
// capabilities through f.
func Register(reg *genre.Registry, f ogc.Fetcher) error {
	for _, h := range Handlers(f) {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}

// Handlers returns the built-in handlers.
func Handlers(f ogc.Fetcher) []genre.Handler {
	return []genre.Handler{
		tile.NewOSM(),
		tile.NewXYZ(),
		vector.New(),
		ogc.NewWMS(f),
		ogc.NewWMSTiled(f),
		ogc.NewWFS(f),
		ogc.NewWMTS(f),
	}
}

// NewRegistry returns a registry holding the built-in genres.
func NewRegistry(f ogc.Fetcher) *genre.Registry {
	reg := genre.NewRegistry()
	reg.MustRegister(Handlers(f)...)
	return reg
}
