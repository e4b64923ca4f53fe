// README: Route loading: embedded Red Line, YAML station files, GTFS static feeds.
package transit

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"maroonline/internal/modules/matching"
)

//go:embed redline.yaml
var redLineYAML []byte

type routeFile struct {
	Name     string             `yaml:"name"`
	Stations []matching.Station `yaml:"stations"`
}

// DefaultRoute returns the CTA Red Line.
func DefaultRoute() (*matching.Route, error) {
	return ParseRoute(redLineYAML)
}

// LoadRouteFile reads a YAML station list from path.
func LoadRouteFile(path string) (*matching.Route, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}
	return ParseRoute(b)
}

func ParseRoute(data []byte) (*matching.Route, error) {
	var f routeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse route: %w", err)
	}
	return matching.NewRoute(f.Name, f.Stations)
}

// RouteSource names where the station list comes from. A GTFS feed wins over
// a YAML file; with neither set the embedded Red Line is used.
type RouteSource struct {
	File        string
	GTFSPath    string
	GTFSRouteID string
}

func LoadRoute(src RouteSource) (*matching.Route, error) {
	switch {
	case src.GTFSPath != "":
		return LoadRouteFromGTFS(src.GTFSPath, src.GTFSRouteID)
	case src.File != "":
		return LoadRouteFile(src.File)
	default:
		return DefaultRoute()
	}
}
