package arr

import (
	"fmt"

	"github.com/samvad-hq/trendarr/internal/domain"
)

// Flavor captures the differences between the movie (Radarr) and series (Sonarr) APIs.
type Flavor struct {
	Name           string
	LookupPath     string
	CreatePath     string
	ExclusionPath  string
	IDField        string
	SearchOption   string
	ExclusionTitle string
}

var (
	movieFlavor = Flavor{
		Name:           "radarr",
		LookupPath:     "/api/v3/movie/lookup",
		CreatePath:     "/api/v3/movie",
		ExclusionPath:  "/api/v3/exclusions/paged",
		IDField:        "tmdbId",
		SearchOption:   "searchForMovie",
		ExclusionTitle: "movieTitle",
	}
	seriesFlavor = Flavor{
		Name:           "sonarr",
		LookupPath:     "/api/v3/series/lookup",
		CreatePath:     "/api/v3/series",
		ExclusionPath:  "/api/v3/importlistexclusion/paged",
		IDField:        "tvdbId",
		SearchOption:   "searchForSeries",
		ExclusionTitle: "title",
	}
)

// FlavorFor returns the API flavor serving kind.
func FlavorFor(kind domain.MediaKind) (Flavor, error) {
	switch kind {
	case domain.KindMovie:
		return movieFlavor, nil
	case domain.KindSeries:
		return seriesFlavor, nil
	default:
		return Flavor{}, fmt.Errorf("no downstream flavor for kind %q", kind)
	}
}

const (
	qualityProfilePath = "/api/v3/qualityprofile"
	rootFolderPath     = "/api/v3/rootfolder"
)
