// Package regions holds the static region set of a session and the one-shot
// loader of their boundary geometry.
package regions

import (
	"fmt"
	"slices"

	"heatwatch/internal/types"
)

// builtin lists the regions the dashboard knows about. Centroids are the
// state capitals; bounds are coarse boxes used for heat sampling; densities
// are inhabitants per km².
var builtin = []types.Region{
	{
		ID:       "SP",
		Name:     "São Paulo",
		Centroid: types.Coordinate{Lat: -23.5505, Lon: -46.6333},
		Bounds:   types.BoundingBox{MinLat: -24, MaxLat: -20, MinLon: -54, MaxLon: -44},
		Density:  166.23,
	},
	{
		ID:       "GO",
		Name:     "Goiás",
		Centroid: types.Coordinate{Lat: -16.6869, Lon: -49.2648},
		Bounds:   types.BoundingBox{MinLat: -19.5, MaxLat: -12, MinLon: -52, MaxLon: -46},
		Density:  17.74,
	},
}

// Catalog is an ordered, immutable set of regions.
type Catalog struct {
	regions []types.Region
	byID    map[types.RegionID]int
}

// NewCatalog validates the regions and indexes them by id. Order is kept.
func NewCatalog(regions []types.Region) (*Catalog, error) {
	c := &Catalog{
		regions: make([]types.Region, 0, len(regions)),
		byID:    make(map[types.RegionID]int, len(regions)),
	}
	for _, r := range regions {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate region %s", r.ID)
		}
		c.byID[r.ID] = len(c.regions)
		c.regions = append(c.regions, r)
	}
	return c, nil
}

// Builtin returns the catalog of every known region.
func Builtin() *Catalog {
	c, err := NewCatalog(builtin)
	if err != nil {
		panic(err)
	}
	return c
}

// Select returns a catalog restricted to ids, in the order given. An id the
// catalog does not know is a validation error.
func (c *Catalog) Select(ids []string) (*Catalog, error) {
	picked := make([]types.Region, 0, len(ids))
	for _, raw := range ids {
		id, err := types.ParseRegionID(raw)
		if err != nil {
			return nil, err
		}
		r, ok := c.Lookup(id)
		if !ok {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeValidationUnknownRegion,
				fmt.Sprintf("unknown region %q", raw),
				nil,
				map[string]any{"region": string(id), "known": c.IDs()},
			)
		}
		picked = append(picked, r)
	}
	return NewCatalog(picked)
}

// Lookup returns the region with the given id.
func (c *Catalog) Lookup(id types.RegionID) (types.Region, bool) {
	i, ok := c.byID[id]
	if !ok {
		return types.Region{}, false
	}
	return c.regions[i], true
}

// Regions returns a copy of the regions in catalog order.
func (c *Catalog) Regions() []types.Region {
	return slices.Clone(c.regions)
}

// IDs returns the region ids in catalog order.
func (c *Catalog) IDs() []types.RegionID {
	ids := make([]types.RegionID, len(c.regions))
	for i, r := range c.regions {
		ids[i] = r.ID
	}
	return ids
}

// Len returns the number of regions.
func (c *Catalog) Len() int { return len(c.regions) }
