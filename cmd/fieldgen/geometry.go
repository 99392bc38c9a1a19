package main

import (
	"gesim/pkg/config"
	"gesim/pkg/geometry"
)

func crystalFromConfig(cfg *config.Config) geometry.Crystal {
	return geometry.Crystal{
		Length:           cfg.XtalLength,
		Radius:           cfg.XtalRadius,
		TopBulletRadius:  cfg.TopBulletRadius,
		PCLength:         cfg.PCLength,
		PCRadius:         cfg.PCRadius,
		TaperLength:      cfg.TaperLength,
		WrapAroundRadius: cfg.WrapAroundRadius,
		DitchDepth:       cfg.DitchDepth,
		DitchThickness:   cfg.DitchThickness,
	}
}
