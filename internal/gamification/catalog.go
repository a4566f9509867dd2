package gamification

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	AchievementFirstJob   = "first_job"
	AchievementJobMaster  = "job_master"
	AchievementSpeedDemon = "speed_demon"
	AchievementOnFire     = "on_fire"
)

//go:embed achievements.yaml
var defaultCatalogYAML []byte

type Achievement struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon"`
}

type Catalog struct {
	byID  map[string]Achievement
	order []string
}

func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var doc struct {
		Achievements []Achievement `yaml:"achievements"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse achievement catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]Achievement, len(doc.Achievements))}
	for _, a := range doc.Achievements {
		if a.ID == "" {
			return nil, fmt.Errorf("achievement without id")
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate achievement %q", a.ID)
		}
		c.byID[a.ID] = a
		c.order = append(c.order, a.ID)
	}
	return c, nil
}

func (c *Catalog) Get(id string) (Achievement, bool) {
	a, ok := c.byID[id]
	return a, ok
}

func (c *Catalog) All() []Achievement {
	out := make([]Achievement, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
