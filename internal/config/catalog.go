package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var defaultCatalog []byte

// ModelSpec は選択可能な生成モデル1件の定義。
type ModelSpec struct {
	ID          string `yaml:"id"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

// ModelCatalog は選択可能なモデルの一覧と既定モデル。
type ModelCatalog struct {
	Default string      `yaml:"default"`
	Models  []ModelSpec `yaml:"models"`
}

// IDs はモデルIDを定義順に返す。
func (c ModelCatalog) IDs() []string {
	ids := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		ids = append(ids, m.ID)
	}
	return ids
}

// Has は指定IDのモデルがカタログにあるかを返す。
func (c ModelCatalog) Has(id string) bool {
	for _, m := range c.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// LoadCatalog はモデルカタログを読み込む。pathが空の場合は組み込みのカタログを使う。
func LoadCatalog(path string) (ModelCatalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return ModelCatalog{}, fmt.Errorf("failed to read model catalog: %w", err)
		}
		data = b
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (ModelCatalog, error) {
	var c ModelCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return ModelCatalog{}, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	if len(c.Models) == 0 {
		return ModelCatalog{}, errors.New("model catalog has no models")
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.ID == "" {
			return ModelCatalog{}, errors.New("model catalog entry is missing an id")
		}
		if seen[m.ID] {
			return ModelCatalog{}, fmt.Errorf("duplicate model in catalog: %s", m.ID)
		}
		seen[m.ID] = true
	}
	if c.Default == "" {
		c.Default = c.Models[0].ID
	}
	if !c.Has(c.Default) {
		return ModelCatalog{}, fmt.Errorf("default model %q is not in the catalog", c.Default)
	}
	return c, nil
}
