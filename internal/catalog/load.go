package catalog

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type overrideFile struct {
	Items []Item `mapstructure:"items"`
}

// Load builds the catalog from the built-in table merged with an optional
// override file (json, toml or yaml, by extension). Entries in the file replace
// built-in items with the same id and add new ones. An empty path yields Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f overrideFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}

	items := builtinItems()
	index := make(map[string]int, len(items))
	for i, it := range items {
		index[it.ID] = i
	}
	replaced, added := 0, 0
	for _, it := range f.Items {
		if i, ok := index[it.ID]; ok {
			items[i] = it
			replaced++
			continue
		}
		index[it.ID] = len(items)
		items = append(items, it)
		added++
	}

	c, err := New(items)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog file %s: %w", path, err)
	}
	log.Info().
		Str("file", path).
		Int("replaced", replaced).
		Int("added", added).
		Int("total", len(c.order)).
		Msg("Catalog loaded")
	return c, nil
}
