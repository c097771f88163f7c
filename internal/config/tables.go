package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/bizdash/internal/table"
)

// TableSettings overrides table behaviour for one entity.
//
//	items_per_page: 10        # client-side table page size
//	per_page: 25              # server page size
//	badges:                   # column header -> value -> variant
//	  Status:
//	    on_leave: destructive
type TableSettings struct {
	ItemsPerPage int                          `yaml:"items_per_page"`
	PerPage      int                          `yaml:"per_page"`
	Badges       map[string]map[string]string `yaml:"badges"`
}

// TablesFile is the document TABLES_CONFIG points to.
type TablesFile struct {
	Defaults TableSettings            `yaml:"defaults"`
	Entities map[string]TableSettings `yaml:"entities"`
}

// LoadTables reads and validates a tables file. An empty path yields an
// empty document.
func LoadTables(path string) (*TablesFile, error) {
	if path == "" {
		return &TablesFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables config: %w", err)
	}
	tf, err := ParseTables(data)
	if err != nil {
		return nil, fmt.Errorf("tables config %s: %w", path, err)
	}
	return tf, nil
}

// ParseTables decodes and validates a tables document.
func ParseTables(data []byte) (*TablesFile, error) {
	var tf TablesFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := tf.validate(); err != nil {
		return nil, err
	}
	return &tf, nil
}

func (tf *TablesFile) validate() error {
	check := func(scope string, s TableSettings) error {
		if s.ItemsPerPage < 0 {
			return fmt.Errorf("%s: items_per_page must be non-negative", scope)
		}
		if s.PerPage < 0 {
			return fmt.Errorf("%s: per_page must be non-negative", scope)
		}
		for column, values := range s.Badges {
			for value, variant := range values {
				if _, ok := table.ParseVariant(variant); !ok {
					return fmt.Errorf("%s: badge %s/%s: unknown variant %q", scope, column, value, variant)
				}
			}
		}
		return nil
	}

	if err := check("defaults", tf.Defaults); err != nil {
		return err
	}
	keys := make([]string, 0, len(tf.Entities))
	for k := range tf.Entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := check(k, tf.Entities[k]); err != nil {
			return err
		}
	}
	return nil
}

// For returns the effective settings of one entity: the entity's own values
// over the defaults. Badge overrides are merged per column.
func (tf *TablesFile) For(key string) TableSettings {
	if tf == nil {
		return TableSettings{}
	}
	out := TableSettings{
		ItemsPerPage: tf.Defaults.ItemsPerPage,
		PerPage:      tf.Defaults.PerPage,
		Badges:       make(map[string]map[string]string),
	}
	merge := func(src map[string]map[string]string) {
		for column, values := range src {
			if out.Badges[column] == nil {
				out.Badges[column] = make(map[string]string)
			}
			for v, variant := range values {
				out.Badges[column][v] = variant
			}
		}
	}
	merge(tf.Defaults.Badges)

	if s, ok := tf.Entities[key]; ok {
		if s.ItemsPerPage > 0 {
			out.ItemsPerPage = s.ItemsPerPage
		}
		if s.PerPage > 0 {
			out.PerPage = s.PerPage
		}
		merge(s.Badges)
	}
	return out
}
