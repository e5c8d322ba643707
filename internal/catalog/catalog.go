// Package catalog loads the declarative consent-rule and blocklist-source catalogs.
package catalog

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"ConsentCrawl/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed assets/consent_managers.yml assets/blocklists.yml
var assets embed.FS

const (
	defaultRulesFile      = "assets/consent_managers.yml"
	defaultBlocklistsFile = "assets/blocklists.yml"
)

// ruleDoc is the YAML shape of a consent rule
type ruleDoc struct {
	ID      string      `yaml:"id"`
	Actions []actionDoc `yaml:"actions"`
}

// actionDoc is the YAML shape of a single action; value is a string or a list
type actionDoc struct {
	Type  string    `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

// LoadConsentRules reads the consent-rule catalog at path, or the embedded default when path is empty
func LoadConsentRules(path string) ([]models.ConsentRule, error) {
	data, err := read(path, defaultRulesFile)
	if err != nil {
		return nil, err
	}
	return ParseConsentRules(data)
}

// ParseConsentRules decodes a consent-rule catalog. Catalog order is preserved.
func ParseConsentRules(data []byte) ([]models.ConsentRule, error) {
	var docs []ruleDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: malformed consent catalog: %v", models.ErrConfig, err)
	}

	seen := make(map[string]struct{}, len(docs))
	rules := make([]models.ConsentRule, 0, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("%w: consent rule %d has no id", models.ErrConfig, i)
		}
		if _, dup := seen[doc.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate consent rule id %q", models.ErrConfig, doc.ID)
		}
		seen[doc.ID] = struct{}{}

		actions := make([]models.Action, 0, len(doc.Actions))
		for j, a := range doc.Actions {
			action, err := decodeAction(a)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %q action %d: %v", models.ErrConfig, doc.ID, j, err)
			}
			actions = append(actions, action)
		}

		rules = append(rules, models.ConsentRule{ID: doc.ID, Actions: actions})
	}

	return rules, nil
}

func decodeAction(doc actionDoc) (models.Action, error) {
	switch doc.Type {
	case models.ActionTypeIframe:
		sel, err := scalar(doc.Value)
		return models.IframeAction{Selector: sel}, err
	case models.ActionTypeCSSSelector:
		sel, err := scalar(doc.Value)
		return models.CSSSelectorAction{Selector: sel}, err
	case models.ActionTypeCSSSelectorList:
		var selectors []string
		if err := doc.Value.Decode(&selectors); err != nil {
			return nil, fmt.Errorf("css-selector-list value must be a list: %v", err)
		}
		if len(selectors) == 0 {
			return nil, fmt.Errorf("css-selector-list is empty")
		}
		return models.CSSSelectorListAction{Selectors: selectors}, nil
	case models.ActionTypeXPath:
		expr, err := scalar(doc.Value)
		return models.XPathAction{Expr: expr}, err
	default:
		return nil, fmt.Errorf("unknown action type %q", doc.Type)
	}
}

func scalar(node yaml.Node) (string, error) {
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("value must be a string")
	}
	value := strings.TrimSpace(node.Value)
	if value == "" {
		return "", fmt.Errorf("value is empty")
	}
	return value, nil
}

// LoadBlocklistSources reads the blocklist-source catalog at path, or the embedded default when path is empty
func LoadBlocklistSources(path string) ([]models.BlocklistSource, error) {
	data, err := read(path, defaultBlocklistsFile)
	if err != nil {
		return nil, err
	}
	return ParseBlocklistSources(data)
}

// ParseBlocklistSources decodes a blocklist-source catalog.
// Formats are validated by the store when the index is rebuilt.
func ParseBlocklistSources(data []byte) ([]models.BlocklistSource, error) {
	var sources []models.BlocklistSource
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("%w: malformed blocklist catalog: %v", models.ErrConfig, err)
	}
	return sources, nil
}

func read(path, fallback string) ([]byte, error) {
	if path == "" {
		return assets.ReadFile(fallback)
	}
	if !strings.HasSuffix(path, ".yml") && !strings.HasSuffix(path, ".yaml") {
		return nil, fmt.Errorf("%w: catalog %s is not a YAML file", models.ErrConfig, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read catalog: %v", models.ErrConfig, err)
	}
	return data, nil
}
