package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Rules carries the domain knowledge the pipeline consults: mutually
// exclusive technology groups, topical domain tags, tag pairs that may
// never match, and entity disambiguation rules.
type Rules struct {
	TechnologyGroups [][]string   `json:"technology_groups"`
	DomainTags       []DomainTag  `json:"domain_tags"`
	IncompatibleTags [][]string   `json:"incompatible_tags"`
	Entities         []EntityRule `json:"entities"`
}

// DomainTag maps a topical tag to the keywords that trigger it.
type DomainTag struct {
	Tag      string   `json:"tag"`
	Keywords []string `json:"keywords"`
}

// EntityRule disambiguates a named entity from its near-collisions.
// A rule fires when all Triggers appear in the query; content that
// carries ExcludeKeywords without RequiredInContent is treated as
// belonging to a different entity.
type EntityRule struct {
	Name              string   `json:"name"`
	Triggers          []string `json:"triggers"`
	RequiredInContent []string `json:"required_in_content"`
	StockSymbols      []string `json:"stock_symbols"`
	IndustryKeywords  []string `json:"industry_keywords"`
	ExcludeKeywords   []string `json:"exclude_keywords"`
}

// LoadRules reads rules from a JSON file, falling back to the built-in
// defaults when path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var rules Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return &rules, nil
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	return &Rules{
		TechnologyGroups: [][]string{
			{"playwright", "selenium", "puppeteer"},
			{"react", "vue", "angular"},
			{"mysql", "postgresql", "mongodb"},
			{"aws", "azure", "gcp"},
			{"docker", "kubernetes"},
			{"iphone 14", "iphone 15", "iphone 16"},
			{"python 2", "python 3"},
		},
		DomainTags: []DomainTag{
			{Tag: "programming", Keywords: []string{
				"python", "javascript", "golang", "java", "rust", "code",
				"programming", "framework", "library", "api", "sdk",
			}},
			{Tag: "finance", Keywords: []string{
				"stock", "share", "price", "market", "nse", "bse", "dividend",
				"investment", "trading", "earnings",
			}},
			{Tag: "automotive", Keywords: []string{
				"car", "vehicle", "motor", "automobile", "suv", "ev",
			}},
			{Tag: "metallurgy", Keywords: []string{
				"steel", "iron", "alloy", "smelting", "ore",
			}},
			{Tag: "health", Keywords: []string{
				"symptom", "disease", "treatment", "medicine", "vaccine",
			}},
			{Tag: "travel", Keywords: []string{
				"flight", "hotel", "visa", "itinerary", "tourism",
			}},
			{Tag: "sports", Keywords: []string{
				"match", "score", "tournament", "league", "cricket", "football",
			}},
		},
		IncompatibleTags: [][]string{
			{"finance", "health"},
			{"programming", "travel"},
			{"sports", "metallurgy"},
		},
		Entities: []EntityRule{
			{
				Name:              "tata steel",
				Triggers:          []string{"tata", "steel"},
				RequiredInContent: []string{"tata steel"},
				StockSymbols:      []string{"NSE:TATASTEEL", "TATASTEEL"},
				IndustryKeywords:  []string{"steel", "metal", "mining", "alloy"},
				ExcludeKeywords:   []string{"tata motors", "TATAMOTORS", "nexon", "harrier", "safari"},
			},
			{
				Name:              "tata motors",
				Triggers:          []string{"tata", "motors"},
				RequiredInContent: []string{"tata motors"},
				StockSymbols:      []string{"NSE:TATAMOTORS", "TATAMOTORS"},
				IndustryKeywords:  []string{"car", "vehicle", "automotive", "ev"},
				ExcludeKeywords:   []string{"tata steel", "TATASTEEL", "jamshedpur plant", "steel plant"},
			},
			{
				Name:              "apple inc",
				Triggers:          []string{"apple", "stock"},
				RequiredInContent: []string{"apple"},
				StockSymbols:      []string{"NASDAQ:AAPL", "AAPL"},
				IndustryKeywords:  []string{"iphone", "mac", "technology"},
				ExcludeKeywords:   []string{"apple fruit", "orchard", "cider"},
			},
		},
	}
}
