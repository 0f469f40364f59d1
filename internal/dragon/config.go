package dragon

import (
	"github.com/wfunc/dragon-companion/internal/config"
)

// Rules 模拟引擎的可配置参数
type Rules struct {
	FeedBaselineHunger    int
	PlayBaselineHappiness int
	PlayBaselineBond      int
	MaxGiftMessageLength  int
}

// DefaultRules 默认参数
func DefaultRules() Rules {
	return Rules{
		FeedBaselineHunger:    5,
		PlayBaselineHappiness: 5,
		PlayBaselineBond:      2,
		MaxGiftMessageLength:  500,
	}
}

// LoadCatalog 以内置目录为基础，叠加配置中的物品
func LoadCatalog(cfg config.DragonConfig) (*Catalog, error) {
	items := DefaultItems()
	for _, ic := range cfg.Items {
		effects := make(Effects, len(ic.Effects))
		for stat, delta := range ic.Effects {
			effects[Stat(stat)] = delta
		}
		rarity := Rarity(ic.Rarity)
		if rarity == "" {
			rarity = RarityCommon
		}
		name := ic.Name
		if name == "" {
			name = ic.ID
		}
		items = append(items, ItemDefinition{
			ID:       ic.ID,
			Name:     name,
			Category: Category(ic.Category),
			Rarity:   rarity,
			Effects:  effects,
		})
	}

	version := cfg.CatalogVersion
	if version == "" {
		version = DefaultCatalogVersion
	}
	return NewCatalog(version, items)
}

// LoadActivityTable 以内置奖励表为基础，叠加配置中的活动
func LoadActivityTable(cfg config.DragonConfig) ActivityTable {
	table := DefaultActivityTable()
	for name, ac := range cfg.Activities {
		table[name] = ActivityReward{
			XP:         int64(ac.XP),
			ItemPool:   append([]string(nil), ac.ItemPool...),
			ItemChance: ac.ItemChance,
		}
	}
	return table
}

// LoadRules 读取基础效果参数
func LoadRules(cfg config.DragonConfig) Rules {
	rules := DefaultRules()
	rules.FeedBaselineHunger = cfg.FeedBaselineHunger
	rules.PlayBaselineHappiness = cfg.PlayBaselineHappiness
	rules.PlayBaselineBond = cfg.PlayBaselineBond
	if cfg.MaxGiftMessageLength > 0 {
		rules.MaxGiftMessageLength = cfg.MaxGiftMessageLength
	}
	return rules
}
