package dragon

import (
	"sort"

	apperrors "github.com/wfunc/dragon-companion/internal/errors"
)

// Category 物品类别
type Category string

const (
	CategoryFood      Category = "food"
	CategoryTreat     Category = "treat"
	CategoryToy       Category = "toy"
	CategoryAccessory Category = "accessory"
)

// Valid 是否为合法类别
func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTreat, CategoryToy, CategoryAccessory:
		return true
	}
	return false
}

// Rarity 稀有度
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Valid 是否为合法稀有度
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

// ItemDefinition 物品定义
type ItemDefinition struct {
	ID       string   `json:"item_id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Rarity   Rarity   `json:"rarity"`
	Effects  Effects  `json:"effects"`
}

// Catalog 物品目录，启动时加载后只读
type Catalog struct {
	version string
	items   map[string]ItemDefinition
	order   []string
}

// DefaultCatalogVersion 内置目录版本
const DefaultCatalogVersion = "2024.1"

// DefaultItems 内置物品定义
func DefaultItems() []ItemDefinition {
	return []ItemDefinition{
		{ID: "apple", Name: "Apple", Category: CategoryFood, Rarity: RarityCommon, Effects: Effects{StatHunger: 10}},
		{ID: "fish", Name: "Fish", Category: CategoryFood, Rarity: RarityCommon, Effects: Effects{StatHunger: 20, StatHealth: 5}},
		{ID: "steak", Name: "Steak", Category: CategoryFood, Rarity: RarityUncommon, Effects: Effects{StatHunger: 35, StatHealth: 10}},
		{ID: "berry_bowl", Name: "Berry Bowl", Category: CategoryFood, Rarity: RarityCommon, Effects: Effects{StatHunger: 15, StatHappiness: 5}},
		{ID: "cookie", Name: "Cookie", Category: CategoryTreat, Rarity: RarityCommon, Effects: Effects{StatHappiness: 10, StatHunger: 5}},
		{ID: "cake", Name: "Cake", Category: CategoryTreat, Rarity: RarityUncommon, Effects: Effects{StatHappiness: 20, StatBond: 5}},
		{ID: "golden_honey", Name: "Golden Honey", Category: CategoryTreat, Rarity: RarityRare, Effects: Effects{StatHappiness: 25, StatHealth: 15, StatBond: 10}},
		{ID: "ball", Name: "Ball", Category: CategoryToy, Rarity: RarityCommon, Effects: Effects{StatHappiness: 15, StatBond: 5}},
		{ID: "feather", Name: "Feather", Category: CategoryToy, Rarity: RarityCommon, Effects: Effects{StatHappiness: 10, StatBond: 3}},
		{ID: "puzzle_cube", Name: "Puzzle Cube", Category: CategoryToy, Rarity: RarityRare, Effects: Effects{StatHappiness: 20, StatBond: 10}},
		{ID: "heart_necklace", Name: "Heart Necklace", Category: CategoryAccessory, Rarity: RarityRare},
		{ID: "flower_crown", Name: "Flower Crown", Category: CategoryAccessory, Rarity: RarityUncommon},
		{ID: "star_hat", Name: "Star Hat", Category: CategoryAccessory, Rarity: RarityEpic},
	}
}

// DefaultCatalog 内置目录
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(DefaultCatalogVersion, DefaultItems())
	return c
}

// NewCatalog 创建目录并校验物品定义，重复id以后出现的为准
func NewCatalog(version string, items []ItemDefinition) (*Catalog, error) {
	c := &Catalog{
		version: version,
		items:   make(map[string]ItemDefinition, len(items)),
	}

	for _, item := range items {
		if err := validateItem(item); err != nil {
			return nil, err
		}
		if _, exists := c.items[item.ID]; !exists {
			c.order = append(c.order, item.ID)
		}
		effects := make(Effects, len(item.Effects))
		for k, v := range item.Effects {
			effects[k] = v
		}
		item.Effects = effects
		c.items[item.ID] = item
	}

	return c, nil
}

func validateItem(item ItemDefinition) error {
	if item.ID == "" {
		return apperrors.New(apperrors.ErrConfigValidate, "item id is empty")
	}
	if !item.Category.Valid() {
		return apperrors.Newf(apperrors.ErrConfigValidate, "item %s: invalid category %q", item.ID, item.Category)
	}
	if item.Rarity != "" && !item.Rarity.Valid() {
		return apperrors.Newf(apperrors.ErrConfigValidate, "item %s: invalid rarity %q", item.ID, item.Rarity)
	}
	for stat, delta := range item.Effects {
		switch stat {
		case StatHunger, StatHappiness, StatBond, StatHealth:
		default:
			return apperrors.Newf(apperrors.ErrConfigValidate, "item %s: unknown stat %q", item.ID, stat)
		}
		if delta <= 0 {
			return apperrors.Newf(apperrors.ErrConfigValidate, "item %s: effect %s must be positive", item.ID, stat)
		}
	}
	return nil
}

// Version 目录版本
func (c *Catalog) Version() string {
	return c.version
}

// Lookup 查询物品定义
//
// 未收录的物品视为无效果的装饰品，found为false。
func (c *Catalog) Lookup(itemID string) (def ItemDefinition, found bool) {
	def, found = c.items[itemID]
	if !found {
		return ItemDefinition{
			ID:       itemID,
			Name:     itemID,
			Category: CategoryAccessory,
			Rarity:   RarityCommon,
			Effects:  Effects{},
		}, false
	}
	return def, true
}

// Items 按定义顺序返回全部物品
func (c *Catalog) Items() []ItemDefinition {
	out := make([]ItemDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// ItemsByCategory 返回某类别的物品id（排序后）
func (c *Catalog) ItemsByCategory(category Category) []string {
	var ids []string
	for id, item := range c.items {
		if item.Category == category {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
