// Package catalog holds the static item table: weapons, shields, intercepts,
// boosts, utilities, status items and arsenal upgrades.
package catalog

// Kind is the item family; it decides which payload is set.
type Kind string

const (
	KindWeapon    Kind = "weapon"
	KindShield    Kind = "shield"
	KindIntercept Kind = "intercept"
	KindBoost     Kind = "boost"
	KindUtility   Kind = "utility"
	KindStatus    Kind = "status"
	KindArsenal   Kind = "arsenal"
)

// Payment is how an item is obtained.
type Payment string

const (
	PaymentMedals      Payment = "medals"
	PaymentStars       Payment = "stars"
	PaymentFree        Payment = "free"
	PaymentAchievement Payment = "achievement"
)

// Built-in item ids referenced from code.
const (
	ItemMissile    = "missile"
	ItemRocket     = "rocket"
	ItemMOAB       = "moab"
	ItemNuclear    = "nuclear"
	ItemHypersonic = "hypersonic"
	ItemAegis      = "aegis"
	ItemSuperAegis = "super_aegis"
	ItemIronDome   = "iron_dome"
	ItemDavidSling = "davids_sling"
	ItemPatriot    = "patriot"
	ItemReload     = "rapid_reload"
	ItemDoubleXP   = "double_xp"
	ItemMedkit     = "medkit"
	ItemFieldHosp  = "field_hospital"
	ItemMedalCrate = "medal_crate"
	ItemVIP        = "vip"
	ItemBunker     = "bunker"
	ItemWarHero    = "war_hero_shield"
	ItemNewYear    = "new_year_rocket"
)

// WeaponSpec is the payload of weapon items.
type WeaponSpec struct {
	Damage         int `mapstructure:"damage"`
	DamageBonus    int `mapstructure:"damage_bonus"`
	CriticalChance int `mapstructure:"critical_chance"`
}

// DefenseSpec is the payload of shield and intercept items.
type DefenseSpec struct {
	DurationSeconds int64   `mapstructure:"duration_seconds"`
	Effectiveness   float64 `mapstructure:"effectiveness"`
	Absorption      int     `mapstructure:"absorption"`
	InterceptBonus  int     `mapstructure:"intercept_bonus"`
}

// EffectSpec is the payload of boost, utility, status and arsenal items.
type EffectSpec struct {
	HPRestore            int     `mapstructure:"hp_restore"`
	MedalsReward         int64   `mapstructure:"medals_reward"`
	CooldownReduction    float64 `mapstructure:"cooldown_reduction"`
	ExperienceMultiplier float64 `mapstructure:"experience_multiplier"`
	DurationSeconds      int64   `mapstructure:"duration_seconds"`
	Capacity             int     `mapstructure:"capacity"`
	Days                 int     `mapstructure:"days"`
}

// Item is one catalog entry. Exactly one of Weapon, Defense or Effect is set,
// matching Kind.
type Item struct {
	ID            string  `mapstructure:"id"`
	Name          string  `mapstructure:"name"`
	Emoji         string  `mapstructure:"emoji"`
	Kind          Kind    `mapstructure:"kind"`
	Payment       Payment `mapstructure:"payment"`
	Tier          int     `mapstructure:"tier"`
	Rarity        string  `mapstructure:"rarity"`
	Price         int64   `mapstructure:"price"`
	LevelRequired int     `mapstructure:"level_required"`
	MaxStack      int     `mapstructure:"max_stack"`
	Consumable    bool    `mapstructure:"consumable"`
	Achievement   string  `mapstructure:"achievement"`
	LimitedUntil  int64   `mapstructure:"limited_until"`

	Weapon  *WeaponSpec  `mapstructure:"weapon"`
	Defense *DefenseSpec `mapstructure:"defense"`
	Effect  *EffectSpec  `mapstructure:"effect"`
}

// Stockpiled reports whether buying the item puts it in the inventory.
// Non-consumable boost, status and utility items apply on purchase instead.
func (it Item) Stockpiled() bool {
	switch it.Kind {
	case KindBoost, KindStatus, KindUtility:
		return it.Consumable
	}
	return true
}

func builtinItems() []Item {
	return []Item{
		{
			ID: ItemMissile, Name: "Missile", Emoji: "🚀", Kind: KindWeapon, Payment: PaymentFree,
			Tier: 1, Rarity: "common", LevelRequired: 1, Consumable: true,
			Weapon: &WeaponSpec{Damage: 20, CriticalChance: 5},
		},
		{
			ID: ItemRocket, Name: "Rocket", Emoji: "🎯", Kind: KindWeapon, Payment: PaymentMedals,
			Tier: 1, Rarity: "common", Price: 30, LevelRequired: 1, MaxStack: 50, Consumable: true,
			Weapon: &WeaponSpec{Damage: 25, CriticalChance: 5},
		},
		{
			ID: ItemMOAB, Name: "MOAB", Emoji: "💣", Kind: KindWeapon, Payment: PaymentMedals,
			Tier: 2, Rarity: "uncommon", Price: 80, LevelRequired: 1, MaxStack: 20, Consumable: true,
			Weapon: &WeaponSpec{Damage: 35, CriticalChance: 10},
		},
		{
			ID: ItemNuclear, Name: "Nuclear", Emoji: "☢️", Kind: KindWeapon, Payment: PaymentMedals,
			Tier: 4, Rarity: "epic", Price: 400, LevelRequired: 3, MaxStack: 5, Consumable: true,
			Weapon: &WeaponSpec{Damage: 60, CriticalChance: 10},
		},
		{
			ID: ItemHypersonic, Name: "Hypersonic", Emoji: "⚡", Kind: KindWeapon, Payment: PaymentStars,
			Tier: 5, Rarity: "legendary", Price: 20, LevelRequired: 2, MaxStack: 5, Consumable: true,
			Weapon: &WeaponSpec{Damage: 50, DamageBonus: 10, CriticalChance: 15},
		},
		{
			ID: ItemAegis, Name: "Aegis Shield", Emoji: "🛡️", Kind: KindShield, Payment: PaymentMedals,
			Tier: 2, Rarity: "uncommon", Price: 100, LevelRequired: 1, MaxStack: 5, Consumable: true,
			Defense: &DefenseSpec{DurationSeconds: 3 * 3600, Effectiveness: 1},
		},
		{
			ID: ItemSuperAegis, Name: "Super Aegis", Emoji: "🔰", Kind: KindShield, Payment: PaymentStars,
			Tier: 4, Rarity: "epic", Price: 12, LevelRequired: 1, MaxStack: 5, Consumable: true,
			Defense: &DefenseSpec{DurationSeconds: 12 * 3600, Effectiveness: 1},
		},
		{
			ID: ItemIronDome, Name: "Iron Dome", Emoji: "🏰", Kind: KindIntercept, Payment: PaymentMedals,
			Tier: 2, Rarity: "uncommon", Price: 150, LevelRequired: 1, MaxStack: 5, Consumable: true,
			Defense: &DefenseSpec{DurationSeconds: 6 * 3600, Effectiveness: 0.5, InterceptBonus: 20},
		},
		{
			ID: ItemDavidSling, Name: "David's Sling", Emoji: "🪃", Kind: KindIntercept, Payment: PaymentMedals,
			Tier: 3, Rarity: "rare", Price: 250, LevelRequired: 2, MaxStack: 5, Consumable: true,
			Defense: &DefenseSpec{DurationSeconds: 6 * 3600, Effectiveness: 0.6, Absorption: 10, InterceptBonus: 25},
		},
		{
			ID: ItemPatriot, Name: "Patriot", Emoji: "📡", Kind: KindIntercept, Payment: PaymentStars,
			Tier: 4, Rarity: "epic", Price: 15, LevelRequired: 1, MaxStack: 5, Consumable: true,
			Defense: &DefenseSpec{DurationSeconds: 12 * 3600, Effectiveness: 0.75, Absorption: 20, InterceptBonus: 25},
		},
		{
			ID: ItemReload, Name: "Rapid Reload", Emoji: "⏱️", Kind: KindBoost, Payment: PaymentMedals,
			Tier: 2, Rarity: "uncommon", Price: 120, LevelRequired: 1,
			Effect: &EffectSpec{CooldownReduction: 0.5, DurationSeconds: 3600},
		},
		{
			ID: ItemDoubleXP, Name: "Double XP", Emoji: "✨", Kind: KindBoost, Payment: PaymentStars,
			Tier: 3, Rarity: "rare", Price: 10, LevelRequired: 1, MaxStack: 10, Consumable: true,
			Effect: &EffectSpec{ExperienceMultiplier: 2, DurationSeconds: 2 * 3600},
		},
		{
			ID: ItemMedkit, Name: "Medkit", Emoji: "🩹", Kind: KindUtility, Payment: PaymentMedals,
			Tier: 1, Rarity: "common", Price: 40, LevelRequired: 1, MaxStack: 10, Consumable: true,
			Effect: &EffectSpec{HPRestore: 50},
		},
		{
			ID: ItemFieldHosp, Name: "Field Hospital", Emoji: "🏥", Kind: KindUtility, Payment: PaymentStars,
			Tier: 3, Rarity: "rare", Price: 5, LevelRequired: 1, MaxStack: 5, Consumable: true,
			Effect: &EffectSpec{HPRestore: 200},
		},
		{
			ID: ItemMedalCrate, Name: "Medal Crate", Emoji: "📦", Kind: KindUtility, Payment: PaymentStars,
			Tier: 2, Rarity: "uncommon", Price: 8, LevelRequired: 1, MaxStack: 10, Consumable: true,
			Effect: &EffectSpec{MedalsReward: 500},
		},
		{
			ID: ItemVIP, Name: "VIP Pass", Emoji: "👑", Kind: KindStatus, Payment: PaymentStars,
			Tier: 5, Rarity: "legendary", Price: 50, LevelRequired: 1,
			Effect: &EffectSpec{Days: 7},
		},
		{
			ID: ItemBunker, Name: "Bunker", Emoji: "🏗️", Kind: KindArsenal, Payment: PaymentMedals,
			Tier: 3, Rarity: "rare", Price: 300, LevelRequired: 2, MaxStack: 4, Consumable: true,
			Effect: &EffectSpec{Capacity: 25},
		},
		{
			ID: ItemWarHero, Name: "War Hero Shield", Emoji: "🎖️", Kind: KindShield, Payment: PaymentAchievement,
			Tier: 5, Rarity: "legendary", LevelRequired: 5, MaxStack: 1, Consumable: true, Achievement: "war_hero",
			Defense: &DefenseSpec{DurationSeconds: 24 * 3600, Effectiveness: 1},
		},
		{
			ID: ItemNewYear, Name: "New Year Rocket", Emoji: "🎆", Kind: KindWeapon, Payment: PaymentMedals,
			Tier: 3, Rarity: "rare", Price: 150, LevelRequired: 1, MaxStack: 10, Consumable: true,
			LimitedUntil: 1736899200, // 2025-01-15
			Weapon:       &WeaponSpec{Damage: 45, DamageBonus: 5, CriticalChance: 20},
		},
	}
}
