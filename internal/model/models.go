// Package model defines the data models for the missile-war group bot.
// All timestamps are integer seconds since epoch taken from the game clock.
package model

// Languages supported by a group or player override.
const (
	LangEN = "en"
	LangFA = "fa"
)

// Group is a Telegram group chat the bot has seen.
type Group struct {
	ChatID          int64  `db:"chat_id"`
	Title           string `db:"title"`
	DefaultLanguage string `db:"default_language"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

// Player is a user's state inside one group. The counters are maintained by the
// attacks insert trigger and must equal aggregates over the attack log.
type Player struct {
	ChatID           int64   `db:"chat_id"`
	UserID           int64   `db:"user_id"`
	DisplayName      string  `db:"display_name"`
	Username         *string `db:"username"`
	Language         *string `db:"language"`
	Medals           int64   `db:"medals"`
	Stars            int64   `db:"stars"`
	Score            int64   `db:"score"`
	Level            int     `db:"level"`
	HP               int     `db:"hp"`
	MaxHP            int     `db:"max_hp"`
	TotalAttacks     int64   `db:"total_attacks"`
	TotalDamageDealt int64   `db:"total_damage_dealt"`
	TimesAttacked    int64   `db:"times_attacked"`
	DamageTaken      int64   `db:"damage_taken"`
	CreatedAt        int64   `db:"created_at"`
	LastActive       int64   `db:"last_active"`
}

// Name returns the best display label for the player.
func (p *Player) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != nil {
		return "@" + *p.Username
	}
	return ""
}

// InventoryEntry is a stack of one item owned by a player. A missing row means qty 0.
type InventoryEntry struct {
	ChatID    int64  `db:"chat_id"`
	UserID    int64  `db:"user_id"`
	ItemID    string `db:"item_id"`
	Qty       int    `db:"qty"`
	UpdatedAt int64  `db:"updated_at"`
}

// Cooldown is a one-shot timer for a (chat, user, action) triple.
type Cooldown struct {
	ChatID    int64  `db:"chat_id"`
	UserID    int64  `db:"user_id"`
	Action    string `db:"action"`
	CreatedAt int64  `db:"created_at"`
	ExpiresAt int64  `db:"expires_at"`
}

// Cooldown actions used by the core.
const (
	ActionAttack  = "attack"
	ActionDaily   = "daily"
	ActionMessage = "message"
)

// Defense types stored in active_defenses.defense_type.
const (
	DefenseShield    = "shield"
	DefenseIntercept = "intercept"
)

// ActiveDefense is the single defense a player may have in force.
type ActiveDefense struct {
	ChatID         int64   `db:"chat_id"`
	UserID         int64   `db:"user_id"`
	DefenseType    string  `db:"defense_type"`
	ItemID         string  `db:"item_id"`
	ActivatedAt    int64   `db:"activated_at"`
	ExpiresAt      int64   `db:"expires_at"`
	Effectiveness  float64 `db:"effectiveness"`
	InterceptBonus int     `db:"intercept_bonus"`
	AbsorptionLeft int     `db:"absorption_left"`
}

// IsShield reports whether the defense blocks attacks outright.
func (d *ActiveDefense) IsShield() bool {
	return d != nil && d.DefenseType == DefenseShield
}

// IsIntercept reports whether the defense lowers hit chance and damage.
func (d *ActiveDefense) IsIntercept() bool {
	return d != nil && d.DefenseType == DefenseIntercept
}

// Boost types.
const (
	BoostCooldownReduction = "cooldown_reduction"
	BoostExperience        = "experience"
	BoostVIP               = "vip"
)

// ActiveBoost is a timed modifier. Distinct boost types coexist.
type ActiveBoost struct {
	ChatID      int64   `db:"chat_id"`
	UserID      int64   `db:"user_id"`
	BoostType   string  `db:"boost_type"`
	Value       float64 `db:"value"`
	ActivatedAt int64   `db:"activated_at"`
	ExpiresAt   int64   `db:"expires_at"`
}

// AttackRecord is an append-only log entry for a landed hit.
type AttackRecord struct {
	ID             int64  `db:"id"`
	ChatID         int64  `db:"chat_id"`
	AttackerID     int64  `db:"attacker_id"`
	VictimID       int64  `db:"victim_id"`
	WeaponID       string `db:"weapon_id"`
	Damage         int    `db:"damage"`
	IsCritical     bool   `db:"is_critical"`
	DefenseReduced bool   `db:"defense_reduced"`
	AttackTime     int64  `db:"attack_time"`
}

// Purchase is a medals purchase record.
type Purchase struct {
	ID          int64  `db:"id"`
	ChatID      int64  `db:"chat_id"`
	UserID      int64  `db:"user_id"`
	ItemID      string `db:"item_id"`
	Price       int64  `db:"price"`
	PurchasedAt int64  `db:"purchased_at"`
}

// Stars purchase statuses.
const (
	StarsPending   = "pending"
	StarsCompleted = "completed"
	StarsFailed    = "failed"
	StarsRefunded  = "refunded"
)

// StarsPurchase is a premium purchase record keyed by the provider payment id.
type StarsPurchase struct {
	ID        int64  `db:"id"`
	ChatID    int64  `db:"chat_id"`
	UserID    int64  `db:"user_id"`
	ItemID    string `db:"item_id"`
	Stars     int64  `db:"stars"`
	PaymentID string `db:"payment_id"`
	Status    string `db:"status"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// LeaderboardEntry is one ranked row of a chat leaderboard.
type LeaderboardEntry struct {
	Rank        int64   `db:"rank"`
	UserID      int64   `db:"user_id"`
	DisplayName string  `db:"display_name"`
	Username    *string `db:"username"`
	Score       int64   `db:"score"`
	Level       int     `db:"level"`
	Medals      int64   `db:"medals"`
}

// ChatStats aggregates a chat's activity.
type ChatStats struct {
	Players      int64 `db:"players"`
	TotalAttacks int64 `db:"total_attacks"`
	TotalDamage  int64 `db:"total_damage"`
}
