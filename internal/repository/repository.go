package repository

import "missile-bot/internal/pkg/db"

// Repos bundles every repository over one DBTX, typically a transaction.
type Repos struct {
	Groups    *GroupRepository
	Players   *PlayerRepository
	Inventory *InventoryRepository
	Cooldowns *CooldownRepository
	Effects   *EffectRepository
	Attacks   *AttackRepository
	Purchases *PurchaseRepository
}

// New builds the repository set over q.
func New(q db.DBTX) *Repos {
	return &Repos{
		Groups:    NewGroupRepository(q),
		Players:   NewPlayerRepository(q),
		Inventory: NewInventoryRepository(q),
		Cooldowns: NewCooldownRepository(q),
		Effects:   NewEffectRepository(q),
		Attacks:   NewAttackRepository(q),
		Purchases: NewPurchaseRepository(q),
	}
}
