package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&SalesAgent{},
		&Customer{},
		&Writer{},
		&Order{},
		&Bid{},
		&OrderFile{},
		&WalletAccount{},
		&LedgerEntry{},
		&RevenueRule{},
		&Payment{},
		&OutboxEvent{},
		&DeadLetter{},
	}
}

func (m *SalesAgent) BeforeCreate(*gorm.DB) error    { ensureID(&m.ID); return nil }
func (m *Customer) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *Writer) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (m *Order) BeforeCreate(*gorm.DB) error         { ensureID(&m.ID); return nil }
func (m *Bid) BeforeCreate(*gorm.DB) error           { ensureID(&m.ID); return nil }
func (m *OrderFile) BeforeCreate(*gorm.DB) error     { ensureID(&m.ID); return nil }
func (m *WalletAccount) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *LedgerEntry) BeforeCreate(*gorm.DB) error   { ensureID(&m.ID); return nil }
func (m *RevenueRule) BeforeCreate(*gorm.DB) error   { ensureID(&m.ID); return nil }
func (m *Payment) BeforeCreate(*gorm.DB) error       { ensureID(&m.ID); return nil }
func (m *OutboxEvent) BeforeCreate(*gorm.DB) error   { ensureID(&m.ID); return nil }
func (m *DeadLetter) BeforeCreate(*gorm.DB) error    { ensureID(&m.ID); return nil }
