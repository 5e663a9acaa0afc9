package dbtest

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Interleaving injects a competing write right before UPDATE statements on one
// table. The write runs on the updating statement's connection, so inside a
// unit of work it lands between the unit's reads and its compare-and-set, as
// if another writer had committed in that window. It rolls back with the
// transaction that carried it.
type Interleaving struct {
	mu        sync.Mutex
	remaining int
	fired     int
}

// Fired reports how many competing writes were injected.
func (i *Interleaving) Fired() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.fired
}

// Stop disables further injections.
func (i *Interleaving) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.remaining = 0
}

// InterleaveBeforeUpdate runs sql before each of the next times UPDATEs on
// table; a negative times keeps injecting until Stop or test cleanup.
func InterleaveBeforeUpdate(t testing.TB, conn *gorm.DB, table string, times int, sql string, args ...any) *Interleaving {
	t.Helper()

	in := &Interleaving{remaining: times}
	name := "dbtest:interleave:" + uuid.NewString()
	err := conn.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement.Table != table {
			return
		}
		in.mu.Lock()
		if in.remaining == 0 {
			in.mu.Unlock()
			return
		}
		if in.remaining > 0 {
			in.remaining--
		}
		in.fired++
		in.mu.Unlock()

		if err := tx.Session(&gorm.Session{NewDB: true}).Exec(sql, args...).Error; err != nil {
			_ = tx.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register interleaving: %v", err)
	}
	t.Cleanup(func() { _ = conn.Callback().Update().Remove(name) })
	return in
}
