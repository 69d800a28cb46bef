package cli

import (
	"context"
	"fmt"
)

func (a *App) syncNow(ctx context.Context) {
	if err := a.sync.Sync(ctx); err != nil {
		fmt.Println("Sync failed:", err)
		return
	}
	fmt.Println("Sync completed")
}

func (a *App) showHistory(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: history <entity-id>")
		return
	}
	evs, err := a.sync.History(ctx, args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(evs) == 0 {
		fmt.Println("No history for this entity")
		return
	}
	for _, e := range evs {
		synced := "pending"
		if e.Synced {
			synced = "synced"
		}
		fmt.Printf("#%-4d %s  %-20s %-7s %s\n",
			e.Seq, e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, synced, e.ID)
	}
}

func (a *App) revertEntity(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: revert <entity-id> <event-id>")
		return
	}
	if err := a.sync.Revert(ctx, args[0], args[1]); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Entity reverted")
}
