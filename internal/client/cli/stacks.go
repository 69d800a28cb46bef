package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) addStack(ctx context.Context, args []string) {
	draft := false
	if len(args) > 0 && args[0] == "-draft" {
		draft = true
		args = args[1:]
	}
	title := strings.Join(args, " ")
	if title == "" {
		fmt.Println("Usage: add [-draft] <title>")
		return
	}

	st, err := a.stacks.Create(ctx, title, draft)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Created stack %s (%s)\n", st.ID, st.Status)
}

func (a *App) listStacks(ctx context.Context) {
	list, err := a.stacks.List(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(list) == 0 {
		fmt.Println("No stacks yet")
		return
	}
	for _, st := range list {
		marker := " "
		if st.IsActive {
			marker = "*"
		}
		fmt.Printf("%s [%d] %-8s %s  %s\n", marker, st.SortOrder, st.Status, st.ID, st.Title)
	}
}

func (a *App) promoteStack(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: promote <id>")
		return
	}
	if err := a.stacks.Promote(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Stack promoted")
}

func (a *App) activateStack(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: activate <id>")
		return
	}
	if err := a.stacks.Activate(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Stack activated")
}

func (a *App) completeStack(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: complete <id>")
		return
	}
	if err := a.stacks.Complete(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Stack completed")
}

func (a *App) deleteStack(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: rm <id>")
		return
	}
	if err := a.stacks.Delete(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Stack deleted")
}
