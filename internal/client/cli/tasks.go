package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) addTask(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: addtask <stack-id> <title>")
		return
	}
	t, err := a.tasks.Add(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Added task %s\n", t.ID)
}

func (a *App) listTasks(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: tasks <stack-id>")
		return
	}
	list, err := a.tasks.ListByStack(ctx, args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(list) == 0 {
		fmt.Println("No tasks in this stack")
		return
	}
	for _, t := range list {
		check := "[ ]"
		if t.Done {
			check = "[x]"
		}
		fmt.Printf("%s %s  %s\n", check, t.ID, t.Title)
	}
}

func (a *App) markDone(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: done <task-id>")
		return
	}
	if err := a.tasks.SetDone(ctx, args[0], true); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Task marked done")
}

func (a *App) deleteTask(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: rmtask <task-id>")
		return
	}
	if err := a.tasks.Delete(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Task deleted")
}
