package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	s = s + string(a.Mode)
	return fmt.Sprintf("(%s)", s)
}

// Root runs the interactive prompt until EOF or an exit command.
func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to StackPad CLI (type 'help' for commands)")

	for {
		fmt.Printf("sp %s> ", a.getStatus())
		line, err := a.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				fmt.Println("read error:", err)
			}
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Accounts:  register, login")
			fmt.Println("Stacks:    add [-draft] <title>, list, promote <id>, activate <id>, complete <id>, rm <id>")
			fmt.Println("Tasks:     addtask <stack-id> <title>, tasks <stack-id>, done <task-id>, rmtask <task-id>")
			fmt.Println("Files:     attach <task-id> <path>, files <task-id>, upload <id>, retryupload <id>,")
			fmt.Println("           download <id>, cancel <id>")
			fmt.Println("Sync:      sync, history <entity-id>, revert <entity-id> <event-id>")
			fmt.Println("Other:     exit")

		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)

		case "add":
			a.addStack(ctx, args)
		case "list":
			a.listStacks(ctx)
		case "promote":
			a.promoteStack(ctx, args)
		case "activate":
			a.activateStack(ctx, args)
		case "complete":
			a.completeStack(ctx, args)
		case "rm":
			a.deleteStack(ctx, args)

		case "addtask":
			a.addTask(ctx, args)
		case "tasks":
			a.listTasks(ctx, args)
		case "done":
			a.markDone(ctx, args)
		case "rmtask":
			a.deleteTask(ctx, args)

		case "attach":
			a.attachFile(ctx, args)
		case "files":
			a.listFiles(ctx, args)
		case "upload":
			a.uploadFile(ctx, args)
		case "retryupload":
			a.retryUploadCmd(ctx, args)
		case "download":
			a.downloadFile(ctx, args)
		case "cancel":
			a.cancelDownload(args)

		case "sync":
			a.syncNow(ctx)
		case "history":
			a.showHistory(ctx, args)
		case "revert":
			a.revertEntity(ctx, args)

		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
