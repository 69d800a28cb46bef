package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) promptLine(label string) string {
	fmt.Printf("%s: ", label)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func (a *App) register(ctx context.Context) {
	username := a.promptLine("Username")
	password := a.promptLine("Password")
	if username == "" || password == "" {
		fmt.Println("Username and password are required")
		return
	}

	if err := a.apiClient.Register(ctx, username, password); err != nil {
		fmt.Println("Registration failed:", err)
		return
	}
	fmt.Println("Registered. You can now login.")
}

func (a *App) login(ctx context.Context) {
	username := a.promptLine("Username")
	password := a.promptLine("Password")
	if username == "" || password == "" {
		fmt.Println("Username and password are required")
		return
	}

	if err := a.apiClient.Login(ctx, username, password); err != nil {
		fmt.Println("Login failed:", err)
		return
	}

	a.userName = username
	a.eventLog.SetUser(username)
	if err := a.meta.Set(ctx, "username", username); err != nil {
		a.logger.Warn(ctx, "failed to persist username", "error", err)
	}
	fmt.Println("Logged in as", username)
}
