package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// repl is the top-level command loop.
//
// Not logged in:
//   - login          — identify by phone number
//   - exit | quit    — leave the program
//
// Logged in:
//   - missions       — list active missions
//   - history        — list finished missions
//   - sync           — synchronize with the backend now
//   - unread         — show the new-arrival counter
//   - markread       — acknowledge all arrivals
//   - open <id>      — open one mission's workflow
//   - logout         — log out and clear local sync state
//   - exit | quit    — leave the program
func (a *App) repl(ctx context.Context) {
	for {
		fmt.Printf("washpro %s> ", a.status())
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "exit", "quit":
			return
		case "help":
			a.printHelp()
		case "login":
			a.cmdLogin(ctx)
		case "logout":
			a.cmdLogout(ctx)
		case "missions":
			a.cmdMissions(ctx, true)
		case "history":
			a.cmdMissions(ctx, false)
		case "sync":
			a.cmdSync(ctx)
		case "unread":
			fmt.Printf("unread arrivals: %d\n", a.engine.UnreadCount(ctx))
		case "markread":
			if err := a.engine.MarkAllRead(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case "open":
			if len(args) != 1 {
				fmt.Println("usage: open <booking-id>")
				continue
			}
			a.cmdOpen(ctx, args[0])
		default:
			fmt.Printf("unknown command %q, try help\n", cmd)
		}
	}
}

func (a *App) status() string {
	state := "online"
	if !a.engine.Online() {
		state = "offline"
	}
	t := a.technician.Load()
	if t == nil {
		return "(" + state + ")"
	}
	return fmt.Sprintf("(%s, %s)", t.FullName, state)
}

func (a *App) printHelp() {
	if !a.isLoggedIn() {
		fmt.Println("commands: login, exit")
		return
	}
	fmt.Println("commands: missions, history, sync, unread, markread, open <id>, logout, exit")
}

func (a *App) cmdLogin(ctx context.Context) {
	if a.isLoggedIn() {
		fmt.Println("already logged in")
		return
	}
	phone, err := GetSimpleText(a.reader, "Phone number", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	t, err := a.session.Login(ctx, phone)
	if err != nil {
		fmt.Printf("login failed: %v\n", err)
		return
	}
	a.technician.Store(t)
	a.dispatcher.RegisterDeliveryChannel(ctx, t.ID)
	fmt.Printf("welcome, %s\n", t.FullName)
	a.cmdSync(ctx)
}

func (a *App) cmdLogout(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("not logged in")
		return
	}
	if err := a.session.Logout(ctx); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	a.technician.Store(nil)
}

func (a *App) cmdSync(ctx context.Context) {
	t := a.technician.Load()
	if t == nil {
		fmt.Println("login first")
		return
	}
	fresh := a.engine.FetchAndReconcile(ctx, t.ID)
	if !a.engine.Online() {
		fmt.Println("backend unreachable, showing cached missions")
		return
	}
	fmt.Printf("synced, %d new mission(s)\n", len(fresh))
	a.dispatcher.OnNewBookings(ctx, fresh)
}

func (a *App) cmdMissions(ctx context.Context, active bool) {
	if !a.isLoggedIn() {
		fmt.Println("login first")
		return
	}
	shown := 0
	for _, b := range a.engine.Bookings() {
		if b.IsActive() != active {
			continue
		}
		fmt.Printf("  %s  %-11s  %s %s  %s\n", b.ID, b.Status, b.Date, b.Time, b.Address)
		shown++
	}
	if shown == 0 {
		fmt.Println("  (none)")
	}
}
