package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/webclient"
	"github.com/park285/cheese-web/pkg/chessdto"
)

const usage = `usage: cheesectl [-server URL] <command> [args]

commands:
  state                     print board and status
  select <square>           click a square
  move <from> <to> | <uci>  play a move (e2 e4 or e2e4)
  undo | reset | flip | sound | clock
  time-control <m+i>        e.g. 5+3; applies now before the first move, otherwise at reset
  theme <name>              classic | green | blue | gray
  export [file]             save the PGN (default: server file name)
  png <file>                save the board image
  watch                     follow the event stream
`

func main() {
	defaultServer := os.Getenv("CHEESE_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	server := flag.String("server", defaultServer, "cheese-web base URL")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := webclient.NewClient(*server, webclient.WithTimeout(8*time.Second))
	formatter := webclient.NewFormatter()

	if args[0] == "watch" {
		if err := watch(*server, formatter); err != nil {
			log.Fatalf("watch: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runCommand(ctx, client, formatter, args[0], args[1:]); err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func runCommand(ctx context.Context, c *webclient.Client, f *webclient.Formatter, cmd string, args []string) error {
	var (
		out *chessdto.IntentResponse
		err error
	)
	switch cmd {
	case "state":
		st, err := c.State(ctx)
		if err != nil {
			return err
		}
		fmt.Print(f.Board(st))
		fmt.Print(f.Status(st))
		return nil
	case "select":
		if len(args) != 1 {
			return fmt.Errorf("expected one square")
		}
		out, err = c.Select(ctx, args[0])
	case "move":
		from, to, perr := parseMoveArgs(args)
		if perr != nil {
			return perr
		}
		out, err = c.Move(ctx, from, to)
	case "undo":
		out, err = c.Undo(ctx)
	case "reset":
		out, err = c.Reset(ctx)
	case "flip":
		out, err = c.Flip(ctx)
	case "sound":
		out, err = c.ToggleSound(ctx)
	case "clock":
		out, err = c.ToggleClock(ctx)
	case "time-control":
		if len(args) != 1 {
			return fmt.Errorf("expected minutes+increment")
		}
		tc, perr := clock.ParseTimeControl(args[0])
		if perr != nil {
			return perr
		}
		out, err = c.SetTimeControl(ctx, chessdto.TimeControl{White: tc.White, Black: tc.Black, Increment: tc.Increment})
	case "theme":
		if len(args) != 1 {
			return fmt.Errorf("expected a theme name")
		}
		out, err = c.SetTheme(ctx, args[0])
	case "export":
		name, body, err := c.Export(ctx)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			name = args[0]
		}
		if err := os.WriteFile(name, body, 0o644); err != nil {
			return err
		}
		fmt.Println("saved", name)
		return nil
	case "png":
		if len(args) != 1 {
			return fmt.Errorf("expected an output file")
		}
		raw, err := c.BoardPNG(ctx)
		if err != nil {
			return err
		}
		return os.WriteFile(args[0], raw, 0o644)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}
	for _, ev := range out.Events {
		if line := f.Event(ev); line != "" {
			fmt.Println(line)
		}
	}
	fmt.Print(f.Board(out.State))
	fmt.Print(f.Status(out.State))
	return nil
}

// parseMoveArgs accepts "e2 e4" and "e2e4". A promotion suffix is ignored; pawns always queen.
func parseMoveArgs(args []string) (string, string, error) {
	switch len(args) {
	case 2:
		return strings.ToLower(args[0]), strings.ToLower(args[1]), nil
	case 1:
		s := strings.ToLower(strings.TrimSpace(args[0]))
		if len(s) == 4 || len(s) == 5 {
			return s[:2], s[2:4], nil
		}
	}
	return "", "", fmt.Errorf("expected <from> <to> or a UCI move")
}

func watch(server string, f *webclient.Formatter) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(server, "/"), "http") + "/api/events"
	w := webclient.NewWatcher(wsURL, 5)
	w.OnStateChange(func(state webclient.WatchState) {
		log.Printf("watch state: %s", state)
	})
	w.OnEvent(func(ev chessdto.Event) {
		if line := f.Event(ev); line != "" {
			fmt.Println(line)
		}
	})
	if err := w.Connect(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return w.Close(closeCtx)
}
