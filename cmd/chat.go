package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evihealth/evi/internal/app"
	"github.com/evihealth/evi/internal/config"
	"github.com/evihealth/evi/internal/prompts"
	"github.com/evihealth/evi/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	sess, err := a.Store.Create()
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	fmt.Println(prompts.Intro)
	fmt.Println()
	fmt.Println("Type /exit to quit, /profile to see what Evi has remembered.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if handleCommand(input, sess) {
				break
			}
			continue
		}

		var result *session.TurnResult
		err := a.Store.WithTurnLock(sess.ID(), func(s *session.Session) error {
			var turnErr error
			result, turnErr = s.Turn(ctx, input)
			return turnErr
		})
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		printTurn(sess, result)
	}

	return scanner.Err()
}

func printTurn(sess *session.Session, result *session.TurnResult) {
	fmt.Println()
	fmt.Println("Evi:", result.Reply)
	if sess.TriageActive() {
		fmt.Println()
		fmt.Println("(Triage in progress. For urgent concerns, use NHS 111 at https://111.nhs.uk/.)")
	}
	if len(result.Links) > 0 {
		fmt.Println()
		fmt.Println("Useful links:")
		for _, l := range result.Links {
			fmt.Printf("  - %s: %s\n", l.Title, l.URL)
		}
	}
	if len(result.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("You could ask:")
		for _, s := range result.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
	fmt.Println()
}

// handleCommand handles slash commands, returns true on exit.
func handleCommand(cmd string, sess *session.Session) bool {
	switch strings.Fields(cmd)[0] {
	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true

	case "/profile":
		p := sess.Profile()
		if len(p) == 0 {
			fmt.Println("No profile stored yet. Say \"start onboarding\" to set one up.")
			fmt.Println()
			return false
		}
		fmt.Println("Stored profile:")
		for k, v := range p {
			fmt.Printf("  %s: %v\n", k, v)
		}
		fmt.Println()

	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /profile  show the stored profile")
		fmt.Println("  /exit     quit")
		fmt.Println()

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		fmt.Println("Type /help to see available commands")
		fmt.Println()
	}
	return false
}
