package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/agent"
	"github.com/surfbox-dev/surfbox/internal/errors"
	"github.com/surfbox-dev/surfbox/internal/logging"
	"github.com/surfbox-dev/surfbox/internal/sandbox"
)

var execCmd = &cobra.Command{
	Use:   "exec <name> -- <command>",
	Short: "Execute a command inside a sandbox",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	name := args[0]

	// The command to execute is everything after --
	dash := cmd.ArgsLenAtDash()
	if dash < 1 || dash >= len(args) {
		return errors.ValidationError("usage: surfbox exec <name> -- <command>")
	}
	execArgs := args[dash:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	inst, err := app.manager.Get(name)
	if err != nil {
		return err
	}
	if inst.Status != sandbox.StatusRunning {
		return errors.ValidationError(fmt.Sprintf("sandbox %s is not running", name))
	}

	command := shellquote.Join(execArgs...)
	logging.Debug("executing in sandbox", "instance", name, "command", command)

	client := agent.NewClient(inst.Ports.API)
	exitCode, err := client.Execute(ctx, command, func(chunk agent.ExecChunk) {
		switch chunk.Stream {
		case "stderr":
			fmt.Fprint(os.Stderr, chunk.Data)
		default:
			fmt.Fprint(os.Stdout, chunk.Data)
		}
	})
	if err != nil {
		// On interrupt, ask the agent to abort whatever is still running.
		if ctx.Err() != nil {
			_ = client.Stop(context.Background())
		}
		return fmt.Errorf("executing in %s: %w", name, err)
	}
	if exitCode != 0 {
		return errors.New(exitCode, fmt.Sprintf("command exited with status %d", exitCode))
	}
	return nil
}
