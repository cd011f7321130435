// Command durable is a CLI driver for the onboarding reference workflow.
// It doubles as a crash-simulation harness: -crash-after exits the
// process mid-workflow so a second invocation with the same -workflow-id
// can demonstrate resume-from-memo behavior.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sicko7947/durable"
	"github.com/sicko7947/durable/examples/onboarding"
	"github.com/sicko7947/durable/store"
)

func main() {
	var (
		workflowID = flag.String("workflow-id", "", "workflow id to run or resume; random uuid if empty")
		dbPath     = flag.String("db", "workflow.db", "libSQL database file")
		crashAfter = flag.Int("crash-after", -1, "exit the process after the Nth step transition (negative or 0 disables)")
		resume     = flag.Bool("resume", false, "treat this run as a resume of an existing workflow id")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	durable.SetLogger(log.Logger)

	if *workflowID == "" {
		*workflowID = uuid.NewString()
	}

	if err := run(*workflowID, *dbPath, *crashAfter, *resume); err != nil {
		log.Error().Err(err).Msg("workflow run failed")
		os.Exit(1)
	}
}

func run(workflowID, dbPath string, crashAfter int, resume bool) error {
	ctx := context.Background()

	s, err := store.NewLibSQLStore(ctx, fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	fmt.Println("=== Durable Workflow Engine ===")
	fmt.Printf("Workflow ID: %s\n", workflowID)
	fmt.Printf("Database: %s\n", dbPath)
	fmt.Println("================================")

	if resume {
		completed, err := s.GetCompletedSteps(ctx, workflowID)
		if err != nil {
			return fmt.Errorf("list completed steps: %w", err)
		}
		fmt.Printf("Resuming workflow with %d completed steps\n", len(completed))
		durable.IncrementWorkflowRestarts()
	} else {
		if err := s.UpsertWorkflow(ctx, workflowID, durable.WorkflowRunning); err != nil {
			return fmt.Errorf("initialize workflow: %w", err)
		}
	}

	dc := durable.NewDurableContext(workflowID, s)

	if crashAfter > 0 {
		if err := runWithCrashSimulation(ctx, dc, crashAfter); err != nil {
			return err
		}
	} else {
		if err := onboarding.New(dc).Run(ctx); err != nil {
			return err
		}
	}

	if err := s.UpsertWorkflow(ctx, workflowID, durable.WorkflowCompleted); err != nil {
		return fmt.Errorf("finalize workflow: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Workflow Summary ===")
	fmt.Println(durable.MetricsSummary())
	fmt.Println("========================")
	return nil
}

// runWithCrashSimulation steps through the onboarding sequence one step at
// a time, calling os.Exit once the crashAfter-th step has transitioned, so
// the step's Store write is durable but the process never reaches the
// remaining steps or the final UpsertWorkflow(COMPLETED) call.
func runWithCrashSimulation(ctx context.Context, dc *durable.DurableContext, crashAfter int) error {
	fmt.Printf("CRASH SIMULATION: will exit after step %d\n\n", crashAfter)

	count := 0
	maybeCrash := func(label string) bool {
		count++
		if count == crashAfter {
			fmt.Printf(">>> crashing after step %d (%s)\n", count, label)
			os.Exit(1)
		}
		return false
	}

	if _, err := durable.Run(ctx, dc, "create-employee", func() (string, error) {
		fmt.Println("[1] creating employee record")
		return "EMP_CREATED", nil
	}); err != nil {
		return err
	}
	maybeCrash("create-employee")

	if _, err := durable.RunWithPolicy(ctx, dc, "provision-laptop", durable.RetryDefault, func() (string, error) {
		fmt.Println("[2] provisioning laptop")
		return "LAPTOP_READY", nil
	}); err != nil {
		return err
	}
	maybeCrash("provision-laptop")

	if _, err := durable.RunWithPolicy(ctx, dc, "grant-access", durable.RetryDefault, func() (string, error) {
		fmt.Println("[3] granting system access")
		return "ACCESS_GRANTED", nil
	}); err != nil {
		return err
	}
	maybeCrash("grant-access")

	if _, err := durable.Run(ctx, dc, "send-welcome-email", func() (string, error) {
		fmt.Println("[4] sending welcome email")
		return "EMAIL_SENT", nil
	}); err != nil {
		return err
	}
	maybeCrash("send-welcome-email")

	fmt.Println("\nworkflow completed (no crash triggered)")
	return nil
}
