package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	jobgrpc "github.com/mtr002/job-system/internal/grpc"
	"github.com/mtr002/job-system/internal/nats"
)

func main() {
	addr := flag.String("addr", "localhost:8081", "Worker service gRPC address")
	natsURL := flag.String("nats", "nats://localhost:4222", "NATS URL for submit and watch")
	timeout := flag.Duration("timeout", 0, "Give up after this long (0 waits forever)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	switch args[0] {
	case "submit", "watch":
		if err := runNATS(ctx, *natsURL, args[0], args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
			os.Exit(1)
		}
		return
	}

	client, err := jobgrpc.NewClient(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := run(ctx, client, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *jobgrpc.Client, cmd string, args []string) error {
	switch cmd {
	case "enqueue":
		if len(args) < 1 {
			return fmt.Errorf("usage: enqueue <type> [input]")
		}
		id, err := client.Enqueue(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(id)

	case "run":
		if len(args) < 1 {
			return fmt.Errorf("usage: run <type> [input]")
		}
		start := time.Now()
		id, result, err := client.RunSync(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if result.Failed() {
			return fmt.Errorf("job %s failed after %v: %s", id, time.Since(start).Round(time.Millisecond), result.Err)
		}
		fmt.Println(result.Output)

	case "status":
		if len(args) != 1 {
			return fmt.Errorf("usage: status <job-id>")
		}
		state, err := client.Status(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s complete=%t\n", state.ID, state.Status, state.Complete)
		if state.Result != nil {
			if state.Result.Failed() {
				fmt.Printf("error: %s\n", state.Result.Err)
			} else {
				fmt.Printf("output: %s\n", state.Result.Output)
			}
		}

	case "cancel":
		if len(args) != 1 {
			return fmt.Errorf("usage: cancel <job-id>")
		}
		return client.Cancel(ctx, args[0])

	case "types":
		types, err := client.ListTypes(ctx)
		if err != nil {
			return err
		}
		for _, t := range types {
			fmt.Println(t)
		}

	case "stats":
		stats, active, err := client.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("pending=%d completed=%d workers=%d busy=%d history=%d active=%t\n",
			stats.Pending, stats.Completed, stats.Workers, stats.BusyWorkers, stats.HistoryEntries, active)

	case "add-worker":
		id, err := client.CreateWorker(ctx)
		if err != nil {
			return err
		}
		fmt.Println(id)

	default:
		return fmt.Errorf("unknown command (want enqueue, run, status, cancel, types, stats, add-worker)")
	}
	return nil
}

func runNATS(ctx context.Context, url, cmd string, args []string) error {
	client, err := nats.NewClient(url)
	if err != nil {
		return err
	}
	defer client.Close()

	if cmd == "submit" {
		if len(args) < 1 {
			return fmt.Errorf("usage: submit <type> [input]")
		}
		if ctx.Done() == nil {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
		}
		id, err := client.Submit(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, err := client.SubscribeStatus(func(msg *nats.JobStatusMessage) {
		line := fmt.Sprintf("%s %s", msg.JobID, msg.Status)
		switch {
		case msg.Error != "":
			line += " error=" + msg.Error
		case msg.Result != "":
			line += " output=" + msg.Result
		}
		fmt.Println(line)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <command> [args]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  enqueue <type> [input]   queue a job and print its id\n")
		fmt.Fprintf(os.Stderr, "  run <type> [input]       queue a job and wait for its output\n")
		fmt.Fprintf(os.Stderr, "  status <job-id>          show a job's status and result\n")
		fmt.Fprintf(os.Stderr, "  cancel <job-id>          drop a pending or completed job\n")
		fmt.Fprintf(os.Stderr, "  types                    list registered job types\n")
		fmt.Fprintf(os.Stderr, "  stats                    show queue statistics\n")
		fmt.Fprintf(os.Stderr, "  add-worker               start one more worker\n")
		fmt.Fprintf(os.Stderr, "  submit <type> [input]    queue a job over NATS\n")
		fmt.Fprintf(os.Stderr, "  watch                    print status changes published over NATS\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
}
