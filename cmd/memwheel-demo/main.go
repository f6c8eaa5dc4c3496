// Command memwheel-demo runs a scenario-driven producer/consumer pair over
// a real shared-memory wheel, as two separate OS processes (SPEC_FULL.md
// §4.9, C8).
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/wheelmem/memwheel/internal/demo"
	"github.com/wheelmem/memwheel/internal/logging"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	// ConfigPath is the path to the scenario YAML file. Empty uses
	// demo.DefaultConfig.
	ConfigPath string
	// consumerFD is set by the producer process when it re-execs itself
	// to become the consumer; it names the inherited socket fd to read
	// the handshake from. Not meant to be set by a human operator.
	consumerFD int
}

var rootCmd = &cobra.Command{
	Use:   "memwheel-demo",
	Short: "Exercise the memwheel ring between two processes",
	Run: func(_ *cobra.Command, _ []string) {
		if err := run(cmd); err != nil {
			if errors.Is(err, Interrupted{}) || errors.Is(err, context.Canceled) {
				return
			}
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to the scenario configuration file")
	rootCmd.Flags().IntVar(&cmd.consumerFD, "consumer-fd", -1, "internal: inherited socket fd for the re-exec'd consumer process")
	rootCmd.Flags().MarkHidden("consumer-fd")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	cfg, err := loadConfig(cmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg, ctx := errgroup.WithContext(rootCtx)

	// The demo session is a finite task, unlike the teacher's long-running
	// coordinator loop: cancel once it completes so the signal-waiting
	// goroutine below doesn't block wg.Wait() forever on a clean exit.
	if cmd.consumerFD >= 0 {
		wg.Go(func() error {
			defer cancel()
			return runConsumer(ctx, cfg, cmd.consumerFD, log)
		})
	} else {
		wg.Go(func() error {
			defer cancel()
			return runProducer(ctx, cfg, cmd.ConfigPath, log)
		})
	}
	wg.Go(func() error {
		err := WaitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		return err
	})

	return wg.Wait()
}

func loadConfig(path string) (*demo.Config, error) {
	if path == "" {
		return demo.DefaultConfig(), nil
	}
	return demo.LoadConfig(path)
}

// runConsumer is this process acting as the re-exec'd child: it wraps the
// inherited socket fd and runs the consumer side of the session.
func runConsumer(ctx context.Context, cfg *demo.Config, fd int, log *zap.SugaredLogger) error {
	conn, err := fdToUnixConn(fd, "memwheel-demo-consumer-sock")
	if err != nil {
		return err
	}
	defer conn.Close()

	stats, err := demo.RunConsumerSide(ctx, cfg, conn, log)
	if err != nil {
		return fmt.Errorf("consumer session failed: %w", err)
	}
	fmt.Println(demo.Report("consumer", stats))
	return nil
}

// runProducer spawns a fresh copy of this same binary as the consumer
// process, connected over a socketpair-backed net.UnixConn, then runs the
// producer side of the session.
func runProducer(ctx context.Context, cfg *demo.Config, configPath string, log *zap.SugaredLogger) error {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("create socketpair: %w", err)
	}
	parentFD, childFD := fds[0], fds[1]

	childFile := os.NewFile(uintptr(childFD), "memwheel-demo-producer-sock")

	args := []string{"--consumer-fd", "3"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	child := exec.CommandContext(ctx, os.Args[0], args...)
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	child.ExtraFiles = []*os.File{childFile}

	if err := child.Start(); err != nil {
		return fmt.Errorf("spawn consumer process: %w", err)
	}
	unix.Close(childFD) // parent's copy; the child inherited its own

	conn, err := fdToUnixConn(parentFD, "memwheel-demo-producer-sock")
	if err != nil {
		return err
	}
	defer conn.Close()

	stats, runErr := demo.RunProducerSide(ctx, cfg, conn, log)

	waitErr := child.Wait()
	if runErr != nil {
		return fmt.Errorf("producer session failed: %w", runErr)
	}
	if waitErr != nil {
		return fmt.Errorf("consumer process failed: %w", waitErr)
	}

	fmt.Println(demo.Report("producer", stats))
	return nil
}

func fdToUnixConn(fd int, name string) (*net.UnixConn, error) {
	f := os.NewFile(uintptr(fd), name)
	conn, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("wrap fd %d as unix conn: %w", fd, err)
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("fd %d is not a unix socket", fd)
	}
	return uc, nil
}

type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// WaitInterrupted blocks until either SIGINT or SIGTERM signal is received
// or the provided context is canceled.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case v := <-ch:
		return Interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
